package core

import (
	"context"
	"fmt"
)

// Source loads one snapshot of rows from an external collaborator (a file, a database).
type Source[Row any] interface {
	Load(ctx context.Context) ([]Row, error)
}

// Sink persists rows produced by a pipeline stage.
type Sink[Row any] interface {
	Store(ctx context.Context, rows []Row) error
}

// Processor transforms one input item into one output item.
type Processor[In any, Out any] interface {
	Process(ctx context.Context, in In) (Out, error)
}

// ProcessFunc adapts a function to the Processor interface.
type ProcessFunc[In any, Out any] func(ctx context.Context, in In) (Out, error)

func (f ProcessFunc[In, Out]) Process(ctx context.Context, in In) (Out, error) {
	return f(ctx, in)
}

// TransientError marks an error as retryable by worker implementations.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	if e == nil || e.Err == nil {
		return "transient error"
	}
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// LimitedTransientError is retryable, but caps the number of extra attempts below the
// worker-wide MaxRetries. Rate-limit responses from upstream APIs use it.
type LimitedTransientError struct {
	Err          error
	ExtraRetries int
}

func (e *LimitedTransientError) Error() string {
	if e == nil || e.Err == nil {
		return fmt.Sprintf("transient error (max %d retries)", e.maxExtra())
	}
	return e.Err.Error()
}

func (e *LimitedTransientError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// MaxExtraRetries implements the retry cap consulted by the worker pool.
func (e *LimitedTransientError) MaxExtraRetries() int {
	return e.maxExtra()
}

func (e *LimitedTransientError) maxExtra() int {
	if e == nil || e.ExtraRetries < 0 {
		return 0
	}
	return e.ExtraRetries
}
