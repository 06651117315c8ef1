// Package app runs each pipeline step end to end: load inputs, run the step, write
// artifacts and log progress under a run id.
package app

import (
	"context"
	"io"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/shpitdev/monuments-pipeline/pkg/pipeline/core"
	localio "github.com/shpitdev/monuments-pipeline/pkg/pipeline/io/local"
	"github.com/shpitdev/monuments-pipeline/pkg/pipeline/record"
	"github.com/shpitdev/monuments-pipeline/pkg/pipeline/report"
	"github.com/shpitdev/monuments-pipeline/pkg/pipeline/schema"
)

type runLog struct {
	logger *log.Logger
	runID  string
	start  time.Time
}

func newRunLog(w io.Writer) *runLog {
	if w == nil {
		w = os.Stdout
	}
	return &runLog{
		logger: log.New(w, "", log.LstdFlags),
		runID:  uuid.NewString(),
		start:  time.Now(),
	}
}

func (l *runLog) logf(format string, args ...any) {
	prefix := make([]any, 0, len(args)+1)
	prefix = append(prefix, l.runID)
	prefix = append(prefix, args...)
	l.logger.Printf("run=%s "+format, prefix...)
}

func (l *runLog) elapsed() time.Duration {
	return time.Since(l.start).Round(time.Millisecond)
}

// input is one file to load and the columns it must carry.
type input struct {
	path     string
	contract schema.Contract
}

func (in input) source() core.Source[*record.Record] {
	return localio.FileSource{Path: in.path, Contract: in.contract}
}

// loadAll reads inputs concurrently. Results follow the order of inputs.
func loadAll(ctx context.Context, inputs []input) ([][]*record.Record, error) {
	sources := make([]core.Source[*record.Record], len(inputs))
	for i, in := range inputs {
		sources[i] = in.source()
	}
	return loadSources(ctx, sources)
}

func loadSources(ctx context.Context, sources []core.Source[*record.Record]) ([][]*record.Record, error) {
	out := make([][]*record.Record, len(sources))
	g, ctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		g.Go(func() error {
			rows, err := src.Load(ctx)
			if err != nil {
				return err
			}
			out[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func writeCSV(path string, header []string, rows []*record.Record) error {
	return localio.WriteFile(path, func(w io.Writer) error {
		return localio.WriteRecordsCSV(w, header, rows)
	})
}

// writeJSON is a no-op for an empty path.
func writeJSON(path string, rows []*record.Record) error {
	if path == "" {
		return nil
	}
	return localio.WriteFile(path, func(w io.Writer) error {
		return localio.WriteRecordsJSON(w, rows)
	})
}

// writeReport is a no-op for an empty path.
func writeReport(path string, rep *report.Report) error {
	if path == "" {
		return nil
	}
	return localio.WriteFile(path, rep.WriteCSV)
}

func logReport(l *runLog, rep *report.Report) {
	for _, c := range rep.Counts() {
		l.logf("report: reason=%s count=%d", c.Reason, c.Count)
	}
}
