package app

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"

	"github.com/shpitdev/monuments-pipeline/internal/pipeline"
	"github.com/shpitdev/monuments-pipeline/internal/verify"
	"github.com/shpitdev/monuments-pipeline/pkg/pipeline/record"
	"github.com/shpitdev/monuments-pipeline/pkg/pipeline/redact"
	"github.com/shpitdev/monuments-pipeline/pkg/pipeline/report"
	"github.com/shpitdev/monuments-pipeline/pkg/pipeline/worker"
)

type VerifyConfig struct {
	Input      string
	Reference  string
	Redirects  string
	Output     string
	ReportPath string

	ThresholdKm float64
	Options     pipeline.Options

	// Verifier handles rows that fail for lack of coordinates. Nil skips that pass.
	Verifier  verify.Equivalence
	LogOutput io.Writer
}

// RunVerify marks each resolved name as correct or not and writes the dataset with an
// is_correct column.
func RunVerify(ctx context.Context, cfg VerifyConfig) error {
	l := newRunLog(cfg.LogOutput)
	l.logf(
		"verify start: input=%s reference=%s redirects=%s thresholdKm=%g llm=%t workers=%d rateLimitRPS=%g",
		cfg.Input,
		cfg.Reference,
		cfg.Redirects,
		cfg.ThresholdKm,
		cfg.Verifier != nil,
		cfg.Options.Workers,
		cfg.Options.RateLimitRPS,
	)

	loaded, err := loadAll(ctx, []input{
		{path: cfg.Input, contract: verify.CandidateContract},
		{path: cfg.Reference, contract: verify.ReferenceContract},
	})
	if err != nil {
		return err
	}
	redirects, err := readRedirects(cfg.Redirects)
	if err != nil {
		return err
	}
	l.logf("loaded inputs: candidates=%d references=%d redirects=%d", len(loaded[0]), len(loaded[1]), len(redirects.Entries()))

	var llm verify.Equivalence
	if cfg.Verifier != nil {
		llm = newTracedVerifier(cfg.Verifier, l, cfg.Options)
	}
	coords := verify.NewCoordVerifier(redirects.Inputs(), loaded[1], cfg.ThresholdKm)
	rep := report.New()
	res, err := verify.NewRunner(coords, llm, cfg.Options.WorkerOptions()).Run(ctx, loaded[0], rep)
	if err != nil {
		return err
	}

	s := res.Stats
	l.logf(
		"verify complete: total=%d correct=%d incorrect=%d redirected=%d redirectedCorrect=%d llmChecked=%d llmConfirmed=%d llmErrors=%d",
		s.Total,
		s.Correct,
		s.Incorrect(),
		s.Redirected,
		s.RedirectedCorrect,
		s.LLMChecked,
		s.LLMConfirmed,
		s.LLMErrors,
	)
	logReport(l, rep)

	header := append(verifyHeader(loaded[0]), verify.ColIsCorrect)
	if err := writeCSV(cfg.Output, header, res.Rows); err != nil {
		return err
	}
	if err := writeReport(cfg.ReportPath, rep); err != nil {
		return err
	}
	l.logf("verify artifacts written: totalDuration=%s", l.elapsed())
	return nil
}

func readRedirects(path string) (*report.RedirectLog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()
	return report.ReadRedirectLog(f)
}

// verifyHeader keeps the input column order, without a stale is_correct column.
func verifyHeader(rows []*record.Record) []string {
	if len(rows) == 0 {
		return []string{verify.ColInputName, verify.ColWikiName, verify.ColLat, verify.ColLon, verify.ColDescription, verify.ColCategory}
	}
	var out []string
	for _, k := range rows[0].Keys() {
		if k != verify.ColIsCorrect {
			out = append(out, k)
		}
	}
	return out
}

// tracedVerifier logs every equivalence request and its outcome.
type tracedVerifier struct {
	next           verify.Equivalence
	log            *runLog
	maxRetries     int
	requestTimeout time.Duration

	mu       sync.Mutex
	attempts map[string]int
}

func newTracedVerifier(next verify.Equivalence, l *runLog, opts pipeline.Options) *tracedVerifier {
	return &tracedVerifier{
		next:           next,
		log:            l,
		maxRetries:     opts.MaxRetries,
		requestTimeout: opts.RequestTimeout,
		attempts:       make(map[string]int),
	}
}

func (t *tracedVerifier) Equivalent(ctx context.Context, c verify.Candidate) (bool, error) {
	attempt := t.nextAttempt(c.InputName)
	reqJSON, _ := json.Marshal(map[string]any{
		"input_name": c.InputName,
		"wiki_name":  c.WikiName,
		"category":   c.Category,
	})

	deadlineIn := "none"
	if d, ok := ctx.Deadline(); ok {
		deadlineIn = time.Until(d).Round(time.Millisecond).String()
	}
	t.log.logf("verify request: name=%q attempt=%d timeout=%s deadlineIn=%s request=%s",
		c.InputName, attempt, t.requestTimeout, deadlineIn, string(reqJSON))

	start := time.Now()
	ok, err := t.next.Equivalent(ctx, c)
	elapsed := time.Since(start).Round(time.Millisecond)

	if err != nil {
		retryable := worker.IsTransient(err)
		t.log.logf("verify response: name=%q attempt=%d duration=%s status=error retryable=%t willRetry=%t error=%q",
			c.InputName, attempt, elapsed, retryable, retryable && attempt <= t.maxRetries, redact.Secrets(err.Error()))
		return ok, err
	}
	t.log.logf("verify response: name=%q attempt=%d duration=%s status=ok same=%t", c.InputName, attempt, elapsed, ok)
	return ok, nil
}

func (t *tracedVerifier) nextAttempt(name string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.attempts[name]++
	return t.attempts[name]
}

