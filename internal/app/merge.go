package app

import (
	"context"
	"io"

	"github.com/shpitdev/monuments-pipeline/internal/pipeline"
	localio "github.com/shpitdev/monuments-pipeline/pkg/pipeline/io/local"
	"github.com/shpitdev/monuments-pipeline/pkg/reconcile/rules"
)

type MergeConfig struct {
	English       string
	French        string
	Google        string
	Output        string
	JSONOutput    string
	ReportPath    string
	RedirectsPath string
	Rules         *rules.Rules
	Options       pipeline.ReconcileOptions
	LogOutput     io.Writer
}

// RunMerge matches English anchors against the consolidated Google index and merges
// French and Google fields into one canonical row per anchor.
func RunMerge(ctx context.Context, cfg MergeConfig) error {
	l := newRunLog(cfg.LogOutput)
	r := cfg.Rules
	if r == nil {
		r = rules.Default()
	}

	rc, err := pipeline.NewReconciler(r, cfg.Options)
	if err != nil {
		return err
	}
	m := rc.Matcher()
	l.logf(
		"merge start: english=%s french=%s google=%s scorer=%s minScore=%g workers=%d keepUnmatched=%t",
		cfg.English,
		cfg.French,
		cfg.Google,
		m.Scorer().Name(),
		m.MinScore(),
		cfg.Options.Workers,
		cfg.Options.KeepUnmatched,
	)

	loadStart := l.elapsed()
	loaded, err := loadAll(ctx, []input{
		{path: cfg.English, contract: pipeline.EnglishContract},
		{path: cfg.French, contract: pipeline.FrenchContract},
		{path: cfg.Google, contract: pipeline.GoogleContract},
	})
	if err != nil {
		return err
	}
	in := pipeline.Inputs{English: loaded[0], French: loaded[1], Google: loaded[2]}
	l.logf(
		"loaded inputs: english=%d french=%d google=%d duration=%s",
		len(in.English),
		len(in.French),
		len(in.Google),
		l.elapsed()-loadStart,
	)

	out, err := rc.Run(ctx, in)
	if err != nil {
		return err
	}
	l.logf(
		"merge complete: rows=%d matched=%d exact=%d fuzzy=%d unmatched=%d removed=%d redirects=%d",
		len(out.Rows),
		out.Matched,
		out.Exact,
		out.Matched-out.Exact,
		out.Unmatched,
		out.Removed,
		len(out.Redirects.Entries()),
	)
	logReport(l, out.Report)

	if err := writeCSV(cfg.Output, pipeline.Header(), out.Rows); err != nil {
		return err
	}
	if err := writeJSON(cfg.JSONOutput, out.Rows); err != nil {
		return err
	}
	if err := writeReport(cfg.ReportPath, out.Report); err != nil {
		return err
	}
	if cfg.RedirectsPath != "" {
		if err := localio.WriteFile(cfg.RedirectsPath, func(w io.Writer) error {
			_, err := out.Redirects.WriteTo(w)
			return err
		}); err != nil {
			return err
		}
	}
	l.logf("merge artifacts written: totalDuration=%s", l.elapsed())
	return nil
}
