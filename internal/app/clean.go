package app

import (
	"context"
	"fmt"
	"io"

	"github.com/shpitdev/monuments-pipeline/internal/gmaps"
	"github.com/shpitdev/monuments-pipeline/internal/pipeline"
	"github.com/shpitdev/monuments-pipeline/pkg/pipeline/record"
	"github.com/shpitdev/monuments-pipeline/pkg/pipeline/report"
	"github.com/shpitdev/monuments-pipeline/pkg/reconcile/rules"
)

type CleanConfig struct {
	Input      string
	Output     string
	JSONOutput string
	ReportPath string
	Rules      *rules.Rules
	LogOutput  io.Writer
}

// RunClean cleans a raw site scrape and drops rows missing a required field.
func RunClean(ctx context.Context, cfg CleanConfig) error {
	l := newRunLog(cfg.LogOutput)
	r := cfg.Rules
	if r == nil {
		r = rules.Default()
	}
	l.logf("clean start: input=%s output=%s required=%v", cfg.Input, cfg.Output, r.RequiredFields)

	loaded, err := loadAll(ctx, []input{{path: cfg.Input, contract: pipeline.SiteContract}})
	if err != nil {
		return err
	}
	raw := loaded[0]

	rep := report.New()
	rows := pipeline.NewSiteCleaner(r).Clean(raw, rep)
	l.logf("cleaned rows: input=%d kept=%d removed=%d", len(raw), len(rows), rep.Count(report.ReasonMissingField))
	for _, fr := range pipeline.FillRates(rows, pipeline.CleanHeader()) {
		l.logf("fill rate: column=%s filled=%d missing=%d pct=%.1f", fr.Column, fr.Filled, fr.Missing(), fr.Percent())
	}
	logReport(l, rep)

	if err := writeCSV(cfg.Output, pipeline.CleanHeader(), rows); err != nil {
		return err
	}
	if err := writeJSON(cfg.JSONOutput, rows); err != nil {
		return err
	}
	if err := writeReport(cfg.ReportPath, rep); err != nil {
		return err
	}
	l.logf("clean complete: totalDuration=%s", l.elapsed())
	return nil
}

type GoogleCleanConfig struct {
	Inputs     []string
	Output     string
	ReportPath string
	LogOutput  io.Writer
}

// RunGoogleClean concatenates Google Maps exports and keeps one row per place.
func RunGoogleClean(ctx context.Context, cfg GoogleCleanConfig) error {
	if len(cfg.Inputs) == 0 {
		return fmt.Errorf("google-clean needs at least one input")
	}
	l := newRunLog(cfg.LogOutput)
	l.logf("google-clean start: inputs=%d output=%s", len(cfg.Inputs), cfg.Output)

	ins := make([]input, len(cfg.Inputs))
	for i, p := range cfg.Inputs {
		ins[i] = input{path: p, contract: pipeline.GoogleContract}
	}
	loaded, err := loadAll(ctx, ins)
	if err != nil {
		return err
	}
	var all []*record.Record
	for i, rows := range loaded {
		l.logf("loaded %d rows from %s", len(rows), cfg.Inputs[i])
		all = append(all, rows...)
	}

	rep := report.New()
	out := gmaps.Consolidate(all, rep)
	l.logf("consolidated: input=%d kept=%d removed=%d", len(all), len(out), rep.Removed())
	logReport(l, rep)

	if err := writeCSV(cfg.Output, gmaps.Header(), out); err != nil {
		return err
	}
	if err := writeReport(cfg.ReportPath, rep); err != nil {
		return err
	}
	l.logf("google-clean complete: totalDuration=%s", l.elapsed())
	return nil
}
