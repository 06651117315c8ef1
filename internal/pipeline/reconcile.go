package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/shpitdev/monuments-pipeline/pkg/pipeline/record"
	"github.com/shpitdev/monuments-pipeline/pkg/pipeline/report"
	"github.com/shpitdev/monuments-pipeline/pkg/pipeline/worker"
	"github.com/shpitdev/monuments-pipeline/pkg/reconcile/clean"
	"github.com/shpitdev/monuments-pipeline/pkg/reconcile/match"
	"github.com/shpitdev/monuments-pipeline/pkg/reconcile/merge"
	"github.com/shpitdev/monuments-pipeline/pkg/reconcile/rules"
)

// Inputs are the row sets of one merge run. English rows are the anchors.
type Inputs struct {
	English []*record.Record
	French  []*record.Record
	Google  []*record.Record
}

// Output is the result of a merge run.
type Output struct {
	// Rows are the canonical rows projected onto Header(), in anchor order.
	Rows      []*record.Record
	Canonical []record.Canonical
	Report    *report.Report
	Redirects *report.RedirectLog

	Matched   int
	Unmatched int
	Exact     int
	// Removed counts anchors left out of Rows.
	Removed int
}

type ReconcileOptions struct {
	Options
	// KeepUnmatched keeps anchors without a Google match in Rows with null Google fields.
	// They are reported either way.
	KeepUnmatched bool
}

// Reconciler matches anchor rows to the Google index and merges each group.
type Reconciler struct {
	rules   *rules.Rules
	matcher *match.Matcher
	merger  *merge.Merger
	text    *clean.TextCleaner
	price   *clean.PriceParser
	opts    ReconcileOptions
}

func NewReconciler(r *rules.Rules, opts ReconcileOptions) (*Reconciler, error) {
	m, err := r.Matcher()
	if err != nil {
		return nil, err
	}
	return &Reconciler{
		rules:   r,
		matcher: m,
		merger:  merge.New(r.MergePolicy(SourceEnglish)),
		text:    r.TextCleaner(),
		price:   r.PriceParser(),
		opts:    opts,
	}, nil
}

// Matcher exposes the run's matcher so callers can log the chosen strategy.
func (rc *Reconciler) Matcher() *match.Matcher { return rc.matcher }

type frenchLookup struct {
	nameByURL map[string]string
	rowByURL  map[string]*record.Record
	rowByName map[string]*record.Record
}

func newFrenchLookup(rows []*record.Record) frenchLookup {
	fl := frenchLookup{
		nameByURL: make(map[string]string),
		rowByURL:  make(map[string]*record.Record),
		rowByName: make(map[string]*record.Record),
	}
	for _, r := range rows {
		name := r.Str(ColName)
		if u := r.Str(ColURL); u != "" {
			fl.nameByURL[u] = name
			fl.rowByURL[u] = r
		}
		if name != "" {
			fl.rowByName[name] = r
		}
	}
	return fl
}

// aliases returns the English name, the French name found by url, and the French row
// with the same exact name, deduplicated in that order.
func (fl frenchLookup) aliases(anchor *record.Record) []string {
	en := anchor.Str(ColName)
	cands := []string{en, fl.nameByURL[anchor.Str(ColURL)]}
	if fr, ok := fl.rowByName[en]; ok {
		cands = append(cands, fr.Str(ColName))
	}
	seen := make(map[string]struct{}, len(cands))
	out := make([]string, 0, len(cands))
	for _, a := range cands {
		if a == "" {
			continue
		}
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return out
}

func (fl frenchLookup) row(anchor *record.Record) *record.Record {
	if r, ok := fl.rowByURL[anchor.Str(ColURL)]; ok && anchor.Str(ColURL) != "" {
		return r
	}
	return fl.rowByName[anchor.Str(ColName)]
}

// Run matches every anchor, merges matched groups and builds the side-channel report.
func (rc *Reconciler) Run(ctx context.Context, in Inputs) (*Output, error) {
	out := &Output{Report: report.New(), Redirects: report.NewRedirectLog()}

	fr := newFrenchLookup(in.French)
	googleNames := make([]string, len(in.Google))
	for i, g := range in.Google {
		googleNames[i] = g.Str("name")
	}
	idx := match.NewIndex(googleNames, rc.rules.Normalizer())

	anchors := make([]*record.Record, len(in.English))
	for i, r := range in.English {
		anchors[i] = rc.cleanAnchor(r)
	}

	// Matching is CPU-bound and independent per anchor; results come back in input order.
	wopts := rc.opts.WorkerOptions()
	wopts.RequestTimeout = 0
	wopts.RateLimitRPS = 0
	wopts.MaxRetries = 0
	results, err := worker.MapFunc(ctx, anchors, func(_ context.Context, a *record.Record) (match.Result, error) {
		return rc.matcher.Find(fr.aliases(a), idx), nil
	}, wopts)
	if err != nil {
		return nil, fmt.Errorf("match anchors: %w", err)
	}

	for i, anchor := range anchors {
		res := results[i].Output
		name := anchor.Str(ColName)

		var matched []merge.Source
		if frRow := fr.row(anchor); frRow != nil {
			matched = append(matched, merge.Source{Tag: SourceFrench, Record: rc.project(SourceFrench, frRow)})
		}
		if res.Matched() {
			out.Matched++
			if res.Exact {
				out.Exact++
			} else {
				out.Redirects.Append(res.Alias, idx.Name(res.Index))
			}
			g := in.Google[res.Index].Rename(googleRename)
			matched = append(matched, merge.Source{Tag: SourceGoogle, Record: rc.project(SourceGoogle, g)})
		} else {
			out.Unmatched++
			out.Report.Add(report.Entry{
				InputName: name,
				Source:    SourceGoogle,
				Reason:    report.ReasonUnmatched,
				Detail:    anchor.Str(ColURL),
			})
		}

		canon, err := rc.merger.Merge(anchor, matched)
		if err != nil {
			var mfe *merge.MissingFieldError
			switch {
			case errors.As(err, &mfe):
				out.Report.Add(report.Entry{InputName: displayName(anchor), Source: SourceEnglish, Reason: report.ReasonMissingField, Detail: mfe.Field})
			case errors.Is(err, merge.ErrNoAnchor):
				out.Report.Add(report.Entry{InputName: name, Source: SourceEnglish, Reason: report.ReasonNoAnchor})
			default:
				return nil, err
			}
			continue
		}
		if !res.Matched() && !rc.opts.KeepUnmatched {
			continue
		}
		reportPrice(out.Report, canon.Fields, SourceEnglish)
		out.Canonical = append(out.Canonical, canon)
		out.Rows = append(out.Rows, Project(canon.Fields, Header()))
	}
	out.Removed = len(anchors) - len(out.Rows)
	return out, nil
}

// cleanAnchor re-applies text cleaning to an anchor and derives the price status from the
// raw price text, which itself stays verbatim.
func (rc *Reconciler) cleanAnchor(raw *record.Record) *record.Record {
	r := raw.Clone()
	for _, k := range r.Keys() {
		if v := r.Value(k); v.Kind() == record.KindText && k != ColTicketPriceRaw {
			r.Set(k, rc.text.Clean(v))
		}
	}
	priceText := raw.Str(ColTicketPriceRaw)
	if priceText == "" {
		priceText = raw.Str(ColTicketPrice)
	}
	p := rc.price.Parse(priceText)
	if r.Value(ColTicketPrice).Empty() {
		r.Set(ColTicketPrice, record.Text(clean.FormatPrice(p.Value)))
	}
	if r.Value(ColTicketPriceStatus).Empty() {
		r.Set(ColTicketPriceStatus, record.Text(string(p.Status)))
	}
	return r
}

// project keeps only the fields a source may contribute.
func (rc *Reconciler) project(tag string, r *record.Record) *record.Record {
	fields, ok := rc.rules.EnrichFields[tag]
	if !ok {
		return r
	}
	out := record.New()
	for _, f := range fields {
		if v, ok := r.Get(f); ok {
			out.Set(f, v)
		}
	}
	return out
}

// Project lays r out on columns. Absent columns are null.
func Project(r *record.Record, columns []string) *record.Record {
	out := record.New()
	for _, c := range columns {
		out.Set(c, r.Value(c))
	}
	return out
}
