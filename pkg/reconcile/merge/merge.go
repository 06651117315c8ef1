// Package merge builds one canonical row per monument from an anchor row and the rows
// matched to it in other sources.
package merge

import (
	"errors"
	"fmt"

	"github.com/shpitdev/monuments-pipeline/pkg/pipeline/record"
	"github.com/shpitdev/monuments-pipeline/pkg/reconcile/clean"
)

// ErrNoAnchor is returned when Merge is called without an anchor row.
var ErrNoAnchor = errors.New("merge: no anchor record")

// MissingFieldError reports an anchor that lacks a required field after cleaning.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("merge: required field %q is empty", e.Field)
}

// Source is a row contributed by a non-anchor source.
type Source struct {
	Tag    string
	Record *record.Record
}

// ItemNormalizer maps a list item to its canonical form. Items with equal canonical forms
// appear once in the merged list.
type ItemNormalizer func(item string) string

// Policy configures conflict resolution.
type Policy struct {
	// AnchorTag names the anchor in Precedence lists and in Canonical.AnchorSource.
	AnchorTag string
	// Precedence lists, per scalar field, the source tags to try in order. The anchor is
	// always tried after the listed tags. Fields without an entry take the first non-empty
	// value in anchor then matched order.
	Precedence map[string][]string
	// ListFields are merged as a union of items. A nil normalizer keeps items verbatim.
	ListFields map[string]ItemNormalizer
	// Required fields must be non-empty on the anchor.
	Required []string
}

type Merger struct {
	policy Policy
}

func New(p Policy) *Merger {
	if p.AnchorTag == "" {
		p.AnchorTag = "anchor"
	}
	return &Merger{policy: p}
}

// Merge resolves every field seen on the anchor or a matched row. Field order is the
// anchor's, followed by fields first seen in matched rows.
func (m *Merger) Merge(anchor *record.Record, matched []Source) (record.Canonical, error) {
	if anchor == nil {
		return record.Canonical{}, ErrNoAnchor
	}
	for _, f := range m.policy.Required {
		if anchor.Value(f).Empty() {
			return record.Canonical{}, &MissingFieldError{Field: f}
		}
	}

	all := make([]Source, 0, len(matched)+1)
	all = append(all, Source{Tag: m.policy.AnchorTag, Record: anchor})
	for _, s := range matched {
		if s.Record != nil {
			all = append(all, s)
		}
	}

	var fields []string
	seenField := make(map[string]struct{})
	for _, s := range all {
		for _, k := range s.Record.Keys() {
			if _, ok := seenField[k]; !ok {
				seenField[k] = struct{}{}
				fields = append(fields, k)
			}
		}
	}

	out := record.New()
	contributed := make(map[string]struct{})
	for _, f := range fields {
		if norm, ok := m.policy.ListFields[f]; ok {
			out.Set(f, mergeList(f, all, norm, contributed))
			continue
		}
		out.Set(f, m.mergeScalar(f, all, contributed))
	}

	sources := make([]string, 0, len(all))
	for _, s := range all {
		if _, ok := contributed[s.Tag]; ok {
			sources = append(sources, s.Tag)
			delete(contributed, s.Tag)
		}
	}
	return record.Canonical{AnchorSource: m.policy.AnchorTag, Fields: out, Sources: sources}, nil
}

func (m *Merger) mergeScalar(field string, all []Source, contributed map[string]struct{}) record.Value {
	order, listed := m.policy.Precedence[field]
	candidates := all
	if listed {
		candidates = nil
		for _, tag := range order {
			for _, s := range all {
				if s.Tag == tag {
					candidates = append(candidates, s)
				}
			}
		}
		candidates = append(candidates, all[0])
	}
	for _, s := range candidates {
		v, ok := s.Record.Get(field)
		if ok && !v.Empty() {
			contributed[s.Tag] = struct{}{}
			return v
		}
	}
	return record.Null()
}

func mergeList(field string, all []Source, norm ItemNormalizer, contributed map[string]struct{}) record.Value {
	seen := make(map[string]struct{})
	items := []string{}
	present := false
	for _, s := range all {
		v, ok := s.Record.Get(field)
		if !ok {
			continue
		}
		present = present || !v.IsNull()
		for _, it := range clean.List(v) {
			if norm != nil {
				it = norm(it)
			}
			if it == "" {
				continue
			}
			if _, dup := seen[it]; dup {
				continue
			}
			seen[it] = struct{}{}
			items = append(items, it)
			contributed[s.Tag] = struct{}{}
		}
	}
	if !present {
		return record.Null()
	}
	return record.List(items)
}
