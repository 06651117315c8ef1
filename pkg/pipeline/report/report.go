// Package report collects the side-channel output of a run: every record that was dropped,
// left unmatched or annotated, with the reason. Downstream consumers read it as data.
package report

import (
	"encoding/csv"
	"io"
	"sort"
	"sync"
)

// Reason classifies a report entry.
type Reason string

const (
	// ReasonUnmatched: no candidate in the reference set was similar enough. The record is
	// left out of the canonical output unless the caller keeps unmatched rows.
	ReasonUnmatched Reason = "unmatched"
	// ReasonMissingField: a required field was absent after cleaning; the record was removed.
	ReasonMissingField Reason = "missing_required_field"
	// ReasonNoAnchor: a group had no anchor record; nothing was produced for it.
	ReasonNoAnchor Reason = "no_anchor"
	// ReasonPriceIndeterminate: no price and no free-admission marker; 0.0 was substituted.
	ReasonPriceIndeterminate Reason = "price_indeterminate"
	// ReasonPriceFree: the raw price explicitly said admission is free.
	ReasonPriceFree Reason = "price_free"
	// ReasonDuplicate: the row collapsed into an earlier row with the same dedupe key.
	ReasonDuplicate Reason = "duplicate"
	// ReasonInvalid: a row failed a source-specific validity rule (e.g. missing rating).
	ReasonInvalid Reason = "invalid"
	// ReasonVerifyFailed: an alias resolution could not be confirmed.
	ReasonVerifyFailed Reason = "verification_failed"
)

// Dropping reports whether entries with this reason remove the record from the output.
func (r Reason) Dropping() bool {
	switch r {
	case ReasonUnmatched, ReasonMissingField, ReasonNoAnchor, ReasonDuplicate, ReasonInvalid:
		return true
	default:
		return false
	}
}

// Entry is one side-channel line.
type Entry struct {
	InputName string `json:"input_name"`
	Source    string `json:"source"`
	Reason    Reason `json:"reason"`
	Detail    string `json:"detail,omitempty"`
}

// Report is an append-only list of entries. It is safe for concurrent use.
type Report struct {
	mu      sync.Mutex
	entries []Entry
	counts  map[Reason]int
}

// New returns an empty report.
func New() *Report {
	return &Report{counts: make(map[Reason]int)}
}

// Add appends an entry.
func (r *Report) Add(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	r.counts[e.Reason]++
}

// Entries returns a copy of the entries in insertion order.
func (r *Report) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Count returns the number of entries with the given reason.
func (r *Report) Count(reason Reason) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[reason]
}

// Removed returns the number of entries whose reason drops the record.
func (r *Report) Removed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for reason, c := range r.counts {
		if reason.Dropping() {
			n += c
		}
	}
	return n
}

// Len returns the number of entries.
func (r *Report) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Counts returns a snapshot of per-reason counts sorted by reason name.
func (r *Report) Counts() []ReasonCount {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ReasonCount, 0, len(r.counts))
	for reason, c := range r.counts {
		out = append(out, ReasonCount{Reason: reason, Count: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Reason < out[j].Reason })
	return out
}

// ReasonCount is a (reason, count) pair.
type ReasonCount struct {
	Reason Reason
	Count  int
}

// Header returns the stable CSV header for report output.
func Header() []string {
	return []string{"input_name", "source", "reason", "detail"}
}

// WriteCSV writes the entries with the stable Header() ordering.
func (r *Report) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header()); err != nil {
		return err
	}
	for _, e := range r.Entries() {
		if err := cw.Write([]string{e.InputName, e.Source, string(e.Reason), e.Detail}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
