package report_test

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/shpitdev/monuments-pipeline/pkg/pipeline/report"
)

func TestReport_CountsAndRemoved(t *testing.T) {
	r := report.New()
	r.Add(report.Entry{InputName: "Eiffel Tower", Source: "google", Reason: report.ReasonUnmatched})
	r.Add(report.Entry{InputName: "Conciergerie", Source: "en", Reason: report.ReasonMissingField, Detail: "address"})
	r.Add(report.Entry{InputName: "Louvre", Source: "google", Reason: report.ReasonDuplicate})
	r.Add(report.Entry{InputName: "Orsay", Source: "en", Reason: report.ReasonPriceIndeterminate})

	if r.Len() != 4 {
		t.Fatalf("expected 4 entries, got %d", r.Len())
	}
	if got := r.Count(report.ReasonUnmatched); got != 1 {
		t.Fatalf("expected 1 unmatched, got %d", got)
	}
	if got := r.Removed(); got != 3 {
		t.Fatalf("expected 3 removed (unmatched + missing field + duplicate), got %d", got)
	}

	counts := r.Counts()
	if len(counts) != 4 || counts[0].Reason != report.ReasonDuplicate {
		t.Fatalf("unexpected counts order: %#v", counts)
	}
}

func TestReport_WriteCSV(t *testing.T) {
	r := report.New()
	r.Add(report.Entry{InputName: "Arc, de Triomphe", Source: "en", Reason: report.ReasonUnmatched})

	var buf bytes.Buffer
	if err := r.WriteCSV(&buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "input_name,source,reason,detail\n\"Arc, de Triomphe\",en,unmatched,\n"
	if buf.String() != want {
		t.Fatalf("unexpected csv:\n%s", buf.String())
	}
}

func TestReport_ConcurrentAdd(t *testing.T) {
	r := report.New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Add(report.Entry{InputName: "x", Reason: report.ReasonUnmatched})
		}()
	}
	wg.Wait()
	if r.Count(report.ReasonUnmatched) != 50 {
		t.Fatalf("expected 50, got %d", r.Count(report.ReasonUnmatched))
	}
}

func TestRedirectLog_RoundTrip(t *testing.T) {
	l := report.NewRedirectLog()
	l.Append("Tour Eiffel", "Eiffel Tower")
	l.Append("Louvre", "Louvre")
	l.Append("", "Nothing")
	l.Append("Sacré-Cœur", "Basilica of the Sacred Heart of Paris")

	var buf bytes.Buffer
	if _, err := l.WriteTo(&buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "Tour Eiffel -> Eiffel Tower\nSacré-Cœur -> Basilica of the Sacred Heart of Paris\n"
	if buf.String() != want {
		t.Fatalf("unexpected log:\n%s", buf.String())
	}

	back, err := report.ReadRedirectLog(strings.NewReader(buf.String() + "garbage line\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(back.Entries()) != 2 {
		t.Fatalf("expected 2 entries, got %#v", back.Entries())
	}
	if _, ok := back.Inputs()["Tour Eiffel"]; !ok {
		t.Fatalf("expected Tour Eiffel in inputs")
	}
}
