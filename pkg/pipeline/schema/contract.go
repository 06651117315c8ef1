package schema

import (
	"fmt"
	"strings"
)

// Contract names the columns a source must provide. Extra columns are allowed.
type Contract struct {
	Source   string
	Required []string
}

// MissingColumnError aborts a run: the input is structurally incomplete.
type MissingColumnError struct {
	Source string
	Column string
}

func (e *MissingColumnError) Error() string {
	if e == nil {
		return "missing required column"
	}
	if strings.TrimSpace(e.Source) == "" {
		return fmt.Sprintf("missing required column %q", e.Column)
	}
	return fmt.Sprintf("%s: missing required column %q", e.Source, e.Column)
}

// NormalizeColumn canonicalizes a header cell for comparison: trimmed, lower-cased, with a
// leading UTF-8 BOM removed.
func NormalizeColumn(raw string) string {
	s := strings.TrimPrefix(raw, "\ufeff")
	return strings.ToLower(strings.TrimSpace(s))
}

// Check verifies that every required column is present in header. The first missing column
// in contract order is reported.
func (c Contract) Check(header []string) error {
	have := make(map[string]struct{}, len(header))
	for _, h := range header {
		have[NormalizeColumn(h)] = struct{}{}
	}
	for _, col := range c.Required {
		if _, ok := have[NormalizeColumn(col)]; !ok {
			return &MissingColumnError{Source: c.Source, Column: col}
		}
	}
	return nil
}

// CheckFields is Check for records whose field names are already known (e.g. JSON objects).
// A field counts as present if any record carries it.
func (c Contract) CheckFields(fieldSets ...[]string) error {
	var header []string
	for _, fs := range fieldSets {
		header = append(header, fs...)
	}
	return c.Check(header)
}
