// Package clean holds the per-field cleaning functions applied to raw monument rows.
// All functions are pure.
package clean

import (
	"strings"

	"github.com/shpitdev/monuments-pipeline/pkg/pipeline/record"
)

// DefaultPlaceholders are scraper outputs that mean "no data". Matched case-insensitively
// after trimming.
var DefaultPlaceholders = []string{
	"not found",
	"name not found",
	"address not found",
	"section not found",
	"none",
	"",
}

// TextCleaner maps placeholder strings to null.
type TextCleaner struct {
	placeholders map[string]struct{}
}

func NewTextCleaner(placeholders []string) *TextCleaner {
	c := &TextCleaner{placeholders: make(map[string]struct{}, len(placeholders)+1)}
	c.placeholders[""] = struct{}{}
	for _, p := range placeholders {
		c.placeholders[strings.ToLower(strings.TrimSpace(p))] = struct{}{}
	}
	return c
}

// IsPlaceholder reports whether s is absent data.
func (c *TextCleaner) IsPlaceholder(s string) bool {
	_, ok := c.placeholders[strings.ToLower(strings.TrimSpace(s))]
	return ok
}

// Clean trims text values and turns placeholders into null. Lists and nulls pass through.
func (c *TextCleaner) Clean(v record.Value) record.Value {
	if v.Kind() != record.KindText {
		return v
	}
	s := strings.TrimSpace(v.Text())
	if c.IsPlaceholder(s) {
		return record.Null()
	}
	return record.Text(s)
}

// FirstLine keeps the text before the first newline, trimmed.
func FirstLine(s string) string {
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// List returns the non-empty items of a list field. Text values are split on "|".
func List(v record.Value) []string {
	var raw []string
	switch v.Kind() {
	case record.KindList:
		raw = v.Items()
	case record.KindText:
		raw = strings.Split(v.Text(), "|")
	default:
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, it := range raw {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	return out
}
