package schema_test

import (
	"errors"
	"testing"

	"github.com/shpitdev/monuments-pipeline/pkg/pipeline/schema"
)

func TestContractCheck(t *testing.T) {
	c := schema.Contract{Source: "google", Required: []string{"name", "rating", "place_link"}}

	tests := []struct {
		name    string
		header  []string
		wantCol string
	}{
		{name: "all present", header: []string{"name", "rating", "place_link", "extra"}},
		{name: "case and spacing", header: []string{" Name ", "RATING", "place_link"}},
		{name: "bom on first column", header: []string{"\ufeffname", "rating", "place_link"}},
		{name: "missing rating", header: []string{"name", "place_link"}, wantCol: "rating"},
		{name: "first missing reported", header: []string{"other"}, wantCol: "name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Check(tt.header)
			if tt.wantCol == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var mce *schema.MissingColumnError
			if !errors.As(err, &mce) {
				t.Fatalf("expected MissingColumnError, got %v", err)
			}
			if mce.Column != tt.wantCol || mce.Source != "google" {
				t.Fatalf("got column=%q source=%q, want column=%q source=google", mce.Column, mce.Source, tt.wantCol)
			}
		})
	}
}

func TestMissingColumnErrorMessage(t *testing.T) {
	err := &schema.MissingColumnError{Source: "en", Column: "address"}
	if got, want := err.Error(), `en: missing required column "address"`; got != want {
		t.Fatalf("Error()=%q want=%q", got, want)
	}
}
