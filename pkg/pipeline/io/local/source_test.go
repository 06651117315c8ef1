package local_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shpitdev/monuments-pipeline/pkg/pipeline/io/local"
	"github.com/shpitdev/monuments-pipeline/pkg/pipeline/schema"
)

func TestFileSource_Load(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "google.csv")
	if err := os.WriteFile(csvPath, []byte("name,place_link\nLouvre,g1\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	jsonPath := filepath.Join(dir, "site.JSON")
	if err := os.WriteFile(jsonPath, []byte(`[{"name": "Panthéon", "place_link": "g2"}]`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	contract := schema.Contract{Source: "google", Required: []string{"name", "place_link"}}

	for _, path := range []string{csvPath, jsonPath} {
		rows, err := local.FileSource{Path: path, Contract: contract}.Load(context.Background())
		if err != nil {
			t.Fatalf("load %s: %v", path, err)
		}
		if len(rows) != 1 || rows[0].Str("place_link") == "" {
			t.Fatalf("unexpected rows from %s: %v", path, rows)
		}
	}

	t.Run("missing column keeps typed error", func(t *testing.T) {
		strict := schema.Contract{Source: "google", Required: []string{"rating"}}
		_, err := local.FileSource{Path: csvPath, Contract: strict}.Load(context.Background())
		var mce *schema.MissingColumnError
		if !errors.As(err, &mce) || mce.Column != "rating" {
			t.Fatalf("expected missing rating, got %v", err)
		}
	})

	t.Run("canceled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := local.FileSource{Path: csvPath, Contract: contract}.Load(ctx)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	})
}
