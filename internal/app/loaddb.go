package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/shpitdev/monuments-pipeline/internal/pipeline"
	"github.com/shpitdev/monuments-pipeline/internal/store"
	"github.com/shpitdev/monuments-pipeline/internal/verify"
	"github.com/shpitdev/monuments-pipeline/pkg/pipeline/core"
	"github.com/shpitdev/monuments-pipeline/pkg/pipeline/record"
	"github.com/shpitdev/monuments-pipeline/pkg/pipeline/schema"
)

type LoadDBConfig struct {
	Input string
	// Wiki is the verified dataset; optional.
	Wiki      string
	DBPath    string
	LogOutput io.Writer
}

// ErrIntegrity is returned when a foreign key has orphan rows after loading.
var ErrIntegrity = errors.New("database integrity check failed")

// RunLoadDB loads merged rows into a fresh SQLite database, creates the reporting views
// and checks referential integrity.
func RunLoadDB(ctx context.Context, cfg LoadDBConfig) error {
	l := newRunLog(cfg.LogOutput)
	l.logf("load-db start: input=%s wiki=%s db=%s", cfg.Input, cfg.Wiki, cfg.DBPath)

	ins := []input{{path: cfg.Input, contract: schema.Contract{Source: "merged", Required: []string{pipeline.ColName}}}}
	if cfg.Wiki != "" {
		ins = append(ins, input{path: cfg.Wiki, contract: schema.Contract{
			Source:   "wiki",
			Required: []string{verify.ColInputName, verify.ColIsCorrect},
		}})
	}
	loaded, err := loadAll(ctx, ins)
	if err != nil {
		return err
	}

	db, err := store.Create(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = db.Close()
	}()
	if len(loaded) > 1 {
		wiki := store.WikiIndex(loaded[1])
		l.logf("verified wiki entries: %d", len(wiki))
		db.WithWiki(wiki)
	}

	var sink core.Sink[*record.Record] = db
	if err := sink.Store(ctx, loaded[0]); err != nil {
		return err
	}

	counts, err := db.TableCounts(ctx)
	if err != nil {
		return err
	}
	for _, c := range counts {
		l.logf("table: name=%s rows=%d", c.Table, c.Rows)
	}
	l.logf("views: %v", store.Views())

	gems, err := db.HiddenGems(ctx, 5)
	if err != nil {
		return err
	}
	for _, g := range gems {
		l.logf("hidden gem: name=%q rating=%.1f votes=%d", g.Name, g.Rating, g.Votes)
	}

	results, err := db.CheckIntegrity(ctx)
	if err != nil {
		return err
	}
	failed := 0
	for _, r := range results {
		l.logf("integrity: %s -> %s (%s = %s) orphans=%d status=%s", r.Child, r.Parent, r.FK, r.PK, r.Orphans, r.Status())
		if !r.Passed() {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d relationship(s) with orphans", ErrIntegrity, failed)
	}

	if err := db.Close(); err != nil {
		return err
	}
	l.logf("load-db complete: totalDuration=%s", l.elapsed())
	return nil
}
