// Package store loads merged monument rows into a SQLite database with reporting views.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/shpitdev/monuments-pipeline/internal/pipeline"
	"github.com/shpitdev/monuments-pipeline/internal/verify"
	"github.com/shpitdev/monuments-pipeline/pkg/pipeline/core"
	"github.com/shpitdev/monuments-pipeline/pkg/pipeline/record"
)

// WikiInfo is the verified Wikipedia context attached to an attraction by name.
type WikiInfo struct {
	Description string
	URL         string
	Category    string
}

// WikiIndex keeps verified rows keyed by input name. The first row per name wins.
func WikiIndex(rows []*record.Record) map[string]WikiInfo {
	out := make(map[string]WikiInfo, len(rows))
	for _, r := range rows {
		if ok, _ := strconv.ParseBool(strings.TrimSpace(r.Str(verify.ColIsCorrect))); !ok {
			continue
		}
		name := strings.TrimSpace(r.Str(verify.ColInputName))
		if _, dup := out[name]; dup || name == "" {
			continue
		}
		out[name] = WikiInfo{
			Description: strings.TrimSpace(r.Str(verify.ColDescription)),
			URL:         strings.TrimSpace(r.Str("wiki_url")),
			Category:    strings.TrimSpace(r.Str(verify.ColCategory)),
		}
	}
	return out
}

type Store struct {
	db   *sql.DB
	wiki map[string]WikiInfo
}

var _ core.Sink[*record.Record] = (*Store)(nil)

// Create replaces any database at path with an empty one carrying the schema and views.
func Create(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// PRAGMA foreign_keys is per connection.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	stmts := append([]string{`PRAGMA foreign_keys = ON`}, schemaStatements...)
	stmts = append(stmts, viewStatements...)
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite schema: %w", err)
		}
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

// WithWiki attaches verified Wikipedia context used by Store.
func (s *Store) WithWiki(wiki map[string]WikiInfo) *Store {
	s.wiki = wiki
	return s
}

// Store inserts merged rows as attractions. Rows with a short description also get a
// national_monument row. Ids follow input order starting at 1.
func (s *Store) Store(ctx context.Context, rows []*record.Record) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	attr, err := tx.PrepareContext(ctx, `INSERT INTO attraction
		(id, name, url, opening_hours, address, category, description, wiki_url,
		 google_rating, google_votes_count, google_map_url)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer attr.Close()

	nat, err := tx.PrepareContext(ctx, `INSERT INTO national_monument
		(attraction_id, ticket_price, ticket_price_status, visiting_services, ticket_price_raw,
		 advertising_title, price_conditions, payment_methods)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer nat.Close()

	for i, r := range rows {
		id := i + 1
		wiki := s.wiki[strings.TrimSpace(r.Str(pipeline.ColName))]
		if _, err := attr.ExecContext(ctx,
			id,
			text(r.Value(pipeline.ColName)),
			text(r.Value(pipeline.ColURL)),
			text(r.Value(pipeline.ColOpeningHours)),
			text(r.Value(pipeline.ColAddress)),
			nullString(wiki.Category),
			nullString(wiki.Description),
			nullString(wiki.URL),
			number(r.Value(pipeline.ColGoogleRating)),
			wholeNumber(r.Value(pipeline.ColGoogleReviewCount)),
			text(r.Value(pipeline.ColGooglePlaceLink)),
		); err != nil {
			return fmt.Errorf("insert attraction %d: %w", id, err)
		}

		if r.Value(pipeline.ColShortDescription).Empty() {
			continue
		}
		if _, err := nat.ExecContext(ctx,
			id,
			number(r.Value(pipeline.ColTicketPrice)),
			text(r.Value(pipeline.ColTicketPriceStatus)),
			text(r.Value(pipeline.ColVisitingServices)),
			text(r.Value(pipeline.ColTicketPriceRaw)),
			text(r.Value(pipeline.ColShortDescription)),
			text(r.Value(pipeline.ColTicketPriceConditions)),
			text(r.Value(pipeline.ColPaymentMethods)),
		); err != nil {
			return fmt.Errorf("insert national_monument %d: %w", id, err)
		}
	}
	return tx.Commit()
}

func text(v record.Value) any {
	if v.Empty() {
		return nil
	}
	return v.String()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func number(v record.Value) any {
	f, err := strconv.ParseFloat(strings.TrimSpace(v.String()), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return f
}

func wholeNumber(v record.Value) any {
	f, ok := number(v).(float64)
	if !ok {
		return nil
	}
	return int64(math.Round(f))
}
