package store

import (
	"context"
	"database/sql"
	"fmt"
)

// TableCount is the row count of one table.
type TableCount struct {
	Table string
	Rows  int
}

func (s *Store) TableCounts(ctx context.Context) ([]TableCount, error) {
	out := make([]TableCount, 0, len(tables))
	for _, t := range tables {
		var n int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+t).Scan(&n); err != nil {
			return nil, fmt.Errorf("count %s: %w", t, err)
		}
		out = append(out, TableCount{Table: t, Rows: n})
	}
	return out, nil
}

// IntegrityResult is the orphan count for one foreign key.
type IntegrityResult struct {
	Child   string
	FK      string
	Parent  string
	PK      string
	Orphans int
}

func (r IntegrityResult) Passed() bool { return r.Orphans == 0 }

func (r IntegrityResult) Status() string {
	if r.Passed() {
		return "PASS"
	}
	return "FAIL"
}

// CheckIntegrity counts child rows whose foreign key has no parent.
func (s *Store) CheckIntegrity(ctx context.Context) ([]IntegrityResult, error) {
	out := make([]IntegrityResult, 0, len(relationships))
	for _, rel := range relationships {
		q := fmt.Sprintf(
			`SELECT COUNT(*) FROM %s c LEFT JOIN %s p ON c.%s = p.%s WHERE p.%s IS NULL`,
			rel.child, rel.parent, rel.fk, rel.pk, rel.pk,
		)
		res := IntegrityResult{Child: rel.child, FK: rel.fk, Parent: rel.parent, PK: rel.pk}
		if err := s.db.QueryRowContext(ctx, q).Scan(&res.Orphans); err != nil {
			return nil, fmt.Errorf("integrity %s -> %s: %w", rel.child, rel.parent, err)
		}
		out = append(out, res)
	}
	return out, nil
}

type HiddenGem struct {
	Name   string
	Rating float64
	Votes  int
}

// HiddenGems reads the top rows of view_hidden_gems.
func (s *Store) HiddenGems(ctx context.Context, limit int) ([]HiddenGem, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, google_rating, google_votes_count FROM view_hidden_gems LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []HiddenGem
	for rows.Next() {
		var g HiddenGem
		var name sql.NullString
		if err := rows.Scan(&name, &g.Rating, &g.Votes); err != nil {
			return nil, err
		}
		g.Name = name.String
		out = append(out, g)
	}
	return out, rows.Err()
}

type PriceBucket struct {
	Status   string
	Count    int
	AvgPrice sql.NullFloat64
}

// PriceOverview reads view_price_overview.
func (s *Store) PriceOverview(ctx context.Context) ([]PriceBucket, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ticket_price_status, monument_count, avg_price FROM view_price_overview`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PriceBucket
	for rows.Next() {
		var b PriceBucket
		var status sql.NullString
		if err := rows.Scan(&status, &b.Count, &b.AvgPrice); err != nil {
			return nil, err
		}
		b.Status = status.String
		out = append(out, b)
	}
	return out, rows.Err()
}
