package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shpitdev/monuments-pipeline/internal/pipeline"
	"github.com/shpitdev/monuments-pipeline/internal/verify"
	"github.com/shpitdev/monuments-pipeline/pkg/pipeline/record"
)

func monument(name, short, price, status, rating, votes string) *record.Record {
	r := record.New()
	r.Set(pipeline.ColName, record.Text(name))
	r.Set(pipeline.ColURL, record.Text("https://example.test/"+name))
	r.Set(pipeline.ColShortDescription, record.Text(short))
	r.Set(pipeline.ColTicketPrice, record.Text(price))
	r.Set(pipeline.ColTicketPriceStatus, record.Text(status))
	r.Set(pipeline.ColPaymentMethods, record.List([]string{"Credit Card", "Cash"}))
	r.Set(pipeline.ColAddress, record.Text("Paris"))
	r.Set(pipeline.ColGoogleRating, record.Text(rating))
	r.Set(pipeline.ColGoogleReviewCount, record.Text(votes))
	return r
}

func wikiRow(input, correct, description, category string) *record.Record {
	r := record.New()
	r.Set(verify.ColInputName, record.Text(input))
	r.Set(verify.ColDescription, record.Text(description))
	r.Set(verify.ColCategory, record.Text(category))
	r.Set("wiki_url", record.Text("https://fr.wikipedia.org/wiki/"+input))
	r.Set(verify.ColIsCorrect, record.Text(correct))
	return r
}

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := Create(context.Background(), filepath.Join(t.TempDir(), "monuments.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestWikiIndex(t *testing.T) {
	idx := WikiIndex([]*record.Record{
		wikiRow("Crypte", "true", "Crypte archéologique", "crypt"),
		wikiRow("Crypte", "true", "second", "other"),
		wikiRow("Ghost", "false", "wrong place", "town"),
		wikiRow("", "true", "no name", "x"),
	})
	require.Len(t, idx, 1)
	assert.Equal(t, "Crypte archéologique", idx["Crypte"].Description)
	assert.Equal(t, "crypt", idx["Crypte"].Category)
}

func TestStore_LoadsTablesAndViews(t *testing.T) {
	ctx := context.Background()
	s := newStore(t).WithWiki(WikiIndex([]*record.Record{
		wikiRow("Crypte", "true", "Crypte archéologique", "crypt"),
	}))

	rows := []*record.Record{
		monument("Louvre", "Le plus grand musée", "17", "parsed", "4.7", "250000"),
		monument("Sainte-Chapelle", "Joyau gothique", "0", "free", "4.6", "300"),
		monument("Crypte", "", "", "", "4.9", "50.4"),
		monument("Petit", "", "", "", "4.8", "5"),
	}
	require.NoError(t, s.Store(ctx, rows))

	counts, err := s.TableCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []TableCount{{Table: "attraction", Rows: 4}, {Table: "national_monument", Rows: 2}}, counts)

	gems, err := s.HiddenGems(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []HiddenGem{
		{Name: "Crypte", Rating: 4.9, Votes: 50},
		{Name: "Sainte-Chapelle", Rating: 4.6, Votes: 300},
	}, gems)

	var category, payment string
	require.NoError(t, s.db.QueryRowContext(ctx, `SELECT category FROM attraction WHERE name = 'Crypte'`).Scan(&category))
	assert.Equal(t, "crypt", category)
	require.NoError(t, s.db.QueryRowContext(ctx,
		`SELECT payment_methods FROM national_monument WHERE attraction_id = 1`).Scan(&payment))
	assert.Equal(t, "Credit Card | Cash", payment)

	buckets, err := s.PriceOverview(ctx)
	require.NoError(t, err)
	byStatus := map[string]PriceBucket{}
	for _, b := range buckets {
		byStatus[b.Status] = b
	}
	require.Len(t, byStatus, 2)
	assert.Equal(t, 1, byStatus["parsed"].Count)
	assert.InDelta(t, 17.0, byStatus["parsed"].AvgPrice.Float64, 1e-9)
	assert.False(t, byStatus["free"].AvgPrice.Valid)
}

func TestStore_IntegrityCheck(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, s.Store(ctx, []*record.Record{
		monument("Louvre", "Le plus grand musée", "17", "parsed", "4.7", "250000"),
	}))

	results, err := s.CheckIntegrity(ctx)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Passed())
	assert.Equal(t, "PASS", results[0].Status())

	_, err = s.db.ExecContext(ctx, `INSERT INTO national_monument (attraction_id) VALUES (99)`)
	assert.Error(t, err, "foreign keys must be enforced")
}

func TestCreate_ReplacesExistingDatabase(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "monuments.db")

	s, err := Create(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Store(ctx, []*record.Record{monument("Louvre", "", "", "", "", "")}))
	require.NoError(t, s.Close())

	s, err = Create(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	counts, err := s.TableCounts(ctx)
	require.NoError(t, err)
	assert.Zero(t, counts[0].Rows)
}

func TestCreate_RequiresPath(t *testing.T) {
	_, err := Create(context.Background(), " ")
	assert.Error(t, err)
}
