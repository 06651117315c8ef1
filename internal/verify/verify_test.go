package verify_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shpitdev/monuments-pipeline/internal/verify"
	"github.com/shpitdev/monuments-pipeline/pkg/pipeline/record"
	"github.com/shpitdev/monuments-pipeline/pkg/pipeline/report"
	"github.com/shpitdev/monuments-pipeline/pkg/pipeline/worker"
)

func TestHaversineKm(t *testing.T) {
	assert.InDelta(t, 111.195, verify.HaversineKm(0, 0, 0, 1), 0.01)
	assert.InDelta(t, 0, verify.HaversineKm(48.8606, 2.3376, 48.8606, 2.3376), 1e-9)
	// Louvre to the Eiffel Tower.
	assert.InDelta(t, 3.17, verify.HaversineKm(48.8606, 2.3376, 48.8584, 2.2945), 0.05)
}

func candidate(input, wiki, lat, lon string) *record.Record {
	r := record.New()
	r.Set(verify.ColInputName, record.Text(input))
	r.Set(verify.ColWikiName, record.Text(wiki))
	r.Set(verify.ColLat, record.Text(lat))
	r.Set(verify.ColLon, record.Text(lon))
	r.Set(verify.ColDescription, record.Text(""))
	r.Set(verify.ColCategory, record.Text("monument"))
	return r
}

func reference(name, lat, lng string) *record.Record {
	r := record.New()
	r.Set("name", record.Text(name))
	r.Set("lat", record.Text(lat))
	r.Set("lng", record.Text(lng))
	return r
}

func fixtures() (*verify.CoordVerifier, []*record.Record) {
	log := report.NewRedirectLog()
	log.Append("Louvre", "Musée du Louvre")
	log.Append("Orsay", "Musée d'Orsay")
	log.Append("Pantheon", "Panthéon")
	log.Append("Ghost", "Ghost Town")

	refs := []*record.Record{
		reference("Louvre", "48.8606", "2.3376"),
		reference("Louvre", "0", "0"),
		reference("Orsay", "48.8600", "2.3266"),
		reference("Pantheon", "48.8462", "2.3464"),
	}
	rows := []*record.Record{
		candidate("Eiffel", "Tour Eiffel", "", ""),
		candidate("Louvre", "Musée du Louvre", "48.8611", "2.3358"),
		candidate("Orsay", "Musée d'Orsay", "45.76", "4.83"),
		candidate("Pantheon", "Panthéon", "", ""),
		candidate("Ghost", "Ghost Town", "nan", ""),
	}
	return verify.NewCoordVerifier(log.Inputs(), refs, 0), rows
}

func TestCoordVerifier(t *testing.T) {
	v, rows := fixtures()
	want := []bool{true, true, false, false, false}
	for i, row := range rows {
		c := verify.CandidateFromRecord(row)
		assert.Equal(t, want[i], v.Verify(c), c.InputName)
	}

	c := verify.CandidateFromRecord(rows[4])
	assert.False(t, c.HasCoords, "nan must count as missing")
	assert.True(t, verify.NeedsLLM(c, false))
	assert.False(t, verify.NeedsLLM(verify.CandidateFromRecord(rows[2]), false))
}

type fakeEquivalence struct {
	mu    sync.Mutex
	seen  []string
	match map[string]bool
}

func (f *fakeEquivalence) Equivalent(_ context.Context, c verify.Candidate) (bool, error) {
	f.mu.Lock()
	f.seen = append(f.seen, c.InputName)
	f.mu.Unlock()
	ok, known := f.match[c.InputName]
	if !known {
		return false, errors.New("model unavailable")
	}
	return ok, nil
}

func TestRunner_Run(t *testing.T) {
	v, rows := fixtures()
	llm := &fakeEquivalence{match: map[string]bool{"Pantheon": true}}
	rep := report.New()

	res, err := verify.NewRunner(v, llm, worker.Options{Workers: 2}).Run(context.Background(), rows, rep)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"Pantheon", "Ghost"}, llm.seen)
	require.Len(t, res.Rows, 5)
	var got []string
	for _, r := range res.Rows {
		got = append(got, r.Str(verify.ColIsCorrect))
	}
	assert.Equal(t, []string{"true", "true", "false", "true", "false"}, got)
	assert.Empty(t, rows[0].Str(verify.ColIsCorrect), "input rows are not mutated")

	assert.Equal(t, verify.Stats{
		Total:             5,
		Correct:           3,
		Redirected:        4,
		RedirectedCorrect: 2,
		LLMChecked:        2,
		LLMConfirmed:      1,
		LLMErrors:         1,
	}, res.Stats)
	assert.Equal(t, 2, res.Stats.Incorrect())

	entries := rep.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "Orsay", entries[0].InputName)
	assert.Contains(t, entries[0].Detail, "km from reference")
	assert.Equal(t, "Ghost", entries[1].InputName)
	assert.Contains(t, entries[1].Detail, "model unavailable")
}

func TestRunner_WithoutLLM(t *testing.T) {
	v, rows := fixtures()
	rep := report.New()

	res, err := verify.NewRunner(v, nil, worker.Options{}).Run(context.Background(), rows, rep)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Stats.Correct)
	assert.Zero(t, res.Stats.LLMChecked)
	assert.Equal(t, 3, rep.Count(report.ReasonVerifyFailed))
}
