package match_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shpitdev/monuments-pipeline/pkg/reconcile/match"
	"github.com/shpitdev/monuments-pipeline/pkg/reconcile/normalize"
	"github.com/shpitdev/monuments-pipeline/pkg/reconcile/similarity"
)

func TestFind_ExactShortCircuit(t *testing.T) {
	n := normalize.Default()
	idx := match.NewIndex([]string{"Orsay Museum", "Louvre Museum"}, n)

	// A threshold no fuzzy score could reach does not block an exact hit.
	m := match.New(n, similarity.TokenSet{}, 1000)
	got := m.Find([]string{"Musée du Louvre"}, idx)
	require.True(t, got.Matched())
	assert.Equal(t, 1, got.Index)
	assert.True(t, got.Exact)
	assert.Equal(t, 100.0, got.Score)
	assert.Equal(t, "Musée du Louvre", got.Alias)

	mj := match.New(n, similarity.Jaccard{}, 0)
	got = mj.Find([]string{"Louvre"}, idx)
	assert.True(t, got.Exact)
	assert.Equal(t, 1.0, got.Score)
}

func TestFind_FirstExactAliasWins(t *testing.T) {
	n := normalize.Default()
	idx := match.NewIndex([]string{"Panthéon", "Les Invalides"}, n)
	m := match.New(n, similarity.TokenSet{}, 82)

	got := m.Find([]string{"Hôtel des Invalides", "Invalides", "Pantheon"}, idx)
	require.True(t, got.Matched())
	assert.Equal(t, 1, got.Index)
	assert.Equal(t, "Invalides", got.Alias)
}

func TestFind_NoMatch(t *testing.T) {
	n := normalize.Default()
	idx := match.NewIndex([]string{"Louvre", "Orsay", "Sainte-Chapelle"}, n)
	m := match.New(n, similarity.TokenSet{}, 82)

	got := m.Find([]string{"Eiffel Tower"}, idx)
	assert.Equal(t, match.NoMatch, got)
	assert.False(t, got.Matched())
	assert.Equal(t, -1, got.Index)
}

func TestFind_FuzzyGlobalBestAcrossAliases(t *testing.T) {
	n := normalize.Default()
	idx := match.NewIndex([]string{"Conciergerie de Paris", "Arc de Triomphe de l'Etoile"}, n)
	m := match.New(n, similarity.TokenSet{}, 82)

	// First alias is weak; the second contains the candidate's tokens.
	got := m.Find([]string{"Conciergerie Royale Ancienne", "Arc de Triomphe"}, idx)
	require.True(t, got.Matched())
	assert.False(t, got.Exact)
	assert.Equal(t, 1, got.Index)
	assert.Equal(t, "Arc de Triomphe", got.Alias)
	assert.Equal(t, 100.0, got.Score)
}

func TestFind_TiesGoToFirstCandidate(t *testing.T) {
	n := normalize.Default()
	// Both candidates contain "notre dame", so both score 100 for the alias.
	idx := match.NewIndex([]string{"Notre-Dame de Paris Cathedral", "Notre-Dame du Travail Church"}, n)
	m := match.New(n, similarity.TokenSet{}, 82)

	for range 5 {
		got := m.Find([]string{"Notre Dame"}, idx)
		require.True(t, got.Matched())
		assert.Equal(t, 0, got.Index)
	}
}

func TestFind_EmptyKeysNeverMatch(t *testing.T) {
	n := normalize.Default()
	idx := match.NewIndex([]string{"Le Musée", "Louvre"}, n)
	m := match.New(n, similarity.Jaccard{}, 0.1)

	assert.Equal(t, match.NoMatch, m.Find([]string{"The Museum"}, idx))
	assert.Equal(t, match.NoMatch, m.Find(nil, idx))

	_, ok := idx.Lookup("")
	assert.False(t, ok)
}

func TestNewIndex_FirstDuplicateWins(t *testing.T) {
	n := normalize.Default()
	idx := match.NewIndex([]string{"Louvre", "Musée du Louvre"}, n)

	i, ok := idx.Lookup("louvre")
	require.True(t, ok)
	assert.Equal(t, 0, i)
	assert.Equal(t, 2, idx.Len())
	assert.Equal(t, "Musée du Louvre", idx.Name(1))
	assert.Equal(t, "louvre", idx.Key(1))
}

func TestNew_DefaultThreshold(t *testing.T) {
	m := match.New(normalize.Default(), similarity.Jaccard{}, 0)
	assert.Equal(t, 0.60, m.MinScore())
	assert.Equal(t, similarity.StrategyJaccard, m.Scorer().Name())
}
