// Package match resolves a monument's aliases against a reference set of names.
package match

import (
	"github.com/shpitdev/monuments-pipeline/pkg/reconcile/similarity"
)

// Keyer turns a name into a normalized key. *normalize.Normalizer implements it.
type Keyer interface {
	Key(name string) string
}

// Index is an immutable snapshot of reference names. Build it once per run; it is safe
// for concurrent reads.
type Index struct {
	names []string
	keys  []string
	exact map[string]int
}

// NewIndex normalizes names with k. When several names share a key, the first wins the
// exact table. Empty keys are kept in position but never match.
func NewIndex(names []string, k Keyer) *Index {
	idx := &Index{
		names: make([]string, len(names)),
		keys:  make([]string, len(names)),
		exact: make(map[string]int, len(names)),
	}
	copy(idx.names, names)
	for i, n := range names {
		key := k.Key(n)
		idx.keys[i] = key
		if key == "" {
			continue
		}
		if _, ok := idx.exact[key]; !ok {
			idx.exact[key] = i
		}
	}
	return idx
}

func (idx *Index) Len() int { return len(idx.names) }

// Name returns the original reference name at i.
func (idx *Index) Name(i int) string { return idx.names[i] }

// Key returns the normalized key at i.
func (idx *Index) Key(i int) string { return idx.keys[i] }

// Lookup returns the first index whose key equals key.
func (idx *Index) Lookup(key string) (int, bool) {
	if key == "" {
		return -1, false
	}
	i, ok := idx.exact[key]
	return i, ok
}

// Result is the outcome of Find. Index is -1 when nothing matched.
type Result struct {
	Index int
	Score float64
	Exact bool
	// Alias is the alias that produced the match.
	Alias string
}

// NoMatch is the terminal "no sufficiently similar candidate" outcome.
var NoMatch = Result{Index: -1}

func (r Result) Matched() bool { return r.Index >= 0 }

// Matcher combines a key function, a scorer and its acceptance threshold.
type Matcher struct {
	keyer    Keyer
	scorer   similarity.Scorer
	minScore float64
}

// New returns a Matcher. A minScore <= 0 selects the scorer's default threshold; callers
// wanting a near-zero cutoff pass a small positive value.
func New(k Keyer, scorer similarity.Scorer, minScore float64) *Matcher {
	if minScore <= 0 {
		minScore = scorer.DefaultThreshold()
	}
	return &Matcher{keyer: k, scorer: scorer, minScore: minScore}
}

func (m *Matcher) Scorer() similarity.Scorer { return m.scorer }
func (m *Matcher) MinScore() float64         { return m.minScore }

// Find tries aliases in priority order. An exact key hit returns at once with the scorer's
// max score. Otherwise every (alias, candidate) pair is scored and the first-seen best pair
// is accepted if it reaches the threshold.
func (m *Matcher) Find(aliases []string, idx *Index) Result {
	keys := make([]string, len(aliases))
	for i, a := range aliases {
		keys[i] = m.keyer.Key(a)
		if hit, ok := idx.Lookup(keys[i]); ok {
			return Result{Index: hit, Score: m.scorer.MaxScore(), Exact: true, Alias: a}
		}
	}

	best := NoMatch
	bestScore := -1.0
	for ai, key := range keys {
		if key == "" {
			continue
		}
		for ci, cand := range idx.keys {
			if cand == "" {
				continue
			}
			if s := m.scorer.Score(key, cand); s > bestScore {
				bestScore = s
				best = Result{Index: ci, Score: s, Alias: aliases[ai]}
			}
		}
	}
	if !best.Matched() || best.Score < m.minScore {
		return NoMatch
	}
	return best
}
