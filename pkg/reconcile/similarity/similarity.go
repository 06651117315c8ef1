// Package similarity scores how alike two normalized keys are.
//
// The two strategies are not numerically comparable. A run picks one Scorer and uses its
// threshold; scores from different strategies must never be compared.
package similarity

import (
	"fmt"
	"slices"
	"strings"
)

const (
	StrategyTokenSet = "token_set"
	StrategyJaccard  = "jaccard"
)

// Scorer compares two normalized keys. Higher is more similar.
type Scorer interface {
	Score(a, b string) float64
	Name() string
	// MaxScore is the score of identical keys.
	MaxScore() float64
	// DefaultThreshold is the empirically tuned acceptance threshold for this scale.
	DefaultThreshold() float64
}

// ForStrategy returns the scorer registered under name.
func ForStrategy(name string) (Scorer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", StrategyTokenSet:
		return TokenSet{}, nil
	case StrategyJaccard:
		return Jaccard{}, nil
	default:
		return nil, fmt.Errorf("unknown similarity strategy %q (want %s or %s)", name, StrategyTokenSet, StrategyJaccard)
	}
}

// TokenSet is a token-set ratio on [0,100]. It ignores token order and repetition, and
// scores 100 when one token set contains the other.
type TokenSet struct{}

func (TokenSet) Name() string              { return StrategyTokenSet }
func (TokenSet) MaxScore() float64         { return 100 }
func (TokenSet) DefaultThreshold() float64 { return 82 }

func (TokenSet) Score(a, b string) float64 {
	ta, tb := tokenSet(a), tokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	var sect, diffAB, diffBA []string
	for t := range ta {
		if _, ok := tb[t]; ok {
			sect = append(sect, t)
		} else {
			diffAB = append(diffAB, t)
		}
	}
	for t := range tb {
		if _, ok := ta[t]; !ok {
			diffBA = append(diffBA, t)
		}
	}
	if len(sect) > 0 && (len(diffAB) == 0 || len(diffBA) == 0) {
		return 100
	}

	slices.Sort(sect)
	slices.Sort(diffAB)
	slices.Sort(diffBA)
	sectStr := strings.Join(sect, " ")
	combinedAB := joinNonEmpty(sectStr, strings.Join(diffAB, " "))
	combinedBA := joinNonEmpty(sectStr, strings.Join(diffBA, " "))

	best := ratio(combinedAB, combinedBA)
	if sectStr == "" {
		return best
	}
	return max(best, ratio(sectStr, combinedAB), ratio(sectStr, combinedBA))
}

// Jaccard is |A∩B| / |A∪B| over token sets, on [0,1]. It is 0 when either set is empty.
type Jaccard struct{}

func (Jaccard) Name() string              { return StrategyJaccard }
func (Jaccard) MaxScore() float64         { return 1 }
func (Jaccard) DefaultThreshold() float64 { return 0.60 }

func (Jaccard) Score(a, b string) float64 {
	ta, tb := tokenSet(a), tokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	inter := 0
	for t := range ta {
		if _, ok := tb[t]; ok {
			inter++
		}
	}
	union := len(ta) + len(tb) - inter
	return float64(inter) / float64(union)
}

func tokenSet(s string) map[string]struct{} {
	fields := strings.Fields(s)
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

func joinNonEmpty(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + " " + b
	}
}

// ratio is the normalized indel similarity 100 * 2*LCS / (len(a)+len(b)), over runes.
func ratio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 100
	}
	return 100 * float64(2*lcsLen(ra, rb)) / float64(total)
}

func lcsLen(a, b []rune) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
			} else {
				cur[j] = max(prev[j], cur[j-1])
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}
