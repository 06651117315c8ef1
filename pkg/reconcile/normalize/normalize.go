// Package normalize turns free-text monument names into comparable keys.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultStopwords are articles, prepositions and generic venue-type nouns in French and
// English. Accented and unaccented spellings are both listed; they fold to the same token.
var DefaultStopwords = []string{
	"de", "du", "des", "d", "la", "le", "les", "l", "a", "au", "aux", "et", "en", "sur",
	"of", "the", "and", "in", "on", "at",
	"museum", "musée", "musee", "monument", "memorial", "mémorial",
	"basilique", "basilica", "cathedrale", "cathédrale", "cathedral",
	"eglise", "église", "church", "chapelle", "chapel",
	"chateau", "château", "castle", "tour", "tower", "palais", "palace",
	"jardin", "gardens", "garden", "parc", "park", "pont", "bridge",
	"place", "square", "saint", "st",
}

var nonAlnumRe = regexp.MustCompile(`[^a-z0-9]+`)

// Normalizer computes keys. It is immutable after New and safe for concurrent use.
type Normalizer struct {
	stop map[string]struct{}
}

// New builds a Normalizer. Stopwords are folded like names, so "Musée" drops "musee" too;
// a phrase that folds to several tokens drops each of them.
func New(stopwords []string) *Normalizer {
	n := &Normalizer{stop: make(map[string]struct{}, len(stopwords))}
	for _, w := range stopwords {
		for _, tok := range strings.Fields(fold(w)) {
			n.stop[tok] = struct{}{}
		}
	}
	return n
}

// Default returns a Normalizer using DefaultStopwords.
func Default() *Normalizer { return New(DefaultStopwords) }

// Key returns the normalized key of name. An empty key means the name is unmatchable.
func (n *Normalizer) Key(name string) string {
	toks := strings.Fields(fold(name))
	kept := toks[:0]
	for _, t := range toks {
		if _, ok := n.stop[t]; ok {
			continue
		}
		kept = append(kept, t)
	}
	return strings.Join(kept, " ")
}

// fold lower-cases, strips diacritics, spells out "&" and collapses everything outside
// [a-z0-9] to single spaces.
func fold(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	s = StripAccents(s)
	s = strings.ReplaceAll(s, "&", " and ")
	return strings.TrimSpace(nonAlnumRe.ReplaceAllString(s, " "))
}

// StripAccents applies NFKD and removes combining marks.
func StripAccents(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Fold exposes the folding step for callers that match keywords on token boundaries.
func Fold(s string) string { return fold(s) }
