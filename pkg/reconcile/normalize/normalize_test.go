package normalize_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shpitdev/monuments-pipeline/pkg/reconcile/normalize"
)

func TestKey(t *testing.T) {
	n := normalize.Default()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: ""},
		{name: "blank", in: "   ", want: ""},
		{name: "accents and stopwords", in: "Musée du Louvre", want: "louvre"},
		{name: "english venue noun", in: "Louvre Museum", want: "louvre"},
		{name: "ampersand", in: "Arts & Métiers", want: "arts metiers"},
		{name: "punctuation collapses", in: "Notre-Dame de Paris!!", want: "notre dame paris"},
		{name: "order preserved", in: "Paris Panthéon", want: "paris pantheon"},
		{name: "all stopwords", in: "Le Musée de la Tour", want: ""},
		{name: "digits kept", in: "Tour Montparnasse 56", want: "montparnasse 56"},
		{name: "apostrophe", in: "Château d'Écouen", want: "ecouen"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, n.Key(tt.in))
		})
	}
}

func TestKeyIdempotent(t *testing.T) {
	n := normalize.Default()
	for _, in := range []string{
		"Musée du Louvre",
		"Basilique du Sacré-Cœur de Montmartre",
		"Arc de Triomphe & Étoile",
		"Sainte-Chapelle",
		"Château de Vincennes",
		"",
	} {
		once := n.Key(in)
		assert.Equal(t, once, n.Key(once), "input %q", in)
	}
}

func TestKeyCrossLingual(t *testing.T) {
	n := normalize.Default()
	assert.Equal(t, n.Key("Musée du Louvre"), n.Key("Louvre Museum"))
	assert.Equal(t, n.Key("Château de Vincennes"), n.Key("Vincennes Castle"))
}

func TestNewFoldsStopwords(t *testing.T) {
	n := normalize.New([]string{"MUSÉE", "  Hôtel de Ville "})
	require.Equal(t, "orsay", n.Key("Musee Orsay"))
	// Phrase stopwords drop each folded token.
	assert.Equal(t, "paris", n.Key("Hotel de Ville Paris"))
}

func TestStripAccents(t *testing.T) {
	assert.Equal(t, "Pantheon eglise", normalize.StripAccents("Panthéon église"))
}
