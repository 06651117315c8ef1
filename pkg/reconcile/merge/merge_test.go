package merge_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shpitdev/monuments-pipeline/pkg/pipeline/record"
	"github.com/shpitdev/monuments-pipeline/pkg/reconcile/clean"
	"github.com/shpitdev/monuments-pipeline/pkg/reconcile/merge"
)

func newRecord(pairs ...any) *record.Record {
	r := record.New()
	for i := 0; i+1 < len(pairs); i += 2 {
		switch v := pairs[i+1].(type) {
		case string:
			r.Set(pairs[i].(string), record.Text(v))
		case []string:
			r.Set(pairs[i].(string), record.List(v))
		case nil:
			r.Set(pairs[i].(string), record.Null())
		}
	}
	return r
}

func monumentPolicy() merge.Policy {
	pay := clean.NewPaymentNormalizer(clean.DefaultPaymentRules)
	return merge.Policy{
		AnchorTag: "en",
		Precedence: map[string][]string{
			"google_rating": {"google"},
			"name":          {"en"},
		},
		ListFields: map[string]merge.ItemNormalizer{
			"payment_methods":   pay.Normalize,
			"visiting_services": nil,
		},
		Required: []string{"name", "address"},
	}
}

func TestMerge_PaymentUnion(t *testing.T) {
	m := merge.New(monumentPolicy())

	anchor := newRecord("name", "Pantheon", "address", "Place du Panthéon", "payment_methods", []string{"Carte Bancaire"})
	fr := newRecord("name", "Panthéon", "payment_methods", []string{"Cash", "Carte Bancaire"})

	got, err := m.Merge(anchor, []merge.Source{{Tag: "fr", Record: fr}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Credit Card", "Cash"}, got.Fields.Value("payment_methods").Items())
	assert.Equal(t, "Pantheon", got.Fields.Str("name"))
	assert.Equal(t, "en", got.AnchorSource)
	assert.Equal(t, []string{"en", "fr"}, got.Sources)
}

func TestMerge_Precedence(t *testing.T) {
	m := merge.New(monumentPolicy())

	anchor := newRecord("name", "Louvre", "address", "Rue de Rivoli", "google_rating", "3.0", "short_description", nil)
	fr := newRecord("short_description", "Ancien palais royal", "opening_hours", "9h-18h")
	google := newRecord("google_rating", "4.7")

	got, err := m.Merge(anchor, []merge.Source{{Tag: "fr", Record: fr}, {Tag: "google", Record: google}})
	require.NoError(t, err)

	assert.Equal(t, "4.7", got.Fields.Str("google_rating"), "listed source outranks anchor")
	assert.Equal(t, "Ancien palais royal", got.Fields.Str("short_description"), "empty anchor falls through")
	assert.Equal(t, "9h-18h", got.Fields.Str("opening_hours"))
	assert.Equal(t, []string{"name", "address", "google_rating", "short_description", "opening_hours"}, got.Fields.Keys())
	assert.Equal(t, []string{"en", "fr", "google"}, got.Sources)
}

func TestMerge_ListedFieldFallsBackToAnchorThenNull(t *testing.T) {
	m := merge.New(monumentPolicy())

	anchor := newRecord("name", "Orsay", "address", "Rue de la Légion d'Honneur", "google_rating", "4.1")
	got, err := m.Merge(anchor, nil)
	require.NoError(t, err)
	assert.Equal(t, "4.1", got.Fields.Str("google_rating"))

	anchor = newRecord("name", "Orsay", "address", "Rue de la Légion d'Honneur", "google_rating", "")
	fr := newRecord("google_rating", "4.9")
	got, err = m.Merge(anchor, []merge.Source{{Tag: "fr", Record: fr}})
	require.NoError(t, err)
	assert.True(t, got.Fields.Value("google_rating").IsNull(), "only listed sources and the anchor may fill a listed field")
}

func TestMerge_NoAnchor(t *testing.T) {
	m := merge.New(monumentPolicy())
	_, err := m.Merge(nil, []merge.Source{{Tag: "fr", Record: newRecord("name", "x")}})
	assert.ErrorIs(t, err, merge.ErrNoAnchor)
}

func TestMerge_MissingRequiredField(t *testing.T) {
	m := merge.New(monumentPolicy())

	anchor := newRecord("name", "Conciergerie", "address", nil)
	_, err := m.Merge(anchor, nil)

	var mfe *merge.MissingFieldError
	require.True(t, errors.As(err, &mfe))
	assert.Equal(t, "address", mfe.Field)
}

func TestMerge_ListVerbatimAndAbsent(t *testing.T) {
	m := merge.New(monumentPolicy())

	anchor := newRecord("name", "Sainte-Chapelle", "address", "Bd du Palais", "visiting_services", "Audioguide | Boutique", "payment_methods", nil)
	fr := newRecord("visiting_services", []string{"Boutique", "Vestiaire"})

	got, err := m.Merge(anchor, []merge.Source{{Tag: "fr", Record: fr}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Audioguide", "Boutique", "Vestiaire"}, got.Fields.Value("visiting_services").Items())
	assert.True(t, got.Fields.Value("payment_methods").IsNull())
}

func TestNew_DefaultAnchorTag(t *testing.T) {
	m := merge.New(merge.Policy{})
	got, err := m.Merge(newRecord("name", "x"), nil)
	require.NoError(t, err)
	assert.Equal(t, "anchor", got.AnchorSource)
	assert.Equal(t, []string{"anchor"}, got.Sources)
}
