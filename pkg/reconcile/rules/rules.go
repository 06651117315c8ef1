// Package rules loads the data-driven configuration of the reconciliation core: stopwords,
// placeholder strings, payment vocabulary, scorer strategy and field policies.
package rules

import (
	"fmt"
	"os"
	"slices"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/shpitdev/monuments-pipeline/pkg/reconcile/clean"
	"github.com/shpitdev/monuments-pipeline/pkg/reconcile/match"
	"github.com/shpitdev/monuments-pipeline/pkg/reconcile/merge"
	"github.com/shpitdev/monuments-pipeline/pkg/reconcile/normalize"
	"github.com/shpitdev/monuments-pipeline/pkg/reconcile/similarity"
)

type PaymentRule struct {
	Category string   `yaml:"category" validate:"required"`
	Keywords []string `yaml:"keywords" validate:"min=1,dive,required"`
}

type Rules struct {
	Strategy string `yaml:"strategy" validate:"omitempty,oneof=token_set jaccard"`
	// MinScore is on the strategy's scale. Zero (or omitting min_score) selects the
	// strategy default, so a threshold of exactly 0 cannot be expressed. Use a small
	// positive value to accept almost any candidate.
	MinScore float64 `yaml:"min_score" validate:"gte=0"`

	Stopwords    []string      `yaml:"stopwords"`
	Placeholders []string      `yaml:"placeholders"`
	FreeMarkers  []string      `yaml:"free_markers"`
	PaymentRules []PaymentRule `yaml:"payment_rules" validate:"dive"`

	RequiredFields []string `yaml:"required_fields" validate:"dive,required"`
	ListFields     []string `yaml:"list_fields" validate:"dive,required"`
	// PaymentFields are list fields whose items go through the payment vocabulary.
	PaymentFields []string            `yaml:"payment_fields" validate:"dive,required"`
	Precedence    map[string][]string `yaml:"precedence"`
	// EnrichFields limits, per source tag, which fields a matched row may contribute.
	// Sources without an entry contribute every field.
	EnrichFields map[string][]string `yaml:"enrich_fields"`
}

// Default returns the built-in rules used for the Paris monuments dataset.
func Default() *Rules {
	r := &Rules{}
	r.ApplyDefaults()
	return r
}

// Load reads a YAML rules file. An empty path yields Default(). Omitted sections keep
// their defaults.
func Load(path string) (*Rules, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML rules, applies defaults and validates.
func Parse(data []byte) (*Rules, error) {
	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode rules: %w", err)
	}
	r.ApplyDefaults()
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// ApplyDefaults populates zero values.
func (r *Rules) ApplyDefaults() {
	if r.Strategy == "" {
		r.Strategy = similarity.StrategyTokenSet
	}
	if r.MinScore == 0 {
		if s, err := similarity.ForStrategy(r.Strategy); err == nil {
			r.MinScore = s.DefaultThreshold()
		}
	}
	if r.Stopwords == nil {
		r.Stopwords = slices.Clone(normalize.DefaultStopwords)
	}
	if r.Placeholders == nil {
		r.Placeholders = slices.Clone(clean.DefaultPlaceholders)
	}
	if r.FreeMarkers == nil {
		r.FreeMarkers = slices.Clone(clean.DefaultFreeMarkers)
	}
	if r.PaymentRules == nil {
		for _, pr := range clean.DefaultPaymentRules {
			r.PaymentRules = append(r.PaymentRules, PaymentRule{Category: pr.Category, Keywords: slices.Clone(pr.Keywords)})
		}
	}
	if r.RequiredFields == nil {
		r.RequiredFields = []string{"name", "address"}
	}
	if r.ListFields == nil {
		r.ListFields = []string{"payment_methods", "visiting_services"}
	}
	if r.PaymentFields == nil {
		r.PaymentFields = []string{"payment_methods"}
	}
	if r.Precedence == nil {
		r.Precedence = map[string][]string{
			"google_rating":         {"google"},
			"google_review_count":   {"google"},
			"place_link_google_map": {"google"},
		}
	}
	if r.EnrichFields == nil {
		r.EnrichFields = map[string][]string{
			"fr":     {"payment_methods", "address", "opening_hours"},
			"google": {"google_rating", "google_review_count", "place_link_google_map"},
		}
	}
}

// Validate checks struct tags and cross-field constraints.
func (r *Rules) Validate() error {
	if err := validator.New().Struct(r); err != nil {
		return fmt.Errorf("invalid rules: %w", err)
	}
	s, err := similarity.ForStrategy(r.Strategy)
	if err != nil {
		return fmt.Errorf("invalid rules: %w", err)
	}
	if r.MinScore > s.MaxScore() {
		return fmt.Errorf("invalid rules: min_score %g exceeds the %s scale (max %g)", r.MinScore, s.Name(), s.MaxScore())
	}
	for _, f := range r.PaymentFields {
		if !slices.Contains(r.ListFields, f) {
			return fmt.Errorf("invalid rules: payment field %q is not a list field", f)
		}
	}
	return nil
}

func (r *Rules) Normalizer() *normalize.Normalizer {
	return normalize.New(r.Stopwords)
}

func (r *Rules) Scorer() (similarity.Scorer, error) {
	return similarity.ForStrategy(r.Strategy)
}

// Matcher builds the run's matcher. The scorer is fixed here for the whole run.
func (r *Rules) Matcher() (*match.Matcher, error) {
	s, err := r.Scorer()
	if err != nil {
		return nil, err
	}
	return match.New(r.Normalizer(), s, r.MinScore), nil
}

func (r *Rules) TextCleaner() *clean.TextCleaner {
	return clean.NewTextCleaner(r.Placeholders)
}

func (r *Rules) PriceParser() *clean.PriceParser {
	return clean.NewPriceParser(r.FreeMarkers)
}

func (r *Rules) PaymentNormalizer() *clean.PaymentNormalizer {
	out := make([]clean.PaymentRule, 0, len(r.PaymentRules))
	for _, pr := range r.PaymentRules {
		out = append(out, clean.PaymentRule{Category: pr.Category, Keywords: pr.Keywords})
	}
	return clean.NewPaymentNormalizer(out)
}

// MergePolicy builds the merge policy for an anchor source.
func (r *Rules) MergePolicy(anchorTag string) merge.Policy {
	pay := r.PaymentNormalizer()
	lists := make(map[string]merge.ItemNormalizer, len(r.ListFields))
	for _, f := range r.ListFields {
		lists[f] = nil
		if slices.Contains(r.PaymentFields, f) {
			lists[f] = pay.Normalize
		}
	}
	prec := make(map[string][]string, len(r.Precedence))
	for f, tags := range r.Precedence {
		prec[f] = slices.Clone(tags)
	}
	return merge.Policy{
		AnchorTag:  anchorTag,
		Precedence: prec,
		ListFields: lists,
		Required:   slices.Clone(r.RequiredFields),
	}
}
