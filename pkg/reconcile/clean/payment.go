package clean

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/shpitdev/monuments-pipeline/pkg/reconcile/normalize"
)

// PaymentRule maps any of its keywords to Category.
type PaymentRule struct {
	Category string
	Keywords []string
}

// DefaultPaymentRules are checked in order; specific phrases come before generic ones.
var DefaultPaymentRules = []PaymentRule{
	{Category: "Holiday Vouchers", Keywords: []string{"cheque vacances", "cheques vacances", "ancv", "holiday voucher", "holiday vouchers"}},
	{Category: "Lire Cheque", Keywords: []string{"cheque lire", "cheques lire", "lire cheque"}},
	{Category: "Culture Cheque", Keywords: []string{"cheque culture", "cheques culture", "culture cheque"}},
	{Category: "Pass Culture", Keywords: []string{"pass culture"}},
	{Category: "Paris Museum Pass", Keywords: []string{"paris museum pass", "museum pass"}},
	{Category: "Credit Card", Keywords: []string{"carte bancaire", "cartes bancaires", "carte bleue", "carte de credit", "credit card", "bank card", "cb", "visa", "mastercard", "amex", "american express", "card"}},
	{Category: "Cash", Keywords: []string{"especes", "espece", "cash", "liquide"}},
	{Category: "Cheque", Keywords: []string{"cheque", "cheques", "check", "checks"}},
}

type compiledRule struct {
	category string
	keywords []string
}

// PaymentNormalizer maps noisy payment phrases to a small vocabulary. Keywords match on
// folded token boundaries, so "cb" matches "CB" but not "cbd".
type PaymentNormalizer struct {
	rules []compiledRule
}

func NewPaymentNormalizer(rules []PaymentRule) *PaymentNormalizer {
	n := &PaymentNormalizer{}
	for _, r := range rules {
		cr := compiledRule{category: r.Category}
		for _, kw := range r.Keywords {
			if f := normalize.Fold(kw); f != "" {
				cr.keywords = append(cr.keywords, " "+f+" ")
			}
		}
		n.rules = append(n.rules, cr)
	}
	return n
}

// Normalize returns the category of the first matching rule, or the title-cased input.
func (n *PaymentNormalizer) Normalize(item string) string {
	item = strings.TrimSpace(item)
	folded := " " + normalize.Fold(item) + " "
	for _, r := range n.rules {
		for _, kw := range r.keywords {
			if strings.Contains(folded, kw) {
				return r.category
			}
		}
	}
	// Casers are stateful; one per call keeps Normalize safe for concurrent use.
	return cases.Title(language.Und).String(item)
}

// NormalizeAll normalizes items and keeps the first occurrence of each category.
func (n *PaymentNormalizer) NormalizeAll(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		if strings.TrimSpace(it) == "" {
			continue
		}
		c := n.Normalize(it)
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
