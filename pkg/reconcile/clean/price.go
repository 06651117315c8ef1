package clean

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shpitdev/monuments-pipeline/pkg/reconcile/normalize"
)

// PriceStatus tells how a price value was obtained.
type PriceStatus string

const (
	PriceParsed PriceStatus = "parsed"
	PriceFree   PriceStatus = "free"
	// PriceIndeterminate means no number and no free marker were found. The value is 0.0
	// but that is a default, not a confirmed free admission.
	PriceIndeterminate PriceStatus = "indeterminate"
)

// DefaultFreeMarkers indicate free admission.
var DefaultFreeMarkers = []string{"gratuit", "gratuite", "free", "entree libre", "acces libre"}

var priceNumberRe = regexp.MustCompile(`\d+[.,]?\d*`)

type PriceResult struct {
	Value  float64
	Status PriceStatus
}

// PriceParser extracts a ticket price from free text.
type PriceParser struct {
	free []string
}

func NewPriceParser(freeMarkers []string) *PriceParser {
	p := &PriceParser{}
	for _, m := range freeMarkers {
		if f := normalize.Fold(m); f != "" {
			p.free = append(p.free, " "+f+" ")
		}
	}
	return p
}

// Parse returns the first numeric token with comma read as a decimal point. Without one,
// a free marker yields 0 free and anything else yields 0 indeterminate.
func (p *PriceParser) Parse(raw string) PriceResult {
	if m := priceNumberRe.FindString(raw); m != "" {
		if v, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", "."), 64); err == nil {
			return PriceResult{Value: v, Status: PriceParsed}
		}
	}
	folded := " " + normalize.Fold(raw) + " "
	for _, f := range p.free {
		if strings.Contains(folded, f) {
			return PriceResult{Value: 0, Status: PriceFree}
		}
	}
	return PriceResult{Value: 0, Status: PriceIndeterminate}
}

// FormatPrice renders a price the way it is written to CSV and the database.
func FormatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
