package pipeline

import (
	"github.com/shpitdev/monuments-pipeline/pkg/pipeline/record"
	"github.com/shpitdev/monuments-pipeline/pkg/pipeline/report"
	"github.com/shpitdev/monuments-pipeline/pkg/reconcile/clean"
	"github.com/shpitdev/monuments-pipeline/pkg/reconcile/rules"
)

var cleanedTextColumns = []string{ColName, ColShortDescription, ColAddress, ColOpeningHours}

// SiteCleaner applies field cleaning to rows scraped from the monuments site.
type SiteCleaner struct {
	text     *clean.TextCleaner
	price    *clean.PriceParser
	lists    []string
	required []string
}

func NewSiteCleaner(r *rules.Rules) *SiteCleaner {
	return &SiteCleaner{
		text:     r.TextCleaner(),
		price:    r.PriceParser(),
		lists:    r.ListFields,
		required: r.RequiredFields,
	}
}

// Clean returns the rows that survive cleaning, in input order. Rows missing a required
// field are dropped and reported; price annotations are reported without dropping.
func (c *SiteCleaner) Clean(rows []*record.Record, rep *report.Report) []*record.Record {
	out := make([]*record.Record, 0, len(rows))
	for _, raw := range rows {
		row := c.CleanRow(raw)
		if missing, ok := firstMissing(row, c.required); ok {
			rep.Add(report.Entry{
				InputName: displayName(raw),
				Source:    SourceSite,
				Reason:    report.ReasonMissingField,
				Detail:    missing,
			})
			continue
		}
		reportPrice(rep, row, SourceSite)
		out = append(out, row)
	}
	return out
}

// CleanRow cleans one row. Columns are laid out as CleanHeader, followed by any extra
// columns of the raw row.
func (c *SiteCleaner) CleanRow(raw *record.Record) *record.Record {
	row := record.New()
	for _, col := range CleanHeader() {
		row.Set(col, record.Null())
	}
	for _, k := range raw.Keys() {
		if !row.Has(k) {
			row.Set(k, raw.Value(k))
		}
	}

	for _, col := range cleanedTextColumns {
		row.Set(col, c.text.Clean(raw.Value(col)))
	}
	row.Set(ColURL, c.text.Clean(raw.Value(ColURL)))

	if cond := c.text.Clean(raw.Value(ColTicketPriceConditions)); !cond.IsNull() {
		row.Set(ColTicketPriceConditions, record.Text(clean.FirstLine(cond.Text())))
	}

	// The raw price text is kept verbatim next to the parsed value.
	rawPrice := raw.Value(ColTicketPrice)
	row.Set(ColTicketPriceRaw, rawPrice)
	p := c.price.Parse(rawPrice.String())
	row.Set(ColTicketPrice, record.Text(clean.FormatPrice(p.Value)))
	row.Set(ColTicketPriceStatus, record.Text(string(p.Status)))

	for _, col := range c.lists {
		v, ok := raw.Get(col)
		if !ok || v.IsNull() {
			continue
		}
		row.Set(col, record.List(clean.List(v)))
	}
	return row
}

func firstMissing(row *record.Record, required []string) (string, bool) {
	for _, f := range required {
		if row.Value(f).Empty() {
			return f, true
		}
	}
	return "", false
}

func reportPrice(rep *report.Report, row *record.Record, source string) {
	var reason report.Reason
	switch clean.PriceStatus(row.Str(ColTicketPriceStatus)) {
	case clean.PriceIndeterminate:
		reason = report.ReasonPriceIndeterminate
	case clean.PriceFree:
		reason = report.ReasonPriceFree
	default:
		return
	}
	rep.Add(report.Entry{
		InputName: displayName(row),
		Source:    source,
		Reason:    reason,
		Detail:    row.Str(ColTicketPriceRaw),
	})
}

// displayName picks the best label for a report line: the name, else the url.
func displayName(r *record.Record) string {
	if n := r.Str(ColName); n != "" {
		return n
	}
	return r.Str(ColURL)
}

// FillRate is the share of rows with a non-empty value for one column.
type FillRate struct {
	Column string
	Filled int
	Total  int
}

func (f FillRate) Missing() int { return f.Total - f.Filled }

func (f FillRate) Percent() float64 {
	if f.Total == 0 {
		return 0
	}
	return 100 * float64(f.Filled) / float64(f.Total)
}

// FillRates computes per-column fill rates over rows for the given columns.
func FillRates(rows []*record.Record, columns []string) []FillRate {
	out := make([]FillRate, len(columns))
	for i, col := range columns {
		out[i] = FillRate{Column: col, Total: len(rows)}
		for _, r := range rows {
			if !r.Value(col).Empty() {
				out[i].Filled++
			}
		}
	}
	return out
}
