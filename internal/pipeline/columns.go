package pipeline

import "github.com/shpitdev/monuments-pipeline/pkg/pipeline/schema"

const (
	ColName                  = "name"
	ColURL                   = "url"
	ColShortDescription      = "short_description"
	ColTicketPrice           = "ticket_price"
	ColTicketPriceConditions = "ticket_price_conditions"
	ColOpeningHours          = "opening_hours"
	ColPaymentMethods        = "payment_methods"
	ColAddress               = "address"
	ColVisitingServices      = "visiting_services"
	ColTicketPriceRaw        = "ticket_price_raw"
	ColTicketPriceStatus     = "ticket_price_status"

	ColGoogleRating      = "google_rating"
	ColGoogleReviewCount = "google_review_count"
	ColGooglePlaceLink   = "place_link_google_map"
)

// Source tags used in reports and merge policies.
const (
	SourceSite    = "site"
	SourceEnglish = "en"
	SourceFrench  = "fr"
	SourceGoogle  = "google"
)

// siteColumns are the monument columns produced by the site cleaning step, in output order.
func siteColumns() []string {
	return []string{
		ColName,
		ColURL,
		ColShortDescription,
		ColTicketPrice,
		ColTicketPriceConditions,
		ColOpeningHours,
		ColPaymentMethods,
		ColAddress,
		ColVisitingServices,
		ColTicketPriceRaw,
	}
}

// Header returns the stable column order of the merged output.
func Header() []string {
	return append(siteColumns(),
		ColGoogleRating,
		ColGoogleReviewCount,
		ColGooglePlaceLink,
		ColTicketPriceStatus,
	)
}

// CleanHeader returns the column order of the cleaned site output.
func CleanHeader() []string {
	return append(siteColumns(), ColTicketPriceStatus)
}

// Input contracts. A missing column aborts the run.
var (
	SiteContract    = schema.Contract{Source: SourceSite, Required: []string{ColName, ColURL, ColAddress}}
	EnglishContract = schema.Contract{Source: SourceEnglish, Required: siteColumns()}
	FrenchContract  = schema.Contract{Source: SourceFrench, Required: []string{ColName, ColURL}}
	GoogleContract  = schema.Contract{Source: SourceGoogle, Required: []string{"name", "rating", "review_count", "place_link"}}
)

// googleRename maps consolidated Google columns onto merged output columns.
var googleRename = map[string]string{
	"rating":       ColGoogleRating,
	"review_count": ColGoogleReviewCount,
	"place_link":   ColGooglePlaceLink,
}
