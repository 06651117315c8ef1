// Package verify checks that alias resolutions point at the right place: by distance to
// reference coordinates first, then by asking an Equivalence checker for rows that lack
// coordinates.
package verify

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/shpitdev/monuments-pipeline/pkg/pipeline/record"
	"github.com/shpitdev/monuments-pipeline/pkg/pipeline/schema"
)

const (
	ColInputName   = "input_name"
	ColWikiName    = "wiki_name"
	ColLat         = "lat"
	ColLon         = "lon"
	ColDescription = "wiki_description"
	ColCategory    = "category"
	ColIsCorrect   = "is_correct"

	// DefaultThresholdKm is the largest distance at which a redirect is accepted.
	DefaultThresholdKm = 2.0

	earthRadiusKm = 6371.0
)

var (
	CandidateContract = schema.Contract{Source: "wiki", Required: []string{ColInputName, ColWikiName, ColLat, ColLon}}
	ReferenceContract = schema.Contract{Source: "reference", Required: []string{"name", "lat", "lng"}}
)

// Candidate is a resolved alias awaiting verification.
type Candidate struct {
	InputName   string
	WikiName    string
	Description string
	Category    string
	Lat, Lon    float64
	HasCoords   bool
}

// CandidateFromRecord reads a candidate row. Unparseable coordinates count as missing.
func CandidateFromRecord(r *record.Record) Candidate {
	c := Candidate{
		InputName:   strings.TrimSpace(r.Str(ColInputName)),
		WikiName:    strings.TrimSpace(r.Str(ColWikiName)),
		Description: strings.TrimSpace(r.Str(ColDescription)),
		Category:    strings.TrimSpace(r.Str(ColCategory)),
	}
	lat, okLat := parseCoord(r.Str(ColLat))
	lon, okLon := parseCoord(r.Str(ColLon))
	if okLat && okLon {
		c.Lat, c.Lon, c.HasCoords = lat, lon, true
	}
	return c
}

func parseCoord(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Equivalence decides whether a candidate's input and resolved names are the same place.
type Equivalence interface {
	Equivalent(ctx context.Context, c Candidate) (bool, error)
}

// HaversineKm is the great-circle distance between two points in decimal degrees.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * math.Asin(math.Sqrt(a)) * earthRadiusKm
}

type point struct{ lat, lng float64 }

// CoordVerifier accepts candidates that were not redirected, and redirected candidates
// whose coordinates lie within the threshold of the reference point for the input name.
type CoordVerifier struct {
	redirected  map[string]struct{}
	refs        map[string]point
	thresholdKm float64
}

// NewCoordVerifier indexes reference rows by name; the first row per name wins.
func NewCoordVerifier(redirected map[string]struct{}, refs []*record.Record, thresholdKm float64) *CoordVerifier {
	if thresholdKm <= 0 {
		thresholdKm = DefaultThresholdKm
	}
	v := &CoordVerifier{
		redirected:  redirected,
		refs:        make(map[string]point, len(refs)),
		thresholdKm: thresholdKm,
	}
	for _, r := range refs {
		name := strings.TrimSpace(r.Str("name"))
		if _, dup := v.refs[name]; dup || name == "" {
			continue
		}
		lat, okLat := parseCoord(r.Str("lat"))
		lng, okLng := parseCoord(r.Str("lng"))
		if okLat && okLng {
			v.refs[name] = point{lat: lat, lng: lng}
		}
	}
	return v
}

// Verify reports whether c is correct.
func (v *CoordVerifier) Verify(c Candidate) bool {
	if _, ok := v.redirected[c.InputName]; !ok {
		return true
	}
	ref, ok := v.refs[c.InputName]
	if !ok || !c.HasCoords {
		return false
	}
	return HaversineKm(c.Lat, c.Lon, ref.lat, ref.lng) <= v.thresholdKm
}

// NeedsLLM reports whether a candidate that failed coordinate verification should go to
// the equivalence checker.
func NeedsLLM(c Candidate, correct bool) bool {
	return !correct && !c.HasCoords
}

// Redirected reports whether name appears as an input in the redirect log.
func (v *CoordVerifier) Redirected(name string) bool {
	_, ok := v.redirected[name]
	return ok
}
