// Package gmaps consolidates Google Maps exports into one row per place.
package gmaps

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/shpitdev/monuments-pipeline/pkg/pipeline/record"
	"github.com/shpitdev/monuments-pipeline/pkg/pipeline/report"
)

const source = "google"

// Header is the column order of consolidated output.
func Header() []string {
	return []string{"name", "rating", "review_count", "place_link"}
}

var spaceRe = regexp.MustCompile(`\s+`)

type place struct {
	name        string
	rating      float64
	reviewCount int64
	hasReviews  bool
	link        string
	key         string
	order       int
}

// DedupeKey returns the identity of a Google row: place id, else place link, else
// name and address. Values are lower-cased with whitespace collapsed.
func DedupeKey(placeID, link, name, address string) string {
	if pid := normText(placeID); pid != "" {
		return "pid:" + pid
	}
	if l := normText(link); l != "" {
		return "link:" + l
	}
	return "na:" + normText(name) + "|" + normText(address)
}

func normText(s string) string {
	return spaceRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), " ")
}

// Consolidate drops rows without a name, link or numeric rating, then keeps one row per
// dedupe key: the one with the most reviews, then the best rating. Output is ordered by
// dedupe key.
func Consolidate(rows []*record.Record, rep *report.Report) []*record.Record {
	best := make(map[string]place)
	for i, r := range rows {
		name := strings.TrimSpace(r.Str("name"))
		link := strings.TrimSpace(r.Str("place_link"))
		if name == "" || link == "" {
			rep.Add(report.Entry{InputName: name, Source: source, Reason: report.ReasonInvalid, Detail: "missing name or place_link"})
			continue
		}
		rating, err := strconv.ParseFloat(strings.TrimSpace(r.Str("rating")), 64)
		if err != nil || math.IsNaN(rating) {
			rep.Add(report.Entry{InputName: name, Source: source, Reason: report.ReasonInvalid, Detail: "missing rating"})
			continue
		}
		p := place{
			name:   name,
			rating: rating,
			link:   link,
			key:    DedupeKey(r.Str("place_id"), link, name, r.Str("full_address")),
			order:  i,
		}
		if rc, err := strconv.ParseFloat(strings.TrimSpace(r.Str("review_count")), 64); err == nil && !math.IsNaN(rc) {
			p.reviewCount = int64(math.Round(rc))
			p.hasReviews = true
		}

		prev, ok := best[p.key]
		switch {
		case !ok:
			best[p.key] = p
		case better(p, prev):
			rep.Add(report.Entry{InputName: prev.name, Source: source, Reason: report.ReasonDuplicate, Detail: p.key})
			best[p.key] = p
		default:
			rep.Add(report.Entry{InputName: p.name, Source: source, Reason: report.ReasonDuplicate, Detail: p.key})
		}
	}

	places := make([]place, 0, len(best))
	for _, p := range best {
		places = append(places, p)
	}
	sort.Slice(places, func(i, j int) bool { return places[i].key < places[j].key })

	out := make([]*record.Record, 0, len(places))
	for _, p := range places {
		r := record.New()
		r.Set("name", record.Text(p.name))
		r.Set("rating", record.Text(strconv.FormatFloat(p.rating, 'f', -1, 64)))
		if p.hasReviews {
			r.Set("review_count", record.Text(strconv.FormatInt(p.reviewCount, 10)))
		} else {
			r.Set("review_count", record.Null())
		}
		r.Set("place_link", record.Text(p.link))
		out = append(out, r)
	}
	return out
}

// better reports whether a should replace b. Missing review counts sort below zero; full
// ties keep the earlier row.
func better(a, b place) bool {
	ar, br := reviewsOrMinus(a), reviewsOrMinus(b)
	if ar != br {
		return ar > br
	}
	if a.rating != b.rating {
		return a.rating > b.rating
	}
	return a.order < b.order
}

func reviewsOrMinus(p place) int64 {
	if !p.hasReviews {
		return -1
	}
	return p.reviewCount
}
