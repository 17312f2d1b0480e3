// Package location derives the identifier that names a location record at a
// given granularity. The similarity ranker, the table view and the HTTP layer
// all go through Identifier so the same location always gets the same string.
package location

import (
	"strings"

	"election-insights/internal/models"
)

// Separator joins identifier parts. County and town names contain hyphens
// and spaces, so neither can be used here.
const Separator = " | "

// Parts returns the identifier components relevant to g, broad to fine.
// Unknown granularities fall back to the county alone.
func Parts(r models.LocationRecord, g models.Granularity) []string {
	switch g {
	case models.GranularityTown:
		return []string{r.County, r.Town}
	case models.GranularityPolling:
		return []string{r.County, r.Town, r.PollingStation}
	default:
		return []string{r.County}
	}
}

// Identifier joins Parts with Separator.
func Identifier(r models.LocationRecord, g models.Granularity) string {
	return strings.Join(Parts(r, g), Separator)
}

// Label is the display form: the finest component followed by its parents,
// e.g. "Scoala 5, Cluj-Napoca (Cluj)". Empty components are skipped.
func Label(r models.LocationRecord, g models.Granularity) string {
	parts := Parts(r, g)
	var nonEmpty []string
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	switch len(nonEmpty) {
	case 0:
		return ""
	case 1:
		return nonEmpty[0]
	}
	last := len(nonEmpty) - 1
	inner := make([]string, 0, last)
	for i := last; i >= 1; i-- {
		inner = append(inner, nonEmpty[i])
	}
	return strings.Join(inner, ", ") + " (" + nonEmpty[0] + ")"
}

// Index maps identifiers to record positions. When two records share an
// identifier the first one wins.
func Index(records []models.LocationRecord, g models.Granularity) map[string]int {
	idx := make(map[string]int, len(records))
	for i, r := range records {
		id := Identifier(r, g)
		if _, ok := idx[id]; !ok {
			idx[id] = i
		}
	}
	return idx
}
