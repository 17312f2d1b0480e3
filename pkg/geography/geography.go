package geography

import (
	_ "embed"
	"encoding/json"
	"strings"

	"googlemaps.github.io/maps"
)

//go:embed counties.json
var countiesJSON []byte

// Unknown is returned for empty county names.
const Unknown = "Unknown"

var (
	counties   []string
	countyByUp map[string]string
)

func init() {
	var doc struct {
		Counties []string          `json:"counties"`
		Aliases  map[string]string `json:"aliases"`
	}
	if err := json.Unmarshal(countiesJSON, &doc); err != nil {
		panic("failed to load counties.json: " + err.Error())
	}
	counties = doc.Counties
	countyByUp = make(map[string]string, len(doc.Counties)+len(doc.Aliases))
	for _, c := range doc.Counties {
		countyByUp[strings.ToUpper(c)] = c
	}
	for alias, c := range doc.Aliases {
		countyByUp[strings.ToUpper(alias)] = c
	}
}

// Counties returns the canonical county names (Bucharest included).
func Counties() []string {
	return append([]string(nil), counties...)
}

var diacritics = strings.NewReplacer(
	"Ă", "A", "Â", "A", "Î", "I", "Ș", "S", "Ş", "S", "Ț", "T", "Ţ", "T",
	"ă", "a", "â", "a", "î", "i", "ș", "s", "ş", "s", "ț", "t", "ţ", "t",
)

// FoldDiacritics replaces Romanian diacritics with their ASCII base letters.
func FoldDiacritics(s string) string { return diacritics.Replace(s) }

// CanonicalCounty maps a county name as found in source data onto its
// canonical name. Unmapped names come back trimmed but otherwise unchanged.
func CanonicalCounty(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return Unknown
	}
	key := strings.ToUpper(FoldDiacritics(trimmed))
	key = strings.TrimPrefix(key, "JUDETUL ")
	if c, ok := countyByUp[key]; ok {
		return c
	}
	return trimmed
}

// IsKnownCounty reports whether name resolves to one of the canonical counties.
func IsKnownCounty(name string) bool {
	_, ok := countyByUp[strings.ToUpper(FoldDiacritics(strings.TrimSpace(name)))]
	return ok
}

// CountyFromComponents extracts the canonical county from Google geocoding
// address components. Returns "" when no county level component is present.
func CountyFromComponents(components []maps.AddressComponent) string {
	for _, c := range components {
		for _, t := range c.Types {
			if t == "administrative_area_level_1" {
				return CanonicalCounty(c.LongName)
			}
		}
	}
	return ""
}

// NormalizeName converts a string to lowercase with spaces replaced by underscores.
func NormalizeName(name string) string {
	normalized := strings.ToLower(strings.TrimSpace(FoldDiacritics(name)))
	return strings.ReplaceAll(normalized, " ", "_")
}
