package tableview

import (
	"fmt"
	"strings"

	"election-insights/internal/location"
	"election-insights/internal/models"
)

// Field enumerates what a table can be sorted by.
type Field int

const (
	FieldNone Field = iota
	FieldLocation
	FieldCluster
	FieldTotalVotes
	FieldBucket      // one demographic bucket percentage
	FieldMaleTotal   // sum of the male buckets
	FieldFemaleTotal // sum of the female buckets
	FieldAgeTotal    // male + female for one age bracket
)

// SortKey is a tagged sort key. Bucket is set for FieldBucket and Age for FieldAgeTotal.
type SortKey struct {
	Field  Field
	Bucket models.Bucket
	Age    models.AgeBracket
}

var (
	SortNone       = SortKey{Field: FieldNone}
	SortLocation   = SortKey{Field: FieldLocation}
	SortCluster    = SortKey{Field: FieldCluster}
	SortTotalVotes = SortKey{Field: FieldTotalVotes}
	SortMale       = SortKey{Field: FieldMaleTotal}
	SortFemale     = SortKey{Field: FieldFemaleTotal}
)

// SortByBucket sorts by one demographic percentage.
func SortByBucket(b models.Bucket) SortKey { return SortKey{Field: FieldBucket, Bucket: b} }

// SortByAge sorts by the combined share of one age bracket.
func SortByAge(a models.AgeBracket) SortKey { return SortKey{Field: FieldAgeTotal, Age: a} }

// String renders the key the way ParseSortKey accepts it.
func (k SortKey) String() string {
	switch k.Field {
	case FieldLocation:
		return "location"
	case FieldCluster:
		return "cluster"
	case FieldTotalVotes:
		return "total_votes"
	case FieldBucket:
		return "demographics_pct." + string(k.Bucket)
	case FieldMaleTotal:
		return "male_total"
	case FieldFemaleTotal:
		return "female_total"
	case FieldAgeTotal:
		return k.Age.Key()
	default:
		return "none"
	}
}

// ParseSortKey accepts the dashboard's column paths: "", "none", "location",
// "cluster", "total_votes" (or "totalVotes"), "demographics_pct.<bucket>",
// a bare bucket name, "male_total", "female_total" and "age_<bracket>".
func ParseSortKey(s string) (SortKey, error) {
	s = strings.TrimSpace(s)
	switch s {
	case "", "none":
		return SortNone, nil
	case "location":
		return SortLocation, nil
	case "cluster":
		return SortCluster, nil
	case "total_votes", "totalVotes":
		return SortTotalVotes, nil
	case "male_total", "maleTotal":
		return SortMale, nil
	case "female_total", "femaleTotal":
		return SortFemale, nil
	}
	name := s
	for _, prefix := range []string{"demographics_pct.", "demographicsPct."} {
		name = strings.TrimPrefix(name, prefix)
	}
	if b, ok := models.ParseBucket(name); ok {
		return SortByBucket(b), nil
	}
	if strings.HasPrefix(s, "age_") {
		if a, ok := models.ParseAgeBracket(s); ok {
			return SortByAge(a), nil
		}
	}
	return SortKey{}, fmt.Errorf("unknown sort key %q", s)
}

// value is what an accessor extracts; exactly one of num/str is meaningful.
type value struct {
	num   float64
	str   string
	isNum bool
}

func numeric(f float64) value { return value{num: f, isNum: true} }

// accessor returns the typed value of k for a record. Missing demographic
// values read as 0.
func (k SortKey) accessor(g models.Granularity) func(models.LocationRecord) value {
	switch k.Field {
	case FieldLocation:
		return func(r models.LocationRecord) value { return value{str: location.Identifier(r, g)} }
	case FieldCluster:
		return func(r models.LocationRecord) value { return numeric(float64(r.Cluster)) }
	case FieldTotalVotes:
		return func(r models.LocationRecord) value { return numeric(float64(r.TotalVotes)) }
	case FieldBucket:
		b := k.Bucket
		return func(r models.LocationRecord) value { return numeric(r.DemographicsPct.Get(b)) }
	case FieldMaleTotal:
		return func(r models.LocationRecord) value { return numeric(Compute(r.DemographicsPct).Male) }
	case FieldFemaleTotal:
		return func(r models.LocationRecord) value { return numeric(Compute(r.DemographicsPct).Female) }
	case FieldAgeTotal:
		a := k.Age
		return func(r models.LocationRecord) value { return numeric(Compute(r.DemographicsPct).Age[a]) }
	default:
		return nil
	}
}

// compare is a three-way comparison: numeric when both values are numbers,
// lexicographic on their string forms otherwise.
func compare(a, b value) int {
	if a.isNum && b.isNum {
		switch {
		case a.num < b.num:
			return -1
		case a.num > b.num:
			return 1
		}
		return 0
	}
	return strings.Compare(a.text(), b.text())
}

func (v value) text() string {
	if v.isNum {
		return fmt.Sprintf("%v", v.num)
	}
	return v.str
}
