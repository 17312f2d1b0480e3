package models

import (
	"fmt"
	"strings"
)

// Granularity is the geographic level a set of location records describes.
type Granularity string

const (
	GranularityCounty  Granularity = "county"
	GranularityTown    Granularity = "town"
	GranularityPolling Granularity = "polling"
)

// Granularities lists the valid levels in broad-to-fine order.
var Granularities = []Granularity{GranularityCounty, GranularityTown, GranularityPolling}

// ParseGranularity accepts county, town or polling (case-insensitive).
func ParseGranularity(s string) (Granularity, error) {
	g := Granularity(strings.ToLower(strings.TrimSpace(s)))
	switch g {
	case GranularityCounty, GranularityTown, GranularityPolling:
		return g, nil
	}
	return "", fmt.Errorf("invalid level %q: must be one of county, town, polling", s)
}

// Bucket names one gender/age demographic bucket.
type Bucket string

const (
	Male18To24   Bucket = "male_18_24"
	Male25To34   Bucket = "male_25_34"
	Male35To44   Bucket = "male_35_44"
	Male45To64   Bucket = "male_45_64"
	Male65Plus   Bucket = "male_65_plus"
	Female18To24 Bucket = "female_18_24"
	Female25To34 Bucket = "female_25_34"
	Female35To44 Bucket = "female_35_44"
	Female45To64 Bucket = "female_45_64"
	Female65Plus Bucket = "female_65_plus"
)

// Buckets is the fixed vector order used everywhere demographics become numbers.
var Buckets = [10]Bucket{
	Male18To24, Male25To34, Male35To44, Male45To64, Male65Plus,
	Female18To24, Female25To34, Female35To44, Female45To64, Female65Plus,
}

// MaleBuckets and FemaleBuckets follow the age bracket order.
var (
	MaleBuckets   = [5]Bucket{Male18To24, Male25To34, Male35To44, Male45To64, Male65Plus}
	FemaleBuckets = [5]Bucket{Female18To24, Female25To34, Female35To44, Female45To64, Female65Plus}
)

// ParseBucket validates a bucket name.
func ParseBucket(s string) (Bucket, bool) {
	for _, b := range Buckets {
		if string(b) == s {
			return b, true
		}
	}
	return "", false
}

// AgeBracket is one of the five age ranges shared by both genders.
type AgeBracket string

const (
	Age18To24 AgeBracket = "18_24"
	Age25To34 AgeBracket = "25_34"
	Age35To44 AgeBracket = "35_44"
	Age45To64 AgeBracket = "45_64"
	Age65Plus AgeBracket = "65_plus"
)

var AgeBrackets = [5]AgeBracket{Age18To24, Age25To34, Age35To44, Age45To64, Age65Plus}

// Key is the column-style name, e.g. "age_18_24".
func (a AgeBracket) Key() string { return "age_" + string(a) }

// ParseAgeBracket accepts "18_24" or "age_18_24".
func ParseAgeBracket(s string) (AgeBracket, bool) {
	s = strings.TrimPrefix(s, "age_")
	for _, a := range AgeBrackets {
		if string(a) == s {
			return a, true
		}
	}
	return "", false
}

// Demographics maps buckets to percentages of votes cast. Missing buckets read as 0.
type Demographics map[Bucket]float64

// Get returns the value for b, or 0 when absent.
func (d Demographics) Get(b Bucket) float64 {
	if d == nil {
		return 0
	}
	return d[b]
}

// DemographicCounts maps buckets to raw voter counts.
type DemographicCounts map[Bucket]int

// LocationRecord is one clustered geographic unit. Town and PollingStation are
// empty when the granularity does not include them.
type LocationRecord struct {
	County          string            `json:"county"`
	Town            string            `json:"town,omitempty"`
	PollingStation  string            `json:"polling_station,omitempty"`
	Cluster         int               `json:"cluster"`
	TotalRegistered int               `json:"total_registered"`
	TotalVotes      int               `json:"total_votes"`
	PCAX            float64           `json:"pca_x"`
	PCAY            float64           `json:"pca_y"`
	Demographics    DemographicCounts `json:"demographics,omitempty"`
	DemographicsPct Demographics      `json:"demographics_pct"`
}

// ClusterCenter holds a centroid in percentage space, keyed like "male_18_24_pct".
type ClusterCenter map[string]float64

// CenterKey is the response key of a bucket inside a ClusterCenter.
func CenterKey(b Bucket) string { return string(b) + "_pct" }

// ClusteringResult is the full response of a clustering run.
type ClusteringResult struct {
	Level                  Granularity           `json:"cluster_level"`
	NClusters              int                   `json:"n_clusters"`
	ExplainedVarianceRatio []float64             `json:"explained_variance_ratio"`
	ClusterCenters         map[int]ClusterCenter `json:"cluster_centers"`
	Records                []LocationRecord      `json:"clustered_data"`
	Descriptions           map[int]string        `json:"cluster_descriptions,omitempty"`
	DataVersion            string                `json:"data_version,omitempty"`
}
