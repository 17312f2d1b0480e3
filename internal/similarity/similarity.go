// Package similarity ranks locations by how closely their demographic mix
// matches a selected location, using cosine similarity over the fixed
// ten-bucket percentage vector.
package similarity

import (
	"math"
	"sort"

	"election-insights/internal/location"
	"election-insights/internal/models"
)

// DefaultTopK is used when a caller asks for zero or fewer results.
const DefaultTopK = 5

// Vector is a demographics percentage vector in models.Buckets order.
type Vector [len(models.Buckets)]float64

// VectorOf builds the fixed-order vector; absent buckets are 0.
func VectorOf(d models.Demographics) Vector {
	var v Vector
	for i, b := range models.Buckets {
		v[i] = d.Get(b)
	}
	return v
}

// Norm is the Euclidean magnitude of v.
func (v Vector) Norm() float64 {
	var s float64
	for _, x := range v {
		s += x * x
	}
	return math.Sqrt(s)
}

// Dot is the inner product of v and w.
func (v Vector) Dot(w Vector) float64 {
	var s float64
	for i := range v {
		s += v[i] * w[i]
	}
	return s
}

// Cosine returns the cosine similarity of a and b, or 0 when either has zero magnitude.
func Cosine(a, b Vector) float64 {
	return cosine(a, a.Norm(), b, b.Norm())
}

func cosine(a Vector, na float64, b Vector, nb float64) float64 {
	if na == 0 || nb == 0 {
		return 0
	}
	return a.Dot(b) / (na * nb)
}

// Similarity compares the demographics of two records.
func Similarity(a, b models.LocationRecord) float64 {
	return Cosine(VectorOf(a.DemographicsPct), VectorOf(b.DemographicsPct))
}

// Match is one ranked neighbour.
type Match struct {
	Identifier string  `json:"identifier"`
	Label      string  `json:"label"`
	Similarity float64 `json:"similarity"`
	Cluster    int     `json:"cluster"`
	Votes      int     `json:"votes"`
}

// FindTopSimilar ranks every record other than the selected one by similarity
// to it and returns at most topK matches, most similar first. Equal scores keep
// the input order. An empty or unknown selection yields an empty result.
func FindTopSimilar(selected string, records []models.LocationRecord, g models.Granularity, topK int) []Match {
	feats := buildFeatures(records, g)
	return rank(selected, records, g, feats, topK)
}

// features caches what ranking needs per record.
type features struct {
	ids   []string
	vecs  []Vector
	norms []float64
	index map[string]int
}

func buildFeatures(records []models.LocationRecord, g models.Granularity) *features {
	f := &features{
		ids:   make([]string, len(records)),
		vecs:  make([]Vector, len(records)),
		norms: make([]float64, len(records)),
		index: make(map[string]int, len(records)),
	}
	for i, r := range records {
		id := location.Identifier(r, g)
		f.ids[i] = id
		f.vecs[i] = VectorOf(r.DemographicsPct)
		f.norms[i] = f.vecs[i].Norm()
		if _, ok := f.index[id]; !ok {
			f.index[id] = i
		}
	}
	return f
}

func rank(selected string, records []models.LocationRecord, g models.Granularity, f *features, topK int) []Match {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if selected == "" || len(records) == 0 {
		return []Match{}
	}
	si, ok := f.index[selected]
	if !ok {
		return []Match{}
	}

	sv, sn := f.vecs[si], f.norms[si]
	matches := make([]Match, 0, len(records)-1)
	for i, r := range records {
		if f.ids[i] == selected {
			continue
		}
		matches = append(matches, Match{
			Identifier: f.ids[i],
			Label:      location.Label(r, g),
			Similarity: cosine(sv, sn, f.vecs[i], f.norms[i]),
			Cluster:    r.Cluster,
			Votes:      r.TotalVotes,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}
