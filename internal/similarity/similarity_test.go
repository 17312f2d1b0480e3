package similarity

import (
	"math"
	"testing"

	"election-insights/internal/models"
)

const eps = 1e-12

func alphaBeta() []models.LocationRecord {
	return []models.LocationRecord{
		{County: "Alpha", Cluster: 0, TotalVotes: 100, DemographicsPct: models.Demographics{models.Male18To24: 50, models.Female18To24: 50}},
		{County: "Beta", Cluster: 1, TotalVotes: 200, DemographicsPct: models.Demographics{models.Male18To24: 10, models.Female18To24: 90}},
	}
}

func TestFindTopSimilarConcreteScenario(t *testing.T) {
	got := FindTopSimilar("Alpha", alphaBeta(), models.GranularityCounty, 5)
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	want := (50*10 + 50*90) / (math.Sqrt(50*50+50*50) * math.Sqrt(10*10+90*90))
	m := got[0]
	if m.Identifier != "Beta" || m.Cluster != 1 || m.Votes != 200 {
		t.Errorf("match = %+v", m)
	}
	if math.Abs(m.Similarity-want) > eps {
		t.Errorf("similarity = %v, want %v", m.Similarity, want)
	}
	if math.Abs(m.Similarity-0.78087) > 1e-4 {
		t.Errorf("similarity = %v, want about 0.78087", m.Similarity)
	}
}

func TestFindTopSimilarEdgeCases(t *testing.T) {
	records := alphaBeta()
	tests := []struct {
		name     string
		selected string
		records  []models.LocationRecord
	}{
		{"empty selection", "", records},
		{"unknown selection", "Gamma", records},
		{"no records", "Alpha", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindTopSimilar(tt.selected, tt.records, models.GranularityCounty, 5)
			if got == nil || len(got) != 0 {
				t.Errorf("got %v, want empty non-nil slice", got)
			}
		})
	}
}

func TestZeroVectorGivesZero(t *testing.T) {
	zero := models.LocationRecord{County: "Zero"}
	other := alphaBeta()[0]
	if s := Similarity(zero, other); s != 0 {
		t.Errorf("Similarity(zero, other) = %v", s)
	}
	if s := Similarity(zero, zero); s != 0 {
		t.Errorf("Similarity(zero, zero) = %v", s)
	}
	if math.IsNaN(Cosine(Vector{}, Vector{})) {
		t.Error("Cosine of zero vectors must not be NaN")
	}
}

func TestSimilarityProperties(t *testing.T) {
	records := sampleRecords()
	for _, a := range records {
		if a.DemographicsPct != nil {
			if s := Similarity(a, a); math.Abs(s-1) > eps {
				t.Errorf("Similarity(%s, %s) = %v, want 1", a.County, a.County, s)
			}
		}
		for _, b := range records {
			if Similarity(a, b) != Similarity(b, a) {
				t.Errorf("asymmetric similarity for %s/%s", a.County, b.County)
			}
		}
	}
}

func TestFindTopSimilarOrderingAndBounds(t *testing.T) {
	records := sampleRecords()
	for _, topK := range []int{1, 2, 3, 10} {
		got := FindTopSimilar("Cluj", records, models.GranularityCounty, topK)
		if len(got) > topK || len(got) > len(records)-1 {
			t.Errorf("topK=%d: len = %d", topK, len(got))
		}
		for i, m := range got {
			if m.Identifier == "Cluj" {
				t.Errorf("selected record returned in its own results")
			}
			if i > 0 && got[i-1].Similarity < m.Similarity {
				t.Errorf("topK=%d: results not sorted at %d", topK, i)
			}
		}
	}
}

func TestFindTopSimilarDefaultTopK(t *testing.T) {
	var records []models.LocationRecord
	for i := 0; i < 8; i++ {
		records = append(records, models.LocationRecord{
			County:          string(rune('A' + i)),
			DemographicsPct: models.Demographics{models.Male18To24: float64(i + 1)},
		})
	}
	if got := FindTopSimilar("A", records, models.GranularityCounty, 0); len(got) != DefaultTopK {
		t.Errorf("len = %d, want %d", len(got), DefaultTopK)
	}
}

func TestFindTopSimilarStableTies(t *testing.T) {
	same := models.Demographics{models.Female45To64: 30, models.Male45To64: 20}
	records := []models.LocationRecord{
		{County: "Sel", DemographicsPct: same},
		{County: "First", DemographicsPct: same},
		{County: "Second", DemographicsPct: same},
		{County: "Third", DemographicsPct: same},
	}
	got := FindTopSimilar("Sel", records, models.GranularityCounty, 5)
	want := []string{"First", "Second", "Third"}
	for i, id := range want {
		if got[i].Identifier != id {
			t.Errorf("position %d = %s, want %s", i, got[i].Identifier, id)
		}
	}
}

func TestFindTopSimilarUsesGranularityIdentifier(t *testing.T) {
	records := []models.LocationRecord{
		{County: "Cluj", Town: "Dej", DemographicsPct: models.Demographics{models.Male18To24: 1}},
		{County: "Cluj", Town: "Turda", DemographicsPct: models.Demographics{models.Male18To24: 1}},
	}
	got := FindTopSimilar("Cluj | Dej", records, models.GranularityTown, 5)
	if len(got) != 1 || got[0].Identifier != "Cluj | Turda" {
		t.Fatalf("got %+v", got)
	}
	if got[0].Label != "Turda (Cluj)" {
		t.Errorf("label = %q", got[0].Label)
	}
}

func TestRankerMatchesFindTopSimilar(t *testing.T) {
	r, err := NewRanker(2)
	if err != nil {
		t.Fatal(err)
	}
	records := sampleRecords()
	want := FindTopSimilar("Iasi", records, models.GranularityCounty, 3)

	for i := 0; i < 2; i++ {
		got := r.FindTopSimilar("v1", "Iasi", records, models.GranularityCounty, 3)
		if len(got) != len(want) {
			t.Fatalf("len = %d, want %d", len(got), len(want))
		}
		for j := range want {
			if got[j] != want[j] {
				t.Errorf("run %d pos %d: %+v != %+v", i, j, got[j], want[j])
			}
		}
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
	r.FindTopSimilar("", "Iasi", records, models.GranularityCounty, 3)
	if r.Len() != 1 {
		t.Errorf("empty version must bypass the cache")
	}
	r.Purge()
	if r.Len() != 0 {
		t.Errorf("Len() after Purge = %d", r.Len())
	}
}

func sampleRecords() []models.LocationRecord {
	return []models.LocationRecord{
		{County: "Cluj", Cluster: 0, TotalVotes: 500, DemographicsPct: models.Demographics{
			models.Male18To24: 6, models.Male25To34: 9, models.Male35To44: 10, models.Male45To64: 15, models.Male65Plus: 8,
			models.Female18To24: 6, models.Female25To34: 9, models.Female35To44: 10, models.Female45To64: 16, models.Female65Plus: 11,
		}},
		{County: "Iasi", Cluster: 1, TotalVotes: 450, DemographicsPct: models.Demographics{
			models.Male18To24: 8, models.Male25To34: 10, models.Male35To44: 9, models.Male45To64: 13, models.Male65Plus: 7,
			models.Female18To24: 8, models.Female25To34: 10, models.Female35To44: 10, models.Female45To64: 14, models.Female65Plus: 11,
		}},
		{County: "Teleorman", Cluster: 2, TotalVotes: 120, DemographicsPct: models.Demographics{
			models.Male45To64: 18, models.Male65Plus: 20, models.Female45To64: 20, models.Female65Plus: 30,
		}},
		{County: "Ilfov", Cluster: 1, TotalVotes: 300, DemographicsPct: models.Demographics{
			models.Male25To34: 15, models.Male35To44: 16, models.Female25To34: 15, models.Female35To44: 16,
		}},
		{County: "Empty", Cluster: 0, TotalVotes: 0},
	}
}
