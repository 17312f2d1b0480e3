package tableview

import (
	"math"
	"testing"

	"election-insights/internal/models"
)

func alphaBeta() []models.LocationRecord {
	return []models.LocationRecord{
		{County: "Alpha", Cluster: 0, TotalVotes: 100, DemographicsPct: models.Demographics{models.Male18To24: 50, models.Female18To24: 50}},
		{County: "Beta", Cluster: 1, TotalVotes: 200, DemographicsPct: models.Demographics{models.Male18To24: 10, models.Female18To24: 90}},
	}
}

func counties(rs []models.LocationRecord) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.County
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestBuildConcreteScenarios(t *testing.T) {
	tests := []struct {
		name string
		q    Query
		want []string
	}{
		{"total votes descending", Query{Sort: SortTotalVotes, Direction: Descending}, []string{"Beta", "Alpha"}},
		{"total votes ascending", Query{Sort: SortTotalVotes}, []string{"Alpha", "Beta"}},
		{"filter by county", Query{Filter: "beta"}, []string{"Beta"}},
		{"filter by cluster label", Query{Filter: "cluster 1"}, []string{"Alpha"}},
		{"filter uppercase", Query{Filter: "ALP"}, []string{"Alpha"}},
		{"no match", Query{Filter: "gamma"}, []string{}},
		{"female bucket descending", Query{Sort: SortByBucket(models.Female18To24), Direction: Descending}, []string{"Beta", "Alpha"}},
		{"location descending", Query{Sort: SortLocation, Direction: Descending}, []string{"Beta", "Alpha"}},
		{"male total descending", Query{Sort: SortMale, Direction: Descending}, []string{"Alpha", "Beta"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := counties(Build(alphaBeta(), tt.q))
			if !equal(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilterIdempotentAndSubset(t *testing.T) {
	records := sample()
	for _, text := range []string{"", "cluj", "cluster 2", "scoala", "zzz"} {
		once := Filter(records, text)
		twice := Filter(once, text)
		if !equal(counties(once), counties(twice)) || len(once) != len(twice) {
			t.Errorf("%q: filter not idempotent", text)
		}
		if len(once) > len(records) {
			t.Errorf("%q: filter grew the set", text)
		}
	}
	if got := Filter(records, ""); len(got) != len(records) {
		t.Errorf("empty filter dropped records")
	}
}

func TestFilterMatchesTownAndStation(t *testing.T) {
	records := sample()
	if got := Filter(records, "turda"); len(got) != 1 || got[0].Town != "Turda" {
		t.Errorf("town filter got %+v", got)
	}
	if got := Filter(records, "liceul"); len(got) != 1 || got[0].PollingStation != "Liceul 2" {
		t.Errorf("station filter got %+v", got)
	}
}

func TestSortIsPermutation(t *testing.T) {
	records := sample()
	got := Sort(records, SortByAge(models.Age45To64), Ascending, models.GranularityPolling)
	if len(got) != len(records) {
		t.Fatalf("len = %d", len(got))
	}
	seen := map[string]int{}
	for _, r := range records {
		seen[r.PollingStation]++
	}
	for _, r := range got {
		seen[r.PollingStation]--
	}
	for k, v := range seen {
		if v != 0 {
			t.Errorf("station %q count off by %d", k, v)
		}
	}
}

func TestSortDirectionReverses(t *testing.T) {
	// Distinct values so reversal is exact.
	records := sample()
	asc := counties(Sort(records, SortTotalVotes, Ascending, models.GranularityCounty))
	desc := counties(Sort(records, SortTotalVotes, Descending, models.GranularityCounty))
	for i := range asc {
		if asc[i] != desc[len(desc)-1-i] {
			t.Fatalf("asc %v is not the reverse of desc %v", asc, desc)
		}
	}
}

func TestSortNoneKeepsOrderAndStableTies(t *testing.T) {
	records := []models.LocationRecord{
		{County: "C", TotalVotes: 5},
		{County: "A", TotalVotes: 5},
		{County: "B", TotalVotes: 1},
	}
	if got := counties(Sort(records, SortNone, Descending, models.GranularityCounty)); !equal(got, []string{"C", "A", "B"}) {
		t.Errorf("none key reordered: %v", got)
	}
	if got := counties(Sort(records, SortTotalVotes, Descending, models.GranularityCounty)); !equal(got, []string{"C", "A", "B"}) {
		t.Errorf("ties not stable: %v", got)
	}
	if records[0].County != "C" {
		t.Error("input slice was modified")
	}
}

func TestMissingDemographicsSortAsZero(t *testing.T) {
	records := []models.LocationRecord{
		{County: "Full", DemographicsPct: models.Demographics{models.Male65Plus: 3}},
		{County: "Empty"},
	}
	got := counties(Sort(records, SortByBucket(models.Male65Plus), Ascending, models.GranularityCounty))
	if !equal(got, []string{"Empty", "Full"}) {
		t.Errorf("got %v", got)
	}
}

func TestCompute(t *testing.T) {
	d := models.Demographics{
		models.Male18To24: 1, models.Male25To34: 2, models.Male35To44: 3, models.Male45To64: 4, models.Male65Plus: 5,
		models.Female18To24: 10, models.Female25To34: 20, models.Female35To44: 30, models.Female45To64: 40, models.Female65Plus: 50,
	}
	got := Compute(d)
	if got.Male != 15 || got.Female != 150 {
		t.Errorf("male=%v female=%v", got.Male, got.Female)
	}
	var ageSum float64
	for _, a := range models.AgeBrackets {
		ageSum += got.Age[a]
	}
	if math.Abs(ageSum-(got.Male+got.Female)) > 1e-9 {
		t.Errorf("age totals %v != male+female %v", ageSum, got.Male+got.Female)
	}
	if got.Age[models.Age65Plus] != 55 {
		t.Errorf("65+ = %v", got.Age[models.Age65Plus])
	}
	if empty := Compute(nil); empty.Male != 0 || empty.Female != 0 || len(empty.Age) != 5 {
		t.Errorf("Compute(nil) = %+v", empty)
	}
}

func TestParseSortKey(t *testing.T) {
	tests := []struct {
		in      string
		want    SortKey
		wantErr bool
	}{
		{"", SortNone, false},
		{"none", SortNone, false},
		{"totalVotes", SortTotalVotes, false},
		{"total_votes", SortTotalVotes, false},
		{"cluster", SortCluster, false},
		{"location", SortLocation, false},
		{"demographics_pct.male_18_24", SortByBucket(models.Male18To24), false},
		{"female_65_plus", SortByBucket(models.Female65Plus), false},
		{"male_total", SortMale, false},
		{"female_total", SortFemale, false},
		{"age_25_34", SortByAge(models.Age25To34), false},
		{"age_99", SortKey{}, true},
		{"demographics_pct.bogus", SortKey{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSortKey(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
			if err == nil {
				back, err := ParseSortKey(got.String())
				if err != nil || back != got {
					t.Errorf("String() %q does not parse back", got.String())
				}
			}
		})
	}
}

func TestRows(t *testing.T) {
	rows := Rows(alphaBeta(), models.GranularityCounty)
	if rows[1].Identifier != "Beta" || rows[1].ClusterLabel != "Cluster 2" || rows[1].Totals.Female != 90 {
		t.Errorf("row = %+v", rows[1])
	}
}

func sample() []models.LocationRecord {
	return []models.LocationRecord{
		{County: "Cluj", Town: "Cluj-Napoca", PollingStation: "Scoala 5", Cluster: 0, TotalVotes: 300,
			DemographicsPct: models.Demographics{models.Male45To64: 10, models.Female45To64: 12}},
		{County: "Cluj", Town: "Turda", PollingStation: "Liceul 2", Cluster: 1, TotalVotes: 150,
			DemographicsPct: models.Demographics{models.Male45To64: 20, models.Female45To64: 25}},
		{County: "Iasi", Town: "Pascani", PollingStation: "Scoala 1", Cluster: 1, TotalVotes: 90,
			DemographicsPct: models.Demographics{models.Male45To64: 5}},
		{County: "Arad", Town: "Arad", PollingStation: "Gradinita 3", Cluster: 2, TotalVotes: 410},
	}
}
