package clustering

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"election-insights/internal/models"
	"election-insights/internal/presence"
	"election-insights/pkg/cache"
	apperrors "election-insights/pkg/errors"
)

var header = "Judet,Localitate,Nume sectie de votare,Înscriși pe liste permanente,LP," +
	strings.Join(presence.AgeColumns[:], ",")

// station renders one presence row; ages are the ten bucket counts.
func station(county, town, name string, registered, votes int, ages [10]int) string {
	cells := []string{county, town, name, fmt.Sprint(registered), fmt.Sprint(votes)}
	for _, a := range ages {
		cells = append(cells, fmt.Sprint(a))
	}
	return strings.Join(cells, ",")
}

var (
	young = [10]int{30, 10, 5, 3, 2, 30, 10, 5, 3, 2}
	old   = [10]int{2, 3, 5, 10, 30, 2, 3, 5, 10, 30}
)

func fixture(t *testing.T) *presence.Table {
	t.Helper()
	lines := []string{
		header,
		"// generated for tests",
		station("CLUJ", "Cluj-Napoca", "Scoala 1", 1000, 100, young),
		station("CLUJ", "Cluj-Napoca", "Scoala 2", 1000, 100, young),
		station("CLUJ", "Dej", "Liceu", 800, 100, young),
		station("IASI", "Iasi", "Scoala 3", 900, 100, young),
		station("TELEORMAN", "Alexandria", "Scoala 4", 700, 100, old),
		station("VASLUI", "Vaslui", "Scoala 5", 600, 100, old),
		station("GIURGIU", "Giurgiu", "Scoala 6", 500, 100, old),
		station("BRAILA", "Braila", "Scoala 7", 400, 0, old),
	}
	tbl, err := presence.Read(strings.NewReader(strings.Join(lines, "\n") + "\n"))
	if err != nil {
		t.Fatal(err)
	}
	return tbl
}

func TestRunCountyLevel(t *testing.T) {
	res, err := Run(context.Background(), fixture(t), Options{Level: models.GranularityCounty, NClusters: 2})
	if err != nil {
		t.Fatal(err)
	}
	if res.Level != models.GranularityCounty || res.NClusters != 2 {
		t.Errorf("level=%s n=%d", res.Level, res.NClusters)
	}

	var got []string
	byCounty := map[string]models.LocationRecord{}
	for _, r := range res.Records {
		got = append(got, r.County)
		byCounty[r.County] = r
	}
	want := []string{"CLUJ", "GIURGIU", "IASI", "TELEORMAN", "VASLUI"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("counties = %v, want %v (sorted, zero-vote county dropped)", got, want)
	}

	cluj := byCounty["CLUJ"]
	if cluj.TotalVotes != 300 || cluj.TotalRegistered != 2800 {
		t.Errorf("cluj totals = %d/%d", cluj.TotalVotes, cluj.TotalRegistered)
	}
	if cluj.Demographics[models.Male18To24] != 90 {
		t.Errorf("cluj male 18-24 count = %d", cluj.Demographics[models.Male18To24])
	}
	if math.Abs(cluj.DemographicsPct[models.Male18To24]-30) > 1e-9 {
		t.Errorf("cluj male 18-24 pct = %v", cluj.DemographicsPct[models.Male18To24])
	}

	if cluj.Cluster != byCounty["IASI"].Cluster {
		t.Error("young counties split across clusters")
	}
	if byCounty["TELEORMAN"].Cluster != byCounty["VASLUI"].Cluster || byCounty["VASLUI"].Cluster != byCounty["GIURGIU"].Cluster {
		t.Error("old counties split across clusters")
	}
	if cluj.Cluster == byCounty["VASLUI"].Cluster {
		t.Error("young and old counties share a cluster")
	}
	if cluj.Cluster != 0 {
		t.Errorf("first record should be cluster 0 after relabeling, got %d", cluj.Cluster)
	}

	if len(res.ClusterCenters) != 2 {
		t.Fatalf("centers = %d", len(res.ClusterCenters))
	}
	youngCenter := res.ClusterCenters[cluj.Cluster]
	if len(youngCenter) != 10 {
		t.Errorf("center has %d keys", len(youngCenter))
	}
	if math.Abs(youngCenter["male_18_24_pct"]-30) > 1e-6 {
		t.Errorf("young center male_18_24_pct = %v", youngCenter["male_18_24_pct"])
	}

	if len(res.ExplainedVarianceRatio) != 2 {
		t.Fatalf("ratio = %v", res.ExplainedVarianceRatio)
	}
	sum := res.ExplainedVarianceRatio[0] + res.ExplainedVarianceRatio[1]
	if res.ExplainedVarianceRatio[0] < res.ExplainedVarianceRatio[1] || sum > 1+1e-9 || sum < 0.99 {
		t.Errorf("ratio = %v", res.ExplainedVarianceRatio)
	}
	if math.Signbit(cluj.PCAX) == math.Signbit(byCounty["VASLUI"].PCAX) {
		t.Errorf("first component does not separate the groups: %v vs %v", cluj.PCAX, byCounty["VASLUI"].PCAX)
	}
}

func TestRunIsDeterministic(t *testing.T) {
	a, err := Run(context.Background(), fixture(t), Options{Level: models.GranularityPolling, NClusters: 3})
	if err != nil {
		t.Fatal(err)
	}
	b, _ := Run(context.Background(), fixture(t), Options{Level: models.GranularityPolling, NClusters: 3})
	for i := range a.Records {
		if a.Records[i].Cluster != b.Records[i].Cluster || a.Records[i].PCAX != b.Records[i].PCAX {
			t.Fatalf("record %d differs between runs", i)
		}
	}
}

func TestRunTownLevel(t *testing.T) {
	res, err := Run(context.Background(), fixture(t), Options{Level: models.GranularityTown, NClusters: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Records) != 6 {
		t.Fatalf("towns = %d, want 6", len(res.Records))
	}
	first := res.Records[0]
	if first.County != "CLUJ" || first.Town != "Cluj-Napoca" || first.TotalVotes != 200 || first.PollingStation != "" {
		t.Errorf("first town = %+v", first)
	}
}

func TestRunShrinksClusters(t *testing.T) {
	res, err := Run(context.Background(), fixture(t), Options{Level: models.GranularityCounty, NClusters: 5})
	if err != nil {
		t.Fatal(err)
	}
	if res.NClusters != 4 {
		t.Errorf("n_clusters = %d, want 4 for 5 counties", res.NClusters)
	}
}

func TestEffectiveClusters(t *testing.T) {
	tests := []struct{ requested, rows, want int }{
		{5, 42, 5},
		{5, 5, 4},
		{5, 3, 2},
		{5, 2, 2},
		{5, 1, 1},
		{2, 10, 2},
	}
	for _, tt := range tests {
		if got := EffectiveClusters(tt.requested, tt.rows); got != tt.want {
			t.Errorf("EffectiveClusters(%d, %d) = %d, want %d", tt.requested, tt.rows, got, tt.want)
		}
	}
}

func TestRunErrors(t *testing.T) {
	noAges, _ := presence.Read(strings.NewReader("Judet,LP\nCLUJ,10\n"))
	noVotes, _ := presence.Read(strings.NewReader(header + "\n" + station("CLUJ", "Dej", "S", 10, 0, young) + "\n"))
	tests := []struct {
		name string
		tbl  *presence.Table
		n    int
		kind error
	}{
		{"missing demographic columns", noAges, 2, apperrors.ErrValidation},
		{"non-positive clusters", fixture(t), 0, apperrors.ErrValidation},
		{"no votes", noVotes, 2, apperrors.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Run(context.Background(), tt.tbl, Options{NClusters: tt.n})
			if !apperrors.Is(err, tt.kind) {
				t.Errorf("err = %v, want kind %T", err, tt.kind)
			}
		})
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Run(ctx, fixture(t), Options{NClusters: 2}); err == nil {
		t.Error("expected context error")
	}
}

func TestPercentagesClip(t *testing.T) {
	g := &group{votes: 10, ages: [10]float64{20, 5}}
	pct := g.percentages()
	if pct[0] != 100 || pct[1] != 50 || pct[2] != 0 {
		t.Errorf("pct = %v", pct)
	}
}

func TestProjectDegenerate(t *testing.T) {
	coords, ratio := project([][]float64{{1, 2, 3}})
	if coords[0] != [2]float64{} || ratio[0] != 0 || ratio[1] != 0 {
		t.Errorf("single row: coords=%v ratio=%v", coords, ratio)
	}
	coords, ratio = project([][]float64{{1, 1}, {1, 1}, {1, 1}})
	for _, c := range coords {
		if c != [2]float64{} {
			t.Errorf("constant data produced coords %v", c)
		}
	}
	if ratio[0] != 0 {
		t.Errorf("constant data ratio = %v", ratio)
	}
}

func TestServiceCachesByFileVersion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "presence_now.csv")
	body := header + "\n" +
		station("CLUJ", "Dej", "S1", 10, 10, young) + "\n" +
		station("IASI", "Iasi", "S2", 10, 10, old) + "\n" +
		station("ARAD", "Arad", "S3", 10, 10, young) + "\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	backend, _ := cache.NewLRU(8)
	svc := NewService(path, backend, 0, nil)
	ctx := context.Background()

	first, err := svc.Cluster(ctx, models.GranularityCounty, 2)
	if err != nil {
		t.Fatal(err)
	}
	if first.DataVersion == "" {
		t.Error("missing data version")
	}
	if backend.Len() != 1 {
		t.Fatalf("cache entries = %d", backend.Len())
	}
	second, err := svc.Cluster(ctx, models.GranularityCounty, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(second.Records) != len(first.Records) || second.ClusterCenters[0]["male_18_24_pct"] != first.ClusterCenters[0]["male_18_24_pct"] {
		t.Error("cached result differs from computed one")
	}

	if err := svc.Invalidate(ctx); err != nil {
		t.Fatal(err)
	}
	if backend.Len() != 0 {
		t.Error("invalidate left entries behind")
	}
}

func TestServiceMissingFile(t *testing.T) {
	svc := NewService(filepath.Join(t.TempDir(), "absent.csv"), nil, 0, nil)
	if _, err := svc.Cluster(context.Background(), models.GranularityCounty, 2); !apperrors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("err = %v", err)
	}
}
