package tableview

import (
	"election-insights/internal/location"
	"election-insights/internal/models"
)

// Totals are the per-row aggregate columns of the table.
type Totals struct {
	Male   float64                       `json:"male_total"`
	Female float64                       `json:"female_total"`
	Age    map[models.AgeBracket]float64 `json:"age_totals"`
}

// Compute sums the male buckets, the female buckets and each age bracket
// across genders. Missing buckets count as 0.
func Compute(d models.Demographics) Totals {
	t := Totals{Age: make(map[models.AgeBracket]float64, len(models.AgeBrackets))}
	for i, a := range models.AgeBrackets {
		m := d.Get(models.MaleBuckets[i])
		f := d.Get(models.FemaleBuckets[i])
		t.Male += m
		t.Female += f
		t.Age[a] = m + f
	}
	return t
}

// Row is a record together with its derived totals, as rendered by the table.
type Row struct {
	models.LocationRecord
	Identifier   string `json:"identifier"`
	ClusterLabel string `json:"cluster_label"`
	Totals       Totals `json:"totals"`
}

// Rows decorates records with their identifier, cluster label and totals.
func Rows(records []models.LocationRecord, g models.Granularity) []Row {
	rows := make([]Row, len(records))
	for i, r := range records {
		rows[i] = Row{
			LocationRecord: r,
			Identifier:     location.Identifier(r, g),
			ClusterLabel:   ClusterLabel(r.Cluster),
			Totals:         Compute(r.DemographicsPct),
		}
	}
	return rows
}
