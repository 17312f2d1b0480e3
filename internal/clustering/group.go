package clustering

import (
	"math"
	"sort"
	"strings"

	"election-insights/internal/models"
	"election-insights/internal/presence"
)

// group is one aggregated location: the sums of every presence row sharing
// the same key columns.
type group struct {
	parts      []string
	registered float64
	votes      float64
	ages       [10]float64
}

// keyColumns are the presence columns that identify a location at g.
func keyColumns(g models.Granularity) []string {
	switch g {
	case models.GranularityTown:
		return []string{presence.ColCounty, presence.ColTown}
	case models.GranularityPolling:
		return []string{presence.ColCounty, presence.ColTown, presence.ColStationName}
	default:
		return []string{presence.ColCounty}
	}
}

// aggregate sums rows per key, skips rows with a blank key cell and returns
// groups sorted by key, component by component.
func aggregate(t *presence.Table, g models.Granularity) []*group {
	cols := keyColumns(g)
	byKey := make(map[string]*group)
	var groups []*group

rows:
	for _, row := range t.Rows {
		parts := make([]string, len(cols))
		for i, c := range cols {
			v := row.String(c)
			if strings.TrimSpace(v) == "" {
				continue rows
			}
			parts[i] = v
		}
		key := strings.Join(parts, "\x00")
		grp, ok := byKey[key]
		if !ok {
			grp = &group{parts: parts}
			byKey[key] = grp
			groups = append(groups, grp)
		}
		grp.registered += row.Float(presence.ColRegistered)
		grp.votes += row.Float(presence.ColPermanentList)
		for i, c := range presence.AgeColumns {
			grp.ages[i] += row.Float(c)
		}
	}

	sort.Slice(groups, func(i, j int) bool {
		a, b := groups[i].parts, groups[j].parts
		for k := range a {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		return false
	})
	return groups
}

// percentages converts a group's age sums to shares of votes cast, clipped to 0..100.
func (g *group) percentages() []float64 {
	out := make([]float64, len(g.ages))
	for i, v := range g.ages {
		p := v / g.votes * 100
		if math.IsNaN(p) || math.IsInf(p, 0) {
			p = 0
		}
		out[i] = math.Min(100, math.Max(0, p))
	}
	return out
}

func (g *group) record(cluster int, pct []float64, pc [2]float64) models.LocationRecord {
	r := models.LocationRecord{
		County:          g.parts[0],
		Cluster:         cluster,
		TotalRegistered: int(math.Round(g.registered)),
		TotalVotes:      int(math.Round(g.votes)),
		PCAX:            pc[0],
		PCAY:            pc[1],
		Demographics:    make(models.DemographicCounts, len(models.Buckets)),
		DemographicsPct: make(models.Demographics, len(models.Buckets)),
	}
	if len(g.parts) > 1 {
		r.Town = g.parts[1]
	}
	if len(g.parts) > 2 {
		r.PollingStation = g.parts[2]
	}
	for i, b := range models.Buckets {
		r.Demographics[b] = int(math.Round(g.ages[i]))
		r.DemographicsPct[b] = pct[i]
	}
	return r
}
