// Package tableview derives the rows of the dashboard table from a set of
// clustered location records: filter, then sort, then per-row totals.
package tableview

import (
	"sort"
	"strconv"
	"strings"

	"election-insights/internal/models"
)

// Direction of a sort.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

// ParseDirection accepts "asc"/"ascending" and "desc"/"descending"; anything else is ascending.
func ParseDirection(s string) Direction {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "desc", "descending":
		return Descending
	default:
		return Ascending
	}
}

func (d Direction) String() string {
	if d == Descending {
		return "desc"
	}
	return "asc"
}

// Query is the full input of a table build besides the records.
type Query struct {
	Filter      string
	Sort        SortKey
	Direction   Direction
	Granularity models.Granularity
}

// Build filters and sorts records. The input slice is never modified.
func Build(records []models.LocationRecord, q Query) []models.LocationRecord {
	return Sort(Filter(records, q.Filter), q.Sort, q.Direction, q.Granularity)
}

// Filter keeps records whose county, town, polling station or "cluster N"
// label (N is 1-based) contains text, case-insensitively. Empty text keeps all.
func Filter(records []models.LocationRecord, text string) []models.LocationRecord {
	out := make([]models.LocationRecord, 0, len(records))
	if text == "" {
		return append(out, records...)
	}
	needle := strings.ToLower(text)
	for _, r := range records {
		if matches(r, needle) {
			out = append(out, r)
		}
	}
	return out
}

func matches(r models.LocationRecord, needle string) bool {
	for _, field := range []string{r.County, r.Town, r.PollingStation, ClusterLabel(r.Cluster)} {
		if field != "" && strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

// ClusterLabel is the display name of a cluster id, e.g. 0 -> "Cluster 1".
func ClusterLabel(cluster int) string {
	return "Cluster " + strconv.Itoa(cluster+1)
}

// Sort returns a stably sorted copy of records. SortNone keeps the input order.
func Sort(records []models.LocationRecord, key SortKey, dir Direction, g models.Granularity) []models.LocationRecord {
	out := append([]models.LocationRecord(nil), records...)
	get := key.accessor(g)
	if get == nil {
		return out
	}

	// Extract once so accessors are not re-run inside the comparator.
	vals := make([]value, len(out))
	for i, r := range out {
		vals[i] = get(r)
	}
	idx := make([]int, len(out))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		c := compare(vals[idx[i]], vals[idx[j]])
		if dir == Descending {
			c = -c
		}
		return c < 0
	})

	sorted := make([]models.LocationRecord, len(out))
	for i, k := range idx {
		sorted[i] = out[k]
	}
	return sorted
}
