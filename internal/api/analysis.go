package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/sahilm/fuzzy"

	"election-insights/internal/geocode"
	"election-insights/internal/location"
	"election-insights/internal/models"
	"election-insights/internal/tableview"
	apperrors "election-insights/pkg/errors"
)

func (s *Server) clustering(w http.ResponseWriter, r *http.Request) error {
	const op = "api.clustering"
	level, err := levelParam(r, op)
	if err != nil {
		return err
	}
	n, err := s.clustersParam(r, op)
	if err != nil {
		return err
	}
	res, err := s.deps.Clusters.Cluster(r.Context(), level, n)
	if err != nil {
		return err
	}
	if boolParam(r, "describe") && s.deps.Narrator != nil {
		// Cached results are shared, so descriptions go on a copy.
		described := *res
		described.Descriptions = s.deps.Narrator.Describe(r.Context(), res)
		res = &described
	}
	writeJSON(w, http.StatusOK, res)
	return nil
}

func (s *Server) similar(w http.ResponseWriter, r *http.Request) error {
	const op = "api.similar"
	level, err := levelParam(r, op)
	if err != nil {
		return err
	}
	n, err := s.clustersParam(r, op)
	if err != nil {
		return err
	}
	k, err := intParam(r, op, "k", s.Defaults().TopK, 1, maxTopK)
	if err != nil {
		return err
	}
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		return apperrors.NewValidation(op, "id is required", nil)
	}

	res, err := s.deps.Clusters.Cluster(r.Context(), level, n)
	if err != nil {
		return err
	}
	pos, ok := location.Index(res.Records, level)[id]
	if !ok {
		return apperrors.NewNotFound(op, "Unknown location: "+id, nil)
	}
	version := ""
	if res.DataVersion != "" {
		version = res.DataVersion + "/" + strconv.Itoa(res.NClusters)
	}
	matches := s.deps.Ranker.FindTopSimilar(version, id, res.Records, level, k)

	writeJSON(w, http.StatusOK, map[string]any{
		"level":    level,
		"selected": id,
		"label":    location.Label(res.Records[pos], level),
		"cluster":  res.Records[pos].Cluster,
		"matches":  matches,
	})
	return nil
}

func (s *Server) table(w http.ResponseWriter, r *http.Request) error {
	const op = "api.table"
	level, err := levelParam(r, op)
	if err != nil {
		return err
	}
	n, err := s.clustersParam(r, op)
	if err != nil {
		return err
	}
	q := r.URL.Query()
	key, err := tableview.ParseSortKey(q.Get("sort"))
	if err != nil {
		return apperrors.NewValidation(op, fmt.Sprintf("Invalid sort key: %s", q.Get("sort")), err)
	}
	dir := tableview.ParseDirection(q.Get("dir"))

	res, err := s.deps.Clusters.Cluster(r.Context(), level, n)
	if err != nil {
		return err
	}
	records := tableview.Build(res.Records, tableview.Query{
		Filter:      q.Get("q"),
		Sort:        key,
		Direction:   dir,
		Granularity: level,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"level":      level,
		"n_clusters": res.NClusters,
		"sort":       key.String(),
		"dir":        dir.String(),
		"total":      len(res.Records),
		"count":      len(records),
		"rows":       tableview.Rows(records, level),
	})
	return nil
}

// labelSource lets fuzzy match against display labels.
type labelSource struct {
	records []models.LocationRecord
	level   models.Granularity
}

func (l labelSource) String(i int) string { return location.Label(l.records[i], l.level) }
func (l labelSource) Len() int            { return len(l.records) }

type searchHit struct {
	Identifier string `json:"identifier"`
	Label      string `json:"label"`
	Cluster    int    `json:"cluster"`
	Score      int    `json:"score"`
}

// search fuzzy-matches q against the labels of one level, best first.
func (s *Server) search(w http.ResponseWriter, r *http.Request) error {
	const op = "api.search"
	level, err := levelParam(r, op)
	if err != nil {
		return err
	}
	limit, err := intParam(r, op, "limit", defaultSearch, 1, maxSearch)
	if err != nil {
		return err
	}
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		return apperrors.NewValidation(op, "q is required", nil)
	}

	res, err := s.deps.Clusters.Cluster(r.Context(), level, s.Defaults().NClusters)
	if err != nil {
		return err
	}
	found := fuzzy.FindFrom(q, labelSource{records: res.Records, level: level})
	hits := make([]searchHit, 0, min(limit, len(found)))
	for _, m := range found {
		if len(hits) == limit {
			break
		}
		rec := res.Records[m.Index]
		hits = append(hits, searchHit{
			Identifier: location.Identifier(rec, level),
			Label:      m.Str,
			Cluster:    rec.Cluster,
			Score:      m.Score,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"level": level, "query": q, "results": hits})
	return nil
}

func (s *Server) geo(w http.ResponseWriter, r *http.Request) error {
	const op = "api.geo"
	if s.deps.Geocoder == nil {
		return geocode.ErrDisabled
	}
	level, err := levelParam(r, op)
	if err != nil {
		return err
	}
	n, err := s.clustersParam(r, op)
	if err != nil {
		return err
	}
	limit, err := intParam(r, op, "limit", defaultGeo, 1, maxGeo)
	if err != nil {
		return err
	}
	res, err := s.deps.Clusters.Cluster(r.Context(), level, n)
	if err != nil {
		return err
	}
	// Every record not in the geocode cache costs one Google request.
	records := res.Records
	if len(records) > limit {
		records = records[:limit]
	}
	locs, err := s.deps.Geocoder.Locate(r.Context(), records, level)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"level":      level,
		"n_clusters": res.NClusters,
		"total":      len(res.Records),
		"truncated":  len(records) < len(res.Records),
		"locations":  locs,
	})
	return nil
}
