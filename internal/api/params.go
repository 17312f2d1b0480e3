package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"election-insights/internal/models"
	apperrors "election-insights/pkg/errors"
)

const (
	maxTopK        = 100
	defaultSearch  = 10
	maxSearch      = 100
	defaultLogRows = 20
	defaultGeo     = 100
	maxGeo         = 500
)

func levelParam(r *http.Request, op string) (models.Granularity, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("level"))
	if raw == "" {
		return models.GranularityCounty, nil
	}
	g, err := models.ParseGranularity(raw)
	if err != nil {
		return "", apperrors.NewValidation(op,
			fmt.Sprintf("Invalid clustering level: %s. Must be one of: county, town, polling", raw), err)
	}
	return g, nil
}

// intParam reads an integer query parameter within [lo, hi], or def when absent.
func intParam(r *http.Request, op, name string, def, lo, hi int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < lo || v > hi {
		return 0, apperrors.NewValidation(op, fmt.Sprintf("%s must be an integer between %d and %d", name, lo, hi), err)
	}
	return v, nil
}

func (s *Server) clustersParam(r *http.Request, op string) (int, error) {
	d := s.Defaults()
	return intParam(r, op, "n_clusters", d.NClusters, 1, d.MaxNClusters)
}

func boolParam(r *http.Request, name string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(name))
	return err == nil && v
}
