package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gorilla/mux"

	"election-insights/internal/dataset"
	apperrors "election-insights/pkg/errors"
	"election-insights/pkg/logging"
)

func (s *Server) index(w http.ResponseWriter, r *http.Request) error {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Romanian Elections 2025 API",
		"endpoints": map[string]string{
			"attendance":        "/attendance",
			"county_attendance": "/attendance/{county}",
			"results":           "/results",
			"county_results":    "/results/{county}",
			"demographic":       "/demographic",
			"clustering":        "/clustering?level=county&n_clusters=5&describe=false",
			"similar":           "/similar?level=county&id={identifier}&k=5",
			"table":             "/table?level=county&q=&sort=&dir=asc",
			"search":            "/locations/search?level=county&q={text}",
			"geo":               "/geo/locations?level=county",
			"last_update":       "/data/last_update",
			"refreshes":         "/data/refreshes",
			"trigger_update":    "/trigger/update",
			"original_presence": "/original-presence",
			"health":            "/health",
		},
	})
	return nil
}

func (s *Server) attendance(w http.ResponseWriter, r *http.Request) error {
	recs, ts, err := s.deps.Store.Attendance()
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": recs, "last_update": ts})
	return nil
}

func (s *Server) countyAttendance(w http.ResponseWriter, r *http.Request) error {
	county := mux.Vars(r)["county"]
	rec, err := s.deps.Store.CountyAttendance(county)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": rec, "county": county, "last_update": orUnknown(rec.Timestamp)})
	return nil
}

func (s *Server) results(w http.ResponseWriter, r *http.Request) error {
	recs, ts, err := s.deps.Store.Results()
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": recs, "last_update": ts})
	return nil
}

func (s *Server) countyResults(w http.ResponseWriter, r *http.Request) error {
	county := mux.Vars(r)["county"]
	rec, err := s.deps.Store.CountyResults(county)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": rec, "county": county, "last_update": orUnknown(rec.Timestamp)})
	return nil
}

func orUnknown(ts string) string {
	if ts == "" {
		return "Unknown"
	}
	return ts
}

func (s *Server) demographic(w http.ResponseWriter, r *http.Request) error {
	rep, err := s.deps.Store.Demographics()
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, rep)
	return nil
}

func (s *Server) lastUpdate(w http.ResponseWriter, r *http.Request) error {
	writeJSON(w, http.StatusOK, s.deps.Store.LastUpdates())
	return nil
}

func (s *Server) refreshes(w http.ResponseWriter, r *http.Request) error {
	const op = "api.refreshes"
	if s.deps.Refreshes == nil {
		writeJSON(w, http.StatusOK, map[string]any{"enabled": false, "data": []any{}})
		return nil
	}
	limit, err := intParam(r, op, "limit", defaultLogRows, 1, 500)
	if err != nil {
		return err
	}
	runs, err := s.deps.Refreshes.ListRefreshes(r.Context(), limit)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, map[string]any{"enabled": true, "data": runs})
	return nil
}

type triggerRequest struct {
	Fresh bool `json:"fresh"`
}

// triggerUpdate refreshes the data files. {"fresh": true} rebuilds them from
// the presence export; anything else nudges the current values.
func (s *Server) triggerUpdate(w http.ResponseWriter, r *http.Request) error {
	const op = "api.triggerUpdate"
	var req triggerRequest
	if r.Body != nil {
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			return apperrors.NewValidation(op, "request body must be JSON like {\"fresh\": true}", err)
		}
	}

	refresh := dataset.RefreshRequest{Kind: "api", Mode: dataset.ModeUpdate}
	if req.Fresh {
		refresh.Mode = dataset.ModeFresh
		refresh.Presence = s.deps.Store.PresencePath()
	}
	res, err := s.deps.Store.Refresh(r.Context(), refresh)
	if err != nil {
		return err
	}

	if req.Fresh {
		if s.deps.Clusters != nil {
			if err := s.deps.Clusters.Invalidate(r.Context()); err != nil {
				s.log.Ctx(r.Context()).Warn("could not drop cached clusterings", logging.Error(err))
			}
		}
		s.deps.Ranker.Purge()
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":   "Data update triggered successfully",
		"timestamp": res.Timestamp,
		"mode":      res.Mode,
		"source":    res.Source,
		"rows":      res.Rows,
	})
	return nil
}

// originalPresence downloads the raw presence export.
func (s *Server) originalPresence(w http.ResponseWriter, r *http.Request) error {
	const op = "api.originalPresence"
	path := s.deps.Store.PresencePath()
	f, err := os.Open(path)
	if err != nil {
		return apperrors.NewNotFound(op, "Original presence data not available", err)
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil || fi.IsDir() {
		return apperrors.NewNotFound(op, "Original presence data not available", err)
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filepath.Base(path)+`"`)
	http.ServeContent(w, r, filepath.Base(path), fi.ModTime(), f)
	return nil
}
