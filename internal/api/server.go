// Package api serves the dashboard's JSON endpoints and its single-page bundle.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"sync/atomic"

	"github.com/gorilla/mux"

	"election-insights/internal/auth"
	"election-insights/internal/dataset"
	"election-insights/internal/geocode"
	"election-insights/internal/models"
	"election-insights/internal/similarity"
	"election-insights/pkg/circuit"
	apperrors "election-insights/pkg/errors"
	"election-insights/pkg/health"
	"election-insights/pkg/logging"
	"election-insights/pkg/metrics"
)

// DataStore is the attendance/results side of the API.
type DataStore interface {
	Attendance() ([]models.AttendanceRecord, string, error)
	CountyAttendance(county string) (models.AttendanceRecord, error)
	Results() ([]models.ResultsRecord, string, error)
	CountyResults(county string) (models.ResultsRecord, error)
	Demographics() (*models.DemographicReport, error)
	LastUpdates() dataset.LastUpdate
	Refresh(ctx context.Context, req dataset.RefreshRequest) (dataset.RefreshResult, error)
	PresencePath() string
}

// Clusterer produces clusterings of the presence export.
type Clusterer interface {
	Cluster(ctx context.Context, level models.Granularity, n int) (*models.ClusteringResult, error)
	Invalidate(ctx context.Context) error
}

// Describer writes cluster descriptions.
type Describer interface {
	Describe(ctx context.Context, res *models.ClusteringResult) map[int]string
}

// Locator geocodes clustered records.
type Locator interface {
	Locate(ctx context.Context, records []models.LocationRecord, level models.Granularity) ([]geocode.Location, error)
}

// RefreshLog lists past refreshes.
type RefreshLog interface {
	ListRefreshes(ctx context.Context, limit int) ([]models.RefreshRun, error)
}

// Defaults are the query defaults that follow configuration reloads.
type Defaults struct {
	NClusters    int
	TopK         int
	MaxNClusters int
}

// Deps are the collaborators of a Server. Narrator, Geocoder, Refreshes,
// Health and Static are optional.
type Deps struct {
	Store     DataStore
	Clusters  Clusterer
	Ranker    *similarity.Ranker
	Narrator  Describer
	Geocoder  Locator
	Refreshes RefreshLog
	Keys      *auth.KeyResolver
	Health    *health.HealthManager
	Static    fs.FS
	Logger    *logging.Logger
	Defaults  Defaults
}

type Server struct {
	deps     Deps
	defaults atomic.Pointer[Defaults]
	log      *logging.ComponentLogger
}

func NewServer(d Deps) *Server {
	if d.Logger == nil {
		d.Logger = logging.Nop()
	}
	if d.Keys == nil {
		d.Keys = auth.NewKeyResolver("", "", d.Logger)
	}
	if d.Ranker == nil {
		d.Ranker, _ = similarity.NewRanker(0)
	}
	s := &Server{deps: d, log: d.Logger.WithComponent("api")}
	s.SetDefaults(d.Defaults)
	return s
}

// SetDefaults swaps the query defaults; zero fields fall back to built-ins.
func (s *Server) SetDefaults(d Defaults) {
	if d.NClusters <= 0 {
		d.NClusters = 5
	}
	if d.TopK <= 0 {
		d.TopK = similarity.DefaultTopK
	}
	if d.MaxNClusters <= 0 {
		d.MaxNClusters = 20
	}
	d.NClusters = min(d.NClusters, d.MaxNClusters)
	s.defaults.Store(&d)
}

// Defaults returns the current query defaults.
func (s *Server) Defaults() Defaults { return *s.defaults.Load() }

// Router builds the route table. Extra middlewares run after CORS handling.
func (s *Server) Router(mws ...mux.MiddlewareFunc) *mux.Router {
	r := mux.NewRouter()
	r.Use(mux.CORSMethodMiddleware(r), cors)
	for _, mw := range mws {
		r.Use(mw)
	}

	get := []string{http.MethodGet, http.MethodOptions}
	r.HandleFunc("/api", s.handle("index", s.index)).Methods(get...)
	r.HandleFunc("/attendance", s.handle("attendance", s.attendance)).Methods(get...)
	r.HandleFunc("/attendance/{county}", s.handle("county_attendance", s.countyAttendance)).Methods(get...)
	r.HandleFunc("/results", s.handle("results", s.results)).Methods(get...)
	r.HandleFunc("/results/{county}", s.handle("county_results", s.countyResults)).Methods(get...)
	r.HandleFunc("/demographic", s.handle("demographic", s.demographic)).Methods(get...)
	r.HandleFunc("/clustering", s.handle("clustering", s.clustering)).Methods(get...)
	r.HandleFunc("/similar", s.handle("similar", s.similar)).Methods(get...)
	r.HandleFunc("/table", s.handle("table", s.table)).Methods(get...)
	r.HandleFunc("/locations/search", s.handle("search", s.search)).Methods(get...)
	r.HandleFunc("/geo/locations", s.handle("geo", s.geo)).Methods(get...)
	r.HandleFunc("/data/last_update", s.handle("last_update", s.lastUpdate)).Methods(get...)
	r.HandleFunc("/data/refreshes", s.handle("refreshes", s.refreshes)).Methods(get...)
	r.HandleFunc("/original-presence", s.handle("original_presence", s.originalPresence)).Methods(get...)

	keyed := auth.NewAPIKeyMiddleware(s.deps.Keys, s.unauthorized, s.deps.Logger)
	r.Handle("/trigger/update", keyed.Handler(s.handle("trigger_update", s.triggerUpdate))).
		Methods(http.MethodPost, http.MethodOptions)

	if s.deps.Health != nil {
		r.HandleFunc("/health", s.deps.Health.Handler()).Methods(get...)
		r.HandleFunc("/health/live", s.deps.Health.LivenessHandler()).Methods(get...)
	}

	r.PathPrefix("/").Handler(s.spa()).Methods(http.MethodGet, http.MethodHead)
	return r
}

// handle adapts an error-returning handler and counts requests per endpoint.
func (s *Server) handle(name string, h func(w http.ResponseWriter, r *http.Request) error) http.HandlerFunc {
	requests := metrics.Default.Counter("api_"+name+"_requests_total", "Requests to the "+name+" endpoint")
	failures := metrics.Default.Counter("api_"+name+"_errors_total", "Failed requests to the "+name+" endpoint")
	return func(w http.ResponseWriter, r *http.Request) {
		requests.Inc(1)
		if err := h(w, r); err != nil {
			failures.Inc(1)
			s.writeError(w, r, err)
		}
	}
}

func (s *Server) unauthorized(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, r, apperrors.NewAuth("api.triggerUpdate", "Unauthorized"))
}

// statusOf maps errors to HTTP statuses; unavailable optional services answer 503.
func statusOf(err error) int {
	if errors.Is(err, geocode.ErrDisabled) || errors.Is(err, circuit.ErrOpen) {
		return http.StatusServiceUnavailable
	}
	return apperrors.HTTPStatus(err)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusOf(err)
	msg := apperrors.PublicMessage(err)
	if errors.Is(err, geocode.ErrDisabled) {
		msg = "Geocoding is not configured"
	}
	log := s.log.Ctx(r.Context())
	if code >= http.StatusInternalServerError {
		log.Error("request failed", err, logging.String("path", r.URL.Path), logging.Int("status", code))
	} else {
		log.Debug("request rejected", logging.String("path", r.URL.Path), logging.Int("status", code), logging.Error(err))
	}
	writeJSON(w, code, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// cors allows any origin, like the dashboard's development setup, and
// answers preflight requests directly.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Headers", "Content-Type, "+auth.HeaderAPIKey+", X-Request-ID")
		h.Set("Access-Control-Expose-Headers", "X-Request-ID")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
