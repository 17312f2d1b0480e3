// Package health aggregates component checks into the /health report.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"election-insights/internal/constants"
	"election-insights/pkg/logging"
)

type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
	HealthStatusUnknown   HealthStatus = "unknown"
)

// ComponentHealth is the outcome of one check.
type ComponentHealth struct {
	Name        string         `json:"name"`
	Status      HealthStatus   `json:"status"`
	Message     string         `json:"message,omitempty"`
	LastChecked time.Time      `json:"last_checked"`
	Duration    time.Duration  `json:"duration"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// SystemHealth is the full report served by Handler.
type SystemHealth struct {
	Status     HealthStatus               `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Version    string                     `json:"version,omitempty"`
	Uptime     string                     `json:"uptime"`
	Components map[string]ComponentHealth `json:"components"`
	Summary    HealthSummary              `json:"summary"`
}

type HealthSummary struct {
	TotalComponents int `json:"total_components"`
	HealthyCount    int `json:"healthy_count"`
	DegradedCount   int `json:"degraded_count"`
	UnhealthyCount  int `json:"unhealthy_count"`
	UnknownCount    int `json:"unknown_count"`
}

type HealthChecker interface {
	Check(ctx context.Context) ComponentHealth
	Name() string
}

type HealthConfig struct {
	Timeout time.Duration `json:"timeout"`
	Version string        `json:"version"`
}

func DefaultHealthConfig() HealthConfig {
	return HealthConfig{Timeout: constants.HealthTimeoutDefault, Version: "dev"}
}

// HealthManager runs registered checkers and remembers their last results.
type HealthManager struct {
	mu       sync.RWMutex
	checkers map[string]HealthChecker
	results  map[string]ComponentHealth
	started  time.Time
	cfg      HealthConfig
	log      *logging.ComponentLogger
}

func NewHealthManager(cfg HealthConfig, logger *logging.Logger) *HealthManager {
	if cfg.Timeout <= 0 {
		cfg.Timeout = constants.HealthTimeoutDefault
	}
	return &HealthManager{
		checkers: make(map[string]HealthChecker),
		results:  make(map[string]ComponentHealth),
		started:  time.Now(),
		cfg:      cfg,
		log:      logger.WithComponent("health"),
	}
}

// RegisterChecker adds checker; a later checker with the same name replaces it.
func (hm *HealthManager) RegisterChecker(checker HealthChecker) {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	name := checker.Name()
	hm.checkers[name] = checker
	hm.results[name] = ComponentHealth{Name: name, Status: HealthStatusUnknown}
	hm.log.Debug("registered health checker", logging.String("checker", name))
}

// CheckAll runs every checker concurrently, each under the configured timeout.
func (hm *HealthManager) CheckAll(ctx context.Context) SystemHealth {
	start := time.Now()
	hm.mu.RLock()
	checkers := make([]HealthChecker, 0, len(hm.checkers))
	for _, c := range hm.checkers {
		checkers = append(checkers, c)
	}
	hm.mu.RUnlock()

	results := make([]ComponentHealth, len(checkers))
	var wg sync.WaitGroup
	for i, c := range checkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, hm.cfg.Timeout)
			defer cancel()
			results[i] = c.Check(cctx)
		}()
	}
	wg.Wait()

	components := make(map[string]ComponentHealth, len(results))
	hm.mu.Lock()
	for _, r := range results {
		components[r.Name] = r
		hm.results[r.Name] = r
	}
	hm.mu.Unlock()

	report := hm.report(components)
	hm.log.Ctx(ctx).Debug("health check finished",
		logging.String("status", string(report.Status)),
		logging.Duration("took", time.Since(start)))
	return report
}

// Cached returns the last results without running any checker.
func (hm *HealthManager) Cached() SystemHealth {
	hm.mu.RLock()
	components := make(map[string]ComponentHealth, len(hm.results))
	for name, r := range hm.results {
		components[name] = r
	}
	hm.mu.RUnlock()
	return hm.report(components)
}

func (hm *HealthManager) report(components map[string]ComponentHealth) SystemHealth {
	summary := HealthSummary{TotalComponents: len(components)}
	for _, c := range components {
		switch c.Status {
		case HealthStatusHealthy:
			summary.HealthyCount++
		case HealthStatusDegraded:
			summary.DegradedCount++
		case HealthStatusUnhealthy:
			summary.UnhealthyCount++
		default:
			summary.UnknownCount++
		}
	}

	status := HealthStatusUnknown
	switch {
	case summary.TotalComponents == 0:
	case summary.UnhealthyCount > 0:
		status = HealthStatusUnhealthy
	case summary.DegradedCount > 0:
		status = HealthStatusDegraded
	case summary.HealthyCount == summary.TotalComponents:
		status = HealthStatusHealthy
	}

	return SystemHealth{
		Status:     status,
		Timestamp:  time.Now(),
		Version:    hm.cfg.Version,
		Uptime:     time.Since(hm.started).Round(time.Second).String(),
		Components: components,
		Summary:    summary,
	}
}

// Handler serves a fresh report. Unhealthy or unknown answers 503; degraded
// still answers 200 because optional files may legitimately be absent.
func (hm *HealthManager) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := hm.CheckAll(r.Context())
		code := http.StatusOK
		if report.Status == HealthStatusUnhealthy || report.Status == HealthStatusUnknown {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, report)
	}
}

// LivenessHandler answers as long as the process serves requests. It reports
// the last known readiness without running the checkers.
func (hm *HealthManager) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":      "alive",
			"uptime":      time.Since(hm.started).Round(time.Second).String(),
			"last_report": hm.Cached().Status,
		})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
