package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"election-insights/pkg/logging"
)

func TestCheckAllAggregatesStatus(t *testing.T) {
	dir := t.TempDir()
	present := filepath.Join(dir, "attendance.csv")
	if err := os.WriteFile(present, []byte("county\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		checkers []HealthChecker
		want     HealthStatus
	}{
		{"no checkers", nil, HealthStatusUnknown},
		{"all healthy", []HealthChecker{NewFileHealthChecker("attendance", present, false)}, HealthStatusHealthy},
		{"optional missing", []HealthChecker{
			NewFileHealthChecker("attendance", present, false),
			NewFileHealthChecker("presence", filepath.Join(dir, "missing.csv"), true),
		}, HealthStatusDegraded},
		{"required missing", []HealthChecker{
			NewFileHealthChecker("data_dir", filepath.Join(dir, "nope"), false),
		}, HealthStatusUnhealthy},
		{"ping failure", []HealthChecker{
			NewPingHealthChecker("cache", func(context.Context) error { return errors.New("refused") }),
		}, HealthStatusUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hm := NewHealthManager(DefaultHealthConfig(), logging.Nop())
			for _, c := range tt.checkers {
				hm.RegisterChecker(c)
			}
			got := hm.CheckAll(context.Background())
			if got.Status != tt.want {
				t.Errorf("status = %s, want %s", got.Status, tt.want)
			}
			if got.Summary.TotalComponents != len(tt.checkers) {
				t.Errorf("total = %d", got.Summary.TotalComponents)
			}
		})
	}
}

func TestHandlerStatusCodes(t *testing.T) {
	hm := NewHealthManager(DefaultHealthConfig(), logging.Nop())
	hm.RegisterChecker(NewPingHealthChecker("cache", func(context.Context) error { return nil }))

	rec := httptest.NewRecorder()
	hm.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	var body SystemHealth
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Status != HealthStatusHealthy {
		t.Errorf("status = %s", body.Status)
	}
	if cached := hm.Cached(); cached.Components["cache"].Status != HealthStatusHealthy {
		t.Errorf("cached status = %s", cached.Components["cache"].Status)
	}

	hm.RegisterChecker(NewPingHealthChecker("db", func(context.Context) error { return errors.New("down") }))
	rec = httptest.NewRecorder()
	hm.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("code = %d, want 503", rec.Code)
	}
}
