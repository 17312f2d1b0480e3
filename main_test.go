package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"election-insights/internal/api"
	"election-insights/pkg/container"
	"election-insights/pkg/database"
)

func TestWiringBuildsServer(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DATA_DIR", dir)
	t.Setenv("CACHE_BACKEND", "lru")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("GOOGLE_MAPS_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("UPDATE_API_KEY", "secret")

	c := container.New()
	if err := register(c); err != nil {
		t.Fatal(err)
	}
	var srv *api.Server
	if err := c.Resolve(&srv); err != nil {
		t.Fatalf("resolve server: %v", err)
	}
	var db *database.DB
	if err := c.Resolve(&db); err != nil || db != nil {
		t.Errorf("refresh log without DATABASE_URL = %v, %v", db, err)
	}

	h := srv.Router()
	tests := []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/api", http.StatusOK},
		{http.MethodGet, "/data/last_update", http.StatusOK},
		{http.MethodGet, "/geo/locations", http.StatusServiceUnavailable},
		{http.MethodPost, "/trigger/update", http.StatusUnauthorized},
		{http.MethodGet, "/", http.StatusOK},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
		if rec.Code != tt.want {
			t.Errorf("%s %s = %d, want %d", tt.method, tt.path, rec.Code, tt.want)
		}
	}
}
