package auth

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func writeKeys(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "api_keys.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("Failed to create test YAML file: %v", err)
	}
	return path
}

func TestKeyResolver_Resolve(t *testing.T) {
	path := writeKeys(t, "\"k-ops\": ops\n\"k-ci\": ci-pipeline\n")
	r := NewKeyResolver(path, "from-env", nil)

	tests := []struct {
		name     string
		key      string
		wantName string
		wantOK   bool
	}{
		{"file key", "k-ops", "ops", true},
		{"second file key", "k-ci", "ci-pipeline", true},
		{"env key", "from-env", EnvKeyName, true},
		{"padded key", "  k-ops ", "ops", true},
		{"unknown key", "nope", "", false},
		{"empty key", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, ok := r.Resolve(tt.key)
			if ok != tt.wantOK || name != tt.wantName {
				t.Errorf("Resolve(%q) = %q, %v; want %q, %v", tt.key, name, ok, tt.wantName, tt.wantOK)
			}
		})
	}
}

func TestKeyResolver_MissingFile(t *testing.T) {
	r := NewKeyResolver(filepath.Join(t.TempDir(), "absent.yaml"), "", nil)
	if r.Enabled() {
		t.Error("resolver without keys should be disabled")
	}
	if _, ok := r.Resolve("anything"); ok {
		t.Error("resolver without keys must reject everything")
	}

	r.SetEnvKey("late")
	if !r.Enabled() {
		t.Error("env key should enable the resolver")
	}
	if name, ok := r.Resolve("late"); !ok || name != EnvKeyName {
		t.Errorf("Resolve(late) = %q, %v", name, ok)
	}
}

func TestKeyResolver_Reload(t *testing.T) {
	path := writeKeys(t, "old: alice\n")
	r := NewKeyResolver(path, "", nil)
	if err := os.WriteFile(path, []byte("new: bob\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := r.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if _, ok := r.Resolve("old"); ok {
		t.Error("old key still accepted after reload")
	}
	if name, ok := r.Resolve("new"); !ok || name != "bob" {
		t.Errorf("Resolve(new) = %q, %v", name, ok)
	}
}

func TestKeyResolver_InvalidYAML(t *testing.T) {
	path := writeKeys(t, "- just\n- a list\n")
	r := NewKeyResolver(path, "", nil)
	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0", r.Len())
	}
	if err := r.Reload(); err == nil {
		t.Error("expected error reloading a list document")
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xri        string
		want       string
	}{
		{"RemoteAddr", "10.0.1.5:12345", "", "", "10.0.1.5"},
		{"X-Forwarded-For", "192.168.1.1:12345", "10.0.1.8, 10.0.0.1", "", "10.0.1.8"},
		{"X-Real-IP", "192.168.1.1:12345", "", "10.0.1.5", "10.0.1.5"},
		{"unsplittable RemoteAddr", "pipe", "", "", "pipe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}
			if got := ClientIP(req); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAPIKeyMiddleware(t *testing.T) {
	r := NewKeyResolver("", "secret", nil)
	unauthorized := func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}
	var gotName, gotIP string
	next := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		gotName, _ = KeyNameFromContext(req.Context())
		gotIP, _ = ClientIPFromContext(req.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	h := NewAPIKeyMiddleware(r, unauthorized, nil).Handler(next)

	tests := []struct {
		name string
		key  string
		want int
	}{
		{"no key", "", http.StatusUnauthorized},
		{"wrong key", "guess", http.StatusUnauthorized},
		{"valid key", "secret", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/trigger/update", nil)
			req.RemoteAddr = "10.1.2.3:999"
			if tt.key != "" {
				req.Header.Set(HeaderAPIKey, tt.key)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
	if gotName != EnvKeyName || gotIP != "10.1.2.3" {
		t.Errorf("context values = %q, %q", gotName, gotIP)
	}
}
