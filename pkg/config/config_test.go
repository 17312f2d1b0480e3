package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	errs "election-insights/pkg/errors"
)

func validConfig() *Config {
	return &Config{
		Port:             "5000",
		DataDir:          "data",
		DefaultNClusters: 5,
		DefaultTopK:      5,
		MaxNClusters:     20,
		CacheBackend:     "lru",
		CacheCapacity:    16,
		LogLevel:         "info",
		LogFormat:        "json",
		AdminPort:        "6060",
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATA_DIR", "/srv/election")
	t.Setenv("PRESENCE_FILE", "")
	t.Setenv("CLUSTER_PRESENCE_FILE", "")
	t.Setenv("DEFAULT_N_CLUSTERS", "")

	cfg := Load()
	if cfg.DefaultNClusters != 5 {
		t.Errorf("DefaultNClusters = %d, want 5", cfg.DefaultNClusters)
	}
	if want := filepath.Join("/srv/election", "Cluster", "presence_now.csv"); cfg.ClusterPresenceFile != want {
		t.Errorf("ClusterPresenceFile = %q, want %q", cfg.ClusterPresenceFile, want)
	}
	if !strings.HasPrefix(cfg.PresenceFile, "/srv/election/") {
		t.Errorf("PresenceFile = %q, want it under DATA_DIR", cfg.PresenceFile)
	}
}

func TestLoadKeepsAbsoluteDataFiles(t *testing.T) {
	t.Setenv("DATA_DIR", "data")
	t.Setenv("PRESENCE_FILE", "/tmp/presence.csv")

	if got := Load().PresenceFile; got != "/tmp/presence.csv" {
		t.Errorf("PresenceFile = %q", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing port", func(c *Config) { c.Port = "" }, "PORT"},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }, "LOG_LEVEL"},
		{"redis without url", func(c *Config) { c.CacheBackend = "redis" }, "REDIS_URL"},
		{"unknown backend", func(c *Config) { c.CacheBackend = "memcached" }, "CACHE_BACKEND"},
		{"clusters above max", func(c *Config) { c.DefaultNClusters = 30 }, "DEFAULT_N_CLUSTERS"},
		{"bad database url", func(c *Config) { c.DatabaseURL = "mysql" }, "DATABASE_URL"},
		{"admin port conflict", func(c *Config) { c.ProfilingEnabled = true; c.AdminPort = "5000" }, "ADMIN_PORT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error mentioning %s", tt.wantErr)
			}
			if !errs.Is(err, errs.ErrValidation) {
				t.Errorf("expected validation error kind, got %T", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %s", err, tt.wantErr)
			}
		})
	}
}

func TestDiffKeys(t *testing.T) {
	a := validConfig()
	b := validConfig()
	if got := diffKeys(a, b); len(got) != 0 {
		t.Fatalf("expected no diff, got %v", got)
	}
	b.DefaultTopK = 10
	b.LogLevel = "debug"
	got := diffKeys(a, b)
	if len(got) != 2 || got[0] != "DefaultTopK" || got[1] != "LogLevel" {
		t.Errorf("diffKeys = %v", got)
	}
}

func TestApplyDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("# comment\nDEFAULT_TOP_K=7\nOPENAI_MODEL=\"gpt-4o\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DEFAULT_TOP_K", "5")
	t.Setenv("OPENAI_MODEL", "")

	if err := applyDotEnv(path); err != nil {
		t.Fatalf("applyDotEnv: %v", err)
	}
	cfg := Load()
	if cfg.DefaultTopK != 7 {
		t.Errorf("DefaultTopK = %d, want 7", cfg.DefaultTopK)
	}
	if cfg.OpenAIModel != "gpt-4o" {
		t.Errorf("OpenAIModel = %q", cfg.OpenAIModel)
	}
}

func TestMaskString(t *testing.T) {
	if got := maskString("secretkey", 3); got != "sec******" {
		t.Errorf("maskString = %q", got)
	}
	if got := maskString("ab", 3); got != "**" {
		t.Errorf("maskString short = %q", got)
	}
}
