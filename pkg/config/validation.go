package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	errs "election-insights/pkg/errors"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation error for field '%s' with value '%s': %s", e.Field, e.Value, e.Message)
}

// ConfigValidator collects validation errors across all checks.
type ConfigValidator struct {
	errors []ValidationError
}

func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{errors: make([]ValidationError, 0)}
}

func (cv *ConfigValidator) AddError(field, value, message string) {
	cv.errors = append(cv.errors, ValidationError{Field: field, Value: value, Message: message})
}

func (cv *ConfigValidator) HasErrors() bool { return len(cv.errors) > 0 }

func (cv *ConfigValidator) GetErrors() []ValidationError { return cv.errors }

func (cv *ConfigValidator) GetErrorsAsString() string {
	var lines []string
	for _, err := range cv.errors {
		lines = append(lines, err.Error())
	}
	return strings.Join(lines, "\n")
}

// Validate validates the entire configuration
func (c *Config) Validate() error {
	validator := NewConfigValidator()

	c.validateRequired(validator)
	c.validateFormats(validator)
	c.validateRanges(validator)
	c.validateEnvironment(validator)

	if validator.HasErrors() {
		return errs.NewValidation("config.Validate", fmt.Sprintf("configuration validation failed:\n%s", validator.GetErrorsAsString()), nil)
	}
	return nil
}

func (c *Config) validateRequired(validator *ConfigValidator) {
	if c.Port == "" {
		validator.AddError("PORT", c.Port, "port is required")
	}
	if c.DataDir == "" {
		validator.AddError("DATA_DIR", c.DataDir, "data directory is required")
	}
	if c.CacheBackend == "redis" && c.RedisURL == "" {
		validator.AddError("REDIS_URL", c.RedisURL, "redis URL is required when CACHE_BACKEND=redis")
	}
}

func (c *Config) validateFormats(validator *ConfigValidator) {
	if c.DatabaseURL != "" {
		if !strings.Contains(c.DatabaseURL, "@") || !strings.Contains(c.DatabaseURL, "/") {
			validator.AddError("DATABASE_URL", c.DatabaseURL, "invalid database URL format")
		}
	}

	for name, port := range map[string]string{"PORT": c.Port, "ADMIN_PORT": c.AdminPort} {
		if port == "" {
			continue
		}
		if p, err := strconv.Atoi(port); err != nil || p < 1 || p > 65535 {
			validator.AddError(name, port, "invalid port number (must be 1-65535)")
		}
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if c.LogLevel != "" && !slices.Contains(validLogLevels, strings.ToLower(c.LogLevel)) {
		validator.AddError("LOG_LEVEL", c.LogLevel, "invalid log level (must be one of: debug, info, warn, error)")
	}
	if c.LogFormat != "" && c.LogFormat != "json" && c.LogFormat != "text" {
		validator.AddError("LOG_FORMAT", c.LogFormat, "invalid log format (must be 'json' or 'text')")
	}
	if c.CacheBackend != "lru" && c.CacheBackend != "redis" {
		validator.AddError("CACHE_BACKEND", c.CacheBackend, "invalid cache backend (must be 'lru' or 'redis')")
	}
}

func (c *Config) validateRanges(validator *ConfigValidator) {
	if c.MaxNClusters < 2 || c.MaxNClusters > 100 {
		validator.AddError("MAX_N_CLUSTERS", strconv.Itoa(c.MaxNClusters), "max clusters must be between 2 and 100")
	}
	if c.DefaultNClusters < 2 || c.DefaultNClusters > c.MaxNClusters {
		validator.AddError("DEFAULT_N_CLUSTERS", strconv.Itoa(c.DefaultNClusters), "default clusters must be between 2 and MAX_N_CLUSTERS")
	}
	if c.DefaultTopK < 1 || c.DefaultTopK > 100 {
		validator.AddError("DEFAULT_TOP_K", strconv.Itoa(c.DefaultTopK), "default top-k must be between 1 and 100")
	}
	if c.CacheCapacity < 1 {
		validator.AddError("CACHE_CAPACITY", strconv.Itoa(c.CacheCapacity), "cache capacity must be positive")
	}
	if c.DatabaseURL != "" {
		if c.DBMaxOpenConns < 1 || c.DBMaxOpenConns > 1000 {
			validator.AddError("DB_MAX_OPEN_CONNS", strconv.Itoa(c.DBMaxOpenConns), "max open connections must be between 1 and 1000")
		}
		if c.DBMaxIdleConns < 0 || c.DBMaxIdleConns > c.DBMaxOpenConns {
			validator.AddError("DB_MAX_IDLE_CONNS", strconv.Itoa(c.DBMaxIdleConns), "max idle connections must be between 0 and max open connections")
		}
	}
}

func (c *Config) validateEnvironment(validator *ConfigValidator) {
	if c.DataDir != "" {
		if fi, err := os.Stat(c.DataDir); err == nil && !fi.IsDir() {
			validator.AddError("DATA_DIR", c.DataDir, "data directory path is a file")
		}
	}
	if c.ProfilingEnabled && c.AdminPort == c.Port {
		validator.AddError("ADMIN_PORT", c.AdminPort, "port conflict with PORT")
	}
}

// GetConfigSummary returns a summary of the configuration (excluding sensitive data)
func (c *Config) GetConfigSummary() map[string]interface{} {
	return map[string]interface{}{
		"port":                c.Port,
		"data_dir":            c.DataDir,
		"presence_file":       c.PresenceFile,
		"cluster_file":        c.ClusterPresenceFile,
		"default_n_clusters":  c.DefaultNClusters,
		"default_top_k":       c.DefaultTopK,
		"cache_backend":       c.CacheBackend,
		"database_url":        maskString(c.DatabaseURL, 12),
		"update_api_key":      maskString(c.UpdateAPIKey, 2),
		"openai_api_key":      maskString(c.OpenAIAPIKey, 6),
		"google_maps_api_key": maskString(c.GoogleMapsAPIKey, 6),
		"log_level":           c.LogLevel,
		"log_format":          c.LogFormat,
		"update_interval":     c.UpdateInterval.String(),
	}
}

// maskString masks sensitive strings for logging/display
func maskString(s string, keepFirst int) string {
	if s == "" {
		return ""
	}
	if len(s) <= keepFirst {
		return strings.Repeat("*", len(s))
	}
	return s[:keepFirst] + strings.Repeat("*", len(s)-keepFirst)
}
