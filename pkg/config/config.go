package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port      string
	DataDir   string
	StaticDir string // empty = serve the embedded bundle

	// Data files, relative to DataDir unless absolute
	PresenceFile        string
	ClusterPresenceFile string

	// Update trigger auth
	UpdateAPIKey    string
	APIKeysYAMLPath string

	// Dashboard defaults
	DefaultNClusters int
	DefaultTopK      int
	MaxNClusters     int

	// Result cache
	CacheBackend  string // "lru" or "redis"
	CacheCapacity int
	CacheTTL      time.Duration
	RedisURL      string

	// Refresh log (optional)
	DatabaseURL       string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime int // minutes

	// External services (optional)
	OpenAIAPIKey     string
	OpenAIModel      string
	OpenAITimeout    time.Duration
	GoogleMapsAPIKey string

	// Monitoring and logging settings
	LogLevel  string
	LogFormat string // "json" or "text"

	// Environment & profiling/metrics
	Env              string // development, staging, production
	ProfilingEnabled bool
	AdminPort        string
	MetricsEnabled   bool
	MetricsPath      string

	// Background refresh; 0 disables the in-process updater
	UpdateInterval time.Duration

	ConfigReloadIntervalSeconds int
}

func Load() *Config {
	dataDir := getEnv("DATA_DIR", "data")

	defaultClusters, _ := strconv.Atoi(getEnv("DEFAULT_N_CLUSTERS", "5"))
	defaultTopK, _ := strconv.Atoi(getEnv("DEFAULT_TOP_K", "5"))
	maxClusters, _ := strconv.Atoi(getEnv("MAX_N_CLUSTERS", "20"))

	cacheCapacity, _ := strconv.Atoi(getEnv("CACHE_CAPACITY", "64"))
	cacheTTL, _ := time.ParseDuration(getEnv("CACHE_TTL", "10m"))

	dbMaxOpenConns, _ := strconv.Atoi(getEnv("DB_MAX_OPEN_CONNS", "10"))
	dbMaxIdleConns, _ := strconv.Atoi(getEnv("DB_MAX_IDLE_CONNS", "5"))
	dbConnMaxLifetime, _ := strconv.Atoi(getEnv("DB_CONN_MAX_LIFETIME_MINUTES", "10"))

	openAITimeout, _ := time.ParseDuration(getEnv("OPENAI_TIMEOUT", "20s"))

	env := strings.ToLower(getEnv("ENV", "development"))
	profilingDefault := env == "development" || env == "staging"
	profilingEnabled, _ := strconv.ParseBool(getEnv("PROFILING_ENABLED", strconv.FormatBool(profilingDefault)))
	metricsEnabled, _ := strconv.ParseBool(getEnv("METRICS_ENABLED", strconv.FormatBool(profilingDefault)))

	updateInterval, _ := time.ParseDuration(getEnv("UPDATE_INTERVAL", "0s"))
	reloadIntSec, _ := strconv.Atoi(getEnv("CONFIG_RELOAD_INTERVAL_SECONDS", "5"))

	if updateInterval < 0 {
		log.Printf("[Warning] UPDATE_INTERVAL is negative (%s), disabling background updates", updateInterval)
		updateInterval = 0
	}

	return &Config{
		Port:      getEnv("PORT", "5000"),
		DataDir:   dataDir,
		StaticDir: getEnv("STATIC_DIR", ""),

		PresenceFile:        resolve(dataDir, getEnv("PRESENCE_FILE", "presence_2024-12-02_07-00.csv")),
		ClusterPresenceFile: resolve(dataDir, getEnv("CLUSTER_PRESENCE_FILE", filepath.Join("Cluster", "presence_now.csv"))),

		UpdateAPIKey:    getEnv("UPDATE_API_KEY", ""),
		APIKeysYAMLPath: getEnv("API_KEYS_YAML_PATH", "config/api_keys.yaml"),

		DefaultNClusters: defaultClusters,
		DefaultTopK:      defaultTopK,
		MaxNClusters:     maxClusters,

		CacheBackend:  strings.ToLower(getEnv("CACHE_BACKEND", "lru")),
		CacheCapacity: cacheCapacity,
		CacheTTL:      cacheTTL,
		RedisURL:      getEnv("REDIS_URL", ""),

		DatabaseURL:       getEnv("DATABASE_URL", ""),
		DBMaxOpenConns:    dbMaxOpenConns,
		DBMaxIdleConns:    dbMaxIdleConns,
		DBConnMaxLifetime: dbConnMaxLifetime,

		OpenAIAPIKey:     getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:      getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAITimeout:    openAITimeout,
		GoogleMapsAPIKey: getEnv("GOOGLE_MAPS_API_KEY", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		Env:              env,
		ProfilingEnabled: profilingEnabled,
		AdminPort:        getEnv("ADMIN_PORT", "6060"),
		MetricsEnabled:   metricsEnabled,
		MetricsPath:      getEnv("METRICS_PATH", "/metrics"),

		UpdateInterval:              updateInterval,
		ConfigReloadIntervalSeconds: reloadIntSec,
	}
}

// resolve joins relative data file names onto the data directory.
func resolve(dir, name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(dir, name)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
