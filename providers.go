package main

import (
	"errors"
	"io/fs"
	"os"

	"election-insights/internal/api"
	"election-insights/internal/auth"
	"election-insights/internal/clustering"
	"election-insights/internal/constants"
	"election-insights/internal/dataset"
	"election-insights/internal/geocode"
	"election-insights/internal/narrator"
	"election-insights/internal/similarity"
	"election-insights/pkg/cache"
	"election-insights/pkg/config"
	"election-insights/pkg/container"
	"election-insights/pkg/database"
	"election-insights/pkg/health"
	"election-insights/pkg/logging"
)

var version = "dev"

// register declares how every long-lived component is built.
func register(c *container.Container) error {
	providers := []any{
		func() (*config.Config, error) {
			cfg := config.Load()
			return cfg, cfg.Validate()
		},
		func(cfg *config.Config) (*logging.Logger, error) {
			return logging.NewLogger(logging.LogConfig{
				Level:  logging.ParseLevel(cfg.LogLevel),
				Format: cfg.LogFormat,
				Output: "stdout",
			})
		},
		newCache,
		newRefreshLog,
		newStore,
		func(cfg *config.Config, b cache.Backend, log *logging.Logger) *clustering.Service {
			return clustering.NewService(cfg.ClusterPresenceFile, b, cfg.CacheTTL, log)
		},
		func() (*similarity.Ranker, error) { return similarity.NewRanker(constants.RankerCacheSize) },
		func(cfg *config.Config, log *logging.Logger) (*narrator.Narrator, error) {
			return narrator.New(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAITimeout, log)
		},
		newGeocoder,
		func(cfg *config.Config, log *logging.Logger) *auth.KeyResolver {
			return auth.NewKeyResolver(cfg.APIKeysYAMLPath, cfg.UpdateAPIKey, log)
		},
		func(cfg *config.Config) fs.FS {
			if cfg.StaticDir != "" {
				return os.DirFS(cfg.StaticDir)
			}
			return Static()
		},
		newHealth,
		newServer,
	}
	for _, p := range providers {
		if err := c.Provide(p, true); err != nil {
			return err
		}
	}
	return nil
}

func newCache(cfg *config.Config) (cache.Backend, error) {
	b, err := cache.New(cache.Options{
		Backend:  cfg.CacheBackend,
		Capacity: cfg.CacheCapacity,
		RedisURL: cfg.RedisURL,
		Prefix:   "election-insights:",
	})
	if err != nil {
		return nil, err
	}
	return cache.Instrument(cfg.CacheBackend, b), nil
}

// newRefreshLog connects to MySQL when DATABASE_URL is set. The refresh log is
// optional, so a failed connection is logged and yields nil.
func newRefreshLog(cfg *config.Config, log *logging.Logger) (*database.DB, error) {
	if cfg.DatabaseURL == "" {
		return nil, nil
	}
	db, err := database.NewWithConfig(cfg.DatabaseURL, cfg)
	if err != nil {
		log.Warn("refresh log disabled: cannot reach database", logging.Error(err))
		return nil, nil
	}
	return db, nil
}

func newStore(cfg *config.Config, db *database.DB, log *logging.Logger) *dataset.Store {
	opts := []dataset.Option{dataset.WithLogger(log)}
	if db != nil {
		opts = append(opts, dataset.WithRecorder(db))
	}
	return dataset.NewStore(cfg.DataDir, cfg.PresenceFile, opts...)
}

func newGeocoder(cfg *config.Config, log *logging.Logger) (*geocode.Geocoder, error) {
	g, err := geocode.New(cfg.GoogleMapsAPIKey, log)
	if errors.Is(err, geocode.ErrDisabled) {
		log.Info("geocoding disabled: GOOGLE_MAPS_API_KEY not set")
		return nil, nil
	}
	return g, err
}

func newHealth(cfg *config.Config, b cache.Backend, db *database.DB, log *logging.Logger) *health.HealthManager {
	hm := health.NewHealthManager(health.HealthConfig{Timeout: constants.HealthTimeoutDefault, Version: version}, log)
	hm.RegisterChecker(health.NewFileHealthChecker("data_dir", cfg.DataDir, false))
	hm.RegisterChecker(health.NewFileHealthChecker("presence_export", cfg.PresenceFile, true))
	hm.RegisterChecker(health.NewFileHealthChecker("cluster_presence", cfg.ClusterPresenceFile, true))
	hm.RegisterChecker(health.NewPingHealthChecker("cache", b.Ping))
	if db != nil {
		hm.RegisterChecker(health.NewDatabaseHealthChecker(db.Conn(), "refresh_log"))
	}
	return hm
}

func newServer(
	cfg *config.Config,
	log *logging.Logger,
	store *dataset.Store,
	clusters *clustering.Service,
	ranker *similarity.Ranker,
	narr *narrator.Narrator,
	geo *geocode.Geocoder,
	db *database.DB,
	keys *auth.KeyResolver,
	hm *health.HealthManager,
	static fs.FS,
) *api.Server {
	d := api.Deps{
		Store:    store,
		Clusters: clusters,
		Ranker:   ranker,
		Narrator: narr,
		Keys:     keys,
		Health:   hm,
		Static:   static,
		Logger:   log,
		Defaults: defaultsFrom(cfg),
	}
	// Typed nils must not leak into the optional interfaces.
	if geo != nil {
		d.Geocoder = geo
	}
	if db != nil {
		d.Refreshes = db
	}
	return api.NewServer(d)
}

func defaultsFrom(cfg *config.Config) api.Defaults {
	return api.Defaults{NClusters: cfg.DefaultNClusters, TopK: cfg.DefaultTopK, MaxNClusters: cfg.MaxNClusters}
}
