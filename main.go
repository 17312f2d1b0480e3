package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"election-insights/internal/api"
	"election-insights/internal/auth"
	"election-insights/internal/clustering"
	"election-insights/internal/constants"
	"election-insights/internal/dataset"
	"election-insights/pkg/cache"
	"election-insights/pkg/config"
	"election-insights/pkg/container"
	"election-insights/pkg/database"
	"election-insights/pkg/logging"
	"election-insights/pkg/metrics"
	"election-insights/pkg/monitoring"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "election-insights:", err)
		os.Exit(1)
	}
}

func run() error {
	c := container.New()
	if err := register(c); err != nil {
		return err
	}

	var (
		cfg   *config.Config
		log   *logging.Logger
		store *dataset.Store
		srv   *api.Server
	)
	if err := c.Resolve(&cfg); err != nil {
		return err
	}
	if err := c.Resolve(&log); err != nil {
		return err
	}
	defer log.Close()
	if err := c.Resolve(&store); err != nil {
		return err
	}
	if err := c.Resolve(&srv); err != nil {
		return err
	}
	defer c.Invoke(func(b cache.Backend, db *database.DB) {
		_ = b.Close()
		if db != nil {
			_ = db.Close()
		}
	})

	monitoring.EnableProfiling(cfg.ProfilingEnabled)
	log.Info("starting election insights API",
		logging.String("version", version), logging.String("env", cfg.Env), logging.String("port", cfg.Port))
	log.Debug("configuration loaded", logging.Any("config", cfg.GetConfigSummary()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := store.EnsureInitialData(ctx); err != nil {
		log.Error("could not create initial data files", err)
	}

	watcher := startConfigWatcher(c, cfg, log)
	defer watcher.Close()

	if cfg.UpdateInterval > 0 {
		go scheduleRefresh(ctx, store, cfg.UpdateInterval, log)
	}

	reqMetrics := monitoring.NewMetrics(constants.RequestMetricsCapacity)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           monitoring.RequestID(srv.Router(monitoring.Middleware(reqMetrics, log))),
		ReadHeaderTimeout: constants.ReadHeaderTimeout,
		WriteTimeout:      constants.WriteTimeout,
		IdleTimeout:       constants.IdleTimeout,
	}
	adminServer := newAdminServer(cfg, reqMetrics)

	errCh := make(chan error, 2)
	go serve(server, "api", log, errCh)
	if adminServer != nil {
		go serve(adminServer, "admin", log, errCh)
	}

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("received shutdown signal, shutting down")
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.GracefulShutdownTimeoutDefault)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", err)
	}
	if adminServer != nil {
		if err := adminServer.Shutdown(shutdownCtx); err != nil {
			log.Error("admin server shutdown failed", err)
		}
	}
	log.Info("shutdown complete")
	return runErr
}

func serve(s *http.Server, name string, log *logging.Logger, errCh chan<- error) {
	log.Info("server listening", logging.String("server", name), logging.String("addr", s.Addr))
	if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		errCh <- fmt.Errorf("%s server: %w", name, err)
	}
}

// newAdminServer exposes pprof and metrics on ADMIN_PORT; nil when both are off.
func newAdminServer(cfg *config.Config, reqMetrics *monitoring.Metrics) *http.Server {
	if !cfg.ProfilingEnabled && !cfg.MetricsEnabled {
		return nil
	}
	mux := http.NewServeMux()
	if cfg.ProfilingEnabled {
		monitoring.RegisterPprof(mux)
	}
	if cfg.MetricsEnabled {
		mux.Handle(cfg.MetricsPath, metrics.Handler())
		if cfg.MetricsPath != "/metrics.json" {
			mux.Handle("/metrics.json", monitoring.MetricsHandler(reqMetrics))
		}
	}
	return &http.Server{Addr: ":" + cfg.AdminPort, Handler: mux, ReadHeaderTimeout: constants.ReadHeaderTimeout}
}

// startConfigWatcher applies reloadable settings: query defaults, log level,
// the update key and the API key file.
func startConfigWatcher(c *container.Container, cfg *config.Config, log *logging.Logger) *config.Watcher {
	w := config.NewWatcher(time.Duration(cfg.ConfigReloadIntervalSeconds) * time.Second)
	changes := w.Subscribe()
	w.Start()

	clog := log.WithComponent("config")
	go func() {
		for chg := range changes {
			if chg.Err != nil {
				clog.Error("config reload failed", chg.Err)
				continue
			}
			err := c.Invoke(func(srv *api.Server, keys *auth.KeyResolver) error {
				srv.SetDefaults(defaultsFrom(chg.New))
				log.SetLevel(logging.ParseLevel(chg.New.LogLevel))
				keys.SetEnvKey(chg.New.UpdateAPIKey)
				return keys.Reload()
			})
			if err != nil {
				clog.Warn("config applied partially", logging.Error(err))
			}
			clog.Info("config applied", logging.Any("fields", chg.Fields))
		}
	}()
	return w
}

// scheduleRefresh nudges the data files every interval until ctx ends.
func scheduleRefresh(ctx context.Context, store *dataset.Store, every time.Duration, log *logging.Logger) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := store.Refresh(ctx, dataset.RefreshRequest{Kind: "schedule", Mode: dataset.ModeUpdate}); err != nil {
				log.Warn("scheduled refresh failed", logging.Error(err))
			}
		}
	}
}

var (
	_ api.Clusterer  = (*clustering.Service)(nil)
	_ api.RefreshLog = (*database.DB)(nil)
	_ api.DataStore  = (*dataset.Store)(nil)
)
