package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"election-insights/internal/dataset"
	"election-insights/pkg/config"
	"election-insights/pkg/database"
	"election-insights/pkg/logging"
)

type options struct {
	fresh    bool
	presence string
	interval int
	dataDir  string
}

func newRootCmd(cfg *config.Config, log *logging.Logger) *cobra.Command {
	opts := options{dataDir: cfg.DataDir}
	cmd := &cobra.Command{
		Use:   "update-data",
		Short: "Update or generate the election data files",
		Long: "update-data rewrites attendance.csv and results.csv in the data directory.\n" +
			"By default it nudges the current values; --fresh regenerates them and\n" +
			"--presence aggregates a presence export instead.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.interval < 0 {
				return fmt.Errorf("--interval must not be negative")
			}
			return run(cmd.Context(), cfg, log, opts)
		},
	}
	f := cmd.Flags()
	f.BoolVar(&opts.fresh, "fresh", false, "regenerate the data files instead of updating them")
	f.StringVar(&opts.presence, "presence", "", "presence CSV export to process")
	f.IntVar(&opts.interval, "interval", 0, "run every N seconds until interrupted (0 runs once)")
	f.StringVar(&opts.dataDir, "data-dir", opts.dataDir, "directory holding attendance.csv and results.csv")
	return cmd
}

// request maps the flags onto a refresh; --presence wins over --fresh.
func (o options) request() dataset.RefreshRequest {
	switch {
	case o.presence != "":
		return dataset.RefreshRequest{Kind: "cli", Mode: dataset.ModePresence, Presence: o.presence}
	case o.fresh:
		return dataset.RefreshRequest{Kind: "cli", Mode: dataset.ModeFresh}
	default:
		return dataset.RefreshRequest{Kind: "cli", Mode: dataset.ModeUpdate}
	}
}

func run(ctx context.Context, cfg *config.Config, log *logging.Logger, opts options) error {
	clog := log.WithComponent("update-data")
	storeOpts := []dataset.Option{dataset.WithLogger(log)}
	if cfg.DatabaseURL != "" {
		db, err := database.NewWithConfig(cfg.DatabaseURL, cfg)
		if err != nil {
			clog.Warn("refresh log unavailable, continuing without it", logging.Error(err))
		} else {
			defer db.Close()
			storeOpts = append(storeOpts, dataset.WithRecorder(db))
		}
	}
	presence := filepath.Join(opts.dataDir, filepath.Base(cfg.PresenceFile))
	store := dataset.NewStore(opts.dataDir, presence, storeOpts...)
	req := opts.request()

	if opts.interval == 0 {
		_, err := store.Refresh(ctx, req)
		return err
	}

	every := time.Duration(opts.interval) * time.Second
	clog.Info("update loop started", logging.Duration("interval", every), logging.String("mode", req.Mode.String()))
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		if _, err := store.Refresh(ctx, req); err != nil {
			clog.Warn("update cycle failed, retrying next interval", logging.Error(err))
		}
		select {
		case <-ctx.Done():
			clog.Info("update loop stopped")
			return nil
		case <-ticker.C:
		}
	}
}
