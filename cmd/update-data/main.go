// Command update-data refreshes attendance.csv and results.csv outside the
// API server, once or on an interval.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"

	"election-insights/pkg/config"
	"election-insights/pkg/logging"
)

func main() {
	cfg := config.Load()
	log, err := logging.NewLogger(logging.LogConfig{
		Level:  logging.ParseLevel(cfg.LogLevel),
		Format: cfg.LogFormat,
		Output: "stderr",
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer log.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(cfg, log).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
