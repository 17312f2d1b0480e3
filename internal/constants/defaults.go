package constants

import "time"

// Centralized default values for timeouts, intervals, and related settings.
// These provide sane defaults; environment/config may override where supported.

const (
	// Refresh log database
	DBReadTimeoutDefault  = 8 * time.Second
	DBWriteTimeoutDefault = 6 * time.Second
	RefreshLogListDefault = 20
	RefreshLogListMax     = 500

	// Google Maps geocoding
	GeocodeRequestTimeout = 10 * time.Second
	GeocodeOpenFor        = 30 * time.Second
	GeocodeCacheSize      = 1024

	// Cluster narration / OpenAI
	NarratorRequestTimeout = 20 * time.Second
	NarratorOpenFor        = 45 * time.Second
	NarratorMaxTokens      = 300

	// Similarity feature tables kept by the ranker
	RankerCacheSize = 32

	// Health
	HealthTimeoutDefault = 5 * time.Second

	// Config watcher
	ConfigWatcherIntervalDefault = 5 * time.Second

	// App shutdown
	GracefulShutdownTimeoutDefault = 10 * time.Second

	// HTTP server
	ReadHeaderTimeout = 10 * time.Second
	WriteTimeout      = 60 * time.Second
	IdleTimeout       = 120 * time.Second

	// Monitoring
	RequestMetricsCapacity = 2048
)
