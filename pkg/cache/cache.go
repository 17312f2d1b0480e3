// Package cache stores serialized query results behind a small Backend
// interface. The in-memory LRU backend suits a single instance; the Redis
// backend lets several instances share clustering results.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"election-insights/pkg/metrics"
)

// ErrMiss is returned by Get when a key is absent or expired.
var ErrMiss = errors.New("cache: miss")

// Backend is a byte-oriented key/value store with optional expiry.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Purge(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// Options selects and sizes a backend.
type Options struct {
	Backend  string // "lru" or "redis"
	Capacity int
	RedisURL string
	Prefix   string
}

// New builds the backend named in opts. Unknown names are an error.
func New(opts Options) (Backend, error) {
	switch strings.ToLower(opts.Backend) {
	case "", "lru", "memory":
		return NewLRU(opts.Capacity)
	case "redis":
		return NewRedis(opts.RedisURL, opts.Prefix)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", opts.Backend)
	}
}

// Key joins parts into a cache key.
func Key(parts ...string) string {
	return strings.Join(parts, "|")
}

// Instrumented counts hits and misses of an underlying backend.
type Instrumented struct {
	Backend
	hits   *metrics.Counter
	misses *metrics.Counter
}

// Instrument wraps b with hit/miss counters named after name.
func Instrument(name string, b Backend) *Instrumented {
	return &Instrumented{
		Backend: b,
		hits:    metrics.Default.Counter(name+"_cache_hits_total", "Cache hits for "+name),
		misses:  metrics.Default.Counter(name+"_cache_misses_total", "Cache misses for "+name),
	}
}

func (i *Instrumented) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := i.Backend.Get(ctx, key)
	if err != nil {
		i.misses.Inc(1)
		return nil, err
	}
	i.hits.Inc(1)
	return v, nil
}
