package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"

	"election-insights/internal/constants"
	"election-insights/pkg/metrics"
)

// Change is published after every reload attempt that changed something or
// failed. Fields names the reloadable settings that differ between Old and New.
type Change struct {
	Old    *Config
	New    *Config
	Fields []string
	Err    error
}

// reloadable lists the settings the running service can pick up without a
// restart. Everything else in Config is read once at startup.
var reloadable = []struct {
	name    string
	changed func(a, b *Config) bool
}{
	{"DefaultNClusters", func(a, b *Config) bool { return a.DefaultNClusters != b.DefaultNClusters }},
	{"DefaultTopK", func(a, b *Config) bool { return a.DefaultTopK != b.DefaultTopK }},
	{"MaxNClusters", func(a, b *Config) bool { return a.MaxNClusters != b.MaxNClusters }},
	{"LogLevel", func(a, b *Config) bool { return a.LogLevel != b.LogLevel }},
	{"UpdateAPIKey", func(a, b *Config) bool { return a.UpdateAPIKey != b.UpdateAPIKey }},
	{"APIKeysYAMLPath", func(a, b *Config) bool { return a.APIKeysYAMLPath != b.APIKeysYAMLPath }},
	{"Metrics", func(a, b *Config) bool {
		return a.MetricsEnabled != b.MetricsEnabled || a.MetricsPath != b.MetricsPath
	}},
}

// Watcher polls the environment for dashboard settings. When CONFIG_FILE
// names a .env file, that file is re-applied each time its mtime moves.
type Watcher struct {
	every    time.Duration
	envFile  string
	fileSeen time.Time

	mu   sync.RWMutex
	cur  *Config
	subs []chan Change

	start sync.Once
	stop  sync.Once
	done  chan struct{}

	applied *metrics.Counter
	failed  *metrics.Counter
}

// NewWatcher snapshots the current configuration. Polling begins with Start.
func NewWatcher(every time.Duration) *Watcher {
	if every <= 0 {
		every = constants.ConfigWatcherIntervalDefault
	}
	return &Watcher{
		every:   every,
		envFile: strings.TrimSpace(os.Getenv("CONFIG_FILE")),
		cur:     Load(),
		done:    make(chan struct{}),
		applied: metrics.Default.Counter("config_reload_total", "Config reloads that changed a setting"),
		failed:  metrics.Default.Counter("config_reload_failures_total", "Config reloads that failed"),
	}
}

// Current returns the last configuration that passed validation.
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.cur
}

// Subscribe registers a buffered channel of changes. It is closed by Close.
// A subscriber that falls behind misses changes rather than blocking reloads.
func (w *Watcher) Subscribe() <-chan Change {
	ch := make(chan Change, 4)
	w.mu.Lock()
	w.subs = append(w.subs, ch)
	w.mu.Unlock()
	return ch
}

// Start launches the polling goroutine. Later calls do nothing.
func (w *Watcher) Start() {
	w.start.Do(func() {
		go func() {
			tick := time.NewTicker(w.every)
			defer tick.Stop()
			for {
				select {
				case <-w.done:
					return
				case <-tick.C:
					w.Reload()
				}
			}
		}()
	})
}

// Close stops polling and closes every subscriber channel.
func (w *Watcher) Close() {
	w.stop.Do(func() {
		close(w.done)
		w.mu.Lock()
		for _, ch := range w.subs {
			close(ch)
		}
		w.subs = nil
		w.mu.Unlock()
	})
}

// Reload runs one poll synchronously and reports whether a new configuration
// was applied.
func (w *Watcher) Reload() bool {
	if err := w.refreshEnvFile(); err != nil {
		w.failed.Inc(1)
		w.publish(Change{Old: w.Current(), Err: err})
	}

	old, next := w.Current(), Load()
	if err := next.Validate(); err != nil {
		w.failed.Inc(1)
		w.publish(Change{Old: old, New: next, Err: fmt.Errorf("invalid config: %w", err)})
		return false
	}
	fields := diffKeys(old, next)
	if len(fields) == 0 {
		return false
	}

	w.mu.Lock()
	w.cur = next
	w.mu.Unlock()
	w.applied.Inc(1)
	w.publish(Change{Old: old, New: next, Fields: fields})
	return true
}

func (w *Watcher) refreshEnvFile() error {
	if w.envFile == "" {
		return nil
	}
	fi, err := os.Stat(w.envFile)
	if err != nil || !fi.ModTime().After(w.fileSeen) {
		return nil
	}
	w.fileSeen = fi.ModTime()
	if err := applyDotEnv(w.envFile); err != nil {
		return fmt.Errorf("read %s: %w", w.envFile, err)
	}
	return nil
}

func (w *Watcher) publish(chg Change) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, ch := range w.subs {
		select {
		case ch <- chg:
		default:
		}
	}
}

// diffKeys names the reloadable settings that differ between a and b.
func diffKeys(a, b *Config) []string {
	if a == nil || b == nil {
		return []string{"all"}
	}
	var out []string
	for _, r := range reloadable {
		if r.changed(a, b) {
			out = append(out, r.name)
		}
	}
	return out
}

// applyDotEnv exports every key of a .env file, overriding the process env.
func applyDotEnv(path string) error {
	vals, err := godotenv.Read(filepath.Clean(path))
	if err != nil {
		return err
	}
	for k, v := range vals {
		if err := os.Setenv(k, v); err != nil {
			return err
		}
	}
	return nil
}
