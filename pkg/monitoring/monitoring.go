package monitoring

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sort"
	"sync"
	"time"

	pp "net/http/pprof"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"election-insights/pkg/logging"
	"election-insights/pkg/metrics"
)

// Metrics keeps the most recent request durations for the JSON snapshot
// and feeds the Prometheus histogram for everything else.
type Metrics struct {
	mu     sync.Mutex
	recent []float64 // milliseconds, ring buffer
	next   int
	seen   int64

	requests *metrics.Counter
	errors   *metrics.Counter
	latency  *metrics.Histogram
}

// Summary describes the recent window of request durations in milliseconds.
type Summary struct {
	Requests int64   `json:"requests_total"`
	Avg      float64 `json:"duration_ms_avg"`
	P50      float64 `json:"duration_ms_p50"`
	P95      float64 `json:"duration_ms_p95"`
}

func NewMetrics(window int) *Metrics {
	if window <= 0 {
		window = 256
	}
	return &Metrics{
		recent:   make([]float64, 0, window),
		requests: metrics.Default.Counter("http_requests_total", "Total HTTP requests served"),
		errors:   metrics.Default.Counter("http_request_errors_total", "HTTP requests answered with status >= 500"),
		latency:  metrics.Default.Histogram("http_request_duration_seconds", "HTTP request latency", metrics.DefBuckets),
	}
}

// Observe records one request duration.
func (m *Metrics) Observe(d time.Duration) {
	m.latency.Observe(d.Seconds())
	ms := float64(d.Microseconds()) / 1000

	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen++
	if len(m.recent) < cap(m.recent) {
		m.recent = append(m.recent, ms)
		return
	}
	m.recent[m.next] = ms
	m.next = (m.next + 1) % len(m.recent)
}

// Snapshot summarises the window. Percentiles are empirical quantiles.
func (m *Metrics) Snapshot() Summary {
	m.mu.Lock()
	samples := append([]float64(nil), m.recent...)
	sum := Summary{Requests: m.seen}
	m.mu.Unlock()

	if len(samples) == 0 {
		return sum
	}
	sort.Float64s(samples)
	sum.Avg = stat.Mean(samples, nil)
	sum.P50 = stat.Quantile(0.5, stat.Empirical, samples, nil)
	sum.P95 = stat.Quantile(0.95, stat.Empirical, samples, nil)
	return sum
}

type statusWriter struct {
	http.ResponseWriter
	statusCode int
}

func (sw *statusWriter) WriteHeader(statusCode int) {
	sw.statusCode = statusCode
	sw.ResponseWriter.WriteHeader(statusCode)
}

// Middleware measures request duration and logs one line per request.
func Middleware(m *Metrics, log *logging.Logger) func(http.Handler) http.Handler {
	httpLog := log.WithComponent("http")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(sw, r)
			dur := time.Since(start)

			m.Observe(dur)
			m.requests.Inc(1)
			if sw.statusCode >= http.StatusInternalServerError {
				m.errors.Inc(1)
			}
			httpLog.Ctx(r.Context()).Debug("request",
				logging.String("method", r.Method),
				logging.String("path", r.URL.Path),
				logging.Int("status", sw.statusCode),
				logging.Duration("duration", dur),
			)
		})
	}
}

// RequestIDHeader is echoed back on every response.
const RequestIDHeader = "X-Request-ID"

// RequestID propagates an incoming X-Request-ID or assigns a new uuid.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logging.WithRequestID(r.Context(), id)))
	})
}

// MetricsHandler exposes runtime and request metrics in JSON.
func MetricsHandler(m *Metrics) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		_ = json.NewEncoder(w).Encode(struct {
			Time string `json:"time"`
			Summary
			Goroutines int    `json:"goroutines"`
			MemAlloc   uint64 `json:"mem_alloc_bytes"`
			HeapInuse  uint64 `json:"heap_inuse_bytes"`
			NumGC      uint32 `json:"gc_num"`
		}{
			Time:       time.Now().Format(time.RFC3339),
			Summary:    m.Snapshot(),
			Goroutines: runtime.NumGoroutine(),
			MemAlloc:   ms.Alloc,
			HeapInuse:  ms.HeapInuse,
			NumGC:      ms.NumGC,
		})
	})
}

// RegisterPprof registers the standard pprof handlers under /debug/pprof/.
func RegisterPprof(mux *http.ServeMux) {
	mux.HandleFunc("/debug/pprof/", pp.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pp.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pp.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pp.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pp.Trace)
}

// EnableProfiling toggles block/mutex profiling rates.
func EnableProfiling(enabled bool) {
	if enabled {
		runtime.SetBlockProfileRate(1)
		runtime.SetMutexProfileFraction(5)
		return
	}
	runtime.SetBlockProfileRate(0)
	runtime.SetMutexProfileFraction(0)
}
