// Package metrics is a small in-process registry exposed in the Prometheus
// text format. Values are updated with atomics; the registry map is guarded
// by a mutex and only locked on registration and scrape.
package metrics

import (
	"fmt"
	"io"
	"math"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// DefBuckets are latency buckets in seconds.
var DefBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}

// Default is the process-wide registry.
var Default = NewRegistry()

// Handler exposes the Default registry.
func Handler() http.Handler { return Default.Handler() }

// collector is anything the registry can render.
type collector interface {
	desc() (name, help, kind string)
	write(w io.Writer)
}

// atomicFloat stores a float64 as bits so it can be updated lock-free.
type atomicFloat struct{ bits uint64 }

func (f *atomicFloat) load() float64   { return math.Float64frombits(atomic.LoadUint64(&f.bits)) }
func (f *atomicFloat) store(v float64) { atomic.StoreUint64(&f.bits, math.Float64bits(v)) }

func (f *atomicFloat) add(delta float64) {
	for {
		old := atomic.LoadUint64(&f.bits)
		next := math.Float64bits(math.Float64frombits(old) + delta)
		if atomic.CompareAndSwapUint64(&f.bits, old, next) {
			return
		}
	}
}

// Counter only goes up.
type Counter struct {
	name, help string
	n          atomic.Int64
}

func (c *Counter) Inc(delta int64) { c.n.Add(delta) }
func (c *Counter) Get() int64      { return c.n.Load() }

func (c *Counter) desc() (string, string, string) { return c.name, c.help, "counter" }
func (c *Counter) write(w io.Writer)              { fmt.Fprintf(w, "%s %d\n", c.name, c.Get()) }

// Gauge holds a value that moves both ways, e.g. row counts or timestamps.
type Gauge struct {
	name, help string
	v          atomicFloat
}

func (g *Gauge) Set(v float64)     { g.v.store(v) }
func (g *Gauge) Add(delta float64) { g.v.add(delta) }
func (g *Gauge) Get() float64      { return g.v.load() }

func (g *Gauge) desc() (string, string, string) { return g.name, g.help, "gauge" }
func (g *Gauge) write(w io.Writer)              { fmt.Fprintf(w, "%s %g\n", g.name, g.Get()) }

// Histogram counts observations into fixed upper bounds, the last being +Inf.
type Histogram struct {
	name, help string
	bounds     []float64
	hits       []atomic.Uint64
	sum        atomicFloat
	total      atomic.Uint64
}

func (h *Histogram) Observe(v float64) {
	i := sort.SearchFloat64s(h.bounds, v)
	if i == len(h.hits) {
		i--
	}
	h.hits[i].Add(1)
	h.total.Add(1)
	h.sum.add(v)
}

// Count returns the number of observations.
func (h *Histogram) Count() uint64 { return h.total.Load() }

func (h *Histogram) desc() (string, string, string) { return h.name, h.help, "histogram" }

func (h *Histogram) write(w io.Writer) {
	var cum uint64
	for i, ub := range h.bounds {
		cum += h.hits[i].Load()
		le := "+Inf"
		if !math.IsInf(ub, 1) {
			le = fmt.Sprintf("%g", ub)
		}
		fmt.Fprintf(w, "%s_bucket{le=%q} %d\n", h.name, le, cum)
	}
	fmt.Fprintf(w, "%s_sum %g\n", h.name, h.sum.load())
	fmt.Fprintf(w, "%s_count %d\n", h.name, h.Count())
}

// Timer measures one operation into a histogram.
type Timer struct {
	h     *Histogram
	start time.Time
}

func (h *Histogram) Start() Timer { return Timer{h: h, start: time.Now()} }

// Observe records the seconds elapsed since Start.
func (t Timer) Observe() {
	if t.h != nil {
		t.h.Observe(time.Since(t.start).Seconds())
	}
}

// Registry maps metric names to collectors. Asking twice for the same name
// returns the first instance.
type Registry struct {
	mu  sync.Mutex
	all map[string]collector
}

func NewRegistry() *Registry {
	return &Registry{all: make(map[string]collector)}
}

// register returns the collector already stored under name, or stores the
// one built by mk. Names are sanitized before lookup.
func register[T collector](r *Registry, name string, mk func(name string) T) T {
	name = sanitize(name)
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.all[name].(T); ok {
		return c
	}
	c := mk(name)
	r.all[name] = c
	return c
}

func (r *Registry) Counter(name, help string) *Counter {
	return register(r, name, func(n string) *Counter { return &Counter{name: n, help: help} })
}

func (r *Registry) Gauge(name, help string) *Gauge {
	return register(r, name, func(n string) *Gauge { return &Gauge{name: n, help: help} })
}

// Histogram registers a histogram over buckets. A +Inf bucket is appended
// when missing.
func (r *Registry) Histogram(name, help string, buckets []float64) *Histogram {
	return register(r, name, func(n string) *Histogram {
		bounds := append([]float64(nil), buckets...)
		sort.Float64s(bounds)
		if len(bounds) == 0 || !math.IsInf(bounds[len(bounds)-1], 1) {
			bounds = append(bounds, math.Inf(1))
		}
		return &Histogram{name: n, help: help, bounds: bounds, hits: make([]atomic.Uint64, len(bounds))}
	})
}

// Handler renders every metric, sorted by name.
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		r.Expose(w)
	})
}

// Expose writes the exposition text for all registered metrics.
func (r *Registry) Expose(w io.Writer) {
	r.mu.Lock()
	names := make([]string, 0, len(r.all))
	for n := range r.all {
		names = append(names, n)
	}
	cs := make([]collector, 0, len(names))
	sort.Strings(names)
	for _, n := range names {
		cs = append(cs, r.all[n])
	}
	r.mu.Unlock()

	for _, c := range cs {
		name, help, kind := c.desc()
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n", name, strings.ReplaceAll(help, "\n", " "), name, kind)
		c.write(w)
	}
}

var nameReplacer = strings.NewReplacer(" ", "_", "-", "_", ".", "_")

func sanitize(s string) string { return nameReplacer.Replace(s) }
