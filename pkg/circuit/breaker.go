package circuit

import (
	"context"
	"errors"
	"sync"
	"time"

	"election-insights/pkg/logging"
	"election-insights/pkg/metrics"
)

// State represents the circuit breaker state.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// Config tunes a circuit breaker instance.
type Config struct {
	Name string

	OperationTimeout  time.Duration // per-call timeout
	OpenFor           time.Duration // how long to stay open before probing
	MaxConsecFailures int           // consecutive failures to open
	WindowSize        int           // sliding window of recent calls
	FailureRate       float64       // 0..1 fraction in window to open
	MinSamples        int           // window fill required before FailureRate applies
}

// DefaultConfig is used for the external clients (OpenAI, Google Maps).
func DefaultConfig(name string) Config {
	return Config{
		Name:              name,
		OperationTimeout:  15 * time.Second,
		OpenFor:           30 * time.Second,
		MaxConsecFailures: 3,
		WindowSize:        20,
		FailureRate:       0.5,
		MinSamples:        10,
	}
}

// ErrOpen indicates the breaker is open and calls are short-circuited.
var ErrOpen = errors.New("circuit open")

type Breaker struct {
	cfg        Config
	mu         sync.Mutex
	st         State
	nextProbe  time.Time
	consecFail int

	win  []bool // true = failure
	idx  int
	used int

	log *logging.ComponentLogger

	mState   *metrics.Gauge
	mOpen    *metrics.Counter
	mFailure *metrics.Counter
	mLatency *metrics.Histogram
}

func New(cfg Config, log *logging.Logger) *Breaker {
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = 20
	}
	if log == nil {
		log = logging.Nop()
	}
	prefix := "cb_" + cfg.Name
	return &Breaker{
		cfg:      cfg,
		win:      make([]bool, cfg.WindowSize),
		log:      log.WithComponent("circuit"),
		mState:   metrics.Default.Gauge(prefix+"_state", "Circuit breaker state (0=closed,1=open,2=half-open)"),
		mOpen:    metrics.Default.Counter(prefix+"_opens_total", "Circuit opened events"),
		mFailure: metrics.Default.Counter(prefix+"_failures_total", "Failed calls through circuit"),
		mLatency: metrics.Default.Histogram(prefix+"_latency_seconds", "Latency of calls through circuit", metrics.DefBuckets),
	}
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.st
}

func (b *Breaker) setStateLocked(st State) {
	if b.st == st {
		return
	}
	b.st = st
	b.mState.Set(float64(st))
	if st == Open {
		b.mOpen.Inc(1)
		b.nextProbe = time.Now().Add(b.cfg.OpenFor)
	}
	b.log.Info("breaker state change", logging.String("name", b.cfg.Name), logging.String("state", st.String()))
}

func (b *Breaker) recordLocked(failed bool) {
	b.win[b.idx] = failed
	b.idx = (b.idx + 1) % len(b.win)
	if b.used < len(b.win) {
		b.used++
	}
	if b.st != Closed {
		return
	}
	if b.cfg.MaxConsecFailures > 0 && b.consecFail >= b.cfg.MaxConsecFailures {
		b.setStateLocked(Open)
		return
	}
	if b.cfg.FailureRate > 0 && b.used >= b.cfg.MinSamples {
		fail := 0
		for i := 0; i < b.used; i++ {
			if b.win[i] {
				fail++
			}
		}
		if float64(fail)/float64(b.used) >= b.cfg.FailureRate {
			b.setStateLocked(Open)
		}
	}
}

// Do runs op under the breaker. When open, or when op fails, fallback is
// used if provided; otherwise the error (ErrOpen when short-circuited) is returned.
func (b *Breaker) Do(ctx context.Context, op func(ctx context.Context) error, fallback func(ctx context.Context, cause error) error) error {
	b.mu.Lock()
	if b.st == Open {
		if time.Now().Before(b.nextProbe) {
			b.mu.Unlock()
			if fallback != nil {
				return fallback(ctx, ErrOpen)
			}
			return ErrOpen
		}
		b.setStateLocked(HalfOpen)
	}
	b.mu.Unlock()

	callCtx := ctx
	if b.cfg.OperationTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, b.cfg.OperationTimeout)
		defer cancel()
	}

	t := b.mLatency.Start()
	err := op(callCtx)
	t.Observe()

	b.mu.Lock()
	if err != nil {
		b.consecFail++
		b.mFailure.Inc(1)
		b.recordLocked(true)
		if b.st == HalfOpen {
			b.setStateLocked(Open)
		}
	} else {
		b.consecFail = 0
		b.recordLocked(false)
		if b.st == HalfOpen {
			b.setStateLocked(Closed)
		}
	}
	b.mu.Unlock()

	if err != nil && fallback != nil {
		return fallback(ctx, err)
	}
	return err
}
