package cache

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

type lruEntry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

// LRU is an in-process Backend with a fixed capacity.
type LRU struct {
	mu    sync.Mutex
	cache *lru.Cache[string, lruEntry]
	now   func() time.Time
}

// NewLRU creates an LRU backend holding at most capacity entries.
func NewLRU(capacity int) (*LRU, error) {
	if capacity <= 0 {
		capacity = 64
	}
	c, err := lru.New[string, lruEntry](capacity)
	if err != nil {
		return nil, err
	}
	return &LRU{cache: c, now: time.Now}, nil
}

func (l *LRU) Get(_ context.Context, key string) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.cache.Get(key)
	if !ok {
		return nil, ErrMiss
	}
	if !e.expiresAt.IsZero() && !l.now().Before(e.expiresAt) {
		l.cache.Remove(key)
		return nil, ErrMiss
	}
	return e.value, nil
}

func (l *LRU) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := lruEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = l.now().Add(ttl)
	}
	l.mu.Lock()
	l.cache.Add(key, e)
	l.mu.Unlock()
	return nil
}

func (l *LRU) Delete(_ context.Context, key string) error {
	l.mu.Lock()
	l.cache.Remove(key)
	l.mu.Unlock()
	return nil
}

func (l *LRU) Purge(context.Context) error {
	l.mu.Lock()
	l.cache.Purge()
	l.mu.Unlock()
	return nil
}

// Len reports the number of stored entries, expired ones included.
func (l *LRU) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cache.Len()
}

func (l *LRU) Ping(context.Context) error { return nil }

func (l *LRU) Close() error { return nil }
