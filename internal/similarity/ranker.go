package similarity

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"election-insights/internal/models"
	"election-insights/pkg/metrics"
)

// cacheKey identifies one record set: the clustering it came from and the level.
type cacheKey struct {
	granularity models.Granularity
	version     string
}

// Ranker answers FindTopSimilar queries against record sets that are queried
// repeatedly. Per-record vectors and norms are computed once per
// (granularity, version) and kept in an LRU. Results are identical to the
// package-level FindTopSimilar.
type Ranker struct {
	cache *lru.Cache[cacheKey, *features]

	hits   *metrics.Counter
	misses *metrics.Counter
}

// NewRanker keeps feature tables for up to size record sets.
func NewRanker(size int) (*Ranker, error) {
	if size <= 0 {
		size = 16
	}
	c, err := lru.New[cacheKey, *features](size)
	if err != nil {
		return nil, err
	}
	return &Ranker{
		cache:  c,
		hits:   metrics.Default.Counter("similarity_feature_cache_hits_total", "Ranker feature table cache hits"),
		misses: metrics.Default.Counter("similarity_feature_cache_misses_total", "Ranker feature table cache misses"),
	}, nil
}

// FindTopSimilar is FindTopSimilar with memoized features. version must change
// whenever records change; an empty version disables caching.
func (r *Ranker) FindTopSimilar(version, selected string, records []models.LocationRecord, g models.Granularity, topK int) []Match {
	if version == "" {
		return FindTopSimilar(selected, records, g, topK)
	}
	key := cacheKey{granularity: g, version: version}
	f, ok := r.cache.Get(key)
	if !ok || len(f.ids) != len(records) {
		r.misses.Inc(1)
		f = buildFeatures(records, g)
		r.cache.Add(key, f)
	} else {
		r.hits.Inc(1)
	}
	return rank(selected, records, g, f, topK)
}

// Purge drops every cached feature table.
func (r *Ranker) Purge() { r.cache.Purge() }

// Len reports the number of cached record sets.
func (r *Ranker) Len() int { return r.cache.Len() }
