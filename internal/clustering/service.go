package clustering

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"election-insights/internal/models"
	"election-insights/internal/presence"
	"election-insights/pkg/cache"
	apperrors "election-insights/pkg/errors"
	"election-insights/pkg/logging"
	"election-insights/pkg/metrics"
)

// Service runs clusterings over one presence file and caches the results.
// Cache keys include the file's modification time and size, so replacing the
// file invalidates older entries without an explicit purge.
type Service struct {
	path  string
	cache cache.Backend
	ttl   time.Duration
	log   *logging.ComponentLogger

	latency *metrics.Histogram
	runs    *metrics.Counter
}

// NewService clusters the presence file at path. backend may be nil to disable caching.
func NewService(path string, backend cache.Backend, ttl time.Duration, log *logging.Logger) *Service {
	if log == nil {
		log = logging.Nop()
	}
	return &Service{
		path:    path,
		cache:   backend,
		ttl:     ttl,
		log:     log.WithComponent("clustering"),
		latency: metrics.Default.Histogram("clustering_duration_seconds", "Time spent computing a clustering", metrics.DefBuckets),
		runs:    metrics.Default.Counter("clustering_runs_total", "Clusterings computed (cache misses)"),
	}
}

// Path is the presence file the service reads.
func (s *Service) Path() string { return s.path }

// Version identifies the current contents of the presence file.
func (s *Service) Version() (string, error) {
	fi, err := os.Stat(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", apperrors.NewNotFound("clustering.Version", "presence file for clustering not found", err)
		}
		return "", apperrors.NewData("clustering.Version", s.path, "cannot stat presence file", err)
	}
	return strconv.FormatInt(fi.ModTime().UnixNano(), 36) + "-" + strconv.FormatInt(fi.Size(), 36), nil
}

// Cluster returns the clustering of level with n requested clusters.
func (s *Service) Cluster(ctx context.Context, level models.Granularity, n int) (*models.ClusteringResult, error) {
	version, err := s.Version()
	if err != nil {
		return nil, err
	}
	key := cache.Key("clustering", string(level), strconv.Itoa(n), version)

	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, key); err == nil {
			var res models.ClusteringResult
			if err := json.Unmarshal(raw, &res); err == nil {
				return &res, nil
			}
			s.log.Ctx(ctx).Warn("discarding undecodable cache entry", logging.String("key", key))
		}
	}

	timer := s.latency.Start()
	t, err := presence.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	res, err := Run(ctx, t, Options{Level: level, NClusters: n})
	if err != nil {
		return nil, err
	}
	timer.Observe()
	s.runs.Inc(1)
	res.DataVersion = version

	if res.NClusters != n {
		s.log.Ctx(ctx).Warn("too few locations for requested clusters",
			logging.Int("requested", n), logging.Int("used", res.NClusters), logging.String("level", string(level)))
	}
	s.log.Ctx(ctx).Info("clustering computed",
		logging.String("level", string(level)), logging.Int("n_clusters", res.NClusters),
		logging.Int("locations", len(res.Records)))

	if s.cache != nil {
		if raw, err := json.Marshal(res); err == nil {
			if err := s.cache.Set(ctx, key, raw, s.ttl); err != nil {
				s.log.Ctx(ctx).Warn("cache write failed", logging.Error(err))
			}
		}
	}
	return res, nil
}

// Invalidate drops every cached result, used after the data files are refreshed.
func (s *Service) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Purge(ctx); err != nil {
		return fmt.Errorf("purge clustering cache: %w", err)
	}
	return nil
}
