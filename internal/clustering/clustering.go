// Package clustering groups locations by the age/gender profile of their
// voters. Presence rows are summed per location, turned into percentages of
// votes cast, standardized and clustered with k-means; a two-component PCA
// gives every location a position for scatter plots.
package clustering

import (
	"context"
	"fmt"
	"strings"

	"election-insights/internal/models"
	"election-insights/internal/presence"
	apperrors "election-insights/pkg/errors"
)

// Options controls a clustering run. The zero value of every tuning field
// falls back to the defaults below.
type Options struct {
	Level     models.Granularity
	NClusters int
	Seed      uint64
	Restarts  int
	MaxIter   int
	Tol       float64
}

const (
	DefaultSeed     = 42
	DefaultRestarts = 10
	DefaultMaxIter  = 300
	DefaultTol      = 1e-4
)

func (o Options) withDefaults() Options {
	if o.Level == "" {
		o.Level = models.GranularityCounty
	}
	if o.Seed == 0 {
		o.Seed = DefaultSeed
	}
	if o.Restarts <= 0 {
		o.Restarts = DefaultRestarts
	}
	if o.MaxIter <= 0 {
		o.MaxIter = DefaultMaxIter
	}
	if o.Tol <= 0 {
		o.Tol = DefaultTol
	}
	return o
}

// EffectiveClusters is the cluster count actually used for rows locations:
// when there are not more locations than requested clusters it drops to
// max(2, rows-1), and it never exceeds rows.
func EffectiveClusters(requested, rows int) int {
	k := requested
	if rows <= k {
		k = max(2, rows-1)
	}
	return min(k, rows)
}

// Run clusters the locations of t at opts.Level.
func Run(ctx context.Context, t *presence.Table, opts Options) (*models.ClusteringResult, error) {
	const op = "clustering.Run"
	opts = opts.withDefaults()
	if opts.NClusters < 1 {
		return nil, apperrors.NewValidation(op, "n_clusters must be at least 1", nil)
	}
	if missing := t.Missing(presence.AgeColumns[:]...); len(missing) > 0 {
		return nil, apperrors.NewValidation(op,
			"required demographic columns missing in presence data: "+strings.Join(missing, ", "), nil)
	}
	if missing := t.Missing(keyColumns(opts.Level)...); len(missing) > 0 {
		return nil, apperrors.NewValidation(op,
			fmt.Sprintf("presence data has no %s column for level %s", strings.Join(missing, ", "), opts.Level), nil)
	}

	var groups []*group
	for _, g := range aggregate(t, opts.Level) {
		if g.votes > 0 {
			groups = append(groups, g)
		}
	}
	if len(groups) == 0 {
		return nil, apperrors.NewNotFound(op, "no locations with votes cast at level "+string(opts.Level), nil)
	}

	k := EffectiveClusters(opts.NClusters, len(groups))

	pct := make([][]float64, len(groups))
	for i, g := range groups {
		pct[i] = g.percentages()
	}
	sc := fitScaler(pct)
	scaled := sc.transform(pct)

	km, err := fitKMeans(ctx, scaled, k, opts)
	if err != nil {
		return nil, err
	}
	coords, ratio := project(scaled)

	res := &models.ClusteringResult{
		Level:                  opts.Level,
		NClusters:              k,
		ExplainedVarianceRatio: ratio,
		ClusterCenters:         make(map[int]models.ClusterCenter, k),
		Records:                make([]models.LocationRecord, len(groups)),
	}
	for c, ctr := range km.centers {
		center := make(models.ClusterCenter, len(models.Buckets))
		for j, v := range sc.inverse(ctr) {
			center[models.CenterKey(models.Buckets[j])] = v
		}
		res.ClusterCenters[c] = center
	}
	for i, g := range groups {
		res.Records[i] = g.record(km.labels[i], pct[i], coords[i])
	}
	return res, nil
}
