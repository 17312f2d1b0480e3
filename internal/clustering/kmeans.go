package clustering

import (
	"context"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

type kmeansResult struct {
	labels  []int
	centers [][]float64
	inertia float64
}

func sqDist(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return d * d
}

// nearest returns the index of the closest center; ties go to the lowest index.
func nearest(p []float64, centers [][]float64) (int, float64) {
	best, bestD := 0, math.Inf(1)
	for c, ctr := range centers {
		if d := sqDist(p, ctr); d < bestD {
			best, bestD = c, d
		}
	}
	return best, bestD
}

// seedPlusPlus picks k initial centers with k-means++ weighting.
func seedPlusPlus(x [][]float64, k int, rng *rand.Rand) [][]float64 {
	n := len(x)
	centers := make([][]float64, 0, k)
	centers = append(centers, append([]float64(nil), x[rng.IntN(n)]...))

	d2 := make([]float64, n)
	for i, p := range x {
		d2[i] = sqDist(p, centers[0])
	}
	for len(centers) < k {
		total := floats.Sum(d2)
		pick := rng.IntN(n)
		if total > 0 {
			r := rng.Float64() * total
			for i, w := range d2 {
				r -= w
				if r <= 0 {
					pick = i
					break
				}
			}
		}
		c := append([]float64(nil), x[pick]...)
		centers = append(centers, c)
		for i, p := range x {
			if d := sqDist(p, c); d < d2[i] {
				d2[i] = d
			}
		}
	}
	return centers
}

// tolerance scales tol by the mean per-feature variance, so the stopping
// rule does not depend on the data's units.
func tolerance(x [][]float64, tol float64) float64 {
	dim := len(x[0])
	col := make([]float64, len(x))
	var sum float64
	for j := 0; j < dim; j++ {
		for i := range x {
			col[i] = x[i][j]
		}
		sum += stat.PopVariance(col, nil)
	}
	return tol * sum / float64(dim)
}

// lloyd runs one k-means fit from a k-means++ start.
func lloyd(x [][]float64, k, maxIter int, tolAbs float64, rng *rand.Rand) kmeansResult {
	n, dim := len(x), len(x[0])
	centers := seedPlusPlus(x, k, rng)
	labels := make([]int, n)
	dists := make([]float64, n)

	for iter := 0; iter < maxIter; iter++ {
		for i, p := range x {
			labels[i], dists[i] = nearest(p, centers)
		}

		next := make([][]float64, k)
		counts := make([]int, k)
		for c := range next {
			next[c] = make([]float64, dim)
		}
		for i, p := range x {
			floats.Add(next[labels[i]], p)
			counts[labels[i]]++
		}
		for c := range next {
			if counts[c] > 0 {
				floats.Scale(1/float64(counts[c]), next[c])
				continue
			}
			// Empty cluster: move it onto the point worst served by its center.
			far := floats.MaxIdx(dists)
			copy(next[c], x[far])
			dists[far] = 0
		}

		var shift float64
		for c := range centers {
			shift += sqDist(centers[c], next[c])
		}
		centers = next
		if shift <= tolAbs {
			break
		}
	}

	var inertia float64
	for i, p := range x {
		var d float64
		labels[i], d = nearest(p, centers)
		inertia += d
	}
	return kmeansResult{labels: labels, centers: centers, inertia: inertia}
}

// fitKMeans keeps the lowest-inertia fit of restarts runs. The same seed
// always gives the same result.
func fitKMeans(ctx context.Context, x [][]float64, k int, opts Options) (kmeansResult, error) {
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed))
	tolAbs := tolerance(x, opts.Tol)

	var best kmeansResult
	for run := 0; run < opts.Restarts; run++ {
		if err := ctx.Err(); err != nil {
			return kmeansResult{}, err
		}
		res := lloyd(x, k, opts.MaxIter, tolAbs, rng)
		if run == 0 || res.inertia < best.inertia {
			best = res
		}
	}
	return relabel(best), nil
}

// relabel renumbers clusters by first appearance in row order so ids read
// naturally in tables. Centers no row uses keep their relative order at the end.
func relabel(r kmeansResult) kmeansResult {
	k := len(r.centers)
	mapping := make([]int, k)
	for i := range mapping {
		mapping[i] = -1
	}
	next := 0
	for _, l := range r.labels {
		if mapping[l] < 0 {
			mapping[l] = next
			next++
		}
	}
	for c := range mapping {
		if mapping[c] < 0 {
			mapping[c] = next
			next++
		}
	}

	out := kmeansResult{labels: make([]int, len(r.labels)), centers: make([][]float64, k), inertia: r.inertia}
	for i, l := range r.labels {
		out.labels[i] = mapping[l]
	}
	for c, ctr := range r.centers {
		out.centers[mapping[c]] = ctr
	}
	return out
}
