package clustering

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// scaler standardizes columns to zero mean and unit population variance.
// Constant columns keep a scale of 1.
type scaler struct {
	mean []float64
	std  []float64
}

func fitScaler(x [][]float64) scaler {
	dim := len(x[0])
	s := scaler{mean: make([]float64, dim), std: make([]float64, dim)}
	col := make([]float64, len(x))
	for j := 0; j < dim; j++ {
		for i := range x {
			col[i] = x[i][j]
		}
		s.mean[j], s.std[j] = stat.PopMeanStdDev(col, nil)
		if s.std[j] == 0 || math.IsNaN(s.std[j]) {
			s.std[j] = 1
		}
	}
	return s
}

func (s scaler) transform(x [][]float64) [][]float64 {
	out := make([][]float64, len(x))
	for i, row := range x {
		out[i] = make([]float64, len(row))
		for j, v := range row {
			out[i][j] = (v - s.mean[j]) / s.std[j]
		}
	}
	return out
}

func (s scaler) inverse(v []float64) []float64 {
	out := make([]float64, len(v))
	for j, z := range v {
		out[j] = z*s.std[j] + s.mean[j]
	}
	return out
}

// project returns the first two principal component coordinates of every row
// and the share of total variance each component explains. Each component is
// oriented so its largest-magnitude loading is positive. With fewer than two
// rows, or no variance at all, coordinates and ratios are zero.
func project(x [][]float64) ([][2]float64, []float64) {
	n := len(x)
	coords := make([][2]float64, n)
	ratio := []float64{0, 0}
	if n < 2 {
		return coords, ratio
	}
	dim := len(x[0])

	flat := make([]float64, 0, n*dim)
	for _, row := range x {
		flat = append(flat, row...)
	}
	data := mat.NewDense(n, dim, flat)

	var pc stat.PC
	if !pc.PrincipalComponents(data, nil) {
		return coords, ratio
	}
	vars := pc.VarsTo(nil)
	total := floats.Sum(vars)
	if total <= 0 {
		return coords, ratio
	}
	var vecs mat.Dense
	pc.VectorsTo(&vecs)
	_, nc := vecs.Dims()

	mean := make([]float64, dim)
	for _, row := range x {
		floats.Add(mean, row)
	}
	floats.Scale(1/float64(n), mean)

	centered := make([]float64, dim)
	for comp := 0; comp < 2 && comp < nc && comp < len(vars); comp++ {
		dir := mat.Col(nil, comp, &vecs)
		abs := make([]float64, len(dir))
		for i, v := range dir {
			abs[i] = math.Abs(v)
		}
		if dir[floats.MaxIdx(abs)] < 0 {
			floats.Scale(-1, dir)
		}
		ratio[comp] = vars[comp] / total
		for i, row := range x {
			floats.SubTo(centered, row, mean)
			coords[i][comp] = floats.Dot(centered, dir)
		}
	}
	return coords, ratio
}
