// Package dense holds the row-wise helpers on gonum matrices shared by the models.
package dense

import "math"

import "gonum.org/v1/gonum/floats"
import "gonum.org/v1/gonum/mat"

// AddRow adds v to every row of m.
func AddRow(m *mat.Dense, v []float64) {
	r, _ := m.Dims()
	for i := 0; i < r; i++ {
		floats.Add(m.RawRowView(i), v)
	}
}

// ColMeans returns the mean of every column of m.
func ColMeans(m *mat.Dense) []float64 {
	r, c := m.Dims()
	out := make([]float64, c)
	if r == 0 {
		return out
	}
	for i := 0; i < r; i++ {
		floats.Add(out, m.RawRowView(i))
	}
	floats.Scale(1/float64(r), out)
	return out
}

// MeanSquaredDiff is the mean over all entries of (a-b)^2.
func MeanSquaredDiff(a, b *mat.Dense) float64 {
	r, c := a.Dims()
	if r == 0 || c == 0 {
		return 0
	}
	var s float64
	for i := 0; i < r; i++ {
		x, y := a.RawRowView(i), b.RawRowView(i)
		for j := range x {
			d := x[j] - y[j]
			s += d * d
		}
	}
	return s / float64(r*c)
}

// Rows returns a view of rows [start, end) of m.
func Rows(m *mat.Dense, start, end int) *mat.Dense {
	_, c := m.Dims()
	return m.Slice(start, end, 0, c).(*mat.Dense)
}

// Gather copies the rows of m listed in idx into a new matrix.
func Gather(m *mat.Dense, idx []int) *mat.Dense {
	_, c := m.Dims()
	out := mat.NewDense(len(idx), c, nil)
	for i, k := range idx {
		copy(out.RawRowView(i), m.RawRowView(k))
	}
	return out
}

// Fill returns a vector of length n. An init of length n is copied, an init
// of length 1 is broadcast, and nil yields zeros.
func Fill(n int, init []float64) ([]float64, bool) {
	out := make([]float64, n)
	switch len(init) {
	case 0:
	case 1:
		for i := range out {
			out[i] = init[0]
		}
	case n:
		copy(out, init)
	default:
		return nil, false
	}
	return out, true
}

// ClipColumnNorms rescales every column of m whose L2 norm exceeds limit.
func ClipColumnNorms(m *mat.Dense, limit float64) {
	if limit <= 0 {
		return
	}
	r, c := m.Dims()
	for j := 0; j < c; j++ {
		var s float64
		for i := 0; i < r; i++ {
			v := m.At(i, j)
			s += v * v
		}
		n := math.Sqrt(s)
		if n <= limit {
			continue
		}
		f := limit / n
		for i := 0; i < r; i++ {
			m.Set(i, j, m.At(i, j)*f)
		}
	}
}
