// Package layer defines the unit types a Boltzmann machine layer can be made of.
package layer

import "math"
import "math/rand"

import "gonum.org/v1/gonum/mat"

// Units describes one layer of a Boltzmann machine: how pre-activations turn
// into conditional means, how states are drawn from those means, and what the
// layer contributes to the free energy. Matrices hold one sample per row.
type Units interface {

	// Means turns pre-activations into conditional means, in place.
	Means(x *mat.Dense)

	// Sample draws states from means into dst, which has the shape of means.
	Sample(dst, means *mat.Dense, rng *rand.Rand)

	// Sigma is the standard deviation visible inputs are divided by (1 unless Gaussian).
	Sigma() float64

	// VisibleEnergy returns, per row, the bias part of the energy when the
	// units are visible.
	VisibleEnergy(v *mat.Dense, bias []float64) []float64

	// HiddenFreeEnergy returns, per row, the term left after summing the
	// units out when they are hidden, given their pre-activations.
	HiddenFreeEnergy(pre *mat.Dense) []float64

	String() string
}

// Sigmoid is the logistic function, stable for large |x|.
func Sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}

// Softplus computes log(1+e^x) without overflow.
func Softplus(x float64) float64 {
	return math.Max(x, 0) + math.Log1p(math.Exp(-math.Abs(x)))
}

// LogSumExp of a row.
func LogSumExp(row []float64) float64 {
	if len(row) == 0 {
		return math.Inf(-1)
	}
	m := row[0]
	for _, v := range row[1:] {
		if v > m {
			m = v
		}
	}
	if math.IsInf(m, 0) {
		return m
	}
	var s float64
	for _, v := range row {
		s += math.Exp(v - m)
	}
	return m + math.Log(s)
}

// linearEnergy is -v.b per row.
func linearEnergy(v *mat.Dense, bias []float64) []float64 {
	r, _ := v.Dims()
	out := make([]float64, r)
	for i := range out {
		row := v.RawRowView(i)
		var s float64
		for j, x := range row {
			s -= x * bias[j]
		}
		out[i] = s
	}
	return out
}
