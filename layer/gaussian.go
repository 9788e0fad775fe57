package layer

import "math/rand"

import "gonum.org/v1/gonum/mat"

// Gaussian are real valued visible units with fixed standard deviation.
// The model is p(v|h) = N(vb + sigma * W h, sigma^2).
type Gaussian struct {
	StdDev float64
}

func (g Gaussian) Means(x *mat.Dense) {}

func (g Gaussian) Sample(dst, means *mat.Dense, rng *rand.Rand) {
	sigma := g.Sigma()
	r, c := means.Dims()
	for i := 0; i < r; i++ {
		src := means.RawRowView(i)
		out := dst.RawRowView(i)
		for j := 0; j < c; j++ {
			out[j] = src[j] + sigma*rng.NormFloat64()
		}
	}
}

func (g Gaussian) Sigma() float64 {
	if g.StdDev <= 0 {
		return 1
	}
	return g.StdDev
}

// VisibleEnergy is sum (v-b)^2 / 2 sigma^2.
func (g Gaussian) VisibleEnergy(v *mat.Dense, bias []float64) []float64 {
	sigma := g.Sigma()
	r, _ := v.Dims()
	out := make([]float64, r)
	for i := range out {
		var s float64
		for j, x := range v.RawRowView(i) {
			d := x - bias[j]
			s += d * d
		}
		out[i] = s / (2 * sigma * sigma)
	}
	return out
}

// HiddenFreeEnergy treats Gaussian hidden units as linear, which only makes
// sense for visible usage; the quadratic term is returned so energies stay finite.
func (g Gaussian) HiddenFreeEnergy(pre *mat.Dense) []float64 {
	sigma := g.Sigma()
	r, _ := pre.Dims()
	out := make([]float64, r)
	for i := range out {
		var s float64
		for _, x := range pre.RawRowView(i) {
			s -= 0.5 * sigma * sigma * x * x
		}
		out[i] = s
	}
	return out
}

func (g Gaussian) String() string { return "gaussian" }
