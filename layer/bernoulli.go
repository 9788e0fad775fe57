package layer

import "math/rand"

import "gonum.org/v1/gonum/mat"

// Bernoulli are binary stochastic units with sigmoid means.
type Bernoulli struct{}

func (Bernoulli) Means(x *mat.Dense) {
	x.Apply(func(_, _ int, v float64) float64 { return Sigmoid(v) }, x)
}

func (Bernoulli) Sample(dst, means *mat.Dense, rng *rand.Rand) {
	r, c := means.Dims()
	for i := 0; i < r; i++ {
		src := means.RawRowView(i)
		out := dst.RawRowView(i)
		for j := 0; j < c; j++ {
			if rng.Float64() < src[j] {
				out[j] = 1
			} else {
				out[j] = 0
			}
		}
	}
}

func (Bernoulli) Sigma() float64 { return 1 }

func (Bernoulli) VisibleEnergy(v *mat.Dense, bias []float64) []float64 {
	return linearEnergy(v, bias)
}

func (Bernoulli) HiddenFreeEnergy(pre *mat.Dense) []float64 {
	r, _ := pre.Dims()
	out := make([]float64, r)
	for i := range out {
		var s float64
		for _, x := range pre.RawRowView(i) {
			s -= Softplus(x)
		}
		out[i] = s
	}
	return out
}

func (Bernoulli) String() string { return "bernoulli" }
