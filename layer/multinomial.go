package layer

import "math"
import "math/rand"

import "gonum.org/v1/gonum/mat"

// Multinomial is a single softmax group spanning the whole layer. Sampling
// draws Samples categorical states and stores the counts divided by Samples.
type Multinomial struct {
	Samples int
}

func (m Multinomial) draws() int {
	if m.Samples <= 0 {
		return 1
	}
	return m.Samples
}

func (m Multinomial) Means(x *mat.Dense) {
	r, _ := x.Dims()
	for i := 0; i < r; i++ {
		row := x.RawRowView(i)
		lse := LogSumExp(row)
		for j := range row {
			row[j] = math.Exp(row[j] - lse)
		}
	}
}

func (m Multinomial) Sample(dst, means *mat.Dense, rng *rand.Rand) {
	n := m.draws()
	inc := 1 / float64(n)
	r, _ := means.Dims()
	for i := 0; i < r; i++ {
		p := means.RawRowView(i)
		out := dst.RawRowView(i)
		for j := range out {
			out[j] = 0
		}
		for k := 0; k < n; k++ {
			out[categorical(p, rng.Float64())] += inc
		}
	}
}

// categorical picks the index whose cumulative probability first exceeds u.
func categorical(p []float64, u float64) int {
	var acc float64
	for j, v := range p {
		acc += v
		if u < acc {
			return j
		}
	}
	return len(p) - 1
}

func (m Multinomial) Sigma() float64 { return 1 }

func (m Multinomial) VisibleEnergy(v *mat.Dense, bias []float64) []float64 {
	return linearEnergy(v, bias)
}

// HiddenFreeEnergy is -n log sum_k e^x_k per row.
func (m Multinomial) HiddenFreeEnergy(pre *mat.Dense) []float64 {
	n := float64(m.draws())
	r, _ := pre.Dims()
	out := make([]float64, r)
	for i := range out {
		out[i] = -n * LogSumExp(pre.RawRowView(i))
	}
	return out
}

func (m Multinomial) String() string { return "multinomial" }
