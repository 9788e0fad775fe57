package rbm

import "math"

import "github.com/pkg/errors"
import "gonum.org/v1/gonum/mat"

import "github.com/neurlang/boltzmann/dense"
import "github.com/neurlang/boltzmann/layer"
import "github.com/neurlang/boltzmann/parallel"

// FreeEnergy returns the free energy of every row of v.
func (r *RBM) FreeEnergy(v *mat.Dense) []float64 {
	fe := r.visible.VisibleEnergy(v, r.VB)
	hidden := r.hidden.HiddenFreeEnergy(r.PropUp(v))
	for i := range fe {
		fe[i] += hidden[i]
	}
	return fe
}

// MeanFreeEnergy is the average free energy over the rows of v.
func (r *RBM) MeanFreeEnergy(v *mat.Dense) float64 {
	fe := r.FreeEnergy(v)
	if len(fe) == 0 {
		return 0
	}
	var s float64
	for _, f := range fe {
		s += f
	}
	return s / float64(len(fe))
}

// MSRE is the mean squared reconstruction error after one deterministic up-down pass.
func (r *RBM) MSRE(x *mat.Dense) float64 {
	return dense.MeanSquaredDiff(x, r.Reconstruct(x))
}

// Reconstruct returns the visible means of x after one up-down pass.
func (r *RBM) Reconstruct(x *mat.Dense) *mat.Dense {
	return r.VMeans(r.HMeans(x))
}

// PseudoLogLikelihood estimates the per-sample log-likelihood by flipping
// one randomly chosen feature in every row.
func (r *RBM) PseudoLogLikelihood(x *mat.Dense) (float64, error) {
	n, _ := x.Dims()
	idx := make([]int, n)
	for i := range idx {
		idx[i] = r.rng.Intn(r.cfg.NVisible)
	}
	return r.PseudoLogLikelihoodAt(x, idx)
}

// PseudoLogLikelihoodAt flips feature idx[i] of row i and returns
// the mean of -nv * log(1 + exp(-(FE(x~) - FE(x)))).
func (r *RBM) PseudoLogLikelihoodAt(x *mat.Dense, idx []int) (float64, error) {
	if _, ok := r.visible.(layer.Bernoulli); !ok {
		return math.NaN(), ErrPLLUndefined
	}
	n, c := x.Dims()
	if c != r.cfg.NVisible {
		return math.NaN(), errors.Errorf("rbm: rows have %d features, want %d", c, r.cfg.NVisible)
	}
	if len(idx) != n {
		return math.NaN(), errors.Errorf("rbm: %d feature indices for %d rows", len(idx), n)
	}
	for i, j := range idx {
		if j < 0 || j >= c {
			return math.NaN(), errors.Errorf("rbm: feature index %d of row %d out of range [0, %d)", j, i, c)
		}
	}
	if n == 0 {
		return 0, nil
	}
	corrupt := mat.DenseCopyOf(x)
	for i, j := range idx {
		corrupt.Set(i, j, 1-corrupt.At(i, j))
	}
	fe := r.FreeEnergy(x)
	feCorrupt := r.FreeEnergy(corrupt)
	nv := float64(r.cfg.NVisible)
	var s float64
	for i := range fe {
		s -= nv * layer.Softplus(-(feCorrupt[i] - fe[i]))
	}
	return s / float64(n), nil
}

// Transform returns the hidden means of every row of X, computed batch by batch in parallel.
func (r *RBM) Transform(X *mat.Dense) *mat.Dense {
	n, _ := X.Dims()
	if n == 0 {
		return &mat.Dense{}
	}
	out := mat.NewDense(n, r.cfg.NHidden, nil)
	parallel.ForEachChunk(n, r.cfg.BatchSize, 0, func(start, end int) {
		h := r.HMeans(dense.Rows(X, start, end))
		dense.Rows(out, start, end).Copy(h)
	})
	return out
}

// BernoulliVBInit returns log(p/(1-p)) of the fraction p of rows where each
// feature is on, the visible bias initialization proposed in Hinton's guide.
func BernoulliVBInit(X *mat.Dense) Vector {
	p := dense.ColMeans(X)
	out := make(Vector, len(p))
	for i, v := range p {
		out[i] = math.Log(math.Max(v, 1e-15) / math.Max(1-v, 1e-15))
	}
	return out
}
