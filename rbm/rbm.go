// Package rbm implements Restricted Boltzmann Machines trained with k-step
// contrastive divergence.
//
// The model follows Hinton's "A Practical Guide to Training Restricted
// Boltzmann Machines" (UTML TR 2010-003): the data-driven hidden states may
// be sampled, reconstructions and reconstruction-driven hidden states use
// probabilities unless configured otherwise, and updates use momentum,
// L2 weight decay and an optional sparsity penalty.
package rbm

import "math/rand"

import "github.com/google/uuid"
import "github.com/pkg/errors"
import "gonum.org/v1/gonum/floats"
import "gonum.org/v1/gonum/mat"

import "github.com/neurlang/boltzmann/dense"
import "github.com/neurlang/boltzmann/layer"

// ErrPLLUndefined is returned when the pseudo-log-likelihood is asked for on non-binary visible units.
var ErrPLLUndefined = errors.New("pseudo-log-likelihood is defined for bernoulli visible units only")

// RBM is a restricted Boltzmann machine with its optimizer state.
type RBM struct {
	cfg     Config
	visible layer.Units
	hidden  layer.Units

	W  *mat.Dense
	VB []float64
	HB []float64

	dW  *mat.Dense
	dVB []float64
	dHB []float64

	// q is the damped estimate of hidden activity used by the sparsity penalty.
	q []float64

	epoch int
	iter  int
	runID string
	rng   *rand.Rand
}

// New builds an RBM from cfg.
func New(cfg Config) (*RBM, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	visible, _ := cfg.Visible.Units()
	hidden, _ := cfg.Hidden.Units()

	r := &RBM{
		cfg:     cfg,
		visible: visible,
		hidden:  hidden,
		runID:   uuid.NewString(),
		rng:     rand.New(rand.NewSource(cfg.Seed)),
	}

	nv, nh := cfg.NVisible, cfg.NHidden
	if cfg.W != nil {
		r.W = mat.DenseCopyOf(cfg.W)
	} else {
		data := make([]float64, nv*nh)
		for i := range data {
			data[i] = cfg.WStd * r.rng.NormFloat64()
		}
		r.W = mat.NewDense(nv, nh, data)
	}
	var ok bool
	if r.VB, ok = dense.Fill(nv, cfg.VBInit); !ok {
		return nil, errors.Errorf("rbm: vb_init has %d values, want 1 or %d", len(cfg.VBInit), nv)
	}
	if r.HB, ok = dense.Fill(nh, cfg.HBInit); !ok {
		return nil, errors.Errorf("rbm: hb_init has %d values, want 1 or %d", len(cfg.HBInit), nh)
	}

	r.dW = mat.NewDense(nv, nh, nil)
	r.dVB = make([]float64, nv)
	r.dHB = make([]float64, nh)
	r.q = make([]float64, nh)
	for i := range r.q {
		r.q[i] = cfg.SparsityTarget
	}

	// the explicit matrix has been copied, do not keep it alive in the config
	r.cfg.W = nil
	return r, nil
}

// Config returns the configuration the RBM was built with.
func (r *RBM) Config() Config { return r.cfg }

// Visible returns the visible unit type.
func (r *RBM) Visible() layer.Units { return r.visible }

// Hidden returns the hidden unit type.
func (r *RBM) Hidden() layer.Units { return r.hidden }

// Epoch returns the number of epochs started so far.
func (r *RBM) Epoch() int { return r.epoch }

// Iter returns the number of mini-batch updates done so far.
func (r *RBM) Iter() int { return r.iter }

// RunID identifies the training run the parameters belong to.
func (r *RBM) RunID() string { return r.runID }

// BatchSize is the configured mini-batch size.
func (r *RBM) BatchSize() int { return r.cfg.BatchSize }

// MaxEpoch is the configured number of epochs.
func (r *RBM) MaxEpoch() int { return r.cfg.MaxEpoch }

// NextEpoch advances the epoch counter that selects schedule values.
func (r *RBM) NextEpoch() int {
	r.epoch++
	return r.epoch
}

// Rand is the generator used for sampling, exposed for trainers that share it.
func (r *RBM) Rand() *rand.Rand { return r.rng }

// PropUp returns the hidden pre-activations (v/sigma) W + hb.
func (r *RBM) PropUp(v *mat.Dense) *mat.Dense {
	n, _ := v.Dims()
	out := mat.NewDense(n, r.cfg.NHidden, nil)
	out.Mul(v, r.W)
	scale := 1 / r.visible.Sigma()
	if r.cfg.DBMFirst {
		scale *= 2
	}
	if scale != 1 {
		out.Scale(scale, out)
	}
	dense.AddRow(out, r.HB)
	return out
}

// PropDown returns the visible pre-activations sigma h W^T + vb.
func (r *RBM) PropDown(h *mat.Dense) *mat.Dense {
	n, _ := h.Dims()
	out := mat.NewDense(n, r.cfg.NVisible, nil)
	out.Mul(h, r.W.T())
	scale := r.visible.Sigma()
	if r.cfg.DBMLast {
		scale *= 2
	}
	if scale != 1 {
		out.Scale(scale, out)
	}
	dense.AddRow(out, r.VB)
	return out
}

// HMeans returns P(h=1|v) (or the hidden conditional means).
func (r *RBM) HMeans(v *mat.Dense) *mat.Dense {
	h := r.PropUp(v)
	r.hidden.Means(h)
	return h
}

// VMeans returns the visible conditional means given h.
func (r *RBM) VMeans(h *mat.Dense) *mat.Dense {
	v := r.PropDown(h)
	r.visible.Means(v)
	return v
}

// SampleHGivenV returns hidden means and a sample drawn from them.
func (r *RBM) SampleHGivenV(v *mat.Dense) (means, samples *mat.Dense) {
	means = r.HMeans(v)
	samples = mat.NewDense(means.RawMatrix().Rows, means.RawMatrix().Cols, nil)
	r.hidden.Sample(samples, means, r.rng)
	return means, samples
}

// SampleVGivenH returns visible means and a sample drawn from them.
func (r *RBM) SampleVGivenH(h *mat.Dense) (means, samples *mat.Dense) {
	means = r.VMeans(h)
	samples = mat.NewDense(means.RawMatrix().Rows, means.RawMatrix().Cols, nil)
	r.visible.Sample(samples, means, r.rng)
	return means, samples
}

// Chain is the state of one CD-k Gibbs chain started at the data.
type Chain struct {
	H0Means *mat.Dense // hidden means driven by the data
	VMeans  *mat.Dense // last reconstruction means
	VStates *mat.Dense // last reconstruction states used for statistics
	HMeans  *mat.Dense // hidden means driven by the last reconstruction
}

// GibbsChain runs k sweeps starting at x.
func (r *RBM) GibbsChain(x *mat.Dense, k int) Chain {
	if k <= 0 {
		k = 1
	}
	var c Chain
	var hStates *mat.Dense
	if r.cfg.SampleHStates {
		c.H0Means, hStates = r.SampleHGivenV(x)
	} else {
		c.H0Means = r.HMeans(x)
		hStates = c.H0Means
	}
	for step := 0; step < k; step++ {
		if r.cfg.SampleVStates {
			c.VMeans, c.VStates = r.SampleVGivenH(hStates)
		} else {
			c.VMeans = r.VMeans(hStates)
			c.VStates = c.VMeans
		}
		c.HMeans = r.HMeans(c.VStates)
		hStates = c.HMeans
	}
	return c
}

// StepStats describes one mini-batch update.
type StepStats struct {
	MSRE float64
}

// Step performs one CD-k update on the mini-batch x using the schedule
// values of the current epoch.
func (r *RBM) Step(x *mat.Dense) StepStats {
	epoch := r.epoch
	if epoch < 1 {
		epoch = 1
	}
	return r.update(x, r.cfg.LearningRate.At(epoch), r.cfg.Momentum.At(epoch), r.cfg.GibbsSteps.At(epoch))
}

// TrainBatch implements the trainer model interface.
func (r *RBM) TrainBatch(x *mat.Dense) float64 {
	return r.Step(x).MSRE
}

func (r *RBM) update(x *mat.Dense, lr, momentum float64, k int) StepStats {
	n, _ := x.Dims()
	if n == 0 {
		return StepStats{}
	}
	r.iter++
	c := r.GibbsChain(x, k)

	sigma := r.visible.Sigma()
	invN := 1 / float64(n)

	// dW = ((x/s)^T h0 - (v/s)^T hk) / N - l2 W
	grad := mat.NewDense(r.cfg.NVisible, r.cfg.NHidden, nil)
	var neg mat.Dense
	grad.Mul(x.T(), c.H0Means)
	neg.Mul(c.VStates.T(), c.HMeans)
	grad.Sub(grad, &neg)
	grad.Scale(invN/sigma, grad)
	if r.cfg.L2 > 0 {
		var decay mat.Dense
		decay.Scale(r.cfg.L2, r.W)
		grad.Sub(grad, &decay)
	}

	gHB := dense.ColMeans(c.H0Means)
	floats.Sub(gHB, dense.ColMeans(c.HMeans))

	gVB := dense.ColMeans(x)
	floats.Sub(gVB, dense.ColMeans(c.VStates))
	floats.Scale(1/(sigma*sigma), gVB)

	if r.cfg.SparsityCost > 0 {
		r.sparsity(x, c.H0Means, grad, gHB)
	}

	r.dW.Scale(momentum, r.dW)
	r.dW.Add(r.dW, grad)
	floats.Scale(momentum, r.dHB)
	floats.Add(r.dHB, gHB)
	floats.Scale(momentum, r.dVB)
	floats.Add(r.dVB, gVB)

	var delta mat.Dense
	delta.Scale(lr, r.dW)
	r.W.Add(r.W, &delta)
	floats.AddScaled(r.HB, lr, r.dHB)
	floats.AddScaled(r.VB, lr, r.dVB)

	return StepStats{MSRE: dense.MeanSquaredDiff(x, c.VMeans)}
}

// sparsity moves hidden activity toward the target. The penalty gradient
// (q - p) is applied to hidden biases and, weighted by the mean input, to W.
func (r *RBM) sparsity(x, h0 *mat.Dense, gW *mat.Dense, gHB []float64) {
	d := r.cfg.SparsityDamping
	batchQ := dense.ColMeans(h0)
	for j := range r.q {
		r.q[j] = d*r.q[j] + (1-d)*batchQ[j]
	}
	pen := make([]float64, len(r.q))
	for j, q := range r.q {
		pen[j] = r.cfg.SparsityCost * (q - r.cfg.SparsityTarget)
	}
	floats.Sub(gHB, pen)
	xMean := dense.ColMeans(x)
	for i, xm := range xMean {
		row := gW.RawRowView(i)
		floats.AddScaled(row, -xm/r.visible.Sigma(), pen)
	}
}

// Clone returns a deep copy. The copy samples from its own generator, seeded
// from the receiver's.
func (r *RBM) Clone() *RBM {
	c := *r
	c.W = mat.DenseCopyOf(r.W)
	c.dW = mat.DenseCopyOf(r.dW)
	c.VB = append([]float64(nil), r.VB...)
	c.HB = append([]float64(nil), r.HB...)
	c.dVB = append([]float64(nil), r.dVB...)
	c.dHB = append([]float64(nil), r.dHB...)
	c.q = append([]float64(nil), r.q...)
	c.rng = rand.New(rand.NewSource(r.rng.Int63()))
	return &c
}
