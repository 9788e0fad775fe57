// Package dbm implements a two hidden layer Deep Boltzmann Machine
// initialized from a pair of pretrained RBMs and trained jointly with
// mean-field positive statistics and persistent Gibbs chains for the
// negative ones (Salakhutdinov and Hinton, 2009).
package dbm

import "math"
import "math/rand"

import "github.com/google/uuid"
import "github.com/pkg/errors"
import "gonum.org/v1/gonum/floats"
import "gonum.org/v1/gonum/mat"

import "github.com/neurlang/boltzmann/dense"
import "github.com/neurlang/boltzmann/layer"
import "github.com/neurlang/boltzmann/parallel"
import "github.com/neurlang/boltzmann/rbm"

// DBM is a visible layer and two hidden layers with their optimizer state
// and persistent chains.
type DBM struct {
	cfg Config

	visible layer.Units
	hidden1 layer.Units
	hidden2 layer.Units

	W1  *mat.Dense // visible x hidden1
	W2  *mat.Dense // hidden1 x hidden2
	VB  []float64
	HB1 []float64
	HB2 []float64

	dW1  *mat.Dense
	dW2  *mat.Dense
	dVB  []float64
	dHB1 []float64
	dHB2 []float64

	// persistent chains, one particle per row
	pv, ph1, ph2 *mat.Dense

	epoch int
	iter  int
	runID string
	rng   *rand.Rand
}

// New stacks the bottom RBM r1 (pretrained with DBMFirst) and the top RBM r2
// (pretrained with DBMLast). The first hidden layer receives bias input from
// both RBMs, its bias starts at the average of r1's hidden and r2's visible
// biases.
func New(r1, r2 *rbm.RBM, cfg Config) (*DBM, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p1, p2 := r1.Params(), r2.Params()
	_, n1 := p1.W.Dims()
	if m, _ := p2.W.Dims(); m != n1 {
		return nil, errors.Errorf("dbm: first RBM has %d hidden units, second RBM %d visible units", n1, m)
	}
	hb1 := make([]float64, n1)
	for j := range hb1 {
		hb1[j] = (p1.HB[j] + p2.VB[j]) / 2
	}
	d := &DBM{
		cfg:     cfg,
		visible: r1.Visible(),
		hidden1: r1.Hidden(),
		hidden2: r2.Hidden(),
		W1:      p1.W,
		W2:      p2.W,
		VB:      p1.VB,
		HB1:     hb1,
		HB2:     p2.HB,
		runID:   uuid.NewString(),
		rng:     rand.New(rand.NewSource(cfg.Seed)),
	}
	d.zeroMomentum()
	d.initParticles()
	return d, nil
}

func (d *DBM) zeroMomentum() {
	nv, n1 := d.W1.Dims()
	_, n2 := d.W2.Dims()
	d.dW1 = mat.NewDense(nv, n1, nil)
	d.dW2 = mat.NewDense(n1, n2, nil)
	d.dVB = make([]float64, nv)
	d.dHB1 = make([]float64, n1)
	d.dHB2 = make([]float64, n2)
}

// initParticles starts the chains from the model driven by its biases alone.
func (d *DBM) initParticles() {
	_, n1 := d.W1.Dims()
	means := mat.NewDense(d.cfg.NParticles, n1, nil)
	dense.AddRow(means, d.HB1)
	d.hidden1.Means(means)
	d.ph1 = mat.NewDense(d.cfg.NParticles, n1, nil)
	d.hidden1.Sample(d.ph1, means, d.rng)
	_, d.pv = d.sampleV(d.ph1)
	_, d.ph2 = d.sampleH2(d.ph1)
}

// Config returns the joint training configuration.
func (d *DBM) Config() Config { return d.cfg }

// Epoch returns the number of epochs started so far.
func (d *DBM) Epoch() int { return d.epoch }

// Iter returns the number of mini-batch updates done so far.
func (d *DBM) Iter() int { return d.iter }

// RunID identifies the training run the parameters belong to.
func (d *DBM) RunID() string { return d.runID }

func (d *DBM) BatchSize() int { return d.cfg.BatchSize }
func (d *DBM) MaxEpoch() int  { return d.cfg.MaxEpoch }

// NextEpoch advances the epoch counter that selects schedule values.
func (d *DBM) NextEpoch() int {
	d.epoch++
	return d.epoch
}

// Particles returns the visible states of the persistent chains.
func (d *DBM) Particles() *mat.Dense { return d.pv }

// preH1 is (v/sigma) W1 * up + h2 W2^T + hb1.
func (d *DBM) preH1(v, h2 *mat.Dense, up float64) *mat.Dense {
	n, _ := v.Dims()
	_, n1 := d.W1.Dims()
	out := mat.NewDense(n, n1, nil)
	out.Mul(v, d.W1)
	out.Scale(up/d.visible.Sigma(), out)
	if h2 != nil {
		var top mat.Dense
		top.Mul(h2, d.W2.T())
		out.Add(out, &top)
	}
	dense.AddRow(out, d.HB1)
	return out
}

func (d *DBM) h2Means(h1 *mat.Dense) *mat.Dense {
	n, _ := h1.Dims()
	_, n2 := d.W2.Dims()
	out := mat.NewDense(n, n2, nil)
	out.Mul(h1, d.W2)
	dense.AddRow(out, d.HB2)
	d.hidden2.Means(out)
	return out
}

func (d *DBM) vMeans(h1 *mat.Dense) *mat.Dense {
	n, _ := h1.Dims()
	nv, _ := d.W1.Dims()
	out := mat.NewDense(n, nv, nil)
	out.Mul(h1, d.W1.T())
	if s := d.visible.Sigma(); s != 1 {
		out.Scale(s, out)
	}
	dense.AddRow(out, d.VB)
	d.visible.Means(out)
	return out
}

func sample(u layer.Units, means *mat.Dense, rng *rand.Rand) *mat.Dense {
	r, c := means.Dims()
	out := mat.NewDense(r, c, nil)
	u.Sample(out, means, rng)
	return out
}

func (d *DBM) sampleV(h1 *mat.Dense) (means, states *mat.Dense) {
	means = d.vMeans(h1)
	return means, sample(d.visible, means, d.rng)
}

func (d *DBM) sampleH2(h1 *mat.Dense) (means, states *mat.Dense) {
	means = d.h2Means(h1)
	return means, sample(d.hidden2, means, d.rng)
}

func (d *DBM) sampleH1(v, h2 *mat.Dense) (means, states *mat.Dense) {
	means = d.preH1(v, h2, 1)
	d.hidden1.Means(means)
	return means, sample(d.hidden1, means, d.rng)
}

// MeanField returns the variational posterior means of both hidden layers
// given v. The first pass runs bottom-up with the visible input doubled to
// stand in for the missing top-down signal, then both layers are updated in
// turn until the largest change drops below MFTol or maxUpdates is reached.
func (d *DBM) MeanField(v *mat.Dense, maxUpdates int) (mu1, mu2 *mat.Dense) {
	mu1 = d.preH1(v, nil, 2)
	d.hidden1.Means(mu1)
	mu2 = d.h2Means(mu1)
	for i := 0; i < maxUpdates; i++ {
		next1 := d.preH1(v, mu2, 1)
		d.hidden1.Means(next1)
		next2 := d.h2Means(next1)
		delta := math.Max(maxAbsDiff(next1, mu1), maxAbsDiff(next2, mu2))
		mu1, mu2 = next1, next2
		if delta < d.cfg.MFTol {
			break
		}
	}
	return mu1, mu2
}

func maxAbsDiff(a, b *mat.Dense) float64 {
	var m float64
	r, _ := a.Dims()
	for i := 0; i < r; i++ {
		x, y := a.RawRowView(i), b.RawRowView(i)
		for j := range x {
			m = math.Max(m, math.Abs(x[j]-y[j]))
		}
	}
	return m
}

// Gibbs advances the persistent chains by k sweeps of v|h1, h2|h1, h1|v,h2.
func (d *DBM) Gibbs(k int) {
	for step := 0; step < k; step++ {
		_, d.pv = d.sampleV(d.ph1)
		_, d.ph2 = d.sampleH2(d.ph1)
		_, d.ph1 = d.sampleH1(d.pv, d.ph2)
	}
}

// StepStats describes one mini-batch update.
type StepStats struct {
	MSRE float64
}

// Step performs one joint update on the mini-batch x with the schedule
// values of the current epoch.
func (d *DBM) Step(x *mat.Dense) StepStats {
	n, _ := x.Dims()
	if n == 0 {
		return StepStats{}
	}
	epoch := d.epoch
	if epoch < 1 {
		epoch = 1
	}
	lr := d.cfg.LearningRate.At(epoch)
	momentum := d.cfg.Momentum.At(epoch)
	k := d.cfg.GibbsSteps.At(epoch)
	if k <= 0 {
		k = 1
	}
	d.iter++

	mu1, mu2 := d.MeanField(x, d.cfg.MaxMFUpdates)
	d.Gibbs(k)

	sigma := d.visible.Sigma()
	invN := 1 / float64(n)
	invM := 1 / float64(d.cfg.NParticles)

	g1 := correlation(x, mu1, d.pv, d.ph1, invN/sigma, invM/sigma)
	g2 := correlation(mu1, mu2, d.ph1, d.ph2, invN, invM)
	if d.cfg.L2 > 0 {
		decay(g1, d.W1, d.cfg.L2)
		decay(g2, d.W2, d.cfg.L2)
	}
	gVB := dense.ColMeans(x)
	floats.Sub(gVB, dense.ColMeans(d.pv))
	floats.Scale(1/(sigma*sigma), gVB)
	gHB1 := dense.ColMeans(mu1)
	floats.Sub(gHB1, dense.ColMeans(d.ph1))
	gHB2 := dense.ColMeans(mu2)
	floats.Sub(gHB2, dense.ColMeans(d.ph2))

	apply(d.W1, d.dW1, g1, lr, momentum)
	apply(d.W2, d.dW2, g2, lr, momentum)
	applyVec(d.VB, d.dVB, gVB, lr, momentum)
	applyVec(d.HB1, d.dHB1, gHB1, lr, momentum)
	applyVec(d.HB2, d.dHB2, gHB2, lr, momentum)

	dense.ClipColumnNorms(d.W1, d.cfg.MaxNorm)
	dense.ClipColumnNorms(d.W2, d.cfg.MaxNorm)

	return StepStats{MSRE: dense.MeanSquaredDiff(x, d.vMeans(mu1))}
}

// correlation is a^T b * pos - c^T e * neg.
func correlation(a, b, c, e *mat.Dense, pos, neg float64) *mat.Dense {
	var g, n mat.Dense
	g.Mul(a.T(), b)
	g.Scale(pos, &g)
	n.Mul(c.T(), e)
	n.Scale(neg, &n)
	g.Sub(&g, &n)
	return &g
}

func decay(g, w *mat.Dense, l2 float64) {
	var t mat.Dense
	t.Scale(l2, w)
	g.Sub(g, &t)
}

func apply(param, vel, grad *mat.Dense, lr, momentum float64) {
	vel.Scale(momentum, vel)
	vel.Add(vel, grad)
	var t mat.Dense
	t.Scale(lr, vel)
	param.Add(param, &t)
}

func applyVec(param, vel, grad []float64, lr, momentum float64) {
	floats.Scale(momentum, vel)
	floats.Add(vel, grad)
	floats.AddScaled(param, lr, vel)
}

// TrainBatch implements the trainer model interface.
func (d *DBM) TrainBatch(x *mat.Dense) float64 {
	return d.Step(x).MSRE
}

// MSRE reconstructs x from the mean-field first hidden layer.
func (d *DBM) MSRE(x *mat.Dense) float64 {
	if n, _ := x.Dims(); n == 0 {
		return 0
	}
	mu1, _ := d.MeanField(x, d.cfg.MaxMFUpdates)
	return dense.MeanSquaredDiff(x, d.vMeans(mu1))
}

// Transform returns the mean-field means of the top hidden layer for every
// row of X, computed batch by batch in parallel.
func (d *DBM) Transform(X *mat.Dense) *mat.Dense {
	n, _ := X.Dims()
	if n == 0 {
		return &mat.Dense{}
	}
	_, n2 := d.W2.Dims()
	out := mat.NewDense(n, n2, nil)
	parallel.ForEachChunk(n, d.cfg.BatchSize, 0, func(start, end int) {
		_, mu2 := d.MeanField(dense.Rows(X, start, end), d.cfg.MaxMFUpdates)
		dense.Rows(out, start, end).Copy(mu2)
	})
	return out
}
