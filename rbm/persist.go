package rbm

import "encoding/json"

import "github.com/pkg/errors"
import "gonum.org/v1/gonum/mat"

import "github.com/neurlang/boltzmann/checkpoint"
import "github.com/neurlang/boltzmann/layer"

// Kind tags RBM checkpoints.
const Kind = "rbm"

// Params are the learned parameters of an RBM.
type Params struct {
	W  *mat.Dense
	VB []float64
	HB []float64
}

// Params returns copies of the weights and biases.
func (r *RBM) Params() Params {
	return Params{
		W:  mat.DenseCopyOf(r.W),
		VB: append([]float64(nil), r.VB...),
		HB: append([]float64(nil), r.HB...),
	}
}

// SetParams replaces the weights and biases and resets the momentum buffers.
func (r *RBM) SetParams(p Params) error {
	nv, nh := p.W.Dims()
	if nv != r.cfg.NVisible || nh != r.cfg.NHidden || len(p.VB) != nv || len(p.HB) != nh {
		return errors.Errorf("rbm: params %dx%d (vb %d, hb %d) do not fit %dx%d",
			nv, nh, len(p.VB), len(p.HB), r.cfg.NVisible, r.cfg.NHidden)
	}
	r.W = mat.DenseCopyOf(p.W)
	r.VB = append([]float64(nil), p.VB...)
	r.HB = append([]float64(nil), p.HB...)
	r.dW.Zero()
	for i := range r.dVB {
		r.dVB[i] = 0
	}
	for i := range r.dHB {
		r.dHB[i] = 0
	}
	return nil
}

// Checkpoint captures the RBM, including optimizer state, in a checkpoint file.
func (r *RBM) Checkpoint(half bool) (*checkpoint.File, error) {
	cfg, err := json.Marshal(r.cfg)
	if err != nil {
		return nil, errors.Wrap(err, "rbm: encode config")
	}
	f := &checkpoint.File{Kind: Kind, RunID: r.runID, Epoch: r.epoch, Iter: r.iter, Config: cfg}
	f.Matrix("W", r.W, half)
	f.Vector("vb", r.VB, half)
	f.Vector("hb", r.HB, half)
	f.Matrix("dW", r.dW, half)
	f.Vector("dvb", r.dVB, half)
	f.Vector("dhb", r.dHB, half)
	f.Vector("q", r.q, half)
	return f, nil
}

// Save writes the RBM to dir.
func (r *RBM) Save(dir string) error {
	f, err := r.Checkpoint(false)
	if err != nil {
		return err
	}
	return checkpoint.Save(dir, f)
}

// Restore rebuilds an RBM from a checkpoint file.
func Restore(f *checkpoint.File) (*RBM, error) {
	if f.Kind != Kind {
		return nil, errors.Errorf("rbm: checkpoint holds a %q", f.Kind)
	}
	var cfg Config
	if err := json.Unmarshal(f.Config, &cfg); err != nil {
		return nil, errors.Wrap(err, "rbm: decode config")
	}
	r, err := New(cfg)
	if err != nil {
		return nil, err
	}
	if r.W, err = f.GetMatrix("W"); err != nil {
		return nil, err
	}
	if r.VB, err = f.GetVector("vb"); err != nil {
		return nil, err
	}
	if r.HB, err = f.GetVector("hb"); err != nil {
		return nil, err
	}
	// optimizer state is optional, exported parameters may omit it
	if dW, err := f.GetMatrix("dW"); err == nil {
		r.dW = dW
	}
	if v, err := f.GetVector("dvb"); err == nil {
		r.dVB = v
	}
	if v, err := f.GetVector("dhb"); err == nil {
		r.dHB = v
	}
	if v, err := f.GetVector("q"); err == nil {
		r.q = v
	}
	if err := r.checkShapes(); err != nil {
		return nil, err
	}
	r.epoch, r.iter, r.runID = f.Epoch, f.Iter, f.RunID
	return r, nil
}

func (r *RBM) checkShapes() error {
	nv, nh := r.W.Dims()
	dv, dh := r.dW.Dims()
	if nv != r.cfg.NVisible || nh != r.cfg.NHidden || dv != nv || dh != nh ||
		len(r.VB) != nv || len(r.dVB) != nv || len(r.HB) != nh || len(r.dHB) != nh || len(r.q) != nh {
		return errors.Errorf("rbm: checkpoint tensors do not match %dx%d", r.cfg.NVisible, r.cfg.NHidden)
	}
	return nil
}

// Load reads the RBM saved in dir.
func Load(dir string) (*RBM, error) {
	f, err := checkpoint.Load(dir)
	if err != nil {
		return nil, err
	}
	return Restore(f)
}

// Load replaces the parameters, optimizer state and counters of the receiver
// with the RBM saved in dir. The architecture must match. The receiver keeps
// its training schedule (learning rate, momentum, Gibbs steps, batch size,
// max_epoch, L2 and sparsity settings) and its sampling generator, so a
// resumed run can be extended or retuned from the command line.
func (r *RBM) Load(dir string) error {
	loaded, err := Load(dir)
	if err != nil {
		return err
	}
	if err := sameArchitecture(r.cfg, loaded.cfg); err != nil {
		return errors.Wrap(err, dir)
	}
	loaded.cfg = withSchedule(loaded.cfg, r.cfg)
	loaded.rng = r.rng
	*r = *loaded
	return nil
}

func sameArchitecture(want, got Config) error {
	if want.NVisible != got.NVisible || want.NHidden != got.NHidden {
		return errors.Errorf("rbm: checkpoint is %dx%d, model is %dx%d",
			got.NVisible, got.NHidden, want.NVisible, want.NHidden)
	}
	wv, gv := unitSpec(want.Visible), unitSpec(got.Visible)
	wh, gh := unitSpec(want.Hidden), unitSpec(got.Hidden)
	if wv != gv || wh != gh || want.DBMFirst != got.DBMFirst || want.DBMLast != got.DBMLast {
		return errors.Errorf("rbm: checkpoint units %s-%s do not match model units %s-%s", gv.Type, gh.Type, wv.Type, wh.Type)
	}
	return nil
}

// unitSpec normalizes s so that defaulted and explicit values compare equal.
func unitSpec(s layer.Spec) layer.Spec {
	u, err := s.Units()
	if err != nil {
		return s
	}
	return layer.SpecOf(u)
}

// withSchedule returns saved with the training hyperparameters of current.
func withSchedule(saved, current Config) Config {
	saved.GibbsSteps = current.GibbsSteps
	saved.LearningRate = current.LearningRate
	saved.Momentum = current.Momentum
	saved.BatchSize = current.BatchSize
	saved.MaxEpoch = current.MaxEpoch
	saved.L2 = current.L2
	saved.SampleVStates = current.SampleVStates
	saved.SampleHStates = current.SampleHStates
	saved.SparsityTarget = current.SparsityTarget
	saved.SparsityCost = current.SparsityCost
	saved.SparsityDamping = current.SparsityDamping
	return saved
}
