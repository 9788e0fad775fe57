package dbm

import "encoding/json"
import "math/rand"

import "github.com/pkg/errors"
import "gonum.org/v1/gonum/mat"

import "github.com/neurlang/boltzmann/checkpoint"
import "github.com/neurlang/boltzmann/layer"

// Kind tags DBM checkpoints.
const Kind = "dbm"

type saved struct {
	Config  Config     `json:"config"`
	Visible layer.Spec `json:"visible"`
	Hidden1 layer.Spec `json:"hidden1"`
	Hidden2 layer.Spec `json:"hidden2"`
}

// Checkpoint captures the DBM with its optimizer state and chains.
func (d *DBM) Checkpoint(half bool) (*checkpoint.File, error) {
	cfg, err := json.Marshal(saved{
		Config:  d.cfg,
		Visible: layer.SpecOf(d.visible),
		Hidden1: layer.SpecOf(d.hidden1),
		Hidden2: layer.SpecOf(d.hidden2),
	})
	if err != nil {
		return nil, errors.Wrap(err, "dbm: encode config")
	}
	f := &checkpoint.File{Kind: Kind, RunID: d.runID, Epoch: d.epoch, Iter: d.iter, Config: cfg}
	for _, m := range []struct {
		name string
		m    *mat.Dense
	}{
		{"W1", d.W1}, {"W2", d.W2}, {"dW1", d.dW1}, {"dW2", d.dW2},
		{"v_particles", d.pv}, {"h1_particles", d.ph1}, {"h2_particles", d.ph2},
	} {
		f.Matrix(m.name, m.m, half)
	}
	f.Vector("vb", d.VB, half)
	f.Vector("hb1", d.HB1, half)
	f.Vector("hb2", d.HB2, half)
	f.Vector("dvb", d.dVB, half)
	f.Vector("dhb1", d.dHB1, half)
	f.Vector("dhb2", d.dHB2, half)
	return f, nil
}

// Save writes the DBM to dir.
func (d *DBM) Save(dir string) error {
	f, err := d.Checkpoint(false)
	if err != nil {
		return err
	}
	return checkpoint.Save(dir, f)
}

// Restore rebuilds a DBM from a checkpoint file.
func Restore(f *checkpoint.File) (*DBM, error) {
	if f.Kind != Kind {
		return nil, errors.Errorf("dbm: checkpoint holds a %q", f.Kind)
	}
	var s saved
	if err := json.Unmarshal(f.Config, &s); err != nil {
		return nil, errors.Wrap(err, "dbm: decode config")
	}
	if err := s.Config.Validate(); err != nil {
		return nil, err
	}
	d := &DBM{
		cfg:   s.Config,
		epoch: f.Epoch,
		iter:  f.Iter,
		runID: f.RunID,
		rng:   rand.New(rand.NewSource(s.Config.Seed)),
	}
	var err error
	if d.visible, err = s.Visible.Units(); err != nil {
		return nil, err
	}
	if d.hidden1, err = s.Hidden1.Units(); err != nil {
		return nil, err
	}
	if d.hidden2, err = s.Hidden2.Units(); err != nil {
		return nil, err
	}
	mats := map[string]**mat.Dense{
		"W1": &d.W1, "W2": &d.W2, "dW1": &d.dW1, "dW2": &d.dW2,
		"v_particles": &d.pv, "h1_particles": &d.ph1, "h2_particles": &d.ph2,
	}
	for name, dst := range mats {
		if *dst, err = f.GetMatrix(name); err != nil {
			return nil, err
		}
	}
	vecs := map[string]*[]float64{
		"vb": &d.VB, "hb1": &d.HB1, "hb2": &d.HB2, "dvb": &d.dVB, "dhb1": &d.dHB1, "dhb2": &d.dHB2,
	}
	for name, dst := range vecs {
		if *dst, err = f.GetVector(name); err != nil {
			return nil, err
		}
	}
	if err := d.checkShapes(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *DBM) checkShapes() error {
	nv, n1 := d.W1.Dims()
	m1, n2 := d.W2.Dims()
	pr, pc := d.pv.Dims()
	_, h1c := d.ph1.Dims()
	_, h2c := d.ph2.Dims()
	if m1 != n1 || len(d.VB) != nv || len(d.HB1) != n1 || len(d.HB2) != n2 ||
		len(d.dVB) != nv || len(d.dHB1) != n1 || len(d.dHB2) != n2 ||
		pr != d.cfg.NParticles || pc != nv || h1c != n1 || h2c != n2 {
		return errors.Errorf("dbm: checkpoint tensors do not fit a %d-%d-%d machine", nv, n1, n2)
	}
	if !sameDims(d.dW1, d.W1) || !sameDims(d.dW2, d.W2) {
		return errors.New("dbm: momentum buffers do not match the weights")
	}
	return nil
}

func sameDims(a, b *mat.Dense) bool {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	return ar == br && ac == bc
}

// Load reads the DBM saved in dir.
func Load(dir string) (*DBM, error) {
	f, err := checkpoint.Load(dir)
	if err != nil {
		return nil, err
	}
	return Restore(f)
}

// Load replaces the parameters, chains, optimizer state and counters of the
// receiver with the DBM saved in dir. Layer sizes, unit types and the number
// of particles must match. The receiver keeps its training schedule and its
// random stream.
func (d *DBM) Load(dir string) error {
	loaded, err := Load(dir)
	if err != nil {
		return err
	}
	if err := d.sameArchitecture(loaded); err != nil {
		return errors.Wrap(err, dir)
	}
	loaded.cfg = d.cfg
	loaded.rng = d.rng
	*d = *loaded
	return nil
}

func (d *DBM) sameArchitecture(o *DBM) error {
	nv, n1 := d.W1.Dims()
	_, n2 := d.W2.Dims()
	ov, o1 := o.W1.Dims()
	_, o2 := o.W2.Dims()
	if nv != ov || n1 != o1 || n2 != o2 {
		return errors.Errorf("dbm: checkpoint is %d-%d-%d, model is %d-%d-%d", ov, o1, o2, nv, n1, n2)
	}
	if layer.SpecOf(d.visible) != layer.SpecOf(o.visible) ||
		layer.SpecOf(d.hidden1) != layer.SpecOf(o.hidden1) ||
		layer.SpecOf(d.hidden2) != layer.SpecOf(o.hidden2) {
		return errors.New("dbm: checkpoint unit types do not match the model")
	}
	if d.cfg.NParticles != o.cfg.NParticles {
		return errors.Errorf("dbm: checkpoint has %d particles, model %d", o.cfg.NParticles, d.cfg.NParticles)
	}
	return nil
}
