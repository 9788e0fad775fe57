package rbm

import "github.com/pkg/errors"
import "gonum.org/v1/gonum/mat"
import "gopkg.in/yaml.v3"

import "github.com/neurlang/boltzmann/layer"

// Vector is a bias initializer: one value broadcast to every unit, or one value per unit.
type Vector []float64

// UnmarshalYAML accepts a scalar or a sequence.
func (v *Vector) UnmarshalYAML(value *yaml.Node) error {
	var s Schedule
	if err := s.UnmarshalYAML(value); err != nil {
		return err
	}
	*v = Vector(s)
	return nil
}

// Config holds the architecture and training hyperparameters of an RBM.
type Config struct {
	NVisible int        `json:"n_visible" yaml:"n_visible"`
	NHidden  int        `json:"n_hidden" yaml:"n_hidden"`
	Visible  layer.Spec `json:"visible" yaml:"visible"`
	Hidden   layer.Spec `json:"hidden" yaml:"hidden"`

	// WStd is the standard deviation of the initial weights, unused when W is set.
	WStd float64 `json:"w_std" yaml:"w_std"`
	// W, when set, is the initial NVisible x NHidden weight matrix.
	W      *mat.Dense `json:"-" yaml:"-"`
	VBInit Vector     `json:"vb_init,omitempty" yaml:"vb_init"`
	HBInit Vector     `json:"hb_init,omitempty" yaml:"hb_init"`

	GibbsSteps   IntSchedule `json:"n_gibbs_steps" yaml:"n_gibbs_steps"`
	LearningRate Schedule    `json:"learning_rate" yaml:"learning_rate"`
	Momentum     Schedule    `json:"momentum" yaml:"momentum"`
	BatchSize    int         `json:"batch_size" yaml:"batch_size"`
	MaxEpoch     int         `json:"max_epoch" yaml:"max_epoch"`
	L2           float64     `json:"l2" yaml:"l2"`

	SampleVStates bool `json:"sample_v_states" yaml:"sample_v_states"`
	SampleHStates bool `json:"sample_h_states" yaml:"sample_h_states"`

	SparsityTarget  float64 `json:"sparsity_target" yaml:"sparsity_target"`
	SparsityCost    float64 `json:"sparsity_cost" yaml:"sparsity_cost"`
	SparsityDamping float64 `json:"sparsity_damping" yaml:"sparsity_damping"`

	// DBMFirst doubles the bottom-up input, DBMLast the top-down input,
	// as needed when the RBM is pretrained for the bottom or top layer of a DBM.
	DBMFirst bool `json:"dbm_first" yaml:"dbm_first"`
	DBMLast  bool `json:"dbm_last" yaml:"dbm_last"`

	Seed int64 `json:"random_seed" yaml:"random_seed"`
}

// DefaultConfig is a Bernoulli-Bernoulli RBM sized for MNIST.
func DefaultConfig() Config {
	return Config{
		NVisible:        784,
		NHidden:         256,
		WStd:            0.01,
		GibbsSteps:      IntSchedule{1},
		LearningRate:    Schedule{0.1},
		Momentum:        Schedule{0.9},
		BatchSize:       10,
		MaxEpoch:        10,
		SampleHStates:   true,
		SparsityTarget:  0.1,
		SparsityDamping: 0.9,
	}
}

// Validate checks the config is trainable.
func (c *Config) Validate() error {
	if c.NVisible <= 0 || c.NHidden <= 0 {
		return errors.Errorf("rbm: layer sizes must be > 0 (got %d x %d)", c.NVisible, c.NHidden)
	}
	if c.BatchSize <= 0 {
		return errors.Errorf("rbm: batch_size must be > 0 (got %d)", c.BatchSize)
	}
	if c.MaxEpoch < 0 {
		return errors.Errorf("rbm: max_epoch must be >= 0 (got %d)", c.MaxEpoch)
	}
	if len(c.LearningRate) == 0 {
		return errors.New("rbm: learning_rate is empty")
	}
	for _, k := range c.GibbsSteps {
		if k <= 0 {
			return errors.Errorf("rbm: n_gibbs_steps must be > 0 (got %d)", k)
		}
	}
	for _, m := range c.Momentum {
		if m < 0 || m >= 1 {
			return errors.Errorf("rbm: momentum %v is not in [0, 1)", m)
		}
	}
	if c.L2 < 0 {
		return errors.Errorf("rbm: l2 must be >= 0 (got %v)", c.L2)
	}
	if c.SparsityCost > 0 && (c.SparsityTarget <= 0 || c.SparsityTarget >= 1) {
		return errors.Errorf("rbm: sparsity_target %v is not in (0, 1)", c.SparsityTarget)
	}
	if c.W != nil {
		r, k := c.W.Dims()
		if r != c.NVisible || k != c.NHidden {
			return errors.Errorf("rbm: initial W is %dx%d, want %dx%d", r, k, c.NVisible, c.NHidden)
		}
	}
	if _, err := c.Visible.Units(); err != nil {
		return errors.Wrap(err, "rbm: visible")
	}
	if _, err := c.Hidden.Units(); err != nil {
		return errors.Wrap(err, "rbm: hidden")
	}
	return nil
}
