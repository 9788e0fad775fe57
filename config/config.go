// Package config loads the YAML run configurations of the training programs.
//
// A file only needs the keys it changes: Load starts from the defaults and
// decodes the file over them, command line overrides are applied last.
package config

import "io"
import "os"

import "github.com/pkg/errors"
import "gopkg.in/yaml.v3"

import "github.com/neurlang/boltzmann/layer"
import "github.com/neurlang/boltzmann/rbm"
import "github.com/neurlang/boltzmann/trainer"

// MNIST configures the Bernoulli RBM trained on MNIST digits.
type MNIST struct {
	// Data is the directory holding the IDX files.
	Data   string `yaml:"data"`
	Verify bool   `yaml:"verify"`
	// NVal rows of the test split are used for validation.
	NVal int `yaml:"n_val"`
	// VBFromData initializes visible biases from pixel frequencies.
	VBFromData bool   `yaml:"vb_from_data"`
	ModelDir   string `yaml:"model_dir"`
	Resume     bool   `yaml:"resume"`

	RBM   rbm.Config      `yaml:"rbm"`
	Train trainer.Options `yaml:"train"`
}

// DefaultMNIST returns the MNIST defaults.
func DefaultMNIST() MNIST {
	r := rbm.DefaultConfig()
	r.NVisible, r.NHidden = 784, 1024
	r.LearningRate = rbm.Schedule{0.05}
	r.Momentum = rbm.Geomspace(0.5, 0.9, 10)
	r.BatchSize = 10
	r.MaxEpoch = 3
	r.L2 = 1e-5
	r.SparsityCost = 0
	r.Seed = 1337

	t := trainer.DefaultOptions()
	t.TrainMetricsEveryIter = 1000
	t.ValMetricsEveryEpoch = 1
	t.FEGEveryEpoch = 1
	t.NBatchesForFEG = 20
	t.Seed = 1337

	return MNIST{
		Data:       "data/mnist",
		Verify:     true,
		NVal:       5000,
		VBFromData: true,
		ModelDir:   "models/rbm_mnist",
		RBM:        r,
		Train:      t,
	}
}

// MNISTOverrides are command line values, zero means unset.
type MNISTOverrides struct {
	Data      string
	ModelDir  string
	NHidden   int
	Epochs    int
	BatchSize int
	Seed      int64
	Resume    bool
}

// ApplyOverrides updates c using any non-zero override.
func (c *MNIST) ApplyOverrides(o MNISTOverrides) {
	if o.Data != "" {
		c.Data = o.Data
	}
	if o.ModelDir != "" {
		c.ModelDir = o.ModelDir
	}
	if o.NHidden > 0 {
		c.RBM.NHidden = o.NHidden
	}
	if o.Epochs > 0 {
		c.RBM.MaxEpoch = o.Epochs
	}
	if o.BatchSize > 0 {
		c.RBM.BatchSize = o.BatchSize
	}
	if o.Seed != 0 {
		c.RBM.Seed = o.Seed
		c.Train.Seed = o.Seed
	}
	if o.Resume {
		c.Resume = true
	}
}

// Validate verifies the config is runnable.
func (c *MNIST) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.Data == "" {
		return errors.New("data directory must be set")
	}
	if c.NVal < 0 {
		return errors.Errorf("n_val must be >= 0 (got %d)", c.NVal)
	}
	if c.RBM.NVisible != 784 {
		return errors.Errorf("rbm.n_visible must be 784 for MNIST (got %d)", c.RBM.NVisible)
	}
	if _, ok := mustUnits(c.RBM.Visible).(layer.Bernoulli); !ok {
		return errors.Errorf("rbm.visible must be bernoulli for MNIST (got %q)", c.RBM.Visible.Type)
	}
	return errors.Wrap(c.RBM.Validate(), "rbm")
}

func mustUnits(s layer.Spec) layer.Units {
	u, _ := s.Units()
	return u
}

// LoadMNIST reads and validates an MNIST config. An empty path yields the defaults.
func LoadMNIST(path string) (*MNIST, error) {
	cfg := DefaultMNIST()
	if err := decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func decode(path string, into any) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open config")
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(into); err != nil && err != io.EOF {
		return errors.Wrap(err, "parse config")
	}
	return nil
}
