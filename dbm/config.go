package dbm

import "github.com/pkg/errors"

import "github.com/neurlang/boltzmann/rbm"

// Config holds the joint training hyperparameters of a DBM. The layer
// shapes and unit types come from the pretrained RBMs.
type Config struct {
	// NParticles is the number of persistent Gibbs chains.
	NParticles int             `json:"n_particles" yaml:"n_particles"`
	GibbsSteps rbm.IntSchedule `json:"n_gibbs_steps" yaml:"n_gibbs_steps"`

	MaxMFUpdates int     `json:"max_mf_updates" yaml:"max_mf_updates"`
	MFTol        float64 `json:"mf_tol" yaml:"mf_tol"`

	LearningRate rbm.Schedule `json:"learning_rate" yaml:"learning_rate"`
	Momentum     rbm.Schedule `json:"momentum" yaml:"momentum"`
	BatchSize    int          `json:"batch_size" yaml:"batch_size"`
	MaxEpoch     int          `json:"max_epoch" yaml:"max_epoch"`
	L2           float64      `json:"l2" yaml:"l2"`

	// MaxNorm bounds the L2 norm of every weight column, 0 disables it.
	MaxNorm float64 `json:"max_norm" yaml:"max_norm"`

	Seed int64 `json:"random_seed" yaml:"random_seed"`
}

// DefaultConfig returns the settings used for the CIFAR-10 DBM.
func DefaultConfig() Config {
	return Config{
		NParticles:   100,
		GibbsSteps:   rbm.IntSchedule{1},
		MaxMFUpdates: 50,
		MFTol:        1e-7,
		LearningRate: rbm.Schedule{5e-4},
		Momentum:     rbm.Geomspace(0.5, 0.9, 10),
		BatchSize:    100,
		MaxEpoch:     300,
		L2:           1e-7,
		MaxNorm:      6,
	}
}

// Validate checks the config is trainable.
func (c *Config) Validate() error {
	switch {
	case c.NParticles <= 0:
		return errors.Errorf("dbm: n_particles must be > 0 (got %d)", c.NParticles)
	case c.BatchSize <= 0:
		return errors.Errorf("dbm: batch_size must be > 0 (got %d)", c.BatchSize)
	case c.MaxMFUpdates <= 0:
		return errors.Errorf("dbm: max_mf_updates must be > 0 (got %d)", c.MaxMFUpdates)
	case len(c.LearningRate) == 0 || len(c.Momentum) == 0:
		return errors.New("dbm: learning_rate and momentum need at least one value")
	case c.L2 < 0 || c.MaxNorm < 0:
		return errors.New("dbm: l2 and max_norm must be >= 0")
	}
	return nil
}
