package config

import "github.com/pkg/errors"

import "github.com/neurlang/boltzmann/assemble"
import "github.com/neurlang/boltzmann/dbm"
import "github.com/neurlang/boltzmann/layer"
import "github.com/neurlang/boltzmann/rbm"
import "github.com/neurlang/boltzmann/trainer"

// Stages is the number of stages with per-stage epochs, batch size and L2:
// the large Gaussian RBM, the top RBM and the DBM.
const Stages = 3

// CIFAR configures the CIFAR-10 pretraining pipeline.
type CIFAR struct {
	// Data is the directory holding the binary CIFAR-10 batches.
	Data   string `yaml:"data"`
	NTrain int    `yaml:"n_train"`
	NVal   int    `yaml:"n_val"`

	ShuffleSeed int64 `yaml:"shuffle_seed"`
	Augment     bool  `yaml:"augment"`
	AugmentSeed int64 `yaml:"augment_seed"`

	// SmallDirPrefix + id is the model directory of patch RBM id.
	SmallDirPrefix string `yaml:"small_dirpath_prefix"`
	SmallSeedBase  int64  `yaml:"small_seed_base"`
	// Workers bounds how many patch RBMs train at once, 0 means one per core.
	Workers  int    `yaml:"workers"`
	LargeDir string `yaml:"large_dir"`
	TopDir   string `yaml:"top_dir"`
	DBMDir   string `yaml:"dbm_dir"`
	Resume   bool   `yaml:"resume"`

	Small rbm.Config `yaml:"small"`
	Large rbm.Config `yaml:"large"`
	Top   rbm.Config `yaml:"top"`
	DBM   dbm.Config `yaml:"dbm"`

	Train trainer.Options `yaml:"train"`
}

// DefaultCIFAR returns the settings of the 26 patch CIFAR-10 experiment.
func DefaultCIFAR() CIFAR {
	momentum := rbm.Geomspace(0.5, 0.9, 8)
	gaussian := layer.Spec{Type: "gaussian", Sigma: 1}

	small := rbm.Config{
		NVisible:      8 * 8 * 3,
		NHidden:       300,
		Visible:       gaussian,
		WStd:          0.001,
		VBInit:        rbm.Vector{0},
		HBInit:        rbm.Vector{0},
		GibbsSteps:    rbm.IntSchedule{1},
		LearningRate:  rbm.Schedule{1e-3},
		Momentum:      momentum,
		BatchSize:     48,
		MaxEpoch:      100,
		L2:            1e-3,
		SampleVStates: true,
		SampleHStates: true,
		DBMFirst:      true,
	}

	large := small
	large.NVisible = 32 * 32 * 3
	large.NHidden = 26 * 300
	large.LearningRate = rbm.Schedule{5e-4}
	large.MaxEpoch = 64
	large.BatchSize = 48
	large.L2 = 1e-4
	large.Seed = 1111

	top := rbm.Config{
		NVisible:        26 * 300,
		NHidden:         512,
		Hidden:          layer.Spec{Type: "multinomial", Samples: 512},
		WStd:            0.01,
		HBInit:          rbm.Vector{0},
		GibbsSteps:      rbm.IntSchedule{1},
		LearningRate:    rbm.Schedule{1e-3},
		Momentum:        momentum,
		BatchSize:       48,
		MaxEpoch:        120,
		L2:              1e-3,
		SampleVStates:   true,
		SampleHStates:   true,
		SparsityDamping: 0.9,
		DBMLast:         true,
		Seed:            2222,
	}

	d := dbm.DefaultConfig()
	d.BatchSize = 100
	d.MaxEpoch = 300
	d.L2 = 1e-7
	d.Momentum = momentum
	d.Seed = 3333

	t := trainer.DefaultOptions()
	t.PLL = false
	t.TrainMetricsEveryIter = 1000
	t.ValMetricsEveryEpoch = 2
	t.FEGEveryEpoch = 2
	t.NBatchesForFEG = 50
	t.Seed = 1337

	return CIFAR{
		Data:           "data/cifar-10-batches-bin",
		NTrain:         49000,
		NVal:           1000,
		ShuffleSeed:    42,
		Augment:        true,
		AugmentSeed:    1337,
		SmallDirPrefix: "models/rbm_cifar_small_",
		SmallSeedBase:  9000,
		LargeDir:       "models/grbm_cifar",
		TopDir:         "models/mrbm_cifar",
		DBMDir:         "models/dbm_cifar",
		Resume:         true,
		Small:          small,
		Large:          large,
		Top:            top,
		DBM:            d,
		Train:          t,
	}
}

// CIFAROverrides are command line values, zero or empty means unset. Per
// stage lists with one value apply it to every stage.
type CIFAROverrides struct {
	Data           string
	NTrain         int
	NVal           int
	SmallEpochs    int
	SmallBatchSize int
	SmallL2        float64
	SmallLR        []float64
	SmallDirPrefix string
	Workers        int
	Epochs         []int
	BatchSize      []int
	L2             []float64
}

func broadcastInt(v []int) []int {
	if len(v) == 1 {
		return []int{v[0], v[0], v[0]}
	}
	return v
}

func broadcastFloat(v []float64) []float64 {
	if len(v) == 1 {
		return []float64{v[0], v[0], v[0]}
	}
	return v
}

// ApplyOverrides updates c using any set override.
func (c *CIFAR) ApplyOverrides(o CIFAROverrides) error {
	if o.Data != "" {
		c.Data = o.Data
	}
	if o.NTrain > 0 {
		c.NTrain = o.NTrain
	}
	if o.NVal > 0 {
		c.NVal = o.NVal
	}
	if o.SmallEpochs > 0 {
		c.Small.MaxEpoch = o.SmallEpochs
	}
	if o.SmallBatchSize > 0 {
		c.Small.BatchSize = o.SmallBatchSize
	}
	if o.SmallL2 > 0 {
		c.Small.L2 = o.SmallL2
	}
	if len(o.SmallLR) > 0 {
		c.Small.LearningRate = append(rbm.Schedule(nil), o.SmallLR...)
	}
	if o.SmallDirPrefix != "" {
		c.SmallDirPrefix = o.SmallDirPrefix
	}
	if o.Workers > 0 {
		c.Workers = o.Workers
	}
	if len(o.Epochs) > 0 {
		e := broadcastInt(o.Epochs)
		if len(e) != Stages {
			return errors.Errorf("epochs needs 1 or %d values (got %d)", Stages, len(o.Epochs))
		}
		c.Large.MaxEpoch, c.Top.MaxEpoch, c.DBM.MaxEpoch = e[0], e[1], e[2]
	}
	if len(o.BatchSize) > 0 {
		b := broadcastInt(o.BatchSize)
		if len(b) != Stages {
			return errors.Errorf("batch_size needs 1 or %d values (got %d)", Stages, len(o.BatchSize))
		}
		c.Large.BatchSize, c.Top.BatchSize, c.DBM.BatchSize = b[0], b[1], b[2]
	}
	if len(o.L2) > 0 {
		l := broadcastFloat(o.L2)
		if len(l) != Stages {
			return errors.Errorf("l2 needs 1 or %d values (got %d)", Stages, len(o.L2))
		}
		c.Large.L2, c.Top.L2, c.DBM.L2 = l[0], l[1], l[2]
	}
	return nil
}

// Validate verifies the stages fit together.
func (c *CIFAR) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.Data == "" {
		return errors.New("data directory must be set")
	}
	if c.NTrain <= 0 || c.NVal <= 0 {
		return errors.Errorf("n_train and n_val must be > 0 (got %d, %d)", c.NTrain, c.NVal)
	}
	if c.SmallDirPrefix == "" {
		return errors.New("small_dirpath_prefix must be set")
	}
	if c.Small.NVisible != 8*8*3 {
		return errors.Errorf("small.n_visible must be %d (got %d)", 8*8*3, c.Small.NVisible)
	}
	if c.Large.NVisible != 32*32*3 {
		return errors.Errorf("large.n_visible must be %d (got %d)", 32*32*3, c.Large.NVisible)
	}
	patches := len(assemble.CIFARLayout().Patches)
	if want := patches * c.Small.NHidden; c.Large.NHidden != want {
		return errors.Errorf("large.n_hidden must be %d x small.n_hidden = %d (got %d)", patches, want, c.Large.NHidden)
	}
	if c.Top.NVisible != c.Large.NHidden {
		return errors.Errorf("top.n_visible must equal large.n_hidden %d (got %d)", c.Large.NHidden, c.Top.NVisible)
	}
	for name, r := range map[string]*rbm.Config{"small": &c.Small, "large": &c.Large, "top": &c.Top} {
		if err := r.Validate(); err != nil {
			return errors.Wrap(err, name)
		}
	}
	return errors.Wrap(c.DBM.Validate(), "dbm")
}

// LoadCIFAR reads and validates a CIFAR config. An empty path yields the defaults.
func LoadCIFAR(path string) (*CIFAR, error) {
	cfg := DefaultCIFAR()
	if err := decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
