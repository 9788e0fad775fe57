package trainer

import "context"
import "log/slog"
import "math"
import "math/rand"
import "time"

import "github.com/pkg/errors"
import "gonum.org/v1/gonum/mat"

import "github.com/neurlang/boltzmann/datasets"
import "github.com/neurlang/boltzmann/dense"

// Options controls metrics, shuffling and checkpointing of Fit.
type Options struct {
	MSRE bool `yaml:"msre"`
	PLL  bool `yaml:"pll"`
	FEG  bool `yaml:"feg"`

	TrainMetricsEveryIter int `yaml:"train_metrics_every_iter"`
	ValMetricsEveryEpoch  int `yaml:"val_metrics_every_epoch"`
	FEGEveryEpoch         int `yaml:"feg_every_epoch"`
	NBatchesForFEG        int `yaml:"n_batches_for_feg"`

	// ValSignificance, when in (0, 100), scores validation metrics on a random subset.
	ValSignificance byte `yaml:"val_significance"`

	Shuffle bool  `yaml:"shuffle"`
	Seed    int64 `yaml:"seed"`

	// Dir receives a checkpoint after every epoch when set.
	Dir string `yaml:"-"`

	Logger  *slog.Logger     `yaml:"-"`
	OnEpoch func(EpochStats) `yaml:"-"`
}

// DefaultOptions mirrors the metric cadence used for the CIFAR-10 experiments.
func DefaultOptions() Options {
	return Options{
		MSRE:                  true,
		PLL:                   true,
		FEG:                   true,
		TrainMetricsEveryIter: 10,
		ValMetricsEveryEpoch:  1,
		FEGEveryEpoch:         2,
		NBatchesForFEG:        10,
		Shuffle:               true,
	}
}

// EpochStats summarizes one epoch. Metrics that were not computed are NaN.
type EpochStats struct {
	Epoch         int
	Iter          int
	TrainMSRE     float64
	TrainPLL      float64
	ValMSRE       float64
	ValPLL        float64
	FEG           float64
	Duration      time.Duration
	SamplesPerSec float64
}

func (s EpochStats) attrs() []any {
	out := []any{"epoch", s.Epoch, "iter", s.Iter}
	for _, kv := range []struct {
		k string
		v float64
	}{
		{"msre", s.TrainMSRE},
		{"pll", s.TrainPLL},
		{"val_msre", s.ValMSRE},
		{"val_pll", s.ValPLL},
		{"feg", s.FEG},
	} {
		if !math.IsNaN(kv.v) {
			out = append(out, kv.k, kv.v)
		}
	}
	return append(out, "took", s.Duration.Round(time.Millisecond), "samples_per_sec", math.Round(s.SamplesPerSec))
}

// Fit trains m on the rows of X until its epoch counter reaches MaxEpoch or
// ctx is done. Xval may be nil. It returns the statistics of every epoch run.
func Fit(ctx context.Context, m Model, X, Xval *mat.Dense, opts Options) ([]EpochStats, error) {
	if X == nil {
		return nil, errors.New("trainer: no training data")
	}
	rows, _ := X.Dims()
	if rows == 0 {
		return nil, errors.New("trainer: no training data")
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	if opts.TrainMetricsEveryIter <= 0 {
		opts.TrainMetricsEveryIter = 1
	}
	rng := rand.New(rand.NewSource(opts.Seed))
	evaluate := NewEvaluateFunc(m, Xval, opts, rng)
	pll, hasPLL := m.(PseudoLikelihooder)
	hasPLL = hasPLL && opts.PLL
	fe, hasFE := m.(FreeEnergier)
	hasFE = hasFE && opts.FEG && Xval != nil

	var history []EpochStats
	var window Window
	for m.Epoch() < m.MaxEpoch() {
		epoch := m.NextEpoch()
		start := time.Now()
		stats := EpochStats{
			Epoch: epoch, TrainPLL: math.NaN(), ValMSRE: math.NaN(), ValPLL: math.NaN(), FEG: math.NaN(),
		}

		var order []int
		if opts.Shuffle {
			order = rng.Perm(rows)
		}
		var msres, plls []float64
		var stop error
		datasets.BatchIter(rows, m.BatchSize(), func(s, e int) bool {
			if err := ctx.Err(); err != nil {
				stop = err
				return false
			}
			var xb *mat.Dense
			if order != nil {
				xb = dense.Gather(X, order[s:e])
			} else {
				xb = dense.Rows(X, s, e)
			}
			// scored on the parameters the update starts from
			if hasPLL && (m.Iter()+1)%opts.TrainMetricsEveryIter == 0 {
				v, err := pll.PseudoLogLikelihood(xb)
				if err != nil {
					log.Debug("pseudo-log-likelihood disabled", "error", err)
					hasPLL = false
				} else {
					plls = append(plls, v)
				}
			}
			t := time.Now()
			msre := m.TrainBatch(xb)
			window.Record(e-s, time.Since(t), msre)
			msres = append(msres, msre)
			return true
		})
		if stop != nil {
			return history, stop
		}

		stats.Iter = m.Iter()
		stats.TrainMSRE = mean(msres)
		if len(plls) > 0 {
			stats.TrainPLL = mean(plls)
		}
		if Xval != nil && opts.ValMetricsEveryEpoch > 0 && epoch%opts.ValMetricsEveryEpoch == 0 {
			v := evaluate()
			stats.ValMSRE, stats.ValPLL = v.MSRE, v.PLL
		}
		if hasFE && opts.FEGEveryEpoch > 0 && epoch%opts.FEGEveryEpoch == 0 {
			stats.FEG = FreeEnergyGap(fe, X, Xval, m.BatchSize(), opts.NBatchesForFEG)
		}
		snap := window.Snapshot()
		stats.Duration = time.Since(start)
		stats.SamplesPerSec = snap.SamplesPerSec

		log.Info("epoch done", stats.attrs()...)
		history = append(history, stats)
		if opts.OnEpoch != nil {
			opts.OnEpoch(stats)
		}

		if opts.Dir != "" {
			saver, ok := m.(Saver)
			if !ok {
				return history, errors.Errorf("trainer: %T cannot be checkpointed", m)
			}
			if err := saver.Save(opts.Dir); err != nil {
				return history, errors.Wrapf(err, "trainer: checkpoint epoch %d", epoch)
			}
		}
	}
	return history, nil
}
