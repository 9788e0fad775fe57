// Package pretrain runs the CIFAR-10 DBM pipeline: 26 Gaussian RBMs on
// image patches are stitched into a large Gaussian RBM, a multinomial RBM is
// trained on its features, and both are fine-tuned jointly as a DBM.
//
// Every stage checkpoints into its own directory and is skipped or resumed
// when that directory already holds a model.
package pretrain

import "context"
import "fmt"
import "io"
import "log/slog"
import "math"
import "path/filepath"
import "strconv"
import "time"

import "github.com/olekukonko/tablewriter"
import "github.com/pkg/errors"
import "golang.org/x/sync/errgroup"
import "gonum.org/v1/gonum/mat"

import "github.com/neurlang/boltzmann/assemble"
import "github.com/neurlang/boltzmann/checkpoint"
import "github.com/neurlang/boltzmann/config"
import "github.com/neurlang/boltzmann/datasets"
import "github.com/neurlang/boltzmann/datasets/augment"
import "github.com/neurlang/boltzmann/datasets/cifar10"
import "github.com/neurlang/boltzmann/dbm"
import "github.com/neurlang/boltzmann/parallel"
import "github.com/neurlang/boltzmann/rbm"
import "github.com/neurlang/boltzmann/trainer"

// StatsKind tags the checkpoint holding the standardization statistics.
const StatsKind = "standardize"

// Summary describes one trained or loaded model.
type Summary struct {
	Stage    string
	Model    string
	Hidden   int
	Epochs   int
	Loaded   bool
	ValMSRE  float64
	Duration time.Duration
}

// Data is the prepared training and validation data.
type Data struct {
	Train, Val *mat.Dense
	Mean, Std  []float64
}

// Pipeline runs the stages with one configuration.
type Pipeline struct {
	Config *config.CIFAR
	Logger *slog.Logger

	layout    assemble.Layout
	summaries []Summary
}

// New returns a pipeline for cfg logging to log (slog.Default when nil).
func New(cfg *config.CIFAR, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{Config: cfg, Logger: log, layout: assemble.CIFARLayout()}
}

// Summaries returns one entry per model handled so far.
func (p *Pipeline) Summaries() []Summary { return p.summaries }

// Prepare is stage 0. X holds CIFAR-10 images scaled to [0, 1]. The rows are
// shuffled, the first NTrain become the training set and the last NVal the
// validation set. The training set is augmented tenfold when configured,
// then both sets are standardized with the training statistics.
func (p *Pipeline) Prepare(X *mat.Dense) (*Data, error) {
	cfg := p.Config
	n, cols := X.Dims()
	if n == 0 {
		return nil, errors.New("pretrain: no images")
	}
	if cols != cifar10.Shape.Size() {
		return nil, errors.Errorf("pretrain: images have %d values, want %d", cols, cifar10.Shape.Size())
	}
	all := mat.DenseCopyOf(X)
	datasets.Shuffle(all, cfg.ShuffleSeed)
	nTrain, nVal := min(n, cfg.NTrain), min(n, cfg.NVal)
	train := mat.DenseCopyOf(all.Slice(0, nTrain, 0, cifar10.Shape.Size()))
	val := mat.DenseCopyOf(all.Slice(n-nVal, n, 0, cifar10.Shape.Size()))

	if cfg.Augment {
		start := time.Now()
		aug, err := augment.Augment10(train, cifar10.Shape, cfg.AugmentSeed)
		if err != nil {
			return nil, err
		}
		train = aug
		rows, _ := train.Dims()
		p.Logger.Info("augmented data", "rows", rows, "took", time.Since(start).Round(time.Millisecond))
	}

	mean, std := datasets.Standardize(train)
	datasets.ApplyStandardize(train, mean, std)
	datasets.ApplyStandardize(val, mean, std)
	p.Logger.Info("standardized data", "mean0", mean[0], "std0", std[0])

	if cfg.DBMDir != "" {
		f := &checkpoint.File{Kind: StatsKind}
		f.Vector("mean", mean, false)
		f.Vector("std", std, false)
		if err := checkpoint.Save(filepath.Join(cfg.DBMDir, "standardize"), f); err != nil {
			return nil, err
		}
	}
	return &Data{Train: train, Val: val, Mean: mean, Std: std}, nil
}

func (p *Pipeline) options(dir string, log *slog.Logger) trainer.Options {
	opts := p.Config.Train
	opts.Dir = dir
	opts.Logger = log
	return opts
}

// fit resumes the model from dir when allowed and trains it to MaxEpoch.
func (p *Pipeline) fit(ctx context.Context, m trainer.Model, dir string, X, Xval *mat.Dense, log *slog.Logger) (Summary, error) {
	start := time.Now()
	s := Summary{ValMSRE: math.NaN()}
	if l, ok := m.(trainer.Loader); ok {
		loaded, err := trainer.Resume(l, p.Config.Resume, dir)
		if err != nil {
			return s, errors.Wrapf(err, "pretrain: resume %s", dir)
		}
		s.Loaded = loaded && m.Epoch() >= m.MaxEpoch()
		if loaded {
			log.Info("loaded checkpoint", "dir", dir, "epoch", m.Epoch())
		}
	}
	history, err := trainer.Fit(ctx, m, X, Xval, p.options(dir, log))
	if err != nil {
		return s, err
	}
	if len(history) > 0 {
		s.ValMSRE = history[len(history)-1].ValMSRE
	}
	if s.Loaded && Xval != nil {
		s.ValMSRE = m.MSRE(Xval)
	}
	s.Epochs = m.Epoch()
	s.Duration = time.Since(start)
	return s, nil
}

// SmallDir is the model directory of patch RBM id.
func (p *Pipeline) SmallDir(id int) string {
	return p.Config.SmallDirPrefix + strconv.Itoa(id)
}

// SmallRBMs is stage 1: one Gaussian RBM per patch of the layout, trained
// concurrently.
func (p *Pipeline) SmallRBMs(ctx context.Context, d *Data) ([]*rbm.RBM, error) {
	cfg := p.Config
	out := make([]*rbm.RBM, len(p.layout.Patches))
	sums := make([]Summary, len(out))
	workers := cfg.Workers
	if workers <= 0 {
		workers = parallel.Threads()
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, patch := range p.layout.Patches {
		i, patch := i, patch
		g.Go(func() error {
			log := p.Logger.With("stage", 1, "rbm", i)
			X, err := assemble.Extract(d.Train, cifar10.Shape, patch)
			if err != nil {
				return err
			}
			Xval, err := assemble.Extract(d.Val, cifar10.Shape, patch)
			if err != nil {
				return err
			}
			rc := cfg.Small
			rc.Seed = cfg.SmallSeedBase + int64(i)
			r, err := rbm.New(rc)
			if err != nil {
				return err
			}
			s, err := p.fit(ctx, r, p.SmallDir(i), X, Xval, log)
			if err != nil {
				return errors.Wrapf(err, "small RBM %d", i)
			}
			s.Stage, s.Model, s.Hidden = "1", fmt.Sprintf("small #%d", i), rc.NHidden
			out[i], sums[i] = r, s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	p.summaries = append(p.summaries, sums...)
	return out, nil
}

// LargeRBM is stage 2: the patch RBMs are assembled into the initial
// parameters of the large Gaussian RBM, which is then trained on whole images.
func (p *Pipeline) LargeRBM(ctx context.Context, smalls []*rbm.RBM, d *Data) (*rbm.RBM, error) {
	params := make([]rbm.Params, len(smalls))
	for i, s := range smalls {
		params[i] = s.Params()
	}
	large, err := assemble.LargeWeights(p.layout, params)
	if err != nil {
		return nil, err
	}
	rc := p.Config.Large
	rc.W, rc.VBInit, rc.HBInit = large.W, rbm.Vector(large.VB), rbm.Vector(large.HB)
	_, rc.NHidden = large.W.Dims()
	r, err := rbm.New(rc)
	if err != nil {
		return nil, err
	}
	s, err := p.fit(ctx, r, p.Config.LargeDir, d.Train, d.Val, p.Logger.With("stage", 2))
	if err != nil {
		return nil, errors.Wrap(err, "large RBM")
	}
	s.Stage, s.Model, s.Hidden = "2", "gaussian RBM", rc.NHidden
	p.summaries = append(p.summaries, s)
	return r, nil
}

// TopRBM is stage 3: a multinomial RBM trained on the hidden means of the
// large RBM.
func (p *Pipeline) TopRBM(ctx context.Context, large *rbm.RBM, d *Data) (*rbm.RBM, error) {
	log := p.Logger.With("stage", 3)
	start := time.Now()
	H := large.Transform(d.Train)
	Hval := large.Transform(d.Val)
	log.Info("extracted features", "took", time.Since(start).Round(time.Millisecond))

	r, err := rbm.New(p.Config.Top)
	if err != nil {
		return nil, err
	}
	s, err := p.fit(ctx, r, p.Config.TopDir, H, Hval, log)
	if err != nil {
		return nil, errors.Wrap(err, "top RBM")
	}
	s.Stage, s.Model, s.Hidden = "3", r.Hidden().String()+" RBM", p.Config.Top.NHidden
	p.summaries = append(p.summaries, s)
	return r, nil
}

// JointDBM is stage 4: the two RBMs are stacked and trained as one DBM.
func (p *Pipeline) JointDBM(ctx context.Context, large, top *rbm.RBM, d *Data) (*dbm.DBM, error) {
	m, err := dbm.New(large, top, p.Config.DBM)
	if err != nil {
		return nil, err
	}
	s, err := p.fit(ctx, m, p.Config.DBMDir, d.Train, d.Val, p.Logger.With("stage", 4))
	if err != nil {
		return nil, errors.Wrap(err, "DBM")
	}
	s.Stage, s.Model, s.Hidden = "4", "DBM", p.Config.Top.NHidden
	p.summaries = append(p.summaries, s)
	return m, nil
}

// Run executes all stages on the CIFAR-10 images X.
func (p *Pipeline) Run(ctx context.Context, X *mat.Dense) (*dbm.DBM, error) {
	d, err := p.Prepare(X)
	if err != nil {
		return nil, err
	}
	smalls, err := p.SmallRBMs(ctx, d)
	if err != nil {
		return nil, err
	}
	large, err := p.LargeRBM(ctx, smalls, d)
	if err != nil {
		return nil, err
	}
	top, err := p.TopRBM(ctx, large, d)
	if err != nil {
		return nil, err
	}
	return p.JointDBM(ctx, large, top, d)
}

// WriteSummary renders the summaries as a table.
func (p *Pipeline) WriteSummary(w io.Writer) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"STAGE", "MODEL", "HIDDEN", "EPOCHS", "VAL MSRE", "SOURCE", "TOOK"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	for _, s := range p.summaries {
		source := "trained"
		if s.Loaded {
			source = "loaded"
		}
		msre := "-"
		if !math.IsNaN(s.ValMSRE) {
			msre = strconv.FormatFloat(s.ValMSRE, 'f', 5, 64)
		}
		table.Append([]string{
			s.Stage, s.Model, strconv.Itoa(s.Hidden), strconv.Itoa(s.Epochs), msre, source,
			s.Duration.Round(time.Millisecond).String(),
		})
	}
	table.Render()
}
