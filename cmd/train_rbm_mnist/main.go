package main

import "context"
import "log/slog"
import "os"
import "os/signal"
import "syscall"

import "github.com/pkg/errors"
import "github.com/spf13/cobra"
import "gonum.org/v1/gonum/mat"

import "github.com/neurlang/boltzmann/config"
import "github.com/neurlang/boltzmann/datasets/mnist"
import "github.com/neurlang/boltzmann/logging"
import "github.com/neurlang/boltzmann/parallel"
import "github.com/neurlang/boltzmann/rbm"
import "github.com/neurlang/boltzmann/trainer"

func main() {
	if err := newCommand().Execute(); err != nil {
		slog.Error("training failed", "error", err)
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	var path, profile string
	var verbose bool
	var o config.MNISTOverrides

	cmd := &cobra.Command{
		Use:           "train_rbm_mnist",
		Short:         "Train a Bernoulli RBM on MNIST",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.New(os.Stderr, verbose)
			slog.SetDefault(log)

			cfg, err := config.LoadMNIST(path)
			if err != nil {
				return err
			}
			cfg.ApplyOverrides(o)
			if err := cfg.Validate(); err != nil {
				return err
			}

			stop, err := startProfile(profile)
			if err != nil {
				return err
			}
			defer stop()

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return run(ctx, cfg, log)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&path, "config", "c", "", "YAML config file")
	f.BoolVarP(&verbose, "verbose", "v", false, "log debug messages")
	f.StringVar(&profile, "cpuprofile", "", "write a CPU profile to this file")
	f.StringVar(&o.Data, "data", "", "directory with the MNIST IDX files")
	f.StringVar(&o.ModelDir, "model-dir", "", "checkpoint directory")
	f.IntVar(&o.NHidden, "n-hidden", 0, "number of hidden units")
	f.IntVar(&o.Epochs, "epochs", 0, "number of epochs to train")
	f.IntVar(&o.BatchSize, "batch-size", 0, "mini-batch size")
	f.Int64Var(&o.Seed, "seed", 0, "random seed")
	f.BoolVar(&o.Resume, "resume", false, "continue from the checkpoint in the model directory")
	return cmd
}

func run(ctx context.Context, cfg *config.MNIST, log *slog.Logger) error {
	brand, features := parallel.Describe()
	log.Info("cpu", "brand", brand, "features", features, "threads", parallel.Threads())

	X, _, err := mnist.Load(cfg.Data, false, cfg.Verify)
	if err != nil {
		return err
	}
	Xtest, _, err := mnist.Load(cfg.Data, true, cfg.Verify)
	if err != nil {
		return err
	}
	var Xval *mat.Dense
	if n, _ := Xtest.Dims(); cfg.NVal > 0 && n > 0 {
		Xval = mat.DenseCopyOf(Xtest.Slice(0, min(n, cfg.NVal), 0, mnist.ImgSize*mnist.ImgSize))
	}
	rows, _ := X.Dims()
	log.Info("loaded data", "train", rows, "val", cfg.NVal)

	rc := cfg.RBM
	if cfg.VBFromData {
		rc.VBInit = rbm.BernoulliVBInit(X)
	}
	r, err := rbm.New(rc)
	if err != nil {
		return err
	}
	resumed, err := trainer.Resume(r, cfg.Resume, cfg.ModelDir)
	if err != nil {
		return errors.Wrap(err, "resume")
	}
	if resumed {
		log.Info("resumed", "dir", cfg.ModelDir, "epoch", r.Epoch(), "run", r.RunID())
	}

	opts := cfg.Train
	opts.Dir = cfg.ModelDir
	opts.Logger = log
	history, err := trainer.Fit(ctx, r, X, Xval, opts)
	if err != nil {
		return err
	}
	log.Info("done", "epochs", len(history), "run", r.RunID(), "dir", cfg.ModelDir)
	return nil
}
