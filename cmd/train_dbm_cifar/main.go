package main

import "context"
import "log/slog"
import "os"
import "os/signal"
import "syscall"

import "github.com/spf13/cobra"

import "github.com/neurlang/boltzmann/config"
import "github.com/neurlang/boltzmann/datasets/cifar10"
import "github.com/neurlang/boltzmann/logging"
import "github.com/neurlang/boltzmann/parallel"
import "github.com/neurlang/boltzmann/pretrain"

func main() {
	if err := newCommand().Execute(); err != nil {
		slog.Error("training failed", "error", err)
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	var path, profile string
	var verbose bool
	var o config.CIFAROverrides

	cmd := &cobra.Command{
		Use:           "train_dbm_cifar",
		Short:         "Pretrain and train a DBM on CIFAR-10",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.New(os.Stderr, verbose)
			slog.SetDefault(log)

			cfg, err := config.LoadCIFAR(path)
			if err != nil {
				return err
			}
			if err := cfg.ApplyOverrides(o); err != nil {
				return err
			}
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
	f.StringVar(&o.Data, "data", "", "directory with the binary CIFAR-10 batches")
	f.IntVar(&o.NTrain, "n-train", 0, "number of training examples")
	f.IntVar(&o.NVal, "n-val", 0, "number of validation examples")
	f.Float64SliceVar(&o.SmallLR, "small-lr", nil, "learning rate of the patch RBMs, or one per epoch")
	f.IntVar(&o.SmallEpochs, "small-epochs", 0, "epochs to train the patch RBMs")
	f.IntVar(&o.SmallBatchSize, "small-batch-size", 0, "mini-batch size of the patch RBMs")
	f.Float64Var(&o.SmallL2, "small-l2", 0, "L2 weight decay of the patch RBMs")
	f.StringVar(&o.SmallDirPrefix, "small-dirpath-prefix", "", "directory prefix of the patch RBMs")
	f.IntVar(&o.Workers, "workers", 0, "patch RBMs trained at once (0 = one per core)")
	f.IntSliceVar(&o.Epochs, "epochs", nil, "epochs of the large RBM, top RBM and DBM")
	f.IntSliceVar(&o.BatchSize, "batch-size", nil, "batch sizes of the large RBM, top RBM and DBM")
	f.Float64SliceVar(&o.L2, "l2", nil, "L2 weight decay of the large RBM, top RBM and DBM")
	return cmd
}

func run(ctx context.Context, cfg *config.CIFAR, log *slog.Logger) error {
	brand, features := parallel.Describe()
	log.Info("cpu", "brand", brand, "features", features, "threads", parallel.Threads())

	X, _, err := cifar10.Load(cfg.Data, cifar10.TrainFiles...)
	if err != nil {
		return err
	}
	rows, _ := X.Dims()
	log.Info("loaded data", "images", rows)

	p := pretrain.New(cfg, log)
	_, err = p.Run(ctx, X)
	p.WriteSummary(os.Stdout)
	return err
}
