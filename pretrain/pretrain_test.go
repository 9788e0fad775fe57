package pretrain

import "bytes"
import "context"
import "io"
import "log/slog"
import "math/rand"
import "path/filepath"
import "testing"

import "github.com/stretchr/testify/assert"
import "github.com/stretchr/testify/require"
import "gonum.org/v1/gonum/mat"

import "github.com/neurlang/boltzmann/checkpoint"
import "github.com/neurlang/boltzmann/config"
import "github.com/neurlang/boltzmann/rbm"

func tinyConfig(t *testing.T) *config.CIFAR {
	dir := t.TempDir()
	cfg := config.DefaultCIFAR()
	cfg.NTrain, cfg.NVal = 4, 2
	cfg.Workers = 4
	cfg.SmallDirPrefix = filepath.Join(dir, "small_")
	cfg.LargeDir = filepath.Join(dir, "large")
	cfg.TopDir = filepath.Join(dir, "top")
	cfg.DBMDir = filepath.Join(dir, "dbm")

	cfg.Small.NHidden = 2
	cfg.Small.MaxEpoch = 1
	cfg.Small.BatchSize = 8
	cfg.Large.NHidden = 26 * 2
	cfg.Large.MaxEpoch = 1
	cfg.Large.BatchSize = 8
	cfg.Top.NVisible = 26 * 2
	cfg.Top.NHidden = 3
	cfg.Top.Hidden.Samples = 4
	cfg.Top.MaxEpoch = 1
	cfg.Top.BatchSize = 8
	cfg.DBM.NParticles = 4
	cfg.DBM.MaxMFUpdates = 5
	cfg.DBM.MaxEpoch = 1
	cfg.DBM.BatchSize = 8
	cfg.Train.NBatchesForFEG = 1
	cfg.Train.ValMetricsEveryEpoch = 1
	require.NoError(t, cfg.Validate())
	return &cfg
}

func images(n int) *mat.Dense {
	rng := rand.New(rand.NewSource(3))
	X := mat.NewDense(n, 3072, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < 3072; j++ {
			X.Set(i, j, rng.Float64())
		}
	}
	return X
}

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPrepare(t *testing.T) {
	cfg := tinyConfig(t)
	p := New(cfg, quiet())
	d, err := p.Prepare(images(5))
	require.NoError(t, err)

	r, c := d.Train.Dims()
	assert.Equal(t, 40, r)
	assert.Equal(t, 3072, c)
	r, _ = d.Val.Dims()
	assert.Equal(t, 2, r)

	col := mat.Col(nil, 100, d.Train)
	var s float64
	for _, v := range col {
		s += v
	}
	assert.InDelta(t, 0, s/float64(len(col)), 1e-9)

	f, err := checkpoint.Load(filepath.Join(cfg.DBMDir, "standardize"))
	require.NoError(t, err)
	assert.Equal(t, StatsKind, f.Kind)
	std, err := f.GetVector("std")
	require.NoError(t, err)
	assert.Equal(t, d.Std, std)

	cfg.Augment = false
	d, err = New(cfg, quiet()).Prepare(images(5))
	require.NoError(t, err)
	r, _ = d.Train.Dims()
	assert.Equal(t, 4, r)
}

func TestRunAndReload(t *testing.T) {
	cfg := tinyConfig(t)
	X := images(6)

	p := New(cfg, quiet())
	m, err := p.Run(context.Background(), X)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Epoch())
	sums := p.Summaries()
	require.Len(t, sums, 29)
	for _, s := range sums {
		assert.False(t, s.Loaded, s.Model)
	}
	assert.Equal(t, "4", sums[28].Stage)
	assert.True(t, checkpoint.Exists(p.SmallDir(25)))

	small, err := rbm.Load(p.SmallDir(3))
	require.NoError(t, err)
	assert.Equal(t, int64(9003), small.Config().Seed)

	again := New(cfg, quiet())
	_, err = again.Run(context.Background(), X)
	require.NoError(t, err)
	for _, s := range again.Summaries() {
		assert.True(t, s.Loaded, s.Model)
	}

	var buf bytes.Buffer
	again.WriteSummary(&buf)
	assert.Contains(t, buf.String(), "small #25")
	assert.Contains(t, buf.String(), "loaded")
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(tinyConfig(t), quiet()).Run(ctx, images(4))
	assert.ErrorIs(t, err, context.Canceled)
}
