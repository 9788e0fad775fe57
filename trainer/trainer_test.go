package trainer

import "context"
import "math"
import "testing"
import "time"

import "github.com/stretchr/testify/assert"
import "github.com/stretchr/testify/require"
import "gonum.org/v1/gonum/mat"

import "github.com/neurlang/boltzmann/rbm"

// counter is a Model recording what Fit asks of it.
type counter struct {
	epoch, max, batch int
	iter              int
	rows              []int
	cancel            func()
}

func (c *counter) BatchSize() int          { return c.batch }
func (c *counter) MaxEpoch() int           { return c.max }
func (c *counter) Epoch() int              { return c.epoch }
func (c *counter) Iter() int               { return c.iter }
func (c *counter) NextEpoch() int          { c.epoch++; return c.epoch }
func (c *counter) MSRE(*mat.Dense) float64 { return 0.5 }
func (c *counter) TrainBatch(x *mat.Dense) float64 {
	r, _ := x.Dims()
	c.rows = append(c.rows, r)
	c.iter++
	if c.cancel != nil && len(c.rows) == 2 {
		c.cancel()
	}
	return 1
}

func TestSampleSize(t *testing.T) {
	assert.Equal(t, 0, SampleSize(0, 95))
	assert.Equal(t, 1000, SampleSize(1000, 0))
	assert.Equal(t, 1000, SampleSize(1000, 100))
	n := SampleSize(100000, 95)
	assert.Greater(t, n, 300)
	assert.Less(t, n, 400)
	assert.Equal(t, 3, SampleSize(3, 99))
}

func TestWindowSnapshotResets(t *testing.T) {
	var w Window
	w.Record(10, 100*time.Millisecond, 0.2)
	w.Record(10, 100*time.Millisecond, 0.4)
	s := w.Snapshot()
	assert.Equal(t, 2, s.Steps)
	assert.InDelta(t, 100, s.SamplesPerSec, 1e-9)
	assert.InDelta(t, 100, s.AvgComputeMS, 1e-9)
	assert.InDelta(t, 0.3, s.MSRE, 1e-12)
	assert.Equal(t, Snapshot{}, w.Snapshot())
}

func TestFitBatchesAndEpochs(t *testing.T) {
	m := &counter{max: 3, batch: 4}
	opts := DefaultOptions()
	opts.Shuffle = false
	var seen []int
	opts.OnEpoch = func(s EpochStats) { seen = append(seen, s.Epoch) }

	history, err := Fit(context.Background(), m, mat.NewDense(10, 2, nil), nil, opts)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, seen)
	assert.Equal(t, []int{4, 4, 2, 4, 4, 2, 4, 4, 2}, m.rows)
	require.Len(t, history, 3)
	assert.Equal(t, 9, history[2].Iter)
	assert.Equal(t, 1.0, history[0].TrainMSRE)
	assert.True(t, math.IsNaN(history[0].ValMSRE))
	assert.True(t, math.IsNaN(history[0].TrainPLL))
}

// scored reports, as its pseudo-log-likelihood, how many updates preceded the call.
type scored struct {
	counter
	at []int
}

func (s *scored) PseudoLogLikelihood(*mat.Dense) (float64, error) {
	s.at = append(s.at, s.iter)
	return -float64(s.iter), nil
}

func TestFitContinuesIterationCount(t *testing.T) {
	m := &scored{counter: counter{max: 2, batch: 2, iter: 5}}
	opts := DefaultOptions()
	opts.Shuffle = false
	opts.TrainMetricsEveryIter = 4

	history, err := Fit(context.Background(), m, mat.NewDense(6, 1, nil), nil, opts)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 8, history[0].Iter)
	assert.Equal(t, 11, history[1].Iter)

	// iteration 8 is scored once, before its own update
	assert.Equal(t, []int{7}, m.at)
	assert.Equal(t, -7.0, history[0].TrainPLL)
	assert.True(t, math.IsNaN(history[1].TrainPLL))
}

func TestFitStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := &counter{max: 5, batch: 1, cancel: cancel}
	history, err := Fit(ctx, m, mat.NewDense(10, 1, nil), nil, DefaultOptions())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, history)
	assert.Len(t, m.rows, 2)
}

func TestFitRejectsEmptyData(t *testing.T) {
	_, err := Fit(context.Background(), &counter{max: 1, batch: 1}, nil, nil, DefaultOptions())
	assert.Error(t, err)
}

func TestFitNeedsSaverForDir(t *testing.T) {
	opts := DefaultOptions()
	opts.Dir = t.TempDir()
	_, err := Fit(context.Background(), &counter{max: 1, batch: 2}, mat.NewDense(2, 1, nil), nil, opts)
	assert.Error(t, err)
}

func binary(n int) *mat.Dense {
	x := mat.NewDense(n, 6, nil)
	for i := 0; i < n; i++ {
		if i%2 == 0 {
			x.SetRow(i, []float64{1, 1, 1, 0, 0, 0})
		} else {
			x.SetRow(i, []float64{0, 0, 0, 1, 1, 1})
		}
	}
	return x
}

func TestFitRBMMetricsAndResume(t *testing.T) {
	cfg := rbm.DefaultConfig()
	cfg.NVisible, cfg.NHidden = 6, 4
	cfg.BatchSize = 5
	cfg.MaxEpoch = 4
	cfg.Seed = 7
	r, err := rbm.New(cfg)
	require.NoError(t, err)

	dir := t.TempDir()
	opts := DefaultOptions()
	opts.TrainMetricsEveryIter = 1
	opts.Dir = dir
	history, err := Fit(context.Background(), r, binary(20), binary(10), opts)
	require.NoError(t, err)
	require.Len(t, history, 4)
	last := history[3]
	assert.Less(t, last.TrainPLL, 0.0)
	assert.False(t, math.IsNaN(last.ValMSRE))
	assert.False(t, math.IsNaN(last.ValPLL))
	assert.False(t, math.IsNaN(last.FEG))
	assert.True(t, math.IsNaN(history[0].FEG))

	fresh, err := rbm.New(cfg)
	require.NoError(t, err)
	loaded, err := Resume(fresh, true, dir)
	require.NoError(t, err)
	assert.True(t, loaded)
	assert.Equal(t, 4, fresh.Epoch())
	assert.Equal(t, r.RunID(), fresh.RunID())

	// nothing left to do once MaxEpoch is reached
	more, err := Fit(context.Background(), fresh, binary(20), nil, opts)
	require.NoError(t, err)
	assert.Empty(t, more)

	loaded, err = Resume(fresh, false, dir)
	require.NoError(t, err)
	assert.False(t, loaded)
	loaded, err = Resume(fresh, true, t.TempDir())
	require.NoError(t, err)
	assert.False(t, loaded)
}

func TestResumeExtendsTraining(t *testing.T) {
	cfg := rbm.DefaultConfig()
	cfg.NVisible, cfg.NHidden = 6, 4
	cfg.BatchSize = 5
	cfg.MaxEpoch = 2
	cfg.Seed = 7
	r, err := rbm.New(cfg)
	require.NoError(t, err)

	dir := t.TempDir()
	opts := DefaultOptions()
	opts.Dir = dir
	_, err = Fit(context.Background(), r, binary(20), nil, opts)
	require.NoError(t, err)

	cfg.MaxEpoch = 4
	cfg.LearningRate = rbm.Schedule{0.5}
	more, err := rbm.New(cfg)
	require.NoError(t, err)
	loaded, err := Resume(more, true, dir)
	require.NoError(t, err)
	require.True(t, loaded)
	assert.Equal(t, 2, more.Epoch())
	assert.Equal(t, 4, more.MaxEpoch())
	assert.Equal(t, rbm.Schedule{0.5}, more.Config().LearningRate)
	assert.Equal(t, r.Iter(), more.Iter())

	history, err := Fit(context.Background(), more, binary(20), nil, opts)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 3, history[0].Epoch)
	assert.Equal(t, r.Iter()+8, history[1].Iter)

	saved, err := rbm.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 4, saved.Epoch())
	assert.Equal(t, 4, saved.Config().MaxEpoch)
}
