package trainer

import "time"

// Window accumulates throughput and reconstruction error across iterations.
type Window struct {
	samples int
	compute time.Duration
	steps   int
	msre    float64
}

// Record adds one mini-batch update to the window.
func (w *Window) Record(batchSize int, compute time.Duration, msre float64) {
	w.samples += batchSize
	w.compute += compute
	w.steps++
	w.msre += msre
}

// Snapshot returns aggregated metrics and resets the window.
func (w *Window) Snapshot() Snapshot {
	snap := Snapshot{Steps: w.steps}
	if w.compute > 0 {
		snap.SamplesPerSec = float64(w.samples) / w.compute.Seconds()
	}
	if w.steps > 0 {
		snap.AvgComputeMS = (w.compute.Seconds() * 1000) / float64(w.steps)
		snap.MSRE = w.msre / float64(w.steps)
	}
	*w = Window{}
	return snap
}

// Snapshot represents loggable throughput metrics.
type Snapshot struct {
	Steps         int
	SamplesPerSec float64
	AvgComputeMS  float64
	MSRE          float64
}
