package rbm

import "math"

import "github.com/pkg/errors"
import "gopkg.in/yaml.v3"

// Schedule is a per-epoch value. Epochs past the end reuse the last value,
// so a single element is a constant.
type Schedule []float64

// At returns the value for epoch, counted from 1.
func (s Schedule) At(epoch int) float64 {
	if len(s) == 0 {
		return 0
	}
	i := epoch - 1
	if i < 0 {
		i = 0
	}
	if i >= len(s) {
		i = len(s) - 1
	}
	return s[i]
}

// Geomspace returns n values spaced evenly on a log scale from start to stop.
func Geomspace(start, stop float64, n int) Schedule {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return Schedule{start}
	}
	out := make(Schedule, n)
	ls, le := math.Log(start), math.Log(stop)
	for i := range out {
		out[i] = math.Exp(ls + (le-ls)*float64(i)/float64(n-1))
	}
	out[0], out[n-1] = start, stop
	return out
}

// UnmarshalYAML accepts a scalar or a sequence.
func (s *Schedule) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var f float64
		if err := value.Decode(&f); err != nil {
			return errors.Wrap(err, "schedule")
		}
		*s = Schedule{f}
		return nil
	case yaml.SequenceNode:
		var fs []float64
		if err := value.Decode(&fs); err != nil {
			return errors.Wrap(err, "schedule")
		}
		*s = fs
		return nil
	}
	return errors.Errorf("line %d: schedule must be a number or a list", value.Line)
}

// IntSchedule is Schedule for integer values such as the number of Gibbs steps.
type IntSchedule []int

// At returns the value for epoch, counted from 1.
func (s IntSchedule) At(epoch int) int {
	if len(s) == 0 {
		return 0
	}
	i := epoch - 1
	if i < 0 {
		i = 0
	}
	if i >= len(s) {
		i = len(s) - 1
	}
	return s[i]
}

// UnmarshalYAML accepts a scalar or a sequence.
func (s *IntSchedule) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var n int
		if err := value.Decode(&n); err != nil {
			return errors.Wrap(err, "schedule")
		}
		*s = IntSchedule{n}
		return nil
	case yaml.SequenceNode:
		var ns []int
		if err := value.Decode(&ns); err != nil {
			return errors.Wrap(err, "schedule")
		}
		*s = ns
		return nil
	}
	return errors.Errorf("line %d: schedule must be an integer or a list", value.Line)
}
