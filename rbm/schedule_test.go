package rbm

import "testing"

import "github.com/stretchr/testify/assert"
import "github.com/stretchr/testify/require"
import "gopkg.in/yaml.v3"

func TestScheduleAt(t *testing.T) {
	s := Schedule{0.1, 0.2, 0.3}
	assert.Equal(t, 0.1, s.At(0))
	assert.Equal(t, 0.1, s.At(1))
	assert.Equal(t, 0.3, s.At(3))
	assert.Equal(t, 0.3, s.At(100))
	assert.Equal(t, 0.0, Schedule(nil).At(1))
	assert.Equal(t, 5, IntSchedule{1, 5}.At(7))
}

func TestGeomspace(t *testing.T) {
	s := Geomspace(0.5, 0.9, 8)
	require.Len(t, s, 8)
	assert.Equal(t, 0.5, s[0])
	assert.Equal(t, 0.9, s[7])
	for i := 1; i < len(s); i++ {
		assert.Greater(t, s[i], s[i-1])
		if i > 1 {
			assert.InDelta(t, s[i]/s[i-1], s[i-1]/s[i-2], 1e-9)
		}
	}
}

func TestScheduleYAML(t *testing.T) {
	var v struct {
		LR Schedule    `yaml:"lr"`
		K  IntSchedule `yaml:"k"`
		VB Vector      `yaml:"vb"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("lr: 0.01\nk: [1, 3, 5]\nvb: [0.5, 1]\n"), &v))
	assert.Equal(t, Schedule{0.01}, v.LR)
	assert.Equal(t, IntSchedule{1, 3, 5}, v.K)
	assert.Equal(t, Vector{0.5, 1}, v.VB)

	assert.Error(t, yaml.Unmarshal([]byte("lr: {a: 1}\n"), &v))
}
