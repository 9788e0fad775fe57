package dense

import "math"
import "testing"

import "github.com/stretchr/testify/assert"
import "gonum.org/v1/gonum/mat"

func TestAddRowAndColMeans(t *testing.T) {
	m := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	AddRow(m, []float64{10, 20})
	assert.Equal(t, []float64{11, 22, 13, 24}, m.RawMatrix().Data)
	assert.Equal(t, []float64{12, 23}, ColMeans(m))
}

func TestMeanSquaredDiff(t *testing.T) {
	a := mat.NewDense(1, 2, []float64{1, 1})
	b := mat.NewDense(1, 2, []float64{0, 3})
	assert.InDelta(t, 2.5, MeanSquaredDiff(a, b), 1e-12)
}

func TestGatherRows(t *testing.T) {
	m := mat.NewDense(3, 1, []float64{1, 2, 3})
	assert.Equal(t, []float64{3, 1}, Gather(m, []int{2, 0}).RawMatrix().Data)
	r := Rows(m, 1, 3)
	n, _ := r.Dims()
	assert.Equal(t, 2, n)
	assert.Equal(t, 2.0, r.At(0, 0))
}

func TestFill(t *testing.T) {
	v, ok := Fill(3, []float64{2})
	assert.True(t, ok)
	assert.Equal(t, []float64{2, 2, 2}, v)
	v, ok = Fill(2, nil)
	assert.True(t, ok)
	assert.Equal(t, []float64{0, 0}, v)
	_, ok = Fill(3, []float64{1, 2})
	assert.False(t, ok)
}

func TestClipColumnNorms(t *testing.T) {
	m := mat.NewDense(2, 2, []float64{3, 0.1, 4, 0.1})
	ClipColumnNorms(m, 1)
	assert.InDelta(t, 1, math.Hypot(m.At(0, 0), m.At(1, 0)), 1e-12)
	assert.Equal(t, 0.1, m.At(0, 1))
}
