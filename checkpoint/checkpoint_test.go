package checkpoint

import "bytes"
import "encoding/json"
import "testing"

import "github.com/pkg/errors"
import "github.com/stretchr/testify/assert"
import "github.com/stretchr/testify/require"
import "gonum.org/v1/gonum/mat"

func TestWriteRead(t *testing.T) {
	f := &File{Kind: "rbm", RunID: "abc", Epoch: 3, Iter: 30, Config: json.RawMessage(`{"n_visible":2}`)}
	f.Matrix("W", mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6}), false)
	f.Vector("vb", []float64{0.5, -0.25}, true)

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	g, err := Read(&buf)
	require.NoError(t, err)

	assert.Equal(t, "rbm", g.Kind)
	assert.Equal(t, 3, g.Epoch)
	assert.JSONEq(t, `{"n_visible":2}`, string(g.Config))

	w, err := g.GetMatrix("W")
	require.NoError(t, err)
	assert.True(t, mat.Equal(w, mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6})))

	vb, err := g.GetVector("vb")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, -0.25}, vb)

	_, err = g.GetVector("hb")
	assert.Error(t, err)
}

func TestHalfPrecisionRounding(t *testing.T) {
	f := &File{Kind: "rbm"}
	f.Vector("x", []float64{0.1, 1000.3}, true)
	v, err := f.GetVector("x")
	require.NoError(t, err)
	assert.InDelta(t, 0.1, v[0], 1e-3)
	assert.InDelta(t, 1000.3, v[1], 0.5)
}

func TestSaveLoad(t *testing.T) {
	dir := t.TempDir()
	assert.False(t, Exists(dir))
	_, err := Load(dir)
	assert.True(t, errors.Is(err, ErrNotFound))

	f := &File{Kind: "dbm", Epoch: 1}
	f.Vector("hb", []float64{1, 2}, false)
	require.NoError(t, Save(dir, f))
	assert.True(t, Exists(dir))

	g, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "dbm", g.Kind)
	assert.False(t, g.Saved.IsZero())
}
