package layer

import "math"
import "math/rand"
import "testing"

import "github.com/stretchr/testify/assert"
import "github.com/stretchr/testify/require"
import "gonum.org/v1/gonum/mat"

func TestSigmoidStable(t *testing.T) {
	assert.InDelta(t, 0.5, Sigmoid(0), 1e-12)
	assert.Equal(t, 1.0, Sigmoid(800))
	assert.Equal(t, 0.0, Sigmoid(-800))
	assert.False(t, math.IsNaN(Sigmoid(-1e308)))
}

func TestSoftplus(t *testing.T) {
	assert.InDelta(t, math.Log(2), Softplus(0), 1e-12)
	assert.InDelta(t, 1000, Softplus(1000), 1e-9)
	assert.InDelta(t, 0, Softplus(-1000), 1e-12)
}

func TestLogSumExp(t *testing.T) {
	assert.InDelta(t, 1000+math.Log(2), LogSumExp([]float64{1000, 1000}), 1e-9)
	assert.True(t, math.IsInf(LogSumExp(nil), -1))
}

func TestBernoulliSample(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	means := mat.NewDense(1, 4, []float64{0, 1, 0, 1})
	dst := mat.NewDense(1, 4, nil)
	Bernoulli{}.Sample(dst, means, rng)
	assert.Equal(t, []float64{0, 1, 0, 1}, dst.RawRowView(0))
}

func TestBernoulliFreeEnergy(t *testing.T) {
	pre := mat.NewDense(2, 2, []float64{0, 0, 1000, -1000})
	fe := Bernoulli{}.HiddenFreeEnergy(pre)
	require.Len(t, fe, 2)
	assert.InDelta(t, -2*math.Log(2), fe[0], 1e-12)
	assert.InDelta(t, -1000, fe[1], 1e-9)
}

func TestGaussianEnergy(t *testing.T) {
	v := mat.NewDense(1, 2, []float64{1, 3})
	e := Gaussian{StdDev: 2}.VisibleEnergy(v, []float64{1, 1})
	assert.InDelta(t, 4.0/8.0, e[0], 1e-12)
	assert.Equal(t, 1.0, Gaussian{}.Sigma())
}

func TestGaussianSampleMean(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	const n = 20000
	means := mat.NewDense(n, 1, nil)
	means.Apply(func(_, _ int, _ float64) float64 { return 3 }, means)
	dst := mat.NewDense(n, 1, nil)
	Gaussian{StdDev: 0.5}.Sample(dst, means, rng)
	var s float64
	for i := 0; i < n; i++ {
		s += dst.At(i, 0)
	}
	assert.InDelta(t, 3, s/n, 0.02)
}

func TestMultinomialMeansSumToOne(t *testing.T) {
	x := mat.NewDense(2, 3, []float64{1, 2, 3, -500, 0, 500})
	Multinomial{}.Means(x)
	for i := 0; i < 2; i++ {
		var s float64
		for _, v := range x.RawRowView(i) {
			s += v
		}
		assert.InDelta(t, 1, s, 1e-12)
	}
	assert.InDelta(t, 1, x.At(1, 2), 1e-12)
}

func TestMultinomialSampleCounts(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	means := mat.NewDense(1, 3, []float64{0, 0, 1})
	dst := mat.NewDense(1, 3, nil)
	Multinomial{Samples: 10}.Sample(dst, means, rng)
	assert.Equal(t, []float64{0, 0, 1}, dst.RawRowView(0))

	means = mat.NewDense(1, 2, []float64{0.5, 0.5})
	Multinomial{Samples: 8}.Sample(dst.Slice(0, 1, 0, 2).(*mat.Dense), means, rng)
	row := dst.RawRowView(0)
	assert.InDelta(t, 1, row[0]+row[1], 1e-12)
}

func TestMultinomialFreeEnergy(t *testing.T) {
	pre := mat.NewDense(1, 2, []float64{0, 0})
	fe := Multinomial{Samples: 3}.HiddenFreeEnergy(pre)
	assert.InDelta(t, -3*math.Log(2), fe[0], 1e-12)
}

func TestSpecRoundTrip(t *testing.T) {
	for _, u := range []Units{Bernoulli{}, Gaussian{StdDev: 0.5}, Multinomial{Samples: 4}} {
		got, err := SpecOf(u).Units()
		require.NoError(t, err)
		assert.Equal(t, u, got)
	}
	_, err := Spec{Type: "relu"}.Units()
	assert.Error(t, err)
}
