package datasets

import "math"
import "math/rand"

import "gonum.org/v1/gonum/mat"
import "gonum.org/v1/gonum/stat"

// Standardize returns the per-column mean and population standard deviation
// of X. Constant columns get a standard deviation of 1.
func Standardize(X *mat.Dense) (mean, std []float64) {
	r, c := X.Dims()
	mean = make([]float64, c)
	std = make([]float64, c)
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, X)
		m, v := stat.PopMeanVariance(col, nil)
		mean[j] = m
		std[j] = math.Sqrt(v)
		if std[j] == 0 || math.IsNaN(std[j]) {
			std[j] = 1
		}
	}
	return mean, std
}

// ApplyStandardize subtracts mean and divides by std, column by column, in place.
func ApplyStandardize(X *mat.Dense, mean, std []float64) {
	r, _ := X.Dims()
	for i := 0; i < r; i++ {
		row := X.RawRowView(i)
		for j := range row {
			row[j] = (row[j] - mean[j]) / std[j]
		}
	}
}

// Shuffle permutes the rows of X in place.
func Shuffle(X *mat.Dense, seed int64) {
	r, _ := X.Dims()
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(r, func(i, j int) {
		a, b := X.RawRowView(i), X.RawRowView(j)
		for k := range a {
			a[k], b[k] = b[k], a[k]
		}
	})
}
