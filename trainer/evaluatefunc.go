package trainer

import "math"
import "math/rand"

import "gonum.org/v1/gonum/mat"

import "github.com/neurlang/boltzmann/datasets"
import "github.com/neurlang/boltzmann/dense"

// SampleSize returns the statistically sufficient sample size for a
// population of N rows at the given significance level (0-100).
func SampleSize(N int, significance byte) int {
	if N <= 0 {
		return 0
	}
	if significance == 0 || significance >= 100 {
		return N
	}

	z := zScoreFromAlpha(100 - significance)

	// worst-case proportion for maximum variability
	p := 0.5
	e := float64(100-significance) * 0.01

	ss := z * z * p * (1 - p) / (e * e)

	// finite population correction
	corrected := ss * float64(N) / (float64(N) - 1 + ss)

	n := int(math.Ceil(corrected))
	if n > N {
		return N
	}
	if n < 1 {
		return 1
	}
	return n
}

// zScoreFromAlpha returns the Z-score for a given alpha level.
func zScoreFromAlpha(alpha byte) float64 {
	switch {
	case alpha <= 1:
		return 2.576
	case alpha <= 5:
		return 1.96
	case alpha <= 10:
		return 1.645
	default:
		return 1.96
	}
}

// Metrics are averages over a set of batches. Fields not computed are NaN.
type Metrics struct {
	MSRE float64
	PLL  float64
}

// NewEvaluateFunc returns a function computing validation metrics of m on X.
// With a significance level set, every call scores a fresh random subset of
// SampleSize rows instead of the whole set.
func NewEvaluateFunc(m Model, X *mat.Dense, opts Options, rng *rand.Rand) func() Metrics {
	return func() Metrics {
		out := Metrics{MSRE: math.NaN(), PLL: math.NaN()}
		if X == nil {
			return out
		}
		rows, _ := X.Dims()
		if rows == 0 {
			return out
		}
		data := X
		if n := SampleSize(rows, opts.ValSignificance); n < rows {
			data = dense.Gather(X, rng.Perm(rows)[:n])
			rows = n
		}

		pll, canPLL := m.(PseudoLikelihooder)
		canPLL = canPLL && opts.PLL
		var msres, plls []float64
		datasets.BatchIter(rows, m.BatchSize(), func(start, end int) bool {
			xb := dense.Rows(data, start, end)
			if opts.MSRE {
				msres = append(msres, m.MSRE(xb))
			}
			if canPLL {
				v, err := pll.PseudoLogLikelihood(xb)
				if err != nil {
					canPLL = false
					plls = nil
				} else {
					plls = append(plls, v)
				}
			}
			return true
		})
		out.MSRE = mean(msres)
		out.PLL = mean(plls)
		return out
	}
}

// FreeEnergyGap is the mean free energy of the first n batches of X minus
// that of Xval. A growing gap means the model is overfitting.
func FreeEnergyGap(m FreeEnergier, X, Xval *mat.Dense, batchSize, n int) float64 {
	return meanFreeEnergy(m, X, batchSize, n) - meanFreeEnergy(m, Xval, batchSize, n)
}

func meanFreeEnergy(m FreeEnergier, X *mat.Dense, batchSize, n int) float64 {
	rows, _ := X.Dims()
	var fes []float64
	datasets.BatchIter(rows, batchSize, func(start, end int) bool {
		fes = append(fes, m.MeanFreeEnergy(dense.Rows(X, start, end)))
		return n <= 0 || len(fes) < n
	})
	return mean(fes)
}

func mean(v []float64) float64 {
	if len(v) == 0 {
		return math.NaN()
	}
	var s float64
	for _, x := range v {
		s += x
	}
	return s / float64(len(v))
}
