// Package augment multiplies image data sets by small geometric jitter.
package augment

import "math/rand"

import "github.com/pkg/errors"
import "gonum.org/v1/gonum/mat"

import "github.com/neurlang/boltzmann/datasets"
import "github.com/neurlang/boltzmann/parallel"

// Factor is how many rows Augment10 produces per input row.
const Factor = 10

// Offsets are the one pixel shifts applied by Augment10, as (dy, dx).
var Offsets = [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}

func clamp(v, hi int) int {
	if v < 0 {
		return 0
	}
	if v > hi {
		return hi
	}
	return v
}

// Shift moves img by dy rows and dx columns into dst. Pixels uncovered at the
// border repeat the nearest edge pixel. dst and img must not overlap.
func Shift(dst, img []float64, shape datasets.Shape, dy, dx int) {
	for y := 0; y < shape.H; y++ {
		sy := clamp(y-dy, shape.H-1)
		for x := 0; x < shape.W; x++ {
			sx := clamp(x-dx, shape.W-1)
			from := shape.Index(sy, sx, 0)
			copy(dst[shape.Index(y, x, 0):shape.Index(y, x, 0)+shape.C], img[from:from+shape.C])
		}
	}
}

// HorizontalMirror flips img left to right into dst.
func HorizontalMirror(dst, img []float64, shape datasets.Shape) {
	for y := 0; y < shape.H; y++ {
		for x := 0; x < shape.W; x++ {
			from := shape.Index(y, shape.W-1-x, 0)
			to := shape.Index(y, x, 0)
			copy(dst[to:to+shape.C], img[from:from+shape.C])
		}
	}
}

// Augment10 returns 10N rows: the originals, the four shifted copies and the
// mirror images of those five blocks, shuffled with seed.
func Augment10(X *mat.Dense, shape datasets.Shape, seed int64) (*mat.Dense, error) {
	n, cols := X.Dims()
	if cols != shape.Size() {
		return nil, errors.Errorf("augment: rows have %d values, shape %v needs %d", cols, shape, shape.Size())
	}
	out := mat.NewDense(Factor*n, cols, nil)
	parallel.ForEach(n, 0, func(i int) {
		img := X.RawRowView(i)
		copy(out.RawRowView(i), img)
		for k, off := range Offsets {
			Shift(out.RawRowView((k+1)*n+i), img, shape, off[0], off[1])
		}
		for k := 0; k < 5; k++ {
			HorizontalMirror(out.RawRowView((5+k)*n+i), out.RawRowView(k*n+i), shape)
		}
	})
	datasets.Shuffle(out, seed)
	return out, nil
}

// Permutation is the row order Augment10 applies for n inputs and seed, so
// labels can follow the images.
func Permutation(n int, seed int64) []int {
	idx := make([]int, Factor*n)
	for i := range idx {
		idx[i] = i
	}
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
	return idx
}
