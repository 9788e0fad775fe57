// Package assemble stitches RBMs trained on image patches into one RBM over
// the whole image.
//
// A layout covers the image with a grid of square tiles, a second grid of
// tiles shifted by half a tile (which leaves a border of half a tile
// uncovered), and one view of the whole image downsampled to the tile size.
// The weights of the patch RBMs are copied into the receptive field of their
// patch, the downsampled view spreads every weight evenly over the block of
// pixels it averaged.
package assemble

import "github.com/pkg/errors"
import "gonum.org/v1/gonum/mat"

import "github.com/neurlang/boltzmann/datasets"
import "github.com/neurlang/boltzmann/rbm"

// Patch is a square window of the image. When Factor is above 1 the window
// is taken from the image downsampled by Factor, Top and Left then count
// downsampled pixels.
type Patch struct {
	Top, Left int
	Size      int
	Factor    int
}

// Shape of the patch as seen by its RBM.
func (p Patch) Shape(channels int) datasets.Shape {
	return datasets.Shape{H: p.Size, W: p.Size, C: channels}
}

func (p Patch) factor() int {
	if p.Factor < 1 {
		return 1
	}
	return p.Factor
}

// Layout is the ordered set of patches tiling an image.
type Layout struct {
	Shape   datasets.Shape
	Patches []Patch
	// Border is the width of the frame not covered by the shifted grid.
	Border int
}

// NewLayout builds the tile grid, the shifted grid and the downsampled view
// for square tiles of the given size.
func NewLayout(shape datasets.Shape, tile int) (Layout, error) {
	if tile < 2 || tile%2 != 0 || shape.H%tile != 0 || shape.W%tile != 0 || shape.H != shape.W {
		return Layout{}, errors.Errorf("assemble: tile %d does not fit a %dx%d image", tile, shape.H, shape.W)
	}
	l := Layout{Shape: shape, Border: tile / 2}
	n := shape.H / tile
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			l.Patches = append(l.Patches, Patch{Top: tile * i, Left: tile * j, Size: tile, Factor: 1})
		}
	}
	for i := 0; i < n-1; i++ {
		for j := 0; j < n-1; j++ {
			l.Patches = append(l.Patches, Patch{Top: l.Border + tile*i, Left: l.Border + tile*j, Size: tile, Factor: 1})
		}
	}
	l.Patches = append(l.Patches, Patch{Size: tile, Factor: n})
	return l, nil
}

// CIFARLayout is the 26 patch layout of 8x8 tiles over 32x32 color images.
func CIFARLayout() Layout {
	l, _ := NewLayout(datasets.Shape{H: 32, W: 32, C: 3}, 8)
	return l
}

// Extract returns the training matrix of patch p, one flattened patch per image row of X.
func Extract(X *mat.Dense, shape datasets.Shape, p Patch) (*mat.Dense, error) {
	if f := p.factor(); f > 1 {
		small, smallShape, err := datasets.Downsample(X, shape, f)
		if err != nil {
			return nil, err
		}
		return datasets.Crop(small, smallShape, p.Top, p.Left, p.Size, p.Size)
	}
	return datasets.Crop(X, shape, p.Top, p.Left, p.Size, p.Size)
}

// visit calls fn for every large image pixel index covered by patch pixel
// (y, x, c), with the share of the patch pixel that falls on it.
func (l Layout) visit(p Patch, fn func(small, large int, share float64)) {
	f := p.factor()
	ps := p.Shape(l.Shape.C)
	share := 1 / float64(f*f)
	for y := 0; y < p.Size; y++ {
		for x := 0; x < p.Size; x++ {
			for c := 0; c < l.Shape.C; c++ {
				small := ps.Index(y, x, c)
				for dy := 0; dy < f; dy++ {
					for dx := 0; dx < f; dx++ {
						fn(small, l.Shape.Index((p.Top+y)*f+dy, (p.Left+x)*f+dx, c), share)
					}
				}
			}
		}
	}
}

// LargeWeights assembles the parameters of the large RBM from the patch RBMs,
// smalls[i] having been trained on l.Patches[i]. Hidden units are laid out
// patch after patch. Visible biases add up over the patches covering a
// pixel, are halved, and the region covered by the shifted grid is divided
// by a further 1.5.
func LargeWeights(l Layout, smalls []rbm.Params) (rbm.Params, error) {
	if len(smalls) != len(l.Patches) {
		return rbm.Params{}, errors.Errorf("assemble: %d patch RBMs for %d patches", len(smalls), len(l.Patches))
	}
	offsets := make([]int, len(smalls)+1)
	for i, s := range smalls {
		nv, nh := s.W.Dims()
		if want := l.Patches[i].Shape(l.Shape.C).Size(); nv != want || len(s.VB) != nv || len(s.HB) != nh {
			return rbm.Params{}, errors.Errorf("assemble: patch RBM %d is %dx%d, patch needs %d visible units", i, nv, nh, want)
		}
		offsets[i+1] = offsets[i] + nh
	}

	nv := l.Shape.Size()
	W := mat.NewDense(nv, offsets[len(smalls)], nil)
	vb := make([]float64, nv)
	hb := make([]float64, 0, offsets[len(smalls)])
	for i, p := range l.Patches {
		s := smalls[i]
		off := offsets[i]
		l.visit(p, func(small, large int, share float64) {
			src := s.W.RawRowView(small)
			dst := W.RawRowView(large)[off : off+len(src)]
			for k, w := range src {
				dst[k] = w * share
			}
			vb[large] += s.VB[small] * share
		})
		hb = append(hb, s.HB...)
	}

	for i := range vb {
		vb[i] /= 2
	}
	b := l.Border
	for y := b; y < l.Shape.H-b; y++ {
		for x := b; x < l.Shape.W-b; x++ {
			for c := 0; c < l.Shape.C; c++ {
				vb[l.Shape.Index(y, x, c)] /= 1.5
			}
		}
	}
	return rbm.Params{W: W, VB: vb, HB: hb}, nil
}
