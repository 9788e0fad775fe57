package datasets

import "github.com/pkg/errors"
import "gonum.org/v1/gonum/mat"

// Shape describes images flattened in height, width, channel order.
type Shape struct {
	H, W, C int
}

// Size is the flattened length of one image.
func (s Shape) Size() int { return s.H * s.W * s.C }

// Index is the flattened position of pixel (y, x) in channel c.
func (s Shape) Index(y, x, c int) int { return (y*s.W+x)*s.C + c }

// Crop cuts the h x w window at (top, left) out of every image row of X.
func Crop(X *mat.Dense, shape Shape, top, left, h, w int) (*mat.Dense, error) {
	n, cols := X.Dims()
	if cols != shape.Size() {
		return nil, errors.Errorf("crop: rows have %d values, shape %v needs %d", cols, shape, shape.Size())
	}
	if top < 0 || left < 0 || top+h > shape.H || left+w > shape.W || h <= 0 || w <= 0 {
		return nil, errors.Errorf("crop: window %dx%d at (%d, %d) outside %dx%d", h, w, top, left, shape.H, shape.W)
	}
	out := mat.NewDense(n, h*w*shape.C, nil)
	span := w * shape.C
	for i := 0; i < n; i++ {
		src := X.RawRowView(i)
		dst := out.RawRowView(i)
		for y := 0; y < h; y++ {
			from := shape.Index(top+y, left, 0)
			copy(dst[y*span:(y+1)*span], src[from:from+span])
		}
	}
	return out, nil
}

// Downsample averages every factor x factor block of each channel.
func Downsample(X *mat.Dense, shape Shape, factor int) (*mat.Dense, Shape, error) {
	n, cols := X.Dims()
	if cols != shape.Size() {
		return nil, Shape{}, errors.Errorf("downsample: rows have %d values, shape %v needs %d", cols, shape, shape.Size())
	}
	if factor <= 0 || shape.H%factor != 0 || shape.W%factor != 0 {
		return nil, Shape{}, errors.Errorf("downsample: factor %d does not divide %dx%d", factor, shape.H, shape.W)
	}
	small := Shape{H: shape.H / factor, W: shape.W / factor, C: shape.C}
	out := mat.NewDense(n, small.Size(), nil)
	inv := 1 / float64(factor*factor)
	for i := 0; i < n; i++ {
		src := X.RawRowView(i)
		dst := out.RawRowView(i)
		for y := 0; y < shape.H; y++ {
			for x := 0; x < shape.W; x++ {
				for c := 0; c < shape.C; c++ {
					dst[small.Index(y/factor, x/factor, c)] += src[shape.Index(y, x, c)] * inv
				}
			}
		}
	}
	return out, small, nil
}

// FromBytes scales pixel bytes into [0, 1], one image per row.
func FromBytes(pixels [][]byte) *mat.Dense {
	if len(pixels) == 0 {
		return &mat.Dense{}
	}
	out := mat.NewDense(len(pixels), len(pixels[0]), nil)
	for i, img := range pixels {
		row := out.RawRowView(i)
		for j, p := range img {
			row[j] = float64(p) / 255
		}
	}
	return out
}
