// Package cifar10 decodes the binary version of CIFAR-10.
//
// Every record is one label byte followed by 3072 pixel bytes laid out as
// three 32x32 planes (red, green, blue). Images are returned flattened in
// height, width, channel order with values in [0, 1].
package cifar10

import "io"
import "os"
import "path/filepath"

import "github.com/pkg/errors"
import "gonum.org/v1/gonum/mat"

import "github.com/neurlang/boltzmann/datasets"

const ImgSize = 32
const Channels = 3

const recordSize = 1 + ImgSize*ImgSize*Channels

var Shape = datasets.Shape{H: ImgSize, W: ImgSize, C: Channels}

// TrainFiles are the five training batches of the binary distribution.
var TrainFiles = []string{
	"data_batch_1.bin",
	"data_batch_2.bin",
	"data_batch_3.bin",
	"data_batch_4.bin",
	"data_batch_5.bin",
}

const TestFile = "test_batch.bin"

// ReadBinary decodes all records in r.
func ReadBinary(r io.Reader) (*mat.Dense, []int, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, errors.Wrap(err, "cifar10")
	}
	if len(raw)%recordSize != 0 {
		return nil, nil, errors.Errorf("cifar10: %d bytes is not a whole number of records", len(raw))
	}
	n := len(raw) / recordSize
	if n == 0 {
		return &mat.Dense{}, nil, nil
	}
	X := mat.NewDense(n, Shape.Size(), nil)
	y := make([]int, n)
	plane := ImgSize * ImgSize
	for i := 0; i < n; i++ {
		rec := raw[i*recordSize : (i+1)*recordSize]
		y[i] = int(rec[0])
		px := rec[1:]
		row := X.RawRowView(i)
		for c := 0; c < Channels; c++ {
			for p := 0; p < plane; p++ {
				row[p*Channels+c] = float64(px[c*plane+p]) / 255
			}
		}
	}
	return X, y, nil
}

// Load reads the named batch files from dir and stacks them.
func Load(dir string, names ...string) (*mat.Dense, []int, error) {
	var parts []*mat.Dense
	var labels []int
	total := 0
	for _, name := range names {
		f, err := os.Open(filepath.Join(dir, name))
		if err != nil {
			return nil, nil, errors.Wrap(err, "cifar10")
		}
		X, y, err := ReadBinary(f)
		f.Close()
		if err != nil {
			return nil, nil, errors.Wrap(err, name)
		}
		if len(y) == 0 {
			continue
		}
		parts = append(parts, X)
		labels = append(labels, y...)
		total += len(y)
	}
	if total == 0 {
		return &mat.Dense{}, nil, nil
	}
	out := mat.NewDense(total, Shape.Size(), nil)
	at := 0
	for _, X := range parts {
		r, _ := X.Dims()
		for i := 0; i < r; i++ {
			copy(out.RawRowView(at), X.RawRowView(i))
			at++
		}
	}
	return out, labels, nil
}
