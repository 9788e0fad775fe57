// Package mnist decodes the MNIST IDX files.
package mnist

import "bufio"
import "bytes"
import "compress/gzip"
import "crypto/sha256"
import "encoding/binary"
import "encoding/hex"
import "io"
import "os"
import "path/filepath"

import "github.com/pkg/errors"
import "gonum.org/v1/gonum/mat"

import "github.com/neurlang/boltzmann/datasets"

const ImgSize = 28

const TrainImages = "train-images-idx3-ubyte.gz"
const TrainLabels = "train-labels-idx1-ubyte.gz"
const TestImages = "t10k-images-idx3-ubyte.gz"
const TestLabels = "t10k-labels-idx1-ubyte.gz"

// Digests of the published gzip files.
var Digests = map[string]string{
	TestImages:  "8d422c7b0a1c1c79245a5bcf07fe86e33eeafee792b84584aec276f5a2dbc4e6",
	TestLabels:  "f7ae60f92e00ec6debd23a6088c31dbd2371eca3ffa0defaefb259924204aec6",
	TrainImages: "440fcabf73cc546fa21475e81ea370265605f56be210a4024d2ca8f203523609",
	TrainLabels: "3552534a0a558bbed6aed32b30c495cca23d567ec52cac8be1a0730e8010255c",
}

const imagesMagic = 0x00000803
const labelsMagic = 0x00000801

var ErrDigest = errors.New("mnist: file digest mismatch")

// Shape of one MNIST image.
var Shape = datasets.Shape{H: ImgSize, W: ImgSize, C: 1}

// ReadImages decodes an IDX3 image stream into rows scaled to [0, 1].
func ReadImages(r io.Reader) (*mat.Dense, error) {
	r, err := maybeGzip(r)
	if err != nil {
		return nil, err
	}
	var hdr [4]uint32
	if err := binary.Read(r, binary.BigEndian, &hdr); err != nil {
		return nil, errors.Wrap(err, "mnist: reading image header")
	}
	if hdr[0] != imagesMagic {
		return nil, errors.Errorf("mnist: bad image magic %#x", hdr[0])
	}
	n, size := int(hdr[1]), int(hdr[2]*hdr[3])
	pixels := make([]byte, n*size)
	if _, err := io.ReadFull(r, pixels); err != nil {
		return nil, errors.Wrap(err, "mnist: reading pixels")
	}
	if n == 0 {
		return &mat.Dense{}, nil
	}
	rows := make([][]byte, n)
	for i := range rows {
		rows[i] = pixels[i*size : (i+1)*size]
	}
	return datasets.FromBytes(rows), nil
}

// ReadLabels decodes an IDX1 label stream.
func ReadLabels(r io.Reader) ([]int, error) {
	r, err := maybeGzip(r)
	if err != nil {
		return nil, err
	}
	var hdr [2]uint32
	if err := binary.Read(r, binary.BigEndian, &hdr); err != nil {
		return nil, errors.Wrap(err, "mnist: reading label header")
	}
	if hdr[0] != labelsMagic {
		return nil, errors.Errorf("mnist: bad label magic %#x", hdr[0])
	}
	raw := make([]byte, hdr[1])
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, errors.Wrap(err, "mnist: reading labels")
	}
	labels := make([]int, len(raw))
	for i, b := range raw {
		labels[i] = int(b)
	}
	return labels, nil
}

// Verify checks the sha256 of the file at path against the known digest for
// its base name. Unknown names pass.
func Verify(path string) error {
	want, ok := Digests[filepath.Base(path)]
	if !ok {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "mnist")
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return errors.Wrapf(err, "mnist: hashing %s", path)
	}
	if hex.EncodeToString(h.Sum(nil)) != want {
		return errors.Wrap(ErrDigest, path)
	}
	return nil
}

// Load reads the images and labels of one split from dir. With test set the
// t10k files are used.
func Load(dir string, test, verify bool) (*mat.Dense, []int, error) {
	img, lab := TrainImages, TrainLabels
	if test {
		img, lab = TestImages, TestLabels
	}
	var X *mat.Dense
	var y []int
	for _, name := range []string{img, lab} {
		path := filepath.Join(dir, name)
		if verify {
			if err := Verify(path); err != nil {
				return nil, nil, err
			}
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, nil, errors.Wrap(err, "mnist")
		}
		if name == img {
			X, err = ReadImages(f)
		} else {
			y, err = ReadLabels(f)
		}
		f.Close()
		if err != nil {
			return nil, nil, errors.Wrap(err, path)
		}
	}
	if n, _ := X.Dims(); n != len(y) {
		return nil, nil, errors.Errorf("mnist: %d images but %d labels", n, len(y))
	}
	return X, y, nil
}

// maybeGzip unwraps r when it starts with the gzip magic.
func maybeGzip(r io.Reader) (io.Reader, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(2)
	if err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "mnist")
	}
	if bytes.Equal(magic, []byte{0x1f, 0x8b}) {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, errors.Wrap(err, "mnist: gzip")
		}
		return zr, nil
	}
	return br, nil
}
