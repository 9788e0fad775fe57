// Package checkpoint persists model parameters as JSON inside a zlib stream.
package checkpoint

import "compress/zlib"
import "encoding/json"
import "io"
import "os"
import "path/filepath"
import "time"

import "github.com/pkg/errors"
import "github.com/x448/float16"
import "gonum.org/v1/gonum/mat"

// FileName is the name of the checkpoint inside a model directory.
const FileName = "model.json.z"

// ErrNotFound is returned by Load when the directory holds no checkpoint.
var ErrNotFound = errors.New("checkpoint not found")

// Tensor is a named matrix or vector. Vectors are stored as one row.
// When Half is set the values live in Bits as IEEE 754 half precision.
type Tensor struct {
	Name string    `json:"name"`
	Rows int       `json:"rows"`
	Cols int       `json:"cols"`
	Half bool      `json:"half,omitempty"`
	Data []float64 `json:"data,omitempty"`
	Bits []uint16  `json:"bits,omitempty"`
}

// File is the content of one checkpoint.
type File struct {
	Kind    string          `json:"kind"`
	RunID   string          `json:"run_id"`
	Epoch   int             `json:"epoch"`
	Iter    int             `json:"iter"`
	Saved   time.Time       `json:"saved"`
	Config  json.RawMessage `json:"config"`
	Tensors []Tensor        `json:"tensors"`
}

// Matrix stores m under name.
func (f *File) Matrix(name string, m mat.Matrix, half bool) {
	r, c := m.Dims()
	data := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			data = append(data, m.At(i, j))
		}
	}
	f.Tensors = append(f.Tensors, newTensor(name, r, c, data, half))
}

// Vector stores v under name.
func (f *File) Vector(name string, v []float64, half bool) {
	data := make([]float64, len(v))
	copy(data, v)
	f.Tensors = append(f.Tensors, newTensor(name, 1, len(v), data, half))
}

func newTensor(name string, r, c int, data []float64, half bool) Tensor {
	t := Tensor{Name: name, Rows: r, Cols: c, Half: half}
	if !half {
		t.Data = data
		return t
	}
	t.Bits = make([]uint16, len(data))
	for i, v := range data {
		t.Bits[i] = float16.Fromfloat32(float32(v)).Bits()
	}
	return t
}

func (t Tensor) values() ([]float64, error) {
	n := t.Rows * t.Cols
	if !t.Half {
		if len(t.Data) != n {
			return nil, errors.Errorf("tensor %s: %d values for %dx%d", t.Name, len(t.Data), t.Rows, t.Cols)
		}
		return t.Data, nil
	}
	if len(t.Bits) != n {
		return nil, errors.Errorf("tensor %s: %d half values for %dx%d", t.Name, len(t.Bits), t.Rows, t.Cols)
	}
	out := make([]float64, n)
	for i, b := range t.Bits {
		out[i] = float64(float16.Frombits(b).Float32())
	}
	return out, nil
}

func (f *File) lookup(name string) (Tensor, error) {
	for _, t := range f.Tensors {
		if t.Name == name {
			return t, nil
		}
	}
	return Tensor{}, errors.Errorf("tensor %s missing from %s checkpoint", name, f.Kind)
}

// GetMatrix returns the matrix stored under name.
func (f *File) GetMatrix(name string) (*mat.Dense, error) {
	t, err := f.lookup(name)
	if err != nil {
		return nil, err
	}
	data, err := t.values()
	if err != nil {
		return nil, err
	}
	if t.Rows == 0 || t.Cols == 0 {
		return nil, errors.Errorf("tensor %s is empty", name)
	}
	return mat.NewDense(t.Rows, t.Cols, data), nil
}

// GetVector returns the vector stored under name.
func (f *File) GetVector(name string) ([]float64, error) {
	t, err := f.lookup(name)
	if err != nil {
		return nil, err
	}
	return t.values()
}

// Write encodes the checkpoint to w.
func (f *File) Write(w io.Writer) error {
	zw := zlib.NewWriter(w)
	if err := json.NewEncoder(zw).Encode(f); err != nil {
		zw.Close()
		return errors.Wrap(err, "encode checkpoint")
	}
	return zw.Close()
}

// Read decodes a checkpoint from r.
func Read(r io.Reader) (*File, error) {
	zr, err := zlib.NewReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "open checkpoint stream")
	}
	defer zr.Close()
	var f File
	if err := json.NewDecoder(zr).Decode(&f); err != nil {
		return nil, errors.Wrap(err, "decode checkpoint")
	}
	return &f, nil
}

// Save writes f into dir, creating dir when needed. The file is written
// under a temporary name first so an interrupted run keeps the previous epoch.
func Save(dir string, f *File) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "create %s", dir)
	}
	f.Saved = time.Now().UTC()
	tmp, err := os.CreateTemp(dir, FileName+".*")
	if err != nil {
		return errors.Wrap(err, "create temporary checkpoint")
	}
	if err := f.Write(tmp); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.Wrap(err, "close checkpoint")
	}
	return errors.Wrap(os.Rename(tmp.Name(), filepath.Join(dir, FileName)), "install checkpoint")
}

// Load reads the checkpoint stored in dir.
func Load(dir string) (*File, error) {
	file, err := os.Open(filepath.Join(dir, FileName))
	if os.IsNotExist(err) {
		return nil, errors.Wrap(ErrNotFound, dir)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "open checkpoint in %s", dir)
	}
	defer file.Close()
	return Read(file)
}

// Exists reports whether dir holds a checkpoint.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, FileName))
	return err == nil
}
