package datasets

import "math"
import "sort"
import "testing"

import "github.com/google/go-cmp/cmp"
import "gonum.org/v1/gonum/mat"

func TestBatchIter(t *testing.T) {
	var got [][2]int
	BatchIter(12, 5, func(s, e int) bool {
		got = append(got, [2]int{s, e})
		return true
	})
	want := [][2]int{{0, 5}, {5, 10}, {10, 12}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("batches mismatch (-want +got):\n%s", diff)
	}
	if NumBatches(12, 5) != 3 || NumBatches(10, 5) != 2 || NumBatches(0, 5) != 0 {
		t.Errorf("NumBatches wrong")
	}

	calls := 0
	BatchIter(12, 5, func(s, e int) bool {
		calls++
		return false
	})
	if calls != 1 {
		t.Errorf("yield returning false did not stop iteration")
	}
}

func TestArraySplit(t *testing.T) {
	got := ArraySplit([]int{0, 1, 2, 3, 4, 5, 6}, 3)
	want := [][]int{{0, 1, 2}, {3, 4}, {5, 6}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ArraySplit mismatch (-want +got):\n%s", diff)
	}
}

func TestKFoldsStratified(t *testing.T) {
	y := []int{1, 1, 1, 2, 2, 2, 3, 3, 3}
	folds := KFolds(y, 3, true, true, 1337)
	if len(folds) != 3 {
		t.Fatalf("got %d folds", len(folds))
	}
	var all []int
	for _, fold := range folds {
		labels := make([]int, len(fold))
		for i, idx := range fold {
			labels[i] = y[idx]
		}
		sort.Ints(labels)
		if diff := cmp.Diff([]int{1, 2, 3}, labels); diff != "" {
			t.Errorf("fold is not stratified (-want +got):\n%s", diff)
		}
		all = append(all, fold...)
	}
	sort.Ints(all)
	for i, v := range all {
		if i != v {
			t.Fatalf("index %d missing from folds", i)
		}
	}
}

func TestKFoldsPlain(t *testing.T) {
	folds := KFolds(make([]int, 10), 3, false, false, 0)
	want := [][]int{{0, 1, 2, 3}, {4, 5, 6}, {7, 8, 9}}
	if diff := cmp.Diff(want, folds); diff != "" {
		t.Errorf("KFolds mismatch (-want +got):\n%s", diff)
	}
}

func TestStandardize(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{1, 5, 2, 5, 3, 5, 4, 5})
	mean, std := Standardize(X)
	if mean[0] != 2.5 || mean[1] != 5 {
		t.Errorf("mean = %v", mean)
	}
	if math.Abs(std[0]-math.Sqrt(1.25)) > 1e-12 || std[1] != 1 {
		t.Errorf("std = %v", std)
	}
	ApplyStandardize(X, mean, std)
	m2, s2 := Standardize(X)
	if math.Abs(m2[0]) > 1e-12 || math.Abs(s2[0]-1) > 1e-12 {
		t.Errorf("standardized column has mean %v std %v", m2[0], s2[0])
	}
}

func TestShuffleKeepsRows(t *testing.T) {
	X := mat.NewDense(5, 2, []float64{0, 0, 1, 1, 2, 2, 3, 3, 4, 4})
	Shuffle(X, 42)
	seen := map[float64]bool{}
	for i := 0; i < 5; i++ {
		if X.At(i, 0) != X.At(i, 1) {
			t.Fatalf("row %d torn apart: %v", i, X.RawRowView(i))
		}
		seen[X.At(i, 0)] = true
	}
	if len(seen) != 5 {
		t.Errorf("rows lost during shuffle")
	}
}

func TestCropAndDownsample(t *testing.T) {
	shape := Shape{H: 4, W: 4, C: 1}
	data := make([]float64, 16)
	for i := range data {
		data[i] = float64(i)
	}
	X := mat.NewDense(1, 16, data)

	c, err := Crop(X, shape, 1, 2, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]float64{6, 7, 10, 11}, c.RawRowView(0)); diff != "" {
		t.Errorf("crop mismatch (-want +got):\n%s", diff)
	}
	if _, err := Crop(X, shape, 3, 3, 2, 2); err == nil {
		t.Errorf("crop outside the image succeeded")
	}

	d, small, err := Downsample(X, shape, 2)
	if err != nil {
		t.Fatal(err)
	}
	if small != (Shape{H: 2, W: 2, C: 1}) {
		t.Errorf("small shape %v", small)
	}
	if diff := cmp.Diff([]float64{2.5, 4.5, 10.5, 12.5}, d.RawRowView(0)); diff != "" {
		t.Errorf("downsample mismatch (-want +got):\n%s", diff)
	}
}

func TestShapeIndex(t *testing.T) {
	s := Shape{H: 32, W: 32, C: 3}
	if s.Size() != 3072 || s.Index(1, 2, 1) != (32+2)*3+1 {
		t.Errorf("index math broken")
	}
}
