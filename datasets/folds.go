package datasets

import "math/rand"
import "sort"

// ArraySplit splits idx into n parts whose sizes differ by at most one,
// larger parts first.
func ArraySplit(idx []int, n int) [][]int {
	if n <= 0 {
		return nil
	}
	out := make([][]int, n)
	base, extra := len(idx)/n, len(idx)%n
	pos := 0
	for k := range out {
		size := base
		if k < extra {
			size++
		}
		out[k] = idx[pos : pos+size]
		pos += size
	}
	return out
}

// KFolds splits the indices of y into n folds of (approximately) equal size.
// With stratify every fold keeps the label proportions of y; labels are
// visited in ascending order. With shuffle the folds are permuted using seed.
func KFolds(y []int, n int, shuffle, stratify bool, seed int64) [][]int {
	if n <= 0 {
		return nil
	}
	rng := rand.New(rand.NewSource(seed))

	if !stratify {
		var idx []int
		if shuffle {
			idx = rng.Perm(len(y))
		} else {
			idx = make([]int, len(y))
			for i := range idx {
				idx[i] = i
			}
		}
		return ArraySplit(idx, n)
	}

	byLabel := make(map[int][]int)
	for i, label := range y {
		byLabel[label] = append(byLabel[label], i)
	}
	labels := make([]int, 0, len(byLabel))
	for label := range byLabel {
		labels = append(labels, label)
	}
	sort.Ints(labels)

	folds := make([][]int, n)
	for _, label := range labels {
		for k, part := range ArraySplit(byLabel[label], n) {
			folds[k] = append(folds[k], part...)
		}
	}
	if shuffle {
		for _, fold := range folds {
			rng.Shuffle(len(fold), func(i, j int) { fold[i], fold[j] = fold[j], fold[i] })
		}
	}
	return folds
}
