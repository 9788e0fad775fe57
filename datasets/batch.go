// Package datasets holds the data plumbing around the models: mini-batch
// iteration, k-fold splits, standardization and HWC image helpers.
package datasets

// BatchIter calls yield for consecutive batches [start, end) covering [0, n).
// Every batch has size rows except possibly the last. Iteration stops early
// when yield returns false.
func BatchIter(n, size int, yield func(start, end int) bool) {
	if size <= 0 {
		size = n
	}
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		if !yield(start, end) {
			return
		}
	}
}

// NumBatches is the number of batches BatchIter produces.
func NumBatches(n, size int) int {
	if n <= 0 {
		return 0
	}
	if size <= 0 {
		return 1
	}
	return (n + size - 1) / size
}
