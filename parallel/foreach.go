// Package parallel contains the bounded concurrency helpers used by training and augmentation.
package parallel

import "sync"

// ForEach runs body for every i in [0, length) with at most limit goroutines in flight.
func ForEach(length, limit int, body func(i int)) {
	if length <= 0 {
		return
	}
	if limit <= 0 {
		limit = Threads()
	}
	if limit > length {
		limit = length
	}

	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup
	wg.Add(length)

	for i := 0; i < length; i++ {
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()

			body(i)
		}(i)
	}

	wg.Wait()
}

// ForEachChunk splits [0, length) into contiguous chunks of at most size
// elements and runs body(start, end) for each chunk, limit chunks at a time.
// Rows of a matrix are usually processed this way so that every goroutine
// owns a disjoint block of the output.
func ForEachChunk(length, size, limit int, body func(start, end int)) {
	if length <= 0 {
		return
	}
	if size <= 0 {
		size = length
	}
	chunks := (length + size - 1) / size
	ForEach(chunks, limit, func(c int) {
		start := c * size
		end := start + size
		if end > length {
			end = length
		}
		body(start, end)
	})
}
