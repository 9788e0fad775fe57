package parallel

import "sync/atomic"
import "testing"

func TestForEachVisitsAll(t *testing.T) {
	const n = 1000
	var seen [n]int32
	ForEach(n, 7, func(i int) {
		atomic.AddInt32(&seen[i], 1)
	})
	for i, v := range seen {
		if v != 1 {
			t.Errorf("index %d visited %d times", i, v)
		}
	}
}

func TestForEachLimit(t *testing.T) {
	var inflight, peak int32
	ForEach(64, 3, func(i int) {
		cur := atomic.AddInt32(&inflight, 1)
		for {
			old := atomic.LoadInt32(&peak)
			if cur <= old || atomic.CompareAndSwapInt32(&peak, old, cur) {
				break
			}
		}
		atomic.AddInt32(&inflight, -1)
	})
	if peak > 3 {
		t.Errorf("peak concurrency %d exceeds limit 3", peak)
	}
}

func TestForEachChunk(t *testing.T) {
	var total int64
	var chunks int32
	ForEachChunk(105, 10, 4, func(start, end int) {
		atomic.AddInt32(&chunks, 1)
		if end-start > 10 || end <= start {
			t.Errorf("bad chunk [%d, %d)", start, end)
		}
		atomic.AddInt64(&total, int64(end-start))
	})
	if total != 105 {
		t.Errorf("covered %d rows, want 105", total)
	}
	if chunks != 11 {
		t.Errorf("got %d chunks, want 11", chunks)
	}
}

func TestThreads(t *testing.T) {
	if Threads() < 1 {
		t.Errorf("Threads() = %d", Threads())
	}
}
