package dynamo

import (
	"runtime"
	"sync"
	"sync/atomic"
)

var workerCount atomic.Int64

// SetWorkers fixes the number of goroutines used by the parallel loops.
// A value <= 0 restores the default of runtime.GOMAXPROCS(0).
func SetWorkers(n int) {
	workerCount.Store(int64(n))
}

// Workers returns the number of goroutines used by the parallel loops.
func Workers() int {
	if n := int(workerCount.Load()); n > 0 {
		return n
	}
	return runtime.GOMAXPROCS(0)
}

// ParallelFor executes fn over [0, n) split into contiguous ranges, one per
// worker. Ranges never overlap, so fn may write to index-aligned slices
// without synchronization.
func ParallelFor(n, minChunk int, fn func(start, end int)) {
	if n <= 0 {
		return
	}
	if minChunk < 1 {
		minChunk = 1
	}
	workers := Workers()
	if n <= minChunk || workers <= 1 {
		fn(0, n)
		return
	}
	if n/minChunk < workers {
		workers = n / minChunk
	}
	if workers < 1 {
		workers = 1
	}

	chunkSize := (n + workers - 1) / workers

	var wg sync.WaitGroup
	for start := 0; start < n; start += chunkSize {
		end := start + chunkSize
		if end > n {
			end = n
		}
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}
	wg.Wait()
}

// NumChunks returns how many chunks of the given size cover [0, n).
func NumChunks(n, chunk int) int {
	if n <= 0 || chunk <= 0 {
		return 0
	}
	return (n + chunk - 1) / chunk
}

// ParallelChunks executes fn for every fixed-size chunk of [0, n). The chunk
// layout depends only on n and chunk, never on the worker count, so a
// reduction over per-chunk partials taken in chunk order is deterministic.
func ParallelChunks(n, chunk int, fn func(idx, start, end int)) {
	numChunks := NumChunks(n, chunk)
	if numChunks == 0 {
		return
	}
	workers := Workers()
	if workers > numChunks {
		workers = numChunks
	}
	if workers <= 1 {
		for c := 0; c < numChunks; c++ {
			start, end := chunkBounds(c, n, chunk)
			fn(c, start, end)
		}
		return
	}

	var next atomic.Int64
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for {
				c := int(next.Add(1) - 1)
				if c >= numChunks {
					return
				}
				start, end := chunkBounds(c, n, chunk)
				fn(c, start, end)
			}
		}()
	}
	wg.Wait()
}

func chunkBounds(c, n, chunk int) (int, int) {
	start := c * chunk
	end := start + chunk
	if end > n {
		end = n
	}
	return start, end
}
