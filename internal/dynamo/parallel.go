package dynamo

import (
	"runtime"
	"sync"
)

// ParallelFor executes fn over [0, n) split into contiguous chunks, one
// goroutine per chunk. Ranges at or below minChunk run on the caller.
func ParallelFor(n, minChunk int, fn func(start, end int)) {
	numWorkers := runtime.GOMAXPROCS(0)
	if n <= minChunk || numWorkers <= 1 {
		fn(0, n)
		return
	}

	workers := numWorkers
	if minChunk > 0 && n/minChunk < workers {
		workers = n / minChunk
	}
	if workers < 1 {
		workers = 1
	}

	chunkSize := (n + workers - 1) / workers

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * chunkSize
		if start >= n {
			break
		}
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
