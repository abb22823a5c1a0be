package genetic

import "sync"

// forEachSchedule runs fn for every schedule index in [lo, hi) on a bounded
// worker pool and blocks until every task has finished. The blocking wait is
// the barrier between phases: ratings are read by weight computation, weights
// by breeding, and the next buffer written by breeding is rewritten by
// mutation, so no phase may start before the previous one fully completes.
func (e *Engine) forEachSchedule(lo, hi int, fn func(i int)) {
	n := hi - lo
	if n <= 0 {
		return
	}

	workers := e.workers
	if workers > n {
		workers = n
	}
	if workers <= 1 {
		for i := lo; i < hi; i++ {
			fn(i)
		}
		return
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				fn(i)
			}
		}()
	}

	for i := lo; i < hi; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
}
