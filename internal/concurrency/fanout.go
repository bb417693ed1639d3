package concurrency

import (
	"context"
	"sync"
)

// FanOut runs fn once per index in [0, tasks) across at most `workers`
// goroutines and waits for all of them. Results are communicated through
// whatever fn closes over; callers must make per-index writes disjoint.
func FanOut(ctx context.Context, workers, tasks int, fn func(ctx context.Context, index int)) {
	if tasks <= 0 {
		return
	}
	if workers <= 0 || workers > tasks {
		workers = tasks
	}

	idx := make(chan int)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := range idx {
				fn(ctx, n)
			}
		}()
	}

	for n := 0; n < tasks; n++ {
		select {
		case idx <- n:
		case <-ctx.Done():
			close(idx)
			wg.Wait()
			return
		}
	}
	close(idx)
	wg.Wait()
}
