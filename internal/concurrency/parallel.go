package concurrency

import (
	"context"
	"sync"
)

// Map runs fn over items with at most maxWorkers in flight and returns
// the results in input order. Each item's error lands in the errs slice
// at the item's index (nil on success). maxWorkers <= 1 degenerates to a
// sequential loop, which is the default scheduling mode of the sync
// batch.
func Map[T any, R any](
	ctx context.Context,
	items []T,
	maxWorkers int,
	fn func(ctx context.Context, index int, item T) (R, error),
) (results []R, errs []error) {
	results = make([]R, len(items))
	errs = make([]error, len(items))
	if len(items) == 0 {
		return results, errs
	}

	if maxWorkers <= 1 {
		for i, item := range items {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				continue
			}
			results[i], errs[i] = fn(ctx, i, item)
		}
		return results, errs
	}

	if maxWorkers > len(items) {
		maxWorkers = len(items)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < maxWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if err := ctx.Err(); err != nil {
					errs[i] = err
					continue
				}
				results[i], errs[i] = fn(ctx, i, items[i])
			}
		}()
	}

	for i := range items {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results, errs
}
