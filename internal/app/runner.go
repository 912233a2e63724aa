package app

import (
	"context"
	"sync"
)

// RunOrdered calls fn for every index in [0, n) on up to jobs workers and
// passes each result to emit in index order, so output reads the same as
// a sequential run. jobs <= 1 runs inline. Items not started before ctx
// is cancelled are never passed to fn; RunOrdered then returns ctx.Err().
func RunOrdered[R any](ctx context.Context, n, jobs int, fn func(ctx context.Context, i int) R, emit func(i int, r R)) error {
	if n <= 0 {
		return nil
	}
	if jobs <= 1 {
		for i := 0; i < n; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			emit(i, fn(ctx, i))
		}
		return nil
	}
	if jobs > n {
		jobs = n
	}

	type result struct {
		index int
		value R
	}
	tasks := make(chan int)
	results := make(chan result, jobs)

	var wg sync.WaitGroup
	for w := 0; w < jobs; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range tasks {
				results <- result{index: i, value: fn(ctx, i)}
			}
		}()
	}

	go func() {
		defer close(tasks)
		for i := 0; i < n; i++ {
			select {
			case <-ctx.Done():
				return
			case tasks <- i:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	pending := make(map[int]R)
	next := 0
	for res := range results {
		pending[res.index] = res.value
		for {
			value, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			emit(next, value)
			next++
		}
	}

	if next < n {
		return ctx.Err()
	}
	return nil
}
