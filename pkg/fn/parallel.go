package fn

import (
	"context"
	"errors"
	"sync"
)

// ErrNoWinner is returned by First when called with no functions.
var ErrNoWinner = errors.New("fn: no functions to race")

// ParMapResult applies f with bounded concurrency, returning Results in order.
func ParMapResult[T, U any](items []T, workers int, f func(T) Result[U]) []Result[U] {
	out := make([]Result[U], len(items))
	var wg sync.WaitGroup

	if workers <= 0 {
		workers = len(items)
	}
	if workers == 0 {
		return out
	}

	sem := make(chan struct{}, workers)
	for i, v := range items {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, v T) {
			defer func() { <-sem; wg.Done() }()
			out[i] = f(v)
		}(i, v)
	}
	wg.Wait()
	return out
}

// First races fns concurrently and returns the first Ok result, cancelling
// the rest. If every fn fails, the last error observed is returned.
func First[T any](ctx context.Context, fns ...func(context.Context) Result[T]) Result[T] {
	if len(fns) == 0 {
		return Err[T](ErrNoWinner)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan Result[T], len(fns))
	for _, f := range fns {
		go func(f func(context.Context) Result[T]) {
			results <- f(ctx)
		}(f)
	}

	var lastErr error
	for range fns {
		select {
		case <-ctx.Done():
			return Err[T](ctx.Err())
		case r := <-results:
			if r.IsOk() {
				return r
			}
			_, lastErr = r.Unwrap()
		}
	}
	return Err[T](lastErr)
}
