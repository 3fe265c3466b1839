package stats

import (
	"context"

	"golang.org/x/time/rate"
)

// Progressive reports whether a series of n raw points is delivered in
// batches. The decision is taken on the raw length, before any decimation.
func Progressive(n, threshold int) bool { return n > threshold }

// Batches splits items into consecutive batches of size. A non-positive size
// gives a single batch. Batches share the backing array of items.
func Batches[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}
	if size <= 0 || len(items) <= size {
		return [][]T{items}
	}
	out := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		out = append(out, items[start:end:end])
	}
	return out
}

// Deliver hands batches to fn one at a time, in order, waiting on limiter
// before each. A nil limiter does not pace. Delivery stops at the first error
// from fn or the limiter.
func Deliver[T any](ctx context.Context, batches [][]T, limiter *rate.Limiter, fn func(i int, batch []T) error) error {
	for i, b := range batches {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return err
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(i, b); err != nil {
			return err
		}
	}
	return nil
}
