// Package batch fetches a bounded list of sub-resources one at a time with
// pacing, publishing each result as it arrives.
package batch

import (
	"context"
	"iter"
	"maps"
	"time"

	"golang.org/x/time/rate"

	"go-feed-sync/internal/metrics"
	"go-feed-sync/internal/syncerr"
)

// Options bound and pace a batch
type Options struct {
	// Limit truncates the key list, zero or less keeps every key
	Limit int
	// InterItemDelay separates the end of one fetch from the start of the next
	InterItemDelay time.Duration
	// Limiter, when set, is waited on before every fetch and may be shared
	// between batches hitting the same remote
	Limiter *rate.Limiter
	// Name labels batch metrics
	Name string
}

// Item is the outcome of one key. Err is set for per-item failures.
type Item[T any] struct {
	Index      int
	Key        string
	Value      T
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// Results is the final state of a batch
type Results[T any] struct {
	Values map[string]T
	Errors map[string]error
	// Completed is false when the batch stopped before the last key
	Completed bool
}

// Truncate returns at most limit keys
func Truncate(keys []string, limit int) []string {
	if limit > 0 && len(keys) > limit {
		return keys[:limit]
	}
	return keys
}

// Sequence yields one Item per key, strictly one fetch at a time. Dispatch
// stops as soon as ctx is done; an item whose fetch was cancelled is not
// yielded.
func Sequence[T any](ctx context.Context, keys []string, fetch func(ctx context.Context, key string) (T, error), opts Options) iter.Seq[Item[T]] {
	keys = Truncate(keys, opts.Limit)
	name := opts.Name
	if name == "" {
		name = "default"
	}

	return func(yield func(Item[T]) bool) {
		for i, key := range keys {
			if i > 0 && opts.InterItemDelay > 0 {
				if !sleep(ctx, opts.InterItemDelay) {
					metrics.RecordBatchItem(name, "stopped")
					return
				}
			}
			if opts.Limiter != nil {
				if err := opts.Limiter.Wait(ctx); err != nil {
					metrics.RecordBatchItem(name, "stopped")
					return
				}
			}
			if ctx.Err() != nil {
				metrics.RecordBatchItem(name, "stopped")
				return
			}

			item := Item[T]{Index: i, Key: key, StartedAt: time.Now()}
			item.Value, item.Err = fetch(ctx, key)
			item.FinishedAt = time.Now()

			if ctx.Err() != nil || syncerr.IsCancellation(item.Err) {
				metrics.RecordBatchItem(name, "stopped")
				return
			}

			if item.Err != nil {
				metrics.RecordBatchItem(name, "error")
			} else {
				metrics.RecordBatchItem(name, "ok")
			}

			if !yield(item) {
				return
			}
		}
	}
}

// FetchAll drains Sequence, calling emit after every item with a snapshot of
// the values gathered so far. emit may be nil.
func FetchAll[T any](ctx context.Context, keys []string, fetch func(ctx context.Context, key string) (T, error), opts Options, emit func(item Item[T], partial map[string]T)) Results[T] {
	res := Results[T]{
		Values: make(map[string]T),
		Errors: make(map[string]error),
	}

	want := len(Truncate(keys, opts.Limit))
	seen := 0
	for item := range Sequence(ctx, keys, fetch, opts) {
		seen++
		if item.Err != nil {
			res.Errors[item.Key] = item.Err
		} else {
			res.Values[item.Key] = item.Value
		}
		if emit != nil {
			emit(item, maps.Clone(res.Values))
		}
	}

	res.Completed = seen == want
	return res
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
