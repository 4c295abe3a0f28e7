package batch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

type call struct {
	key   string
	start time.Time
	end   time.Time
}

type recordingFetcher struct {
	mu       sync.Mutex
	calls    []call
	active   atomic.Int32
	overlaps atomic.Int32
	work     time.Duration
	fail     map[string]error
}

func (f *recordingFetcher) Fetch(ctx context.Context, key string) (float64, error) {
	if f.active.Add(1) > 1 {
		f.overlaps.Add(1)
	}
	defer f.active.Add(-1)

	start := time.Now()
	if f.work > 0 {
		time.Sleep(f.work)
	}
	end := time.Now()

	f.mu.Lock()
	f.calls = append(f.calls, call{key: key, start: start, end: end})
	f.mu.Unlock()

	if err := f.fail[key]; err != nil {
		return 0, err
	}
	return float64(len(key)), nil
}

func (f *recordingFetcher) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func TestFetchAll_RateLimitedBatch(t *testing.T) {
	f := &recordingFetcher{work: 5 * time.Millisecond}

	var partials []map[string]float64
	res := FetchAll(context.Background(), []string{"AAPL", "TSLA", "NVDA"}, f.Fetch, Options{InterItemDelay: 100 * time.Millisecond},
		func(item Item[float64], partial map[string]float64) {
			partials = append(partials, partial)
		})

	calls := f.Calls()
	require.Len(t, calls, 3, "exactly 3 calls")
	assert.Equal(t, int32(0), f.overlaps.Load(), "calls are sequential")
	assert.Equal(t, []string{"AAPL", "TSLA", "NVDA"}, []string{calls[0].key, calls[1].key, calls[2].key})

	for i := 1; i < len(calls); i++ {
		assert.GreaterOrEqual(t, calls[i].start.Sub(calls[i-1].start), 100*time.Millisecond, "calls spaced at least the delay apart")
		assert.GreaterOrEqual(t, calls[i].start.Sub(calls[i-1].end), 100*time.Millisecond)
	}

	require.Len(t, partials, 3, "partial result after each item")
	assert.Len(t, partials[0], 1)
	assert.Len(t, partials[1], 2)
	assert.Len(t, partials[2], 3)

	assert.True(t, res.Completed)
	assert.Equal(t, map[string]float64{"AAPL": 4, "TSLA": 4, "NVDA": 4}, res.Values)
}

func TestFetchAll_Limit(t *testing.T) {
	f := &recordingFetcher{}

	res := FetchAll(context.Background(), []string{"A", "B", "C", "D", "E", "F", "G"}, f.Fetch, Options{Limit: 5}, nil)

	assert.Len(t, f.Calls(), 5)
	assert.True(t, res.Completed)
	assert.NotContains(t, res.Values, "F")
}

func TestFetchAll_ItemErrorsAreIsolated(t *testing.T) {
	boom := errors.New("upstream 500")
	f := &recordingFetcher{fail: map[string]error{"TSLA": boom}}

	var emitted []string
	res := FetchAll(context.Background(), []string{"AAPL", "TSLA", "NVDA"}, f.Fetch, Options{}, func(item Item[float64], _ map[string]float64) {
		emitted = append(emitted, item.Key)
	})

	assert.Equal(t, []string{"AAPL", "TSLA", "NVDA"}, emitted)
	assert.True(t, res.Completed)
	assert.Equal(t, boom, res.Errors["TSLA"])
	assert.NotContains(t, res.Values, "TSLA")
	assert.Len(t, res.Values, 2)
}

func TestFetchAll_StopsOnCancelDuringDelay(t *testing.T) {
	f := &recordingFetcher{}
	ctx, cancel := context.WithCancel(context.Background())

	res := FetchAll(ctx, []string{"AAPL", "TSLA", "NVDA"}, f.Fetch, Options{InterItemDelay: time.Hour}, func(item Item[float64], _ map[string]float64) {
		cancel() // teardown right after the first item
	})

	assert.Len(t, f.Calls(), 1, "no further item dispatched after teardown")
	assert.False(t, res.Completed)
	assert.Len(t, res.Values, 1)
}

func TestFetchAll_CancelledItemIsNotEmitted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var emitted int
	res := FetchAll(ctx, []string{"AAPL", "TSLA"}, func(ctx context.Context, key string) (float64, error) {
		cancel()
		return 1, nil
	}, Options{}, func(Item[float64], map[string]float64) { emitted++ })

	assert.Equal(t, 0, emitted)
	assert.False(t, res.Completed)
	assert.Empty(t, res.Values)
}

func TestFetchAll_AlreadyCancelled(t *testing.T) {
	f := &recordingFetcher{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := FetchAll(ctx, []string{"AAPL"}, f.Fetch, Options{}, nil)

	assert.Empty(t, f.Calls())
	assert.False(t, res.Completed)
}

func TestFetchAll_Empty(t *testing.T) {
	res := FetchAll(context.Background(), nil, (&recordingFetcher{}).Fetch, Options{}, nil)
	assert.True(t, res.Completed)
	assert.Empty(t, res.Values)
}

func TestFetchAll_SharedLimiter(t *testing.T) {
	f := &recordingFetcher{}
	limiter := rate.NewLimiter(rate.Every(50*time.Millisecond), 1)

	FetchAll(context.Background(), []string{"A", "B", "C"}, f.Fetch, Options{Limiter: limiter}, nil)

	calls := f.Calls()
	require.Len(t, calls, 3)
	// Burst of one lets the first call through immediately, later ones wait.
	assert.GreaterOrEqual(t, calls[2].start.Sub(calls[0].start), 90*time.Millisecond)
}

func TestSequence_EarlyBreak(t *testing.T) {
	f := &recordingFetcher{}

	for item := range Sequence(context.Background(), []string{"A", "B", "C"}, f.Fetch, Options{}) {
		if item.Key == "A" {
			break
		}
	}

	assert.Len(t, f.Calls(), 1)
}

func TestTruncate(t *testing.T) {
	keys := []string{"a", "b", "c"}
	assert.Equal(t, keys, Truncate(keys, 0))
	assert.Equal(t, keys, Truncate(keys, 5))
	assert.Equal(t, []string{"a", "b"}, Truncate(keys, 2))
}
