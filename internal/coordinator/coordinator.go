// Package coordinator orchestrates cached, cancellable loads tied to the
// lifetime of the views that issue them.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"go-feed-sync/internal/cache"
	"go-feed-sync/internal/metrics"
	"go-feed-sync/internal/models"
	"go-feed-sync/internal/syncerr"
)

// Fetcher performs the network call for one key. It must honour ctx.
type Fetcher func(ctx context.Context) ([]byte, error)

// Owner is the lifetime a load belongs to. lifecycle.Lifetime implements it.
type Owner interface {
	Mounted() bool
	Track(cancel context.CancelFunc) (release func())
	Guard(fn func()) bool
}

// Options tune a single Load
type Options struct {
	// ForceFetch skips the freshness check
	ForceFetch bool
	// ShowLoadingIfCold shows loading only when the key has no entry at all
	ShowLoadingIfCold bool
	// ShowLoading always shows loading, used by user initiated retries
	ShowLoading bool
	// TTL of the stored entry, zero uses the store default
	TTL time.Duration
	// Owner guards writes after teardown, nil means process lifetime
	Owner Owner
	// OnLoading receives exactly one true and one false per visible load
	OnLoading func(loading bool)
}

// Outcome tells a caller what Load did
type Outcome string

const (
	OutcomeCacheHit      Outcome = "cache_hit"
	OutcomeFetched       Outcome = "fetched"
	OutcomeCacheFallback Outcome = "cache_fallback"
	OutcomeDiscarded     Outcome = "discarded"
)

// Result of a Load. Discarded results carry no payload and must not be
// applied to any view state.
type Result struct {
	Key        string
	Payload    []byte
	FetchedAt  time.Time
	Generation uint64
	Outcome    Outcome
}

// Updated reports whether the result carries data to apply
func (r Result) Updated() bool {
	return r.Outcome != OutcomeDiscarded
}

type inFlight struct {
	generation uint64
	cancel     context.CancelFunc
	id         uuid.UUID
}

// Coordinator deduplicates and supersedes loads per key over a shared store
type Coordinator struct {
	store  *cache.Store
	logger *zap.Logger

	mu          sync.Mutex
	inflight    map[string]*inFlight
	generations map[string]uint64
}

// New creates a coordinator over store
func New(store *cache.Store, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		store:       store,
		logger:      logger,
		inflight:    make(map[string]*inFlight),
		generations: make(map[string]uint64),
	}
}

// Store returns the underlying cache store
func (c *Coordinator) Store() *cache.Store {
	return c.store
}

// Load returns the payload for key, from the store while fresh, otherwise
// from fetch. A newer Load for the same key cancels an older one in flight,
// and only the newest generation may write to the store. Cancellation and
// writes after teardown resolve to OutcomeDiscarded with a nil error.
func (c *Coordinator) Load(ctx context.Context, key string, fetch Fetcher, opts Options) (Result, error) {
	resource := cache.Resource(key)

	if !opts.ForceFetch {
		if entry, ok := c.store.Fresh(key, nil); ok {
			metrics.RecordFetchResult(resource, string(OutcomeCacheHit))
			return resultFrom(entry, c.Generation(key), OutcomeCacheHit), nil
		}
	}

	_, warm := c.store.Get(key)

	fetchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	gen, requestID := c.begin(key, cancel)
	defer c.finish(key, gen)

	if opts.Owner != nil {
		release := opts.Owner.Track(cancel)
		defer release()
	}

	logger := c.logger.With(
		zap.String("key", key),
		zap.Uint64("generation", gen),
		zap.String("request_id", requestID.String()))

	visible := opts.OnLoading != nil && (opts.ShowLoading || (!warm && opts.ShowLoadingIfCold))
	if visible {
		c.guard(opts.Owner, func() { opts.OnLoading(true) })
		defer c.guard(opts.Owner, func() { opts.OnLoading(false) })
	}

	start := time.Now()
	done := metrics.IncInFlight()
	payload, err := fetch(fetchCtx)
	done()
	metrics.ObserveFetchDuration(resource, time.Since(start))

	if err == nil {
		var written *models.CacheEntry
		c.guard(opts.Owner, func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if c.generations[key] != gen {
				return
			}
			written = c.store.Put(key, payload, opts.TTL)
		})
		if written == nil {
			logger.Debug("Discarding response for superseded or unmounted load")
			metrics.RecordFetchResult(resource, string(OutcomeDiscarded))
			return Result{Key: key, Generation: gen, Outcome: OutcomeDiscarded}, nil
		}

		metrics.RecordFetchResult(resource, string(OutcomeFetched))
		return resultFrom(written, gen, OutcomeFetched), nil
	}

	if syncerr.IsCancellation(err) || errors.Is(fetchCtx.Err(), context.Canceled) || !c.current(key, gen) || !mounted(opts.Owner) {
		logger.Debug("Load cancelled", zap.Error(err))
		metrics.RecordFetchResult(resource, string(OutcomeDiscarded))
		return Result{Key: key, Generation: gen, Outcome: OutcomeDiscarded}, nil
	}

	category := syncerr.Categorize(err)
	metrics.RecordFetchError(resource, string(category))

	if entry, ok := c.store.Fresh(key, nil); ok {
		logger.Warn("Fetch failed, serving cached payload",
			zap.String("category", string(category)),
			zap.Error(err))
		metrics.RecordFetchResult(resource, string(OutcomeCacheFallback))
		return resultFrom(entry, gen, OutcomeCacheFallback), nil
	}

	logger.Warn("Fetch failed", zap.String("category", string(category)), zap.Error(err))
	return Result{Key: key, Generation: gen}, fmt.Errorf("failed to load %s: %w", key, err)
}

// InFlight reports whether a fetch for key is currently in flight
func (c *Coordinator) InFlight(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.inflight[key]
	return ok
}

// Generation returns the latest generation issued for key
func (c *Coordinator) Generation(key string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[key]
}

// Cancel aborts the in-flight fetch for key, if any
func (c *Coordinator) Cancel(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if req, ok := c.inflight[key]; ok {
		req.cancel()
		c.generations[key]++
		delete(c.inflight, key)
	}
}

func (c *Coordinator) begin(key string, cancel context.CancelFunc) (uint64, uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if prev, ok := c.inflight[key]; ok {
		prev.cancel()
		metrics.RecordSuperseded(cache.Resource(key))
		c.logger.Debug("Superseding in-flight load",
			zap.String("key", key),
			zap.Uint64("generation", prev.generation),
			zap.String("request_id", prev.id.String()))
	}

	// Evicting here keeps the check and the delete atomic with respect to Put.
	c.store.EvictStale(key)

	gen := c.generations[key] + 1
	c.generations[key] = gen
	req := &inFlight{generation: gen, cancel: cancel, id: uuid.New()}
	c.inflight[key] = req
	return gen, req.id
}

// invalidate drops the entry for key unless a newer load has begun since gen
func (c *Coordinator) invalidate(key string, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generations[key] == gen {
		c.store.Invalidate(key)
	}
}

func (c *Coordinator) finish(key string, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if req, ok := c.inflight[key]; ok && req.generation == gen {
		delete(c.inflight, key)
	}
}

func (c *Coordinator) current(key string, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[key] == gen
}

func (c *Coordinator) guard(owner Owner, fn func()) bool {
	if owner == nil {
		fn()
		return true
	}
	return owner.Guard(fn)
}

func mounted(owner Owner) bool {
	return owner == nil || owner.Mounted()
}

func resultFrom(entry *models.CacheEntry, gen uint64, outcome Outcome) Result {
	return Result{
		Key:        entry.Key,
		Payload:    entry.Payload,
		FetchedAt:  entry.FetchedAt,
		Generation: gen,
		Outcome:    outcome,
	}
}
