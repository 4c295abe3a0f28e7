// Package views holds the controllers behind each screen of the client. A view
// owns a lifetime while mounted, loads its resources through the coordinator
// and exposes a render snapshot.
package views

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"go-feed-sync/internal/coordinator"
	"go-feed-sync/internal/lifecycle"
	"go-feed-sync/internal/syncerr"
)

// View is the surface shared by every controller
type View interface {
	Name() string
	Mount(ctx context.Context)
	Unmount()
	Mounted() bool
	// Retry forces a fresh fetch with a visible loading transition
	Retry(ctx context.Context) error
	Snapshot() any
}

// Status is the loading and error part of a snapshot
type Status struct {
	Loading       bool             `json:"loading"`
	Error         string           `json:"error,omitempty"`
	ErrorCategory syncerr.Category `json:"error_category,omitempty"`
	UpdatedAt     time.Time        `json:"updated_at,omitempty"`
}

// base carries the bookkeeping shared by views. Data fields of the embedding
// view are guarded by mu and only written from apply callbacks.
type base struct {
	name   string
	coord  *coordinator.Coordinator
	logger *zap.Logger

	lifeMu sync.Mutex
	life   *lifecycle.Lifetime

	mu        sync.Mutex
	loading   int
	err       error
	updatedAt time.Time
	applied   map[string]uint64
}

func newBase(name string, coord *coordinator.Coordinator, logger *zap.Logger) base {
	return base{
		name:    name,
		coord:   coord,
		logger:  logger.With(zap.String("view", name)),
		applied: make(map[string]uint64),
	}
}

// Name returns the view name
func (b *base) Name() string {
	return b.name
}

// mount replaces any previous lifetime with a fresh one
func (b *base) mount(parent context.Context) *lifecycle.Lifetime {
	life := lifecycle.NewLifetime(parent)

	b.lifeMu.Lock()
	prev := b.life
	b.life = life
	b.lifeMu.Unlock()

	// Tasks of the previous lifetime may still read b.life, so it is
	// unmounted outside lifeMu.
	if prev != nil {
		prev.Unmount()
	}
	b.resetLoading()
	b.logger.Debug("View mounted")
	return life
}

// Unmount cancels everything the current lifetime owns
func (b *base) Unmount() {
	b.lifeMu.Lock()
	life := b.life
	b.life = nil
	b.lifeMu.Unlock()

	if life == nil {
		return
	}
	life.Unmount()
	b.resetLoading()
	b.logger.Debug("View unmounted")
}

// Mounted reports whether the view currently has a live lifetime
func (b *base) Mounted() bool {
	life := b.lifetime()
	return life != nil && life.Mounted()
}

func (b *base) lifetime() *lifecycle.Lifetime {
	b.lifeMu.Lock()
	defer b.lifeMu.Unlock()
	return b.life
}

// current returns the mounted lifetime or ErrNotMounted
func (b *base) current() (*lifecycle.Lifetime, error) {
	life := b.lifetime()
	if life == nil || !life.Mounted() {
		return nil, ErrNotMounted
	}
	return life, nil
}

func (b *base) resetLoading() {
	b.mu.Lock()
	b.loading = 0
	b.mu.Unlock()
}

// setLoading keeps a counter so overlapping visible loads settle correctly
func (b *base) setLoading(loading bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if loading {
		b.loading++
	} else if b.loading > 0 {
		b.loading--
	}
}

func (b *base) status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.statusLocked()
}

func (b *base) statusLocked() Status {
	st := Status{
		Loading:   b.loading > 0,
		UpdatedAt: b.updatedAt,
	}
	if b.err != nil {
		st.Error = b.err.Error()
		st.ErrorCategory = syncerr.Categorize(b.err)
	}
	return st
}

// Err returns the last load error, cleared by the next applied result
func (b *base) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

// Loading reports whether a visible load is pending
func (b *base) Loading() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loading > 0
}

func (b *base) fail(life *lifecycle.Lifetime, key string, err error) {
	life.Guard(func() {
		b.mu.Lock()
		b.err = err
		b.mu.Unlock()
	})
	b.logger.Warn("Failed to load view resource", zap.String("key", key), zap.Error(err))
}

// load runs one coordinated load for key and applies the decoded value under
// the lifetime guard. Results older than the last applied generation of the
// key are dropped so a slow settle never overwrites a newer one.
func load[T any](ctx context.Context, b *base, life *lifecycle.Lifetime, key string, fetch func(ctx context.Context) (T, error), opts coordinator.Options, apply func(value T)) error {
	opts.Owner = life
	opts.OnLoading = b.setLoading

	value, res, err := coordinator.LoadAs(ctx, b.coord, key, fetch, opts)
	if err != nil {
		if syncerr.IsCancellation(err) {
			return nil
		}
		b.fail(life, key, err)
		return err
	}
	if !res.Updated() {
		return nil
	}

	life.Guard(func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if res.Generation < b.applied[key] {
			return
		}
		b.applied[key] = res.Generation
		b.err = nil
		b.updatedAt = res.FetchedAt
		apply(value)
	})
	return nil
}

// initial is the load issued on mount
func initial(ttl time.Duration) coordinator.Options {
	return coordinator.Options{ShowLoadingIfCold: true, TTL: ttl}
}

// background is a poll tick. It always reaches the network, since a tick
// lands about one TTL after the previous write and would otherwise hit the
// cache, but it never shows loading.
func background(ttl time.Duration) coordinator.Options {
	return coordinator.Options{ForceFetch: true, TTL: ttl}
}

// retry is a user initiated reload
func retry(ttl time.Duration) coordinator.Options {
	return coordinator.Options{ForceFetch: true, ShowLoading: true, TTL: ttl}
}

// refresh is a manual reload that keeps the current data on screen
func refresh(ttl time.Duration) coordinator.Options {
	return coordinator.Options{ForceFetch: true, TTL: ttl}
}
