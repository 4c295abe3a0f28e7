package views

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"go-feed-sync/internal/cache"
	"go-feed-sync/internal/coordinator"
	"go-feed-sync/internal/lifecycle"
	"go-feed-sync/internal/models"
)

// ErrRefreshInProgress is returned when a manual refresh overlaps another
var ErrRefreshInProgress = errors.New("refresh already in progress")

// TrendingClient fetches the trending tickers
type TrendingClient interface {
	Trending(ctx context.Context, limit int) ([]models.TrendingTicker, error)
}

// TrendingSnapshot is the render state of the trending panel
type TrendingSnapshot struct {
	Status
	HasData    bool                    `json:"has_data"`
	Refreshing bool                    `json:"refreshing"`
	Tickers    []models.TrendingTicker `json:"tickers"`
}

// Trending lists the most discussed tickers
type Trending struct {
	base
	client   TrendingClient
	ttl      time.Duration
	interval time.Duration
	limit    int

	refreshing atomic.Bool

	tickers []models.TrendingTicker
	hasData bool
}

var _ View = (*Trending)(nil)

// NewTrending creates the trending view
func NewTrending(coord *coordinator.Coordinator, client TrendingClient, ttl, interval time.Duration, limit int, logger *zap.Logger) *Trending {
	return &Trending{
		base:     newBase("trending", coord, logger),
		client:   client,
		ttl:      ttl,
		interval: interval,
		limit:    limit,
	}
}

// Mount loads the list and starts polling
func (t *Trending) Mount(ctx context.Context) {
	life := t.mount(ctx)
	go func() { _ = t.loadCtx(life.Context(), life, initial(t.ttl)) }()
	life.Every(t.interval, t.interval, func(ctx context.Context) {
		_ = t.loadCtx(ctx, life, background(t.ttl))
	})
}

// Retry reloads the list with a visible loading transition
func (t *Trending) Retry(ctx context.Context) error {
	life, err := t.current()
	if err != nil {
		return err
	}
	return t.loadCtx(ctx, life, retry(t.ttl))
}

// Refresh is the manual refresh button: it bypasses the cache, keeps the
// current list on screen and refuses to overlap itself.
func (t *Trending) Refresh(ctx context.Context) error {
	life, err := t.current()
	if err != nil {
		return err
	}
	if !t.refreshing.CompareAndSwap(false, true) {
		return ErrRefreshInProgress
	}
	defer t.refreshing.Store(false)

	return t.loadCtx(ctx, life, refresh(t.ttl))
}

func (t *Trending) loadCtx(ctx context.Context, life *lifecycle.Lifetime, opts coordinator.Options) error {
	fetch := func(ctx context.Context) ([]models.TrendingTicker, error) {
		return t.client.Trending(ctx, t.limit)
	}
	return load(ctx, &t.base, life, cache.TrendingKey(t.limit), fetch, opts, func(value []models.TrendingTicker) {
		t.tickers = value
		t.hasData = true
	})
}

// Tickers returns the last applied list
func (t *Trending) Tickers() []models.TrendingTicker {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]models.TrendingTicker(nil), t.tickers...)
}

// Snapshot implements View
func (t *Trending) Snapshot() any {
	t.mu.Lock()
	defer t.mu.Unlock()
	return TrendingSnapshot{
		Status:     t.statusLocked(),
		HasData:    t.hasData,
		Refreshing: t.refreshing.Load(),
		Tickers:    append([]models.TrendingTicker(nil), t.tickers...),
	}
}
