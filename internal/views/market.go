package views

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"go-feed-sync/internal/batch"
	"go-feed-sync/internal/cache"
	"go-feed-sync/internal/config"
	"go-feed-sync/internal/coordinator"
	"go-feed-sync/internal/lifecycle"
	"go-feed-sync/internal/models"
	"go-feed-sync/internal/ranking"
	"go-feed-sync/internal/syncerr"
)

// MarketClient fetches live ticker data
type MarketClient interface {
	Ticker(ctx context.Context, symbol string) (models.MarketSnapshot, error)
}

// Quote is one ticker of the market panel with its badges
type Quote struct {
	models.MarketSnapshot
	Badges []ranking.Badge `json:"badges"`
}

// MarketState is the render state of the market panel
type MarketState struct {
	Status
	Tickers     []string          `json:"tickers"`
	Quotes      []Quote           `json:"quotes"`
	Errors      map[string]string `json:"errors,omitempty"`
	LastRefresh time.Time         `json:"last_refresh,omitempty"`
}

// Market shows live data for a handful of tickers. Tickers are fetched one at
// a time with a pause in between, and each result is published as it lands.
type Market struct {
	base
	client       MarketClient
	ttl          time.Duration
	interval     time.Duration
	initialDelay time.Duration
	batchOpts    batch.Options

	running atomic.Bool
	// pending is set by a ticker change and drained by the running batch
	pending atomic.Bool

	batchMu     sync.Mutex
	batchCancel context.CancelFunc

	tickers     []string
	quotes      map[string]models.MarketSnapshot
	errs        map[string]error
	lastRefresh time.Time

	onUpdate func(map[string]models.MarketSnapshot)
}

var _ View = (*Market)(nil)

// NewMarket creates the market view. limiter may be nil or shared with other
// consumers of the ticker endpoint.
func NewMarket(coord *coordinator.Coordinator, client MarketClient, ttl time.Duration, cfg config.MarketView, limiter *rate.Limiter, logger *zap.Logger) *Market {
	m := &Market{
		base:         newBase("market", coord, logger),
		client:       client,
		ttl:          ttl,
		interval:     cfg.RefreshInterval,
		initialDelay: cfg.InitialDelay,
		batchOpts: batch.Options{
			Limit:          cfg.Limit,
			InterItemDelay: cfg.InterItemDelay,
			Limiter:        limiter,
			Name:           "market",
		},
		quotes: make(map[string]models.MarketSnapshot),
		errs:   make(map[string]error),
	}
	m.tickers = normalizeTickers(cfg.Tickers)
	return m
}

func normalizeTickers(symbols []string) []string {
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" && !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}

// OnUpdate registers fn to receive the values of every finished batch. Set
// before Mount.
func (m *Market) OnUpdate(fn func(map[string]models.MarketSnapshot)) {
	m.onUpdate = fn
}

// SetTickers replaces the watched tickers. A change while mounted cancels the
// running batch, which then restarts on the new list, and schedules a new batch
// after the initial delay for when nothing is running.
func (m *Market) SetTickers(symbols []string) {
	tickers := normalizeTickers(symbols)

	m.mu.Lock()
	changed := !slices.Equal(m.tickers, tickers)
	m.tickers = tickers
	m.mu.Unlock()

	if !changed {
		return
	}
	life, err := m.current()
	if err != nil {
		return
	}
	m.pending.Store(true)
	m.cancelBatch()
	life.After(m.initialDelay, func(ctx context.Context) {
		m.run(ctx, life, false, false)
	})
}

func (m *Market) cancelBatch() {
	m.batchMu.Lock()
	defer m.batchMu.Unlock()
	if m.batchCancel != nil {
		m.batchCancel()
	}
}

// Mount schedules the first batch after the initial delay and starts polling
func (m *Market) Mount(ctx context.Context) {
	life := m.mount(ctx)
	life.After(m.initialDelay, func(ctx context.Context) {
		m.run(ctx, life, false, false)
	})
	life.Every(m.interval, m.interval, func(ctx context.Context) {
		m.run(ctx, life, false, false)
	})
}

// Retry refetches every ticker with a visible loading transition
func (m *Market) Retry(ctx context.Context) error {
	life, err := m.current()
	if err != nil {
		return err
	}
	if !m.run(ctx, life, true, true) {
		return ErrRefreshInProgress
	}
	return nil
}

// run executes batches until no ticker change is pending. It returns false
// when another batch is running.
func (m *Market) run(ctx context.Context, life *lifecycle.Lifetime, force, showLoading bool) bool {
	m.mu.Lock()
	empty := len(m.tickers) == 0
	m.mu.Unlock()
	if empty {
		return true
	}

	for {
		if !m.running.CompareAndSwap(false, true) {
			return false
		}
		m.pending.Store(false)
		m.runBatch(ctx, life, force, showLoading)
		m.running.Store(false)

		// A change that landed after the swap above restarts on the new list.
		// One that lands after this check is picked up by the run SetTickers
		// scheduled.
		if !m.pending.Load() || ctx.Err() != nil || !life.Mounted() {
			return true
		}
	}
}

func (m *Market) runBatch(ctx context.Context, life *lifecycle.Lifetime, force, showLoading bool) {
	m.mu.Lock()
	tickers := slices.Clone(m.tickers)
	cold := len(m.quotes) == 0
	m.mu.Unlock()

	if len(tickers) == 0 {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	m.batchMu.Lock()
	m.batchCancel = cancel
	m.batchMu.Unlock()
	defer func() {
		m.batchMu.Lock()
		m.batchCancel = nil
		m.batchMu.Unlock()
	}()

	if showLoading || cold {
		if life.Guard(func() { m.setLoading(true) }) {
			defer life.Guard(func() { m.setLoading(false) })
		}
	}

	fetch := func(ctx context.Context, symbol string) (models.MarketSnapshot, error) {
		key := cache.TickerKey(symbol)
		fetchTicker := func(ctx context.Context) (models.MarketSnapshot, error) {
			return m.client.Ticker(ctx, symbol)
		}
		value, res, err := coordinator.LoadAs(ctx, m.coord, key, fetchTicker, coordinator.Options{
			ForceFetch: force,
			TTL:        m.ttl,
			Owner:      life,
		})
		if err != nil {
			return value, err
		}
		if !res.Updated() {
			return value, syncerr.Canceled("load "+key, context.Canceled)
		}
		return value, nil
	}

	results := batch.FetchAll(ctx, tickers, fetch, m.batchOpts, func(item batch.Item[models.MarketSnapshot], _ map[string]models.MarketSnapshot) {
		life.Guard(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			if item.Err != nil {
				m.errs[item.Key] = item.Err
				return
			}
			delete(m.errs, item.Key)
			m.quotes[item.Key] = item.Value
		})
		if item.Err != nil {
			m.logger.Warn("Failed to fetch ticker", zap.String("ticker", item.Key), zap.Error(item.Err))
		}
	})

	if !results.Completed {
		return
	}

	life.Guard(func() {
		m.mu.Lock()
		m.lastRefresh = time.Now()
		m.updatedAt = m.lastRefresh
		m.mu.Unlock()
	})
	if m.onUpdate != nil && life.Mounted() {
		m.onUpdate(results.Values)
	}
}

// Quotes returns the latest snapshot per ticker
func (m *Market) Quotes() map[string]models.MarketSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return maps.Clone(m.quotes)
}

// Contexts derives the ranking market context of every quoted ticker
func (m *Market) Contexts() map[string]*ranking.MarketContext {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]*ranking.MarketContext, len(m.quotes))
	for symbol, snap := range m.quotes {
		out[symbol] = ranking.MarketContextFromSnapshot(snap)
	}
	return out
}

// Snapshot implements View
func (m *Market) Snapshot() any {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := MarketState{
		Status:      m.statusLocked(),
		Tickers:     slices.Clone(m.tickers),
		LastRefresh: m.lastRefresh,
	}
	for _, symbol := range m.tickers {
		q, ok := m.quotes[symbol]
		if !ok {
			continue
		}
		snap.Quotes = append(snap.Quotes, Quote{MarketSnapshot: q, Badges: ranking.Badges(q)})
	}
	if len(m.errs) > 0 {
		snap.Errors = make(map[string]string, len(m.errs))
		for symbol, err := range m.errs {
			snap.Errors[symbol] = err.Error()
		}
	}
	return snap
}
