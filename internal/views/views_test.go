package views

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"go-feed-sync/internal/cache"
	"go-feed-sync/internal/cache/memory"
	"go-feed-sync/internal/config"
	"go-feed-sync/internal/coordinator"
	"go-feed-sync/internal/models"
	"go-feed-sync/internal/ranking"
	"go-feed-sync/internal/syncerr"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

func newTestCoordinator(t *testing.T) *coordinator.Coordinator {
	t.Helper()
	store := cache.NewStore(memory.NewMemoryCache(), 30*time.Second, time.Now, zaptest.NewLogger(t))
	return coordinator.New(store, zaptest.NewLogger(t))
}

type dashboardFunc func(ctx context.Context) (models.DashboardAnalytics, error)

func (f dashboardFunc) Dashboard(ctx context.Context) (models.DashboardAnalytics, error) {
	return f(ctx)
}

type trendingFunc func(ctx context.Context, limit int) ([]models.TrendingTicker, error)

func (f trendingFunc) Trending(ctx context.Context, limit int) ([]models.TrendingTicker, error) {
	return f(ctx, limit)
}

type tickerFunc func(ctx context.Context, symbol string) (models.MarketSnapshot, error)

func (f tickerFunc) Ticker(ctx context.Context, symbol string) (models.MarketSnapshot, error) {
	return f(ctx, symbol)
}

type feedFunc func(ctx context.Context, page, pageSize int) (models.FeedPage, error)

func (f feedFunc) PersonalizedFeed(ctx context.Context, page, pageSize int) (models.FeedPage, error) {
	return f(ctx, page, pageSize)
}

type usersFunc func(ctx context.Context) ([]models.User, error)

func (f usersFunc) Users(ctx context.Context) ([]models.User, error) {
	return f(ctx)
}

func sampleDashboard(ticker string) models.DashboardAnalytics {
	return models.DashboardAnalytics{
		TrendingTickers:     []models.TrendingTicker{{Ticker: ticker, PostCount: 3}},
		TopInsights:         []models.Post{},
		TopUsers:            []models.User{},
		AggregatedSentiment: map[string]float64{ticker: 0.5},
	}
}

func TestDashboardMountLoadsData(t *testing.T) {
	var calls atomic.Int32
	client := dashboardFunc(func(ctx context.Context) (models.DashboardAnalytics, error) {
		calls.Add(1)
		return sampleDashboard("NVDA"), nil
	})

	var updates atomic.Int32
	d := NewDashboard(newTestCoordinator(t), client, 30*time.Second, time.Hour, zaptest.NewLogger(t))
	d.OnUpdate(func(models.DashboardAnalytics) { updates.Add(1) })

	d.Mount(context.Background())
	defer d.Unmount()

	require.Eventually(t, func() bool { return updates.Load() == 1 }, waitFor, tick)

	snap := d.Snapshot().(DashboardSnapshot)
	assert.True(t, snap.HasData)
	assert.False(t, snap.Loading)
	assert.Empty(t, snap.Error)
	assert.Equal(t, "NVDA", snap.Analytics.TrendingTickers[0].Ticker)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, int32(1), updates.Load())
}

func TestPollTicksRefetchFreshCache(t *testing.T) {
	var dashCalls, trendCalls atomic.Int32
	dash := dashboardFunc(func(ctx context.Context) (models.DashboardAnalytics, error) {
		dashCalls.Add(1)
		return sampleDashboard("NVDA"), nil
	})
	trend := trendingFunc(func(ctx context.Context, limit int) ([]models.TrendingTicker, error) {
		trendCalls.Add(1)
		return []models.TrendingTicker{{Ticker: "NVDA"}}, nil
	})

	// The TTL outlives the test, so every call past the first is a tick that
	// bypassed the cache.
	const interval = 20 * time.Millisecond
	coord := newTestCoordinator(t)
	d := NewDashboard(coord, dash, time.Hour, interval, zaptest.NewLogger(t))
	tr := NewTrending(coord, trend, time.Hour, interval, 10, zaptest.NewLogger(t))

	d.Mount(context.Background())
	defer d.Unmount()
	tr.Mount(context.Background())
	defer tr.Unmount()
	require.Eventually(t, func() bool {
		_, ok := d.Data()
		return ok && len(tr.Tickers()) == 1 && !d.Loading() && !tr.Loading()
	}, waitFor, tick)

	var sawLoading atomic.Bool
	require.Eventually(t, func() bool {
		if d.Loading() || tr.Loading() {
			sawLoading.Store(true)
		}
		return dashCalls.Load() >= 6 && trendCalls.Load() >= 6
	}, waitFor, tick)
	assert.False(t, sawLoading.Load(), "poll ticks never show loading")
}

func TestDashboardRemountUsesFreshCache(t *testing.T) {
	var calls atomic.Int32
	client := dashboardFunc(func(ctx context.Context) (models.DashboardAnalytics, error) {
		calls.Add(1)
		return sampleDashboard("NVDA"), nil
	})
	coord := newTestCoordinator(t)

	first := NewDashboard(coord, client, 30*time.Second, time.Hour, zap.NewNop())
	first.Mount(context.Background())
	require.Eventually(t, func() bool { _, ok := first.Data(); return ok }, waitFor, tick)
	first.Unmount()

	second := NewDashboard(coord, client, 30*time.Second, time.Hour, zap.NewNop())
	second.Mount(context.Background())
	defer second.Unmount()
	require.Eventually(t, func() bool { _, ok := second.Data(); return ok }, waitFor, tick)

	assert.Equal(t, int32(1), calls.Load())
}

func TestDashboardRetryShowsLoading(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	client := dashboardFunc(func(ctx context.Context) (models.DashboardAnalytics, error) {
		if calls.Add(1) > 1 {
			<-release
		}
		return sampleDashboard("AAPL"), nil
	})

	d := NewDashboard(newTestCoordinator(t), client, 30*time.Second, time.Hour, zaptest.NewLogger(t))
	d.Mount(context.Background())
	defer d.Unmount()
	require.Eventually(t, func() bool { _, ok := d.Data(); return ok }, waitFor, tick)
	require.False(t, d.Loading())

	done := make(chan error, 1)
	go func() { done <- d.Retry(context.Background()) }()

	require.Eventually(t, d.Loading, waitFor, tick)
	close(release)
	require.NoError(t, <-done)
	assert.False(t, d.Loading())
	assert.Equal(t, int32(2), calls.Load())
}

func TestDashboardErrorThenRetry(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	client := dashboardFunc(func(ctx context.Context) (models.DashboardAnalytics, error) {
		if fail.Load() {
			return models.DashboardAnalytics{}, &syncerr.TransportError{Method: "GET", Path: "/api/analytics/dashboard", StatusCode: 503}
		}
		return sampleDashboard("TSLA"), nil
	})

	d := NewDashboard(newTestCoordinator(t), client, 30*time.Second, time.Hour, zaptest.NewLogger(t))
	d.Mount(context.Background())
	defer d.Unmount()

	require.Eventually(t, func() bool { return d.Err() != nil }, waitFor, tick)
	snap := d.Snapshot().(DashboardSnapshot)
	assert.False(t, snap.HasData)
	assert.Equal(t, syncerr.HTTPError, snap.ErrorCategory)

	fail.Store(false)
	require.NoError(t, d.Retry(context.Background()))
	assert.NoError(t, d.Err())
	_, ok := d.Data()
	assert.True(t, ok)
}

func TestDashboardUnmountDropsInFlightResult(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	client := dashboardFunc(func(ctx context.Context) (models.DashboardAnalytics, error) {
		close(started)
		<-release
		return sampleDashboard("AMD"), nil
	})
	coord := newTestCoordinator(t)

	d := NewDashboard(coord, client, 30*time.Second, time.Hour, zaptest.NewLogger(t))
	d.Mount(context.Background())
	<-started
	d.Unmount()
	close(release)

	require.Eventually(t, func() bool { return !coord.InFlight(cache.DashboardKey()) }, waitFor, tick)
	_, ok := d.Data()
	assert.False(t, ok)
	assert.False(t, d.Mounted())
	_, cached := coord.Store().Get(cache.DashboardKey())
	assert.False(t, cached)
}

func TestRetryRequiresMount(t *testing.T) {
	d := NewDashboard(newTestCoordinator(t), dashboardFunc(func(ctx context.Context) (models.DashboardAnalytics, error) {
		return sampleDashboard("NVDA"), nil
	}), time.Second, time.Hour, zap.NewNop())

	assert.ErrorIs(t, d.Retry(context.Background()), ErrNotMounted)
}

func TestTrendingRefreshGuard(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	client := trendingFunc(func(ctx context.Context, limit int) ([]models.TrendingTicker, error) {
		assert.Equal(t, 10, limit)
		if calls.Add(1) > 1 {
			<-release
		}
		return []models.TrendingTicker{{Ticker: "NVDA"}}, nil
	})

	tr := NewTrending(newTestCoordinator(t), client, 45*time.Second, time.Hour, 10, zaptest.NewLogger(t))
	tr.Mount(context.Background())
	defer tr.Unmount()
	require.Eventually(t, func() bool { return len(tr.Tickers()) == 1 }, waitFor, tick)

	done := make(chan error, 1)
	go func() { done <- tr.Refresh(context.Background()) }()
	require.Eventually(t, func() bool { return tr.Snapshot().(TrendingSnapshot).Refreshing }, waitFor, tick)

	assert.ErrorIs(t, tr.Refresh(context.Background()), ErrRefreshInProgress)
	assert.False(t, tr.Loading(), "manual refresh keeps the list on screen")

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, int32(2), calls.Load())
}

func marketConfig(tickers ...string) config.MarketView {
	return config.MarketView{Limit: 5, Tickers: tickers}
}

func TestMarketFetchesSequentiallyWithinLimit(t *testing.T) {
	var (
		mu       sync.Mutex
		order    []string
		inFlight atomic.Int32
		overlap  atomic.Bool
	)
	client := tickerFunc(func(ctx context.Context, symbol string) (models.MarketSnapshot, error) {
		if inFlight.Add(1) > 1 {
			overlap.Store(true)
		}
		defer inFlight.Add(-1)

		mu.Lock()
		order = append(order, symbol)
		mu.Unlock()

		if symbol == "AMD" {
			return models.MarketSnapshot{}, &syncerr.TransportError{Method: "GET", Path: "/api/market/ticker/AMD", StatusCode: 500}
		}
		return models.MarketSnapshot{Ticker: symbol, CurrentPrice: 100, PriceChange24h: 6, VolumeChange24h: 80}, nil
	})

	updates := make(chan map[string]models.MarketSnapshot, 1)
	m := NewMarket(newTestCoordinator(t), client, 30*time.Second, marketConfig("nvda", "AAPL", "amd", "TSLA", "MSFT", "GOOG"), nil, zaptest.NewLogger(t))
	m.OnUpdate(func(values map[string]models.MarketSnapshot) { updates <- values })

	m.Mount(context.Background())
	defer m.Unmount()

	var values map[string]models.MarketSnapshot
	select {
	case values = <-updates:
	case <-time.After(waitFor):
		t.Fatal("market batch did not finish")
	}

	mu.Lock()
	assert.Equal(t, []string{"NVDA", "AAPL", "AMD", "TSLA", "MSFT"}, order)
	mu.Unlock()
	assert.False(t, overlap.Load())
	assert.Len(t, values, 4)

	require.Eventually(t, func() bool { return !m.Loading() }, waitFor, tick)
	state := m.Snapshot().(MarketState)
	require.Len(t, state.Quotes, 4)
	assert.Contains(t, state.Errors, "AMD")
	assert.Equal(t, []ranking.Badge{
		{Type: ranking.BadgeVolumeSpike, Label: "Volume Spike"},
		{Type: ranking.BadgePriceMove, Label: "Breaking Out"},
		{Type: ranking.BadgeVolatility, Label: "High Volatility"},
	}, state.Quotes[0].Badges)

	ctxs := m.Contexts()
	require.Contains(t, ctxs, "NVDA")
	assert.True(t, ctxs["NVDA"].VolumeSpike)
}

func TestMarketUnmountStopsBatch(t *testing.T) {
	var calls atomic.Int32
	first := make(chan struct{})
	client := tickerFunc(func(ctx context.Context, symbol string) (models.MarketSnapshot, error) {
		if calls.Add(1) == 1 {
			close(first)
		}
		return models.MarketSnapshot{Ticker: symbol}, nil
	})

	cfg := marketConfig("A", "B", "C")
	cfg.InterItemDelay = 200 * time.Millisecond
	m := NewMarket(newTestCoordinator(t), client, 30*time.Second, cfg, nil, zaptest.NewLogger(t))
	m.Mount(context.Background())

	<-first
	m.Unmount()
	time.Sleep(3 * cfg.InterItemDelay)

	assert.Equal(t, int32(1), calls.Load())
}

func TestMarketTickerChangeDuringBatch(t *testing.T) {
	var (
		mu      sync.Mutex
		fetched []string
	)
	started := make(chan struct{})
	var once sync.Once
	client := tickerFunc(func(ctx context.Context, symbol string) (models.MarketSnapshot, error) {
		mu.Lock()
		fetched = append(fetched, symbol)
		mu.Unlock()
		once.Do(func() { close(started) })

		select {
		case <-time.After(100 * time.Millisecond):
			return models.MarketSnapshot{Ticker: symbol, CurrentPrice: 10}, nil
		case <-ctx.Done():
			return models.MarketSnapshot{}, syncerr.Canceled("ticker "+symbol, ctx.Err())
		}
	})

	m := NewMarket(newTestCoordinator(t), client, 30*time.Second, marketConfig("AAPL", "MSFT"), nil, zaptest.NewLogger(t))
	m.Mount(context.Background())
	defer m.Unmount()

	<-started
	time.Sleep(30 * time.Millisecond)
	m.SetTickers([]string{"nvda", "tsla"})

	require.Eventually(t, func() bool {
		q := m.Quotes()
		_, nvda := q["NVDA"]
		_, tsla := q["TSLA"]
		return nvda && tsla
	}, waitFor, tick)

	mu.Lock()
	assert.Contains(t, fetched, "NVDA")
	assert.Contains(t, fetched, "TSLA")
	mu.Unlock()

	state := m.Snapshot().(MarketState)
	assert.Equal(t, []string{"NVDA", "TSLA"}, state.Tickers)
	require.Len(t, state.Quotes, 2)
	assert.Empty(t, state.Errors, "the cancelled batch records no errors")
}

func TestMarketWithoutTickers(t *testing.T) {
	m := NewMarket(newTestCoordinator(t), tickerFunc(func(ctx context.Context, symbol string) (models.MarketSnapshot, error) {
		t.Errorf("unexpected fetch of %s", symbol)
		return models.MarketSnapshot{}, nil
	}), time.Second, marketConfig(), nil, zap.NewNop())

	require.NoError(t, func() error {
		m.Mount(context.Background())
		defer m.Unmount()
		return m.Retry(context.Background())
	}())
	assert.False(t, m.Loading())
}

type staticMarkets map[string]*ranking.MarketContext

func (s staticMarkets) Contexts() map[string]*ranking.MarketContext { return s }

func feedPost(id int64, ticker string, quality float64) models.Post {
	return models.Post{ID: id, Title: fmt.Sprintf("post %d", id), Ticker: ticker, QualityScore: quality}
}

func newTestEngine(t *testing.T) *ranking.Engine {
	t.Helper()
	engine, err := ranking.NewEngine(ranking.DefaultRegistry(), ranking.Extractor{}, ranking.DefaultStrategyID, zaptest.NewLogger(t))
	require.NoError(t, err)
	return engine
}

func TestFeedPagination(t *testing.T) {
	var calls atomic.Int32
	client := feedFunc(func(ctx context.Context, page, pageSize int) (models.FeedPage, error) {
		calls.Add(1)
		assert.Equal(t, 2, pageSize)
		switch page {
		case 1:
			return models.FeedPage{Posts: []models.Post{feedPost(1, "NVDA", 20), feedPost(2, "AAPL", 90)}, Total: 3, Page: 1, PageSize: 2, HasNext: true}, nil
		case 2:
			return models.FeedPage{Posts: []models.Post{feedPost(3, "TSLA", 50)}, Total: 3, Page: 2, PageSize: 2}, nil
		default:
			return models.FeedPage{}, fmt.Errorf("unexpected page %d", page)
		}
	})

	engine := newTestEngine(t)
	f := NewFeed(newTestCoordinator(t), client, engine, staticMarkets{}, time.Minute, 2, zaptest.NewLogger(t))
	f.Mount(context.Background())
	defer f.Unmount()

	require.Eventually(t, func() bool { return len(f.Posts()) == 2 }, waitFor, tick)

	require.NoError(t, f.LoadMore(context.Background()))
	require.Len(t, f.Posts(), 3)

	state := f.Snapshot().(FeedState)
	assert.Equal(t, 2, state.Page)
	assert.False(t, state.HasNext)
	assert.Equal(t, "balanced", state.Strategy)
	assert.Equal(t, int64(2), state.Posts[0].Post.ID)

	require.NoError(t, f.LoadMore(context.Background()))
	assert.Equal(t, int32(2), calls.Load())

	// Page 1 replaces the list.
	require.NoError(t, f.Retry(context.Background()))
	assert.Len(t, f.Posts(), 2)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFeedStrategySwitchReranksWithoutFetching(t *testing.T) {
	var calls atomic.Int32
	posts := []models.Post{feedPost(1, "NVDA", 50), feedPost(2, "AAPL", 60)}
	client := feedFunc(func(ctx context.Context, page, pageSize int) (models.FeedPage, error) {
		calls.Add(1)
		return models.FeedPage{Posts: posts, Total: 2, Page: 1, PageSize: pageSize}, nil
	})

	engine := newTestEngine(t)
	markets := staticMarkets{"NVDA": {VolumeSpike: true, PriceChange24h: 8, VolumeChange24h: 90}}
	f := NewFeed(newTestCoordinator(t), client, engine, markets, time.Minute, 20, zaptest.NewLogger(t))
	f.Mount(context.Background())
	defer f.Unmount()
	require.Eventually(t, func() bool { return len(f.Posts()) == 2 }, waitFor, tick)

	panel := NewStrategyPanel(engine)

	require.NoError(t, panel.Select("quality_focused"))
	assert.Equal(t, int64(2), f.Scores()[0].Post.ID)

	require.NoError(t, panel.Select("trending"))
	assert.Equal(t, int64(1), f.Scores()[0].Post.ID)

	exp, ok := f.Explain(1)
	require.True(t, ok)
	assert.Equal(t, "trending", exp.Strategy)

	_, ok = f.Explain(99)
	assert.False(t, ok)
	assert.Equal(t, int32(1), calls.Load())
}

func TestStrategyPanel(t *testing.T) {
	panel := NewStrategyPanel(newTestEngine(t))

	opts := panel.Options()
	require.Len(t, opts, 5)
	active := 0
	for _, o := range opts {
		if o.Active {
			active++
			assert.Equal(t, "balanced", o.ID)
		}
	}
	assert.Equal(t, 1, active)

	err := panel.Select("nope")
	assert.True(t, errors.Is(err, ranking.ErrUnknownStrategy))
	assert.Equal(t, "balanced", panel.Active().ID)
}

type fakeChat struct {
	mu            sync.Mutex
	sent          []models.NewMessage
	threadCalls   map[int64]int
	listCalls     int
	threadStarted chan int64
	block         map[int64]chan struct{}
}

func (f *fakeChat) Conversations(ctx context.Context) ([]models.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	return []models.Conversation{{User: models.User{ID: 4, Username: "bo"}, UnreadCount: f.listCalls}}, nil
}

func (f *fakeChat) Conversation(ctx context.Context, userID int64) ([]models.Message, error) {
	f.mu.Lock()
	f.threadCalls[userID]++
	block := f.block[userID]
	n := len(f.sent)
	f.mu.Unlock()

	if f.threadStarted != nil {
		f.threadStarted <- userID
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, syncerr.Canceled("conversation", ctx.Err())
		}
	}
	msgs := make([]models.Message, 0, n+1)
	msgs = append(msgs, models.Message{ID: userID*100 + 1, Content: "hello"})
	for i := 0; i < n; i++ {
		msgs = append(msgs, models.Message{ID: userID*100 + int64(i) + 2, Content: "reply"})
	}
	return msgs, nil
}

func (f *fakeChat) SendMessage(ctx context.Context, msg models.NewMessage) (models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return models.Message{ID: 999, Content: msg.Content}, nil
}

func TestChatOpenAndSend(t *testing.T) {
	client := &fakeChat{threadCalls: make(map[int64]int)}
	c := NewChat(newTestCoordinator(t), client, 15*time.Second, 10*time.Second, time.Hour, zaptest.NewLogger(t))
	c.Mount(context.Background())
	defer c.Unmount()

	require.Eventually(t, func() bool { return len(c.Snapshot().(ChatState).Conversations) == 1 }, waitFor, tick)

	_, err := c.Send(context.Background(), "hi")
	require.Error(t, err, "nothing open yet")

	require.NoError(t, c.Open(context.Background(), 4))
	assert.Len(t, c.Snapshot().(ChatState).Messages, 1)

	msg, err := c.Send(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "hi", msg.Content)

	state := c.Snapshot().(ChatState)
	assert.Equal(t, int64(4), state.OpenUserID)
	assert.Len(t, state.Messages, 2)
	assert.Equal(t, 2, state.Conversations[0].UnreadCount)

	client.mu.Lock()
	assert.Equal(t, 2, client.threadCalls[4])
	assert.Equal(t, []models.NewMessage{{RecipientID: 4, Content: "hi"}}, client.sent)
	client.mu.Unlock()
}

func TestChatOpenCancelsPreviousThread(t *testing.T) {
	client := &fakeChat{
		threadCalls:   make(map[int64]int),
		threadStarted: make(chan int64, 2),
		block:         map[int64]chan struct{}{4: make(chan struct{})},
	}
	c := NewChat(newTestCoordinator(t), client, 15*time.Second, 10*time.Second, time.Hour, zaptest.NewLogger(t))
	c.Mount(context.Background())
	defer c.Unmount()
	require.Eventually(t, func() bool { return len(c.Snapshot().(ChatState).Conversations) == 1 }, waitFor, tick)

	first := make(chan error, 1)
	go func() { first <- c.Open(context.Background(), 4) }()
	require.Equal(t, int64(4), <-client.threadStarted)

	require.NoError(t, c.Open(context.Background(), 7))
	require.Equal(t, int64(7), <-client.threadStarted)
	require.NoError(t, <-first)

	state := c.Snapshot().(ChatState)
	assert.Equal(t, int64(7), state.OpenUserID)
	require.Len(t, state.Messages, 1)
	assert.Equal(t, int64(701), state.Messages[0].ID)
}

func TestChatOpenReleasesCancelOnReturn(t *testing.T) {
	release4, release7 := make(chan struct{}), make(chan struct{})
	client := &fakeChat{
		threadCalls:   make(map[int64]int),
		threadStarted: make(chan int64, 2),
		block:         map[int64]chan struct{}{4: release4, 7: release7},
	}
	c := NewChat(newTestCoordinator(t), client, 15*time.Second, 10*time.Second, time.Hour, zaptest.NewLogger(t))
	c.Mount(context.Background())
	defer c.Unmount()
	require.Eventually(t, func() bool { return len(c.Snapshot().(ChatState).Conversations) == 1 }, waitFor, tick)
	assert.False(t, c.Snapshot().(ChatState).Opening)

	first := make(chan error, 1)
	go func() { first <- c.Open(context.Background(), 4) }()
	require.Equal(t, int64(4), <-client.threadStarted)
	assert.True(t, c.Snapshot().(ChatState).Opening)

	second := make(chan error, 1)
	go func() { second <- c.Open(context.Background(), 7) }()
	require.Equal(t, int64(7), <-client.threadStarted)

	// The superseded open returning must not clear the newer one.
	require.NoError(t, <-first)
	assert.True(t, c.Snapshot().(ChatState).Opening)

	close(release7)
	require.NoError(t, <-second)
	state := c.Snapshot().(ChatState)
	assert.False(t, state.Opening)
	assert.Equal(t, int64(7), state.OpenUserID)
	close(release4)
}

func TestUsersAndSet(t *testing.T) {
	users := NewUsers(newTestCoordinator(t), usersFunc(func(ctx context.Context) ([]models.User, error) {
		return []models.User{{ID: 1, Username: "ana"}}, nil
	}), 5*time.Minute, zaptest.NewLogger(t))

	set := NewSet(users)
	assert.Equal(t, []string{"users"}, set.Names())

	set.MountAll(context.Background())
	require.Eventually(t, func() bool { return len(users.Snapshot().(UsersState).Users) == 1 }, waitFor, tick)

	v, ok := set.Get("users")
	require.True(t, ok)
	assert.True(t, v.Mounted())

	set.UnmountAll()
	assert.False(t, users.Mounted())

	_, ok = set.Get("missing")
	assert.False(t, ok)
}
