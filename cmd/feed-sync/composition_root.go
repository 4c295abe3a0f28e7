package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"go-feed-sync/internal/api"
	"go-feed-sync/internal/cache"
	"go-feed-sync/internal/cache/l1"
	"go-feed-sync/internal/cache/l2"
	"go-feed-sync/internal/cache/memory"
	"go-feed-sync/internal/cache/multi"
	"go-feed-sync/internal/cache/noop"
	"go-feed-sync/internal/config"
	"go-feed-sync/internal/coordinator"
	"go-feed-sync/internal/httpserver"
	"go-feed-sync/internal/interfaces"
	"go-feed-sync/internal/models"
	"go-feed-sync/internal/ranking"
	"go-feed-sync/internal/views"
)

// CompositionRoot holds every dependency of a running client and wires them
// in one place.
type CompositionRoot struct {
	ConfigPath string
	Config     *config.Config
	Logger     *zap.Logger

	// Cache components
	L1Cache interfaces.Cache
	L2Cache interfaces.Cache
	Store   *cache.Store

	Coordinator *coordinator.Coordinator
	Tokens      *api.StaticToken
	Client      *api.Client
	Engine      *ranking.Engine

	Dashboard  *views.Dashboard
	Trending   *views.Trending
	Market     *views.Market
	Feed       *views.Feed
	Chat       *views.Chat
	Users      *views.Users
	Views      *views.Set
	Strategies *views.StrategyPanel

	HTTPServer *httpserver.Server
}

// NewCompositionRoot creates and wires all dependencies.
//
// Initialization order:
// 1. Configuration and logger
// 2. Cache components (L1, optional L2, store)
// 3. Transport and coordinator
// 4. Ranking engine
// 5. Views
// 6. Admin server
func NewCompositionRoot(configPath string, explicit bool) (*CompositionRoot, error) {
	root := &CompositionRoot{ConfigPath: configPath}

	if err := root.loadConfig(explicit); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := root.initCacheComponents(); err != nil {
		return nil, fmt.Errorf("failed to initialize cache components: %w", err)
	}

	root.initClient()

	if err := root.initRanking(); err != nil {
		return nil, fmt.Errorf("failed to initialize ranking engine: %w", err)
	}

	root.initViews()
	root.initHTTPServer()

	return root, nil
}

// loadConfig reads the config file. A missing file at the default path falls
// back to built-in defaults.
func (r *CompositionRoot) loadConfig(explicit bool) error {
	bootstrap, err := zap.NewProduction()
	if err != nil {
		return err
	}

	cfg, err := config.LoadConfig(r.ConfigPath, bootstrap)
	switch {
	case err == nil:
	case !explicit && errors.Is(err, fs.ErrNotExist):
		bootstrap.Info("Config file not found, using defaults", zap.String("path", r.ConfigPath))
		cfg = config.Default()
	default:
		return err
	}
	r.Config = cfg

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	r.Logger = logger
	return nil
}

func (r *CompositionRoot) initCacheComponents() error {
	if err := r.initL1Cache(); err != nil {
		return fmt.Errorf("failed to initialize L1 cache: %w", err)
	}
	r.initL2Cache()

	backend := r.L1Cache
	if _, disabled := r.L2Cache.(*noop.NoOpCache); !disabled {
		backend = multi.NewMultiCache([]interfaces.Cache{r.L1Cache, r.L2Cache}, r.Logger)
	}

	r.Store = cache.NewStore(backend, r.Config.Cache.DefaultTTL, nil, r.Logger)
	return nil
}

func (r *CompositionRoot) initL1Cache() error {
	switch r.Config.Cache.Backend {
	case models.BackendBigCache:
		bc, err := l1.NewBigCache(&r.Config.BigCache, r.Logger)
		if err != nil {
			return err
		}
		r.L1Cache = bc
		r.Logger.Info("BigCache (L1) initialized", zap.Int("size_mb", r.Config.BigCache.SizeMB))
	default:
		r.L1Cache = memory.NewMemoryCache()
		r.Logger.Info("In-memory cache (L1) initialized")
	}
	return nil
}

func (r *CompositionRoot) initL2Cache() {
	if !r.Config.KeyDB.Enabled {
		r.L2Cache = noop.NewNoOpCache()
		r.Logger.Info("KeyDB (L2) disabled")
		return
	}

	redis.SetLogger(newRedisLogger(r.Logger))
	keydbURL := GetKeyDBURL(r.Config.KeyDB.URL, r.Logger)

	client, err := l2.NewRedisKeyDbClient(&r.Config.KeyDB, keydbURL, r.Logger)
	if err != nil {
		r.Logger.Warn("Failed to connect to KeyDB, falling back to no L2 cache", zap.Error(err))
		r.L2Cache = noop.NewNoOpCache()
		return
	}

	r.L2Cache = l2.NewKeyDBCache(&r.Config.KeyDB, client, r.Logger)
	r.Logger.Info("KeyDB (L2) initialized")
}

func (r *CompositionRoot) initClient() {
	r.Tokens = api.NewStaticToken(GetAPIToken(r.Config.API.TokenFile, r.Logger))
	r.Client = api.NewClient(&r.Config.API, r.Tokens, r.Logger)
	r.Coordinator = coordinator.New(r.Store, r.Logger)
}

func (r *CompositionRoot) initRanking() error {
	engine, err := ranking.NewEngine(ranking.DefaultRegistry(), ranking.Extractor{}, r.Config.Ranking.Strategy, r.Logger)
	if err != nil {
		return err
	}
	r.Engine = engine
	r.Strategies = views.NewStrategyPanel(engine)
	return nil
}

func (r *CompositionRoot) initViews() {
	cfg := r.Config
	v := cfg.Views

	var limiter *rate.Limiter
	if v.Market.RateLimitPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(v.Market.RateLimitPerSecond), 1)
	}

	r.Dashboard = views.NewDashboard(r.Coordinator, r.Client, cfg.TTLFor(cache.ResourceDashboard), v.Dashboard.RefreshInterval, r.Logger)
	r.Trending = views.NewTrending(r.Coordinator, r.Client, cfg.TTLFor(cache.ResourceTrending), v.Trending.RefreshInterval, v.Trending.Limit, r.Logger)
	r.Market = views.NewMarket(r.Coordinator, r.Client, cfg.TTLFor(cache.ResourceTicker), v.Market, limiter, r.Logger)
	r.Feed = views.NewFeed(r.Coordinator, r.Client, r.Engine, r.Market, cfg.TTLFor(cache.ResourceFeed), v.Feed.PageSize, r.Logger)
	r.Chat = views.NewChat(r.Coordinator, r.Client, cfg.TTLFor(cache.ResourceConversations), cfg.TTLFor(cache.ResourceConversation), v.Chat.RefreshInterval, r.Logger)
	r.Users = views.NewUsers(r.Coordinator, r.Client, cfg.TTLFor(cache.ResourceUsers), r.Logger)

	// Without configured tickers the market panel follows the dashboard's
	// trending list.
	if len(v.Market.Tickers) == 0 {
		r.Dashboard.OnUpdate(func(d models.DashboardAnalytics) {
			symbols := make([]string, 0, len(d.TrendingTickers))
			for _, t := range d.TrendingTickers {
				symbols = append(symbols, t.Ticker)
			}
			r.Market.SetTickers(symbols)
		})
	}

	r.Views = views.NewSet(r.Dashboard, r.Trending, r.Market, r.Feed, r.Chat, r.Users)
}

func (r *CompositionRoot) initHTTPServer() {
	r.HTTPServer = httpserver.NewServer(r.Store, r.Views, r.Feed, r.Strategies, r.Logger)
}

// ApplyConfig hot-swaps the parts of a reloaded config that are safe to
// change at runtime
func (r *CompositionRoot) ApplyConfig(cfg *config.Config) {
	if cfg.Ranking.Strategy != r.Engine.Strategy().ID {
		if err := r.Engine.SetStrategy(cfg.Ranking.Strategy); err != nil {
			r.Logger.Warn("Ignoring unknown ranking strategy", zap.String("strategy", cfg.Ranking.Strategy), zap.Error(err))
		}
	}
}

// Cleanup releases every resource
func (r *CompositionRoot) Cleanup() error {
	var errs []error

	if r.Views != nil {
		r.Views.UnmountAll()
	}

	if bc, ok := r.L1Cache.(*l1.BigCache); ok {
		if err := bc.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close L1 cache: %w", err))
		}
	}

	if kc, ok := r.L2Cache.(*l2.KeyDBCache); ok {
		if err := kc.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close L2 cache: %w", err))
		}
	}

	if r.Logger != nil {
		// Sync on stdout returns EINVAL on some platforms, ignore it.
		_ = r.Logger.Sync()
	}

	return errors.Join(errs...)
}
