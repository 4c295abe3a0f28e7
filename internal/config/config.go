package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"go-feed-sync/internal/models"
)

var validate = validator.New()

// Config represents the main configuration structure
type Config struct {
	API      APIConfig      `yaml:"api"`
	Cache    CacheConfig    `yaml:"cache"`
	BigCache BigCacheConfig `yaml:"bigcache"`
	KeyDB    KeyDBConfig    `yaml:"keydb"`
	Views    ViewsConfig    `yaml:"views"`
	Ranking  RankingConfig  `yaml:"ranking"`
	Logging  LoggingConfig  `yaml:"logging"`
	Server   ServerConfig   `yaml:"server"`
}

// APIConfig points the client at the analytics backend
type APIConfig struct {
	BaseURL   string        `yaml:"base_url" validate:"required,url"`
	Timeout   time.Duration `yaml:"timeout" validate:"gte=0"`
	TokenFile string        `yaml:"token_file"`
	UserAgent string        `yaml:"user_agent"`
}

// CacheConfig controls the process-wide cache store
type CacheConfig struct {
	Backend    models.BackendType       `yaml:"backend" validate:"required,oneof=memory bigcache"`
	DefaultTTL time.Duration            `yaml:"default_ttl" validate:"gt=0"`
	TTLs       map[string]time.Duration `yaml:"ttls" validate:"dive,keys,required,endkeys,gt=0"`
}

// BigCacheConfig configures the bigcache backend
type BigCacheConfig struct {
	SizeMB     int           `yaml:"size_mb" validate:"gte=0"`
	LifeWindow time.Duration `yaml:"life_window" validate:"gte=0"`
	Shards     int           `yaml:"shards" validate:"gte=0"`
}

// KeyDBConfig configures the optional shared L2 layer
type KeyDBConfig struct {
	Enabled    bool             `yaml:"enabled"`
	URL        string           `yaml:"url"`
	KeyPrefix  string           `yaml:"key_prefix"`
	Connection ConnectionConfig `yaml:"connection"`
	Keepalive  KeepaliveConfig  `yaml:"keepalive"`
}

// ConnectionConfig holds KeyDB timeouts
type ConnectionConfig struct {
	ConnectTimeout time.Duration `yaml:"connect_timeout" validate:"gte=0"`
	SendTimeout    time.Duration `yaml:"send_timeout" validate:"gte=0"`
	ReadTimeout    time.Duration `yaml:"read_timeout" validate:"gte=0"`
}

// KeepaliveConfig holds KeyDB pool settings
type KeepaliveConfig struct {
	PoolSize       int           `yaml:"pool_size" validate:"gte=0"`
	MaxIdleTimeout time.Duration `yaml:"max_idle_timeout" validate:"gte=0"`
}

// ViewsConfig holds polling and paging settings per view controller
type ViewsConfig struct {
	Dashboard PollConfig   `yaml:"dashboard"`
	Trending  TrendingView `yaml:"trending"`
	Market    MarketView   `yaml:"market"`
	Feed      FeedView     `yaml:"feed"`
	Chat      PollConfig   `yaml:"chat"`
}

// PollConfig is a view refreshed on a fixed interval
type PollConfig struct {
	RefreshInterval time.Duration `yaml:"refresh_interval" validate:"gte=0"`
}

// TrendingView configures the trending tickers panel
type TrendingView struct {
	RefreshInterval time.Duration `yaml:"refresh_interval" validate:"gte=0"`
	Limit           int           `yaml:"limit" validate:"gte=1"`
}

// MarketView configures the live market intelligence panel
type MarketView struct {
	RefreshInterval    time.Duration `yaml:"refresh_interval" validate:"gte=0"`
	InitialDelay       time.Duration `yaml:"initial_delay" validate:"gte=0"`
	Limit              int           `yaml:"limit" validate:"gte=1"`
	InterItemDelay     time.Duration `yaml:"inter_item_delay" validate:"gte=0"`
	RateLimitPerSecond float64       `yaml:"rate_limit_per_second" validate:"gte=0"`
	Tickers            []string      `yaml:"tickers"`
}

// FeedView configures the personalized feed
type FeedView struct {
	PageSize int `yaml:"page_size" validate:"gte=1,lte=100"`
}

// RankingConfig selects the active ranking strategy
type RankingConfig struct {
	Strategy string `yaml:"strategy" validate:"required,oneof=balanced quality_focused trending expert diverse"`
}

// LoggingConfig controls the zap logger
type LoggingConfig struct {
	Level      string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `yaml:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `yaml:"max_age_days" validate:"gte=0"`
	Compress   bool   `yaml:"compress"`
}

// ServerConfig controls the local admin server
type ServerConfig struct {
	SocketPath string `yaml:"socket_path"`
}

// LoadConfig loads configuration from file path
func LoadConfig(configPath string, logger *zap.Logger) (*Config, error) {
	logger.Info("Loading configuration", zap.String("path", configPath))

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes, defaults and validates a YAML document
func Parse(data []byte) (*Config, error) {
	var config Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&config); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode YAML config: %w", err)
	}

	// Apply defaults
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Default returns a validated configuration built from defaults only
func Default() *Config {
	var config Config
	config.applyDefaults()
	return &config
}

// Validate checks struct constraints
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.KeyDB.Enabled && c.KeyDB.URL == "" {
		return errors.New("invalid configuration: keydb.url is required when keydb is enabled")
	}
	return nil
}

// TTLFor returns the TTL configured for a resource, or the default TTL
func (c *Config) TTLFor(resource string) time.Duration {
	if ttl, ok := c.Cache.TTLs[resource]; ok {
		return ttl
	}
	return c.Cache.DefaultTTL
}

// applyDefaults sets default values for missing configuration
func (c *Config) applyDefaults() {
	if c.API.BaseURL == "" {
		c.API.BaseURL = "http://localhost:8000"
	}
	c.API.BaseURL = strings.TrimRight(c.API.BaseURL, "/")
	if c.API.Timeout == 0 {
		c.API.Timeout = 15 * time.Second
	}
	if c.API.UserAgent == "" {
		c.API.UserAgent = "go-feed-sync"
	}

	if c.Cache.Backend == "" {
		c.Cache.Backend = models.BackendMemory
	}
	if c.Cache.DefaultTTL == 0 {
		c.Cache.DefaultTTL = 30 * time.Second
	}
	if c.Cache.TTLs == nil {
		c.Cache.TTLs = map[string]time.Duration{}
	}
	for resource, ttl := range defaultTTLs {
		if _, ok := c.Cache.TTLs[resource]; !ok {
			c.Cache.TTLs[resource] = ttl
		}
	}

	if c.BigCache.SizeMB == 0 {
		c.BigCache.SizeMB = 64
	}
	if c.BigCache.LifeWindow == 0 {
		c.BigCache.LifeWindow = 10 * time.Minute
	}
	if c.BigCache.Shards == 0 {
		c.BigCache.Shards = 64
	}

	if c.KeyDB.KeyPrefix == "" {
		c.KeyDB.KeyPrefix = "feed-sync:"
	}
	if c.KeyDB.Connection.ConnectTimeout == 0 {
		c.KeyDB.Connection.ConnectTimeout = 2 * time.Second
	}
	if c.KeyDB.Connection.SendTimeout == 0 {
		c.KeyDB.Connection.SendTimeout = time.Second
	}
	if c.KeyDB.Connection.ReadTimeout == 0 {
		c.KeyDB.Connection.ReadTimeout = time.Second
	}
	if c.KeyDB.Keepalive.PoolSize == 0 {
		c.KeyDB.Keepalive.PoolSize = 10
	}
	if c.KeyDB.Keepalive.MaxIdleTimeout == 0 {
		c.KeyDB.Keepalive.MaxIdleTimeout = time.Minute
	}

	if c.Views.Dashboard.RefreshInterval == 0 {
		c.Views.Dashboard.RefreshInterval = 30 * time.Second
	}
	if c.Views.Trending.RefreshInterval == 0 {
		c.Views.Trending.RefreshInterval = 45 * time.Second
	}
	if c.Views.Trending.Limit == 0 {
		c.Views.Trending.Limit = 10
	}
	if c.Views.Market.RefreshInterval == 0 {
		c.Views.Market.RefreshInterval = 60 * time.Second
	}
	if c.Views.Market.InitialDelay == 0 {
		c.Views.Market.InitialDelay = 500 * time.Millisecond
	}
	if c.Views.Market.Limit == 0 {
		c.Views.Market.Limit = 5
	}
	if c.Views.Market.InterItemDelay == 0 {
		c.Views.Market.InterItemDelay = 250 * time.Millisecond
	}
	if c.Views.Feed.PageSize == 0 {
		c.Views.Feed.PageSize = 20
	}
	if c.Views.Chat.RefreshInterval == 0 {
		c.Views.Chat.RefreshInterval = 20 * time.Second
	}

	if c.Ranking.Strategy == "" {
		c.Ranking.Strategy = "balanced"
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.MaxSizeMB == 0 {
		c.Logging.MaxSizeMB = 50
	}
	if c.Logging.MaxBackups == 0 {
		c.Logging.MaxBackups = 3
	}
	if c.Logging.MaxAgeDays == 0 {
		c.Logging.MaxAgeDays = 7
	}

	if c.Server.SocketPath == "" {
		c.Server.SocketPath = "/tmp/feed-sync.sock"
	}
}

var defaultTTLs = map[string]time.Duration{
	"dashboard":     30 * time.Second,
	"feed":          60 * time.Second,
	"trending":      45 * time.Second,
	"ticker":        30 * time.Second,
	"conversations": 15 * time.Second,
	"conversation":  10 * time.Second,
	"users":         5 * time.Minute,
}
