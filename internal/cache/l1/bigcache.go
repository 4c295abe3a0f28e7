package l1

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"
	"go.uber.org/zap"

	"go-feed-sync/internal/config"
	"go-feed-sync/internal/interfaces"
	"go-feed-sync/internal/lifecycle"
	"go-feed-sync/internal/metrics"
	"go-feed-sync/internal/models"
)

// Ensure BigCache implements interfaces.Cache
var _ interfaces.Cache = (*BigCache)(nil)

const metricsInterval = 30 * time.Second

// BigCache implements the in-process backend on top of BigCache. Entries are
// stored JSON encoded; BigCache's life window only bounds memory, freshness is
// decided by the cache store.
type BigCache struct {
	cache       *bigcache.BigCache
	logger      *zap.Logger
	metricsTask *lifecycle.PeriodicTask
}

// NewBigCache creates a new BigCache instance
func NewBigCache(bigcacheCfg *config.BigCacheConfig, logger *zap.Logger) (*BigCache, error) {
	cfg := bigcache.DefaultConfig(bigcacheCfg.LifeWindow)
	cfg.HardMaxCacheSize = bigcacheCfg.SizeMB
	if bigcacheCfg.Shards > 0 {
		cfg.Shards = bigcacheCfg.Shards
	}
	cfg.Verbose = false
	cfg.MaxEntrySize = 1024 * 1024 // 1MB max entry size

	cache, err := bigcache.New(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create bigcache: %w", err)
	}

	bc := &BigCache{
		cache:  cache,
		logger: logger,
	}

	bc.startMetricsCollection()

	return bc, nil
}

// Get retrieves an entry regardless of freshness
func (bc *BigCache) Get(key string) (*models.CacheEntry, bool) {
	data, err := bc.cache.Get(key)
	if err != nil {
		return nil, false
	}

	var entry models.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		bc.logger.Warn("Failed to unmarshal L1 cache entry", zap.String("key", key), zap.Error(err))
		metrics.RecordCacheError("l1", "decode")
		_ = bc.cache.Delete(key) // Remove corrupted entry
		return nil, false
	}

	return &entry, true
}

// Set stores the entry under entry.Key
func (bc *BigCache) Set(entry *models.CacheEntry) {
	if entry == nil {
		return
	}

	data, err := json.Marshal(entry)
	if err != nil {
		bc.logger.Error("Failed to marshal cache entry", zap.String("key", entry.Key), zap.Error(err))
		metrics.RecordCacheError("l1", "encode")
		return
	}

	if err := bc.cache.Set(entry.Key, data); err != nil {
		bc.logger.Error("Failed to set cache entry", zap.String("key", entry.Key), zap.Error(err))
		metrics.RecordCacheError("l1", "set")
	}
}

// Delete removes entry from cache
func (bc *BigCache) Delete(key string) {
	_ = bc.cache.Delete(key)
}

// Keys lists the keys currently held
func (bc *BigCache) Keys() []string {
	keys := make([]string, 0, bc.cache.Len())
	it := bc.cache.Iterator()
	for it.SetNext() {
		info, err := it.Value()
		if err != nil {
			continue
		}
		keys = append(keys, info.Key())
	}
	return keys
}

// Clear drops every entry
func (bc *BigCache) Clear() {
	if err := bc.cache.Reset(); err != nil {
		bc.logger.Error("Failed to reset L1 cache", zap.Error(err))
		metrics.RecordCacheError("l1", "reset")
	}
}

// Close stops metrics collection and releases the cache
func (bc *BigCache) Close() error {
	bc.stopMetricsCollection()
	return bc.cache.Close()
}

func (bc *BigCache) startMetricsCollection() {
	bc.updateMetrics()

	bc.metricsTask = lifecycle.NewPeriodicTask(0, metricsInterval, func(context.Context) {
		bc.updateMetrics()
	})
	bc.metricsTask.Start(context.Background())

	bc.logger.Debug("Started L1 cache metrics collection")
}

func (bc *BigCache) stopMetricsCollection() {
	if bc.metricsTask != nil {
		bc.metricsTask.Stop()
		bc.logger.Debug("Stopped L1 cache metrics collection")
	}
}

func (bc *BigCache) updateMetrics() {
	metrics.UpdateCacheEntries("l1", bc.cache.Len())
	metrics.UpdateCacheCapacity("l1", bc.cache.Capacity())
}
