package l2

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"go-feed-sync/internal/config"
	"go-feed-sync/internal/interfaces"
	"go-feed-sync/internal/metrics"
	"go-feed-sync/internal/models"
)

// Ensure KeyDBCache implements interfaces.Cache
var _ interfaces.Cache = (*KeyDBCache)(nil)

// KeyDBCache shares last-known-good payloads through KeyDB so a restarted
// process can warm its store. Keys are namespaced with the configured prefix.
type KeyDBCache struct {
	client interfaces.KeyDbClient
	config *config.KeyDBConfig
	logger *zap.Logger
}

// NewKeyDBCache creates a new KeyDBCache instance with provided client
func NewKeyDBCache(cfg *config.KeyDBConfig, client interfaces.KeyDbClient, logger *zap.Logger) interfaces.Cache {
	return &KeyDBCache{
		client: client,
		config: cfg,
		logger: logger,
	}
}

func (kc *KeyDBCache) redisKey(key string) string {
	return kc.config.KeyPrefix + key
}

// Get retrieves an entry regardless of freshness
func (kc *KeyDBCache) Get(key string) (*models.CacheEntry, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), kc.config.Connection.ReadTimeout)
	defer cancel()

	data, err := kc.client.Get(ctx, kc.redisKey(key)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			kc.logger.Error("L2 cache get error", zap.String("key", key), zap.Error(err))
			metrics.RecordCacheError("l2", "get")
		}
		return nil, false
	}

	var entry models.CacheEntry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		kc.logger.Error("Failed to unmarshal L2 cache entry", zap.String("key", key), zap.Error(err))
		metrics.RecordCacheError("l2", "decode")
		kc.client.Del(context.Background(), kc.redisKey(key))
		return nil, false
	}

	return &entry, true
}

// Set stores the entry. KeyDB expires it once its TTL has elapsed since
// nothing downstream reads expired entries from the shared layer.
func (kc *KeyDBCache) Set(entry *models.CacheEntry) {
	if entry == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), kc.config.Connection.SendTimeout)
	defer cancel()

	data, err := json.Marshal(entry)
	if err != nil {
		kc.logger.Error("Failed to marshal L2 cache entry", zap.String("key", entry.Key), zap.Error(err))
		metrics.RecordCacheError("l2", "encode")
		return
	}

	if err := kc.client.Set(ctx, kc.redisKey(entry.Key), data, entry.TTL).Err(); err != nil {
		kc.logger.Error("Failed to set L2 cache entry", zap.String("key", entry.Key), zap.Error(err))
		metrics.RecordCacheError("l2", "set")
	}
}

// Delete removes entry from KeyDB cache
func (kc *KeyDBCache) Delete(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), kc.config.Connection.SendTimeout)
	defer cancel()

	if err := kc.client.Del(ctx, kc.redisKey(key)).Err(); err != nil {
		kc.logger.Error("Failed to delete L2 cache entry", zap.String("key", key), zap.Error(err))
		metrics.RecordCacheError("l2", "delete")
	}
}

// Keys lists keys under the configured prefix, with the prefix stripped
func (kc *KeyDBCache) Keys() []string {
	ctx, cancel := context.WithTimeout(context.Background(), kc.config.Connection.ReadTimeout)
	defer cancel()

	redisKeys, err := kc.client.Keys(ctx, kc.config.KeyPrefix+"*").Result()
	if err != nil {
		kc.logger.Error("Failed to list L2 cache keys", zap.Error(err))
		metrics.RecordCacheError("l2", "keys")
		return nil
	}

	keys := make([]string, 0, len(redisKeys))
	for _, k := range redisKeys {
		keys = append(keys, strings.TrimPrefix(k, kc.config.KeyPrefix))
	}
	return keys
}

// Clear removes every key under the prefix
func (kc *KeyDBCache) Clear() {
	keys := kc.Keys()
	if len(keys) == 0 {
		return
	}

	redisKeys := make([]string, len(keys))
	for i, key := range keys {
		redisKeys[i] = kc.redisKey(key)
	}

	ctx, cancel := context.WithTimeout(context.Background(), kc.config.Connection.SendTimeout)
	defer cancel()

	if err := kc.client.Del(ctx, redisKeys...).Err(); err != nil {
		kc.logger.Error("Failed to clear L2 cache", zap.Error(err))
		metrics.RecordCacheError("l2", "delete")
	}
}

// Close closes the KeyDB connection
func (kc *KeyDBCache) Close() error {
	return kc.client.Close()
}
