package multi

import (
	"go.uber.org/zap"

	"go-feed-sync/internal/interfaces"
	"go-feed-sync/internal/models"
)

// Ensure MultiCache implements interfaces.Cache
var _ interfaces.Cache = (*MultiCache)(nil)

// MultiCache layers backends from fastest to slowest. Reads stop at the first
// layer holding the key and copy the entry into the faster layers above it.
type MultiCache struct {
	caches []interfaces.Cache
	logger *zap.Logger
}

// NewMultiCache creates a new MultiCache instance with provided cache implementations
func NewMultiCache(caches []interfaces.Cache, logger *zap.Logger) interfaces.Cache {
	return &MultiCache{
		caches: caches,
		logger: logger,
	}
}

// Get retrieves the entry from the first layer that has it
func (mc *MultiCache) Get(key string) (*models.CacheEntry, bool) {
	if len(mc.caches) == 0 {
		mc.logger.Warn("No caches available for get operation", zap.String("key", key))
		return nil, false
	}

	for level, cache := range mc.caches {
		entry, found := cache.Get(key)
		if !found {
			continue
		}
		if level > 0 {
			mc.logger.Debug("Promoting cache entry", zap.String("key", key), zap.Int("from_level", level))
			for _, upper := range mc.caches[:level] {
				upper.Set(entry)
			}
		}
		return entry, true
	}
	return nil, false
}

// Set stores the entry in every layer
func (mc *MultiCache) Set(entry *models.CacheEntry) {
	if len(mc.caches) == 0 {
		mc.logger.Warn("No caches available for set operation")
		return
	}

	for _, cache := range mc.caches {
		cache.Set(entry)
	}
}

// Delete removes entry from all layers
func (mc *MultiCache) Delete(key string) {
	for _, cache := range mc.caches {
		cache.Delete(key)
	}
}

// Keys returns the union of keys over all layers
func (mc *MultiCache) Keys() []string {
	seen := make(map[string]struct{})
	var keys []string
	for _, cache := range mc.caches {
		for _, key := range cache.Keys() {
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
	}
	return keys
}

// Clear empties every layer
func (mc *MultiCache) Clear() {
	for _, cache := range mc.caches {
		cache.Clear()
	}
}

// GetCacheCount returns the number of layers
func (mc *MultiCache) GetCacheCount() int {
	return len(mc.caches)
}
