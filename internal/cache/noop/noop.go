package noop

import (
	"go-feed-sync/internal/interfaces"
	"go-feed-sync/internal/models"
)

// Ensure NoOpCache implements interfaces.Cache
var _ interfaces.Cache = (*NoOpCache)(nil)

// NoOpCache is a no-operation cache used for disabled layers
type NoOpCache struct{}

// NewNoOpCache creates a new no-operation cache instance
func NewNoOpCache() interfaces.Cache {
	return &NoOpCache{}
}

// Get always returns cache miss
func (n *NoOpCache) Get(key string) (*models.CacheEntry, bool) {
	return nil, false
}

// Set does nothing
func (n *NoOpCache) Set(entry *models.CacheEntry) {}

// Delete does nothing
func (n *NoOpCache) Delete(key string) {}

// Keys returns nothing
func (n *NoOpCache) Keys() []string {
	return nil
}

// Clear does nothing
func (n *NoOpCache) Clear() {}
