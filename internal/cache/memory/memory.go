package memory

import (
	"sync"

	"go-feed-sync/internal/interfaces"
	"go-feed-sync/internal/metrics"
	"go-feed-sync/internal/models"
)

// Ensure MemoryCache implements interfaces.Cache
var _ interfaces.Cache = (*MemoryCache)(nil)

// MemoryCache keeps entries in a map guarded by a RWMutex
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]*models.CacheEntry
}

// NewMemoryCache creates an empty in-process cache
func NewMemoryCache() interfaces.Cache {
	return &MemoryCache{entries: make(map[string]*models.CacheEntry)}
}

// Get returns a copy of the entry
func (m *MemoryCache) Get(key string) (*models.CacheEntry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	return entry.Clone(), true
}

// Set replaces the entry stored under entry.Key
func (m *MemoryCache) Set(entry *models.CacheEntry) {
	if entry == nil {
		return
	}
	m.mu.Lock()
	m.entries[entry.Key] = entry.Clone()
	count := len(m.entries)
	m.mu.Unlock()

	metrics.UpdateCacheEntries("memory", count)
}

// Delete removes the entry
func (m *MemoryCache) Delete(key string) {
	m.mu.Lock()
	delete(m.entries, key)
	count := len(m.entries)
	m.mu.Unlock()

	metrics.UpdateCacheEntries("memory", count)
}

// Keys lists stored keys in no particular order
func (m *MemoryCache) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.entries))
	for key := range m.entries {
		keys = append(keys, key)
	}
	return keys
}

// Clear drops every entry
func (m *MemoryCache) Clear() {
	m.mu.Lock()
	m.entries = make(map[string]*models.CacheEntry)
	m.mu.Unlock()

	metrics.UpdateCacheEntries("memory", 0)
}
