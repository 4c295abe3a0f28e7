package cache

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"go-feed-sync/internal/interfaces"
	"go-feed-sync/internal/metrics"
	"go-feed-sync/internal/models"
)

// Store is the process-wide keyed store of last-known-good payloads. It is
// built once by the composition root and shared by every coordinator and view.
type Store struct {
	backend    interfaces.Cache
	defaultTTL time.Duration
	now        func() time.Time
	logger     *zap.Logger
}

// NewStore creates a store over backend. A nil now uses time.Now.
func NewStore(backend interfaces.Cache, defaultTTL time.Duration, now func() time.Time, logger *zap.Logger) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		backend:    backend,
		defaultTTL: defaultTTL,
		now:        now,
		logger:     logger,
	}
}

// Now returns the store clock
func (s *Store) Now() time.Time {
	return s.now()
}

// DefaultTTL returns the TTL used when Put is given none
func (s *Store) DefaultTTL() time.Duration {
	return s.defaultTTL
}

// Get returns a copy of the entry for key, fresh or not
func (s *Store) Get(key string) (*models.CacheEntry, bool) {
	entry, found := s.backend.Get(key)
	if !found || entry == nil {
		return nil, false
	}
	return entry.Clone(), true
}

// Put replaces the entry for key atomically, stamped with the store clock.
// ttl <= 0 uses the default TTL.
func (s *Store) Put(key string, payload []byte, ttl time.Duration) *models.CacheEntry {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	entry := &models.CacheEntry{
		Key:       key,
		Payload:   append([]byte(nil), payload...),
		FetchedAt: s.now(),
		TTL:       ttl,
	}
	s.backend.Set(entry)

	s.logger.Debug("Cache entry stored",
		zap.String("key", key),
		zap.Int("size", len(payload)),
		zap.Duration("ttl", ttl))

	return entry.Clone()
}

// IsFresh reports whether key holds an entry younger than its TTL. A nil now
// uses the store clock.
func (s *Store) IsFresh(key string, now func() time.Time) bool {
	_, fresh := s.Fresh(key, now)
	return fresh
}

// Fresh returns the entry for key only while it is fresh
func (s *Store) Fresh(key string, now func() time.Time) (*models.CacheEntry, bool) {
	if now == nil {
		now = s.now
	}
	resource := Resource(key)
	metrics.RecordCacheRequest(resource)

	entry, found := s.Get(key)
	if !found || !entry.IsFresh(now()) {
		metrics.RecordCacheMiss(resource)
		return nil, false
	}

	metrics.RecordCacheHit(resource, "store")
	return entry, true
}

// EvictStale drops the entry for key if its TTL has elapsed and reports
// whether an entry was removed
func (s *Store) EvictStale(key string) bool {
	entry, found := s.backend.Get(key)
	if !found || entry == nil || entry.IsFresh(s.now()) {
		return false
	}
	s.backend.Delete(key)
	s.logger.Debug("Evicted stale cache entry", zap.String("key", key), zap.Time("fetched_at", entry.FetchedAt))
	return true
}

// Invalidate removes the entry for key
func (s *Store) Invalidate(key string) {
	s.backend.Delete(key)
	s.logger.Debug("Cache entry invalidated", zap.String("key", key))
}

// Clear removes every entry
func (s *Store) Clear() {
	s.backend.Clear()
	s.logger.Info("Cache cleared")
}

// Keys returns the stored keys in lexical order
func (s *Store) Keys() []string {
	keys := s.backend.Keys()
	sort.Strings(keys)
	return keys
}
