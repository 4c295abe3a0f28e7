package l1

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"go-feed-sync/internal/config"
	"go-feed-sync/internal/models"
)

func newTestCache(t *testing.T) *BigCache {
	t.Helper()
	cache, err := NewBigCache(&config.BigCacheConfig{SizeMB: 10, LifeWindow: time.Minute, Shards: 16}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })
	return cache
}

func TestNewBigCache(t *testing.T) {
	logger := zap.NewNop()

	cache, err := NewBigCache(&config.BigCacheConfig{SizeMB: 10, LifeWindow: time.Minute}, logger)
	require.NoError(t, err)
	defer cache.Close()

	assert.NotNil(t, cache.cache)
	assert.Equal(t, logger, cache.logger)
	assert.True(t, cache.metricsTask.IsRunning())
}

func TestNewBigCache_InvalidShards(t *testing.T) {
	_, err := NewBigCache(&config.BigCacheConfig{SizeMB: 10, LifeWindow: time.Minute, Shards: 3}, zap.NewNop())
	assert.Error(t, err)
}

func TestBigCache_SetAndGet(t *testing.T) {
	cache := newTestCache(t)

	fetchedAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	cache.Set(&models.CacheEntry{Key: "ticker:AAPL", Payload: []byte(`{"ticker":"AAPL"}`), FetchedAt: fetchedAt, TTL: 30 * time.Second})

	entry, found := cache.Get("ticker:AAPL")
	require.True(t, found)
	assert.Equal(t, "ticker:AAPL", entry.Key)
	assert.Equal(t, []byte(`{"ticker":"AAPL"}`), entry.Payload)
	assert.True(t, entry.FetchedAt.Equal(fetchedAt))
	assert.Equal(t, 30*time.Second, entry.TTL)
}

func TestBigCache_StaleEntriesAreKept(t *testing.T) {
	cache := newTestCache(t)

	cache.Set(&models.CacheEntry{Key: "dashboard", Payload: []byte("{}"), FetchedAt: time.Now().Add(-time.Hour), TTL: time.Second})

	entry, found := cache.Get("dashboard")
	require.True(t, found)
	assert.False(t, entry.IsFresh(time.Now()))
}

func TestBigCache_GetNotFound(t *testing.T) {
	cache := newTestCache(t)

	entry, found := cache.Get("missing")
	assert.False(t, found)
	assert.Nil(t, entry)
}

func TestBigCache_CorruptedEntryIsDropped(t *testing.T) {
	cache := newTestCache(t)

	require.NoError(t, cache.cache.Set("broken", []byte("not-json")))

	_, found := cache.Get("broken")
	assert.False(t, found)

	_, err := cache.cache.Get("broken")
	assert.Error(t, err)
}

func TestBigCache_DeleteKeysClear(t *testing.T) {
	cache := newTestCache(t)

	for i := 1; i <= 3; i++ {
		cache.Set(&models.CacheEntry{Key: fmt.Sprintf("feed:page:%d", i), Payload: []byte("{}"), FetchedAt: time.Now(), TTL: time.Minute})
	}
	assert.ElementsMatch(t, []string{"feed:page:1", "feed:page:2", "feed:page:3"}, cache.Keys())

	cache.Delete("feed:page:2")
	_, found := cache.Get("feed:page:2")
	assert.False(t, found)
	assert.Len(t, cache.Keys(), 2)

	cache.Clear()
	assert.Empty(t, cache.Keys())
}

func TestBigCache_SetNil(t *testing.T) {
	cache := newTestCache(t)
	cache.Set(nil)
	assert.Empty(t, cache.Keys())
}
