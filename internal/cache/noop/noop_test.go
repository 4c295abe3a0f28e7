package noop

import (
	"testing"
	"time"

	"go-feed-sync/internal/interfaces"
	"go-feed-sync/internal/models"
)

func TestNewNoOpCache(t *testing.T) {
	cache := NewNoOpCache()

	var _ interfaces.Cache = cache

	if _, ok := cache.(*NoOpCache); !ok {
		t.Errorf("NewNoOpCache() should return a *NoOpCache instance")
	}
}

func TestNoOpCache_NeverStores(t *testing.T) {
	cache := NewNoOpCache()

	testCases := []string{
		"dashboard",
		"",
		"ticker:AAPL",
		"feed:page:1",
	}

	for _, key := range testCases {
		t.Run("key="+key, func(t *testing.T) {
			cache.Set(&models.CacheEntry{Key: key, Payload: []byte("x"), FetchedAt: time.Now(), TTL: time.Minute})

			entry, found := cache.Get(key)
			if entry != nil {
				t.Errorf("Get(%q) entry = %v, want nil", key, entry)
			}
			if found {
				t.Errorf("Get(%q) found = true, want false", key)
			}

			cache.Delete(key)
		})
	}

	cache.Clear()
	if keys := cache.Keys(); len(keys) != 0 {
		t.Errorf("Keys() = %v, want empty", keys)
	}
}
