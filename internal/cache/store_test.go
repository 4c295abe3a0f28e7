package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"go-feed-sync/internal/cache/memory"
	"go-feed-sync/internal/interfaces/mock"
	"go-feed-sync/internal/models"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestStore() (*Store, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)}
	return NewStore(memory.NewMemoryCache(), 30*time.Second, clock.Now, zap.NewNop()), clock
}

func TestStore_PutStampsClock(t *testing.T) {
	store, clock := newTestStore()

	entry := store.Put("feed:page:1", []byte(`{"posts":[]}`), 0)

	assert.Equal(t, "feed:page:1", entry.Key)
	assert.Equal(t, clock.Now(), entry.FetchedAt)
	assert.Equal(t, 30*time.Second, entry.TTL, "ttl <= 0 uses the default")

	got, found := store.Get("feed:page:1")
	require.True(t, found)
	assert.Equal(t, []byte(`{"posts":[]}`), got.Payload)
}

func TestStore_FreshnessBoundary(t *testing.T) {
	store, clock := newTestStore()
	store.Put("dashboard", []byte("{}"), 10*time.Second)

	assert.True(t, store.IsFresh("dashboard", nil))

	clock.Advance(10*time.Second - time.Nanosecond)
	assert.True(t, store.IsFresh("dashboard", nil))

	clock.Advance(time.Nanosecond)
	assert.False(t, store.IsFresh("dashboard", nil), "fresh iff now - fetchedAt < ttl")

	// Stale entries stay readable until evicted
	_, found := store.Get("dashboard")
	assert.True(t, found)
}

func TestStore_IsFreshWithExplicitClock(t *testing.T) {
	store, clock := newTestStore()
	store.Put("dashboard", []byte("{}"), time.Minute)

	later := func() time.Time { return clock.Now().Add(2 * time.Minute) }
	assert.False(t, store.IsFresh("dashboard", later))
	assert.False(t, store.IsFresh("missing", nil))
}

func TestStore_Fresh(t *testing.T) {
	store, clock := newTestStore()
	store.Put("trending:10", []byte("[]"), time.Minute)

	entry, ok := store.Fresh("trending:10", nil)
	require.True(t, ok)
	assert.Equal(t, []byte("[]"), entry.Payload)

	clock.Advance(time.Minute)
	_, ok = store.Fresh("trending:10", nil)
	assert.False(t, ok)
}

func TestStore_EvictStale(t *testing.T) {
	store, clock := newTestStore()
	store.Put("ticker:AAPL", []byte("{}"), time.Second)

	assert.False(t, store.EvictStale("ticker:AAPL"), "fresh entry is kept")
	assert.False(t, store.EvictStale("missing"))

	clock.Advance(time.Second)
	assert.True(t, store.EvictStale("ticker:AAPL"))

	_, found := store.Get("ticker:AAPL")
	assert.False(t, found)
}

func TestStore_InvalidateClearKeys(t *testing.T) {
	store, _ := newTestStore()
	store.Put("users:all", []byte("[]"), 0)
	store.Put("dashboard", []byte("{}"), 0)
	store.Put("feed:page:1", []byte("{}"), 0)

	assert.Equal(t, []string{"dashboard", "feed:page:1", "users:all"}, store.Keys())

	store.Invalidate("dashboard")
	assert.Equal(t, []string{"feed:page:1", "users:all"}, store.Keys())

	store.Clear()
	assert.Empty(t, store.Keys())
}

func TestStore_GetReturnsCopy(t *testing.T) {
	store, _ := newTestStore()
	store.Put("dashboard", []byte("abc"), 0)

	got, _ := store.Get("dashboard")
	got.Payload[0] = 'z'

	again, _ := store.Get("dashboard")
	assert.Equal(t, []byte("abc"), again.Payload)
}

func TestStore_DelegatesToBackend(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := mock.NewMockCache(ctrl)
	now := time.Unix(1700000000, 0)
	store := NewStore(backend, time.Minute, func() time.Time { return now }, zap.NewNop())

	backend.EXPECT().Set(&models.CacheEntry{Key: "dashboard", Payload: []byte("{}"), FetchedAt: now, TTL: 5 * time.Second})
	store.Put("dashboard", []byte("{}"), 5*time.Second)

	backend.EXPECT().Get("dashboard").Return(nil, false)
	_, found := store.Get("dashboard")
	assert.False(t, found)

	backend.EXPECT().Delete("dashboard")
	store.Invalidate("dashboard")

	backend.EXPECT().Clear()
	store.Clear()
}
