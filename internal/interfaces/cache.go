package interfaces

import (
	"go-feed-sync/internal/models"
)

//go:generate mockgen -package=mock -source=cache.go -destination=mock/cache.go

// Cache is a storage backend for cache entries. Freshness is decided by the
// cache store, backends only keep entries until told otherwise.
type Cache interface {
	Get(key string) (*models.CacheEntry, bool) // returns entry and found flag
	Set(entry *models.CacheEntry)
	Delete(key string)
	Keys() []string
	Clear()
}
