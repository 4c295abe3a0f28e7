package models

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// BackendType selects the in-process storage used by the cache store
type BackendType string

const (
	BackendMemory   BackendType = "memory"
	BackendBigCache BackendType = "bigcache"
)

// UnmarshalYAML implements custom YAML unmarshaling for BackendType
func (b *BackendType) UnmarshalYAML(value *yaml.Node) error {
	var str string
	if err := value.Decode(&str); err != nil {
		return err
	}

	switch str {
	case "memory", "bigcache":
		*b = BackendType(str)
		return nil
	default:
		return fmt.Errorf("invalid cache backend '%s': must be one of 'memory', 'bigcache'", str)
	}
}

// CacheEntry is the last-known-good payload of one logical resource
type CacheEntry struct {
	Key       string        `json:"key"`
	Payload   []byte        `json:"payload"`
	FetchedAt time.Time     `json:"fetched_at"`
	TTL       time.Duration `json:"ttl"`
}

// IsFresh reports whether the entry is still within its TTL at now
func (e *CacheEntry) IsFresh(now time.Time) bool {
	return now.Sub(e.FetchedAt) < e.TTL
}

// ExpiresAt returns the instant at which the entry stops being fresh
func (e *CacheEntry) ExpiresAt() time.Time {
	return e.FetchedAt.Add(e.TTL)
}

// Clone returns a deep copy so callers never share the payload slice
func (e *CacheEntry) Clone() *CacheEntry {
	if e == nil {
		return nil
	}
	cp := *e
	cp.Payload = append([]byte(nil), e.Payload...)
	return &cp
}
