package httpserver

import (
	"encoding/json"
	"time"

	"go-feed-sync/internal/syncerr"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Success  bool             `json:"success"`
	Error    string           `json:"error"`
	Category syncerr.Category `json:"category,omitempty"`
}

// CacheKeysResponse lists the stored keys
type CacheKeysResponse struct {
	Success bool     `json:"success"`
	Keys    []string `json:"keys"`
}

// CacheEntryResponse describes one stored entry
type CacheEntryResponse struct {
	Success   bool            `json:"success"`
	Key       string          `json:"key"`
	Fresh     bool            `json:"fresh"`
	FetchedAt time.Time       `json:"fetched_at"`
	TTL       int             `json:"ttl"` // seconds
	Payload   json.RawMessage `json:"payload"`
}

// SetStrategyRequest is the body of PUT /strategies/active
type SetStrategyRequest struct {
	ID string `json:"id"`
}

// SuccessResponse acknowledges a mutation
type SuccessResponse struct {
	Success bool `json:"success"`
}
