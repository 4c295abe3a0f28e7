package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// handleCacheKeys lists every stored key
func (s *Server) handleCacheKeys(w http.ResponseWriter, r *http.Request) {
	s.writeResponse(w, &CacheKeysResponse{
		Success: true,
		Keys:    s.store.Keys(),
	})
}

// handleCacheEntry returns one entry with its freshness
func (s *Server) handleCacheEntry(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	entry, ok := s.store.Get(key)
	if !ok {
		s.writeErrorResponse(w, "Key not found: "+key, http.StatusNotFound)
		return
	}

	payload := json.RawMessage(entry.Payload)
	if !json.Valid(payload) {
		payload = nil
	}

	s.writeResponse(w, &CacheEntryResponse{
		Success:   true,
		Key:       entry.Key,
		Fresh:     s.store.IsFresh(key, nil),
		FetchedAt: entry.FetchedAt,
		TTL:       int(entry.TTL.Seconds()),
		Payload:   payload,
	})
}

// handleCacheInvalidate drops one key so the next load refetches it
func (s *Server) handleCacheInvalidate(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	s.store.Invalidate(key)
	s.logger.Info("Cache key invalidated", zap.String("key", key))
	s.writeResponse(w, &SuccessResponse{Success: true})
}

// handleCacheClear drops every key
func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	s.store.Clear()
	s.logger.Info("Cache cleared")
	s.writeResponse(w, &SuccessResponse{Success: true})
}
