package httpserver

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"go-feed-sync/internal/cache"
	"go-feed-sync/internal/views"
)

// Server is the local admin API of a running client
type Server struct {
	store  *cache.Store
	views  *views.Set
	feed   *views.Feed
	panel  *views.StrategyPanel
	logger *zap.Logger
	server *http.Server
}

// NewServer creates the admin server. feed may be nil when the feed view is
// not wired.
func NewServer(store *cache.Store, set *views.Set, feed *views.Feed, panel *views.StrategyPanel, logger *zap.Logger) *Server {
	s := &Server{
		store:  store,
		views:  set,
		feed:   feed,
		panel:  panel,
		logger: logger,
	}
	s.server = &http.Server{
		Handler:      s.createRouter(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// StartUnixSocket serves the admin API on a Unix socket until Stop. It
// returns http.ErrServerClosed after a graceful stop, even one that raced
// ahead of it.
func (s *Server) StartUnixSocket(socketPath string) error {
	if err := os.RemoveAll(socketPath); err != nil {
		s.logger.Warn("Failed to remove existing socket file", zap.String("path", socketPath), zap.Error(err))
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return err
	}

	if err := os.Chmod(socketPath, 0660); err != nil {
		s.logger.Warn("Failed to set socket permissions", zap.String("path", socketPath), zap.Error(err))
	}

	s.logger.Info("Starting admin server on Unix socket", zap.String("socket_path", socketPath))
	return s.server.Serve(listener)
}

// Stop shuts the server down gracefully
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping admin server")
	return s.server.Shutdown(ctx)
}

func (s *Server) createRouter() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	router.HandleFunc("/cache/keys", s.handleCacheKeys).Methods(http.MethodGet)
	router.HandleFunc("/cache/{key}", s.handleCacheEntry).Methods(http.MethodGet)
	router.HandleFunc("/cache/{key}", s.handleCacheInvalidate).Methods(http.MethodDelete)
	router.HandleFunc("/cache", s.handleCacheClear).Methods(http.MethodDelete)

	router.HandleFunc("/strategies", s.handleStrategies).Methods(http.MethodGet)
	router.HandleFunc("/strategies/active", s.handleSetStrategy).Methods(http.MethodPut)

	router.HandleFunc("/views", s.handleViewList).Methods(http.MethodGet)
	router.HandleFunc("/views/{name}", s.handleViewSnapshot).Methods(http.MethodGet)
	router.HandleFunc("/views/{name}/retry", s.handleViewRetry).Methods(http.MethodPost)

	router.HandleFunc("/feed/scores", s.handleFeedScores).Methods(http.MethodGet)
	router.HandleFunc("/feed/more", s.handleFeedMore).Methods(http.MethodPost)
	router.HandleFunc("/feed/explanation/{postId:[0-9]+}", s.handleFeedExplanation).Methods(http.MethodGet)

	return router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeResponse(w, map[string]interface{}{
		"status":  "healthy",
		"time":    time.Now().UTC(),
		"entries": len(s.store.Keys()),
	})
}

// parseRequest parses a JSON request body
func (s *Server) parseRequest(r *http.Request, v interface{}) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	defer r.Body.Close()

	return json.Unmarshal(body, v)
}

func (s *Server) writeResponse(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to write response", zap.Error(err))
	}
}

func (s *Server) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(ErrorResponse{Success: false, Error: message}); err != nil {
		s.logger.Error("Failed to write error response", zap.Error(err))
	}
}
