package httpserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"go-feed-sync/internal/ranking"
	"go-feed-sync/internal/syncerr"
	"go-feed-sync/internal/views"
)

func (s *Server) handleStrategies(w http.ResponseWriter, r *http.Request) {
	s.writeResponse(w, map[string]interface{}{
		"success":    true,
		"active":     s.panel.Active().ID,
		"strategies": s.panel.Options(),
	})
}

func (s *Server) handleSetStrategy(w http.ResponseWriter, r *http.Request) {
	var req SetStrategyRequest
	if err := s.parseRequest(r, &req); err != nil {
		s.writeErrorResponse(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.ID == "" {
		s.writeErrorResponse(w, "Missing required field: id", http.StatusBadRequest)
		return
	}

	if err := s.panel.Select(req.ID); err != nil {
		if errors.Is(err, ranking.ErrUnknownStrategy) {
			s.writeErrorResponse(w, err.Error(), http.StatusNotFound)
			return
		}
		s.writeErrorResponse(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.writeResponse(w, map[string]interface{}{
		"success": true,
		"active":  s.panel.Active(),
	})
}

func (s *Server) handleViewList(w http.ResponseWriter, r *http.Request) {
	names := s.views.Names()
	mounted := make(map[string]bool, len(names))
	for _, name := range names {
		v, _ := s.views.Get(name)
		mounted[name] = v.Mounted()
	}
	s.writeResponse(w, map[string]interface{}{
		"success": true,
		"views":   mounted,
	})
}

func (s *Server) handleViewSnapshot(w http.ResponseWriter, r *http.Request) {
	v, ok := s.views.Get(mux.Vars(r)["name"])
	if !ok {
		s.writeErrorResponse(w, "Unknown view: "+mux.Vars(r)["name"], http.StatusNotFound)
		return
	}
	s.writeResponse(w, v.Snapshot())
}

func (s *Server) handleViewRetry(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	v, ok := s.views.Get(name)
	if !ok {
		s.writeErrorResponse(w, "Unknown view: "+name, http.StatusNotFound)
		return
	}

	if err := v.Retry(r.Context()); err != nil {
		s.writeActionError(w, name, err)
		return
	}
	s.writeResponse(w, v.Snapshot())
}

func (s *Server) handleFeedScores(w http.ResponseWriter, r *http.Request) {
	if s.feed == nil {
		s.writeErrorResponse(w, "Feed view is not configured", http.StatusNotFound)
		return
	}
	s.writeResponse(w, map[string]interface{}{
		"success":  true,
		"strategy": s.panel.Active().ID,
		"posts":    s.feed.Scores(),
	})
}

func (s *Server) handleFeedMore(w http.ResponseWriter, r *http.Request) {
	if s.feed == nil {
		s.writeErrorResponse(w, "Feed view is not configured", http.StatusNotFound)
		return
	}
	if err := s.feed.LoadMore(r.Context()); err != nil {
		s.writeActionError(w, s.feed.Name(), err)
		return
	}
	s.writeResponse(w, s.feed.Snapshot())
}

func (s *Server) handleFeedExplanation(w http.ResponseWriter, r *http.Request) {
	if s.feed == nil {
		s.writeErrorResponse(w, "Feed view is not configured", http.StatusNotFound)
		return
	}

	postID, err := strconv.ParseInt(mux.Vars(r)["postId"], 10, 64)
	if err != nil {
		s.writeErrorResponse(w, "Invalid post id", http.StatusBadRequest)
		return
	}

	exp, ok := s.feed.Explain(postID)
	if !ok {
		s.writeErrorResponse(w, "Post not loaded: "+strconv.FormatInt(postID, 10), http.StatusNotFound)
		return
	}
	s.writeResponse(w, exp)
}

// writeActionError maps a user action failure onto a status code
func (s *Server) writeActionError(w http.ResponseWriter, view string, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, views.ErrNotMounted), errors.Is(err, views.ErrRefreshInProgress):
		status = http.StatusConflict
	case syncerr.Categorize(err) == syncerr.UnknownError:
		status = http.StatusInternalServerError
	}

	s.logger.Warn("View action failed", zap.String("view", view), zap.Error(err))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	s.writeResponse(w, ErrorResponse{
		Success:  false,
		Error:    err.Error(),
		Category: syncerr.Categorize(err),
	})
}
