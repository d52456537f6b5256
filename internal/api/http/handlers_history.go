package apihttp

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"clipstream/internal/domain"
)

const defaultHistoryLimit = 20

type watchPositionPayload struct {
	VideoID    string `json:"videoId"`
	Title      string `json:"title,omitempty"`
	PositionMs int64  `json:"positionMs"`
	DurationMs int64  `json:"durationMs,omitempty"`
}

func (s *Server) handleWatchHistory(w http.ResponseWriter, r *http.Request) {
	if s.watchHistory == nil {
		writeError(w, http.StatusServiceUnavailable, "not_configured", "watch history is not configured")
		return
	}
	switch r.Method {
	case http.MethodGet:
		s.handleListWatchHistory(w, r)
	case http.MethodPut:
		s.handleUpsertWatchHistory(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleWatchHistoryByID(w http.ResponseWriter, r *http.Request) {
	if s.watchHistory == nil {
		writeError(w, http.StatusServiceUnavailable, "not_configured", "watch history is not configured")
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/history/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid video id")
		return
	}
	wp, err := s.watchHistory.Get(r.Context(), domain.VideoID(id))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wp)
}

func (s *Server) handleListWatchHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := parseOptionalIntQuery(r.URL.Query().Get("limit"), defaultHistoryLimit)
	if err != nil || limit <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "limit must be a positive integer")
		return
	}
	positions, err := s.watchHistory.ListRecent(r.Context(), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, positions)
}

func (s *Server) handleUpsertWatchHistory(w http.ResponseWriter, r *http.Request) {
	var req watchPositionPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid json body")
		return
	}
	id := strings.TrimSpace(req.VideoID)
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "videoId is required")
		return
	}
	if req.PositionMs < 0 || req.DurationMs < 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "positionMs and durationMs must be >= 0")
		return
	}
	wp := domain.WatchPosition{
		VideoID:   domain.VideoID(id),
		Title:     strings.TrimSpace(req.Title),
		Position:  time.Duration(req.PositionMs) * time.Millisecond,
		Duration:  time.Duration(req.DurationMs) * time.Millisecond,
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.watchHistory.Upsert(r.Context(), wp); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wp)
}
