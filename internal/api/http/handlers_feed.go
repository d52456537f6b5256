package apihttp

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"clipstream/internal/domain"
)

type addVideosRequest struct {
	Videos []videoItemPayload `json:"videos"`
}

type videoItemPayload struct {
	ID        string `json:"id"`
	Title     string `json:"title,omitempty"`
	URL       string `json:"url,omitempty"`
	CacheFile string `json:"cacheFile,omitempty"`
}

type pageChangedRequest struct {
	Index int `json:"index"`
}

type seekRequest struct {
	PositionMs int64 `json:"positionMs"`
}

type volumeRequest struct {
	Volume float64 `json:"volume"`
}

type speedRequest struct {
	Speed float64 `json:"speed"`
}

type retryRequest struct {
	Index int `json:"index"`
}

type activeRequest struct {
	Active bool `json:"active"`
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	if s.feed == nil {
		writeError(w, http.StatusServiceUnavailable, "not_configured", "feed controller is not configured")
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.feed.Snapshot())
}

// handleFeedAction routes /api/feed/{action} commands to the controller.
func (s *Server) handleFeedAction(w http.ResponseWriter, r *http.Request) {
	if s.feed == nil {
		writeError(w, http.StatusServiceUnavailable, "not_configured", "feed controller is not configured")
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	action := strings.TrimPrefix(r.URL.Path, "/api/feed/")
	switch action {
	case "videos":
		s.handleAddVideos(w, r)
	case "page":
		s.handlePageChanged(w, r)
	case "play":
		s.feed.Play()
		writeJSON(w, http.StatusOK, s.feed.Snapshot())
	case "pause":
		s.feed.Pause()
		writeJSON(w, http.StatusOK, s.feed.Snapshot())
	case "toggle":
		s.feed.TogglePlayPause()
		writeJSON(w, http.StatusOK, s.feed.Snapshot())
	case "seek":
		s.handleSeek(w, r)
	case "volume":
		s.handleVolume(w, r)
	case "speed":
		s.handleSpeed(w, r)
	case "retry":
		s.handleRetry(w, r)
	case "active":
		s.handleActive(w, r)
	default:
		writeError(w, http.StatusNotFound, "not_found", "unknown feed action")
	}
}

func (s *Server) handleAddVideos(w http.ResponseWriter, r *http.Request) {
	var req addVideosRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid json body")
		return
	}
	items := make([]domain.VideoItem, 0, len(req.Videos))
	for _, v := range req.Videos {
		id := strings.TrimSpace(v.ID)
		if id == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "video id is required")
			return
		}
		if strings.TrimSpace(v.URL) == "" && strings.TrimSpace(v.CacheFile) == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "video source is required")
			return
		}
		items = append(items, domain.VideoItem{
			ID:    domain.VideoID(id),
			Title: strings.TrimSpace(v.Title),
			Source: domain.VideoSource{
				URL:       strings.TrimSpace(v.URL),
				CacheFile: strings.TrimSpace(v.CacheFile),
			},
		})
	}
	if len(items) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "videos list is empty")
		return
	}
	s.feed.AddVideos(items)
	writeJSON(w, http.StatusOK, s.feed.Snapshot())
}

func (s *Server) handlePageChanged(w http.ResponseWriter, r *http.Request) {
	var req pageChangedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid json body")
		return
	}
	if req.Index < 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "index must be >= 0")
		return
	}
	s.feed.OnPageChanged(req.Index)
	writeJSON(w, http.StatusOK, s.feed.Snapshot())
}

func (s *Server) handleSeek(w http.ResponseWriter, r *http.Request) {
	var req seekRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid json body")
		return
	}
	if req.PositionMs < 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "positionMs must be >= 0")
		return
	}
	s.feed.Seek(time.Duration(req.PositionMs) * time.Millisecond)
	writeJSON(w, http.StatusOK, s.feed.Snapshot())
}

func (s *Server) handleVolume(w http.ResponseWriter, r *http.Request) {
	var req volumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid json body")
		return
	}
	if req.Volume < 0 || req.Volume > 1 {
		writeError(w, http.StatusBadRequest, "invalid_request", "volume must be within [0, 1]")
		return
	}
	s.feed.SetVolume(req.Volume)
	s.persistPlayerSettings(r.Context())
	writeJSON(w, http.StatusOK, s.feed.Snapshot())
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	var req speedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid json body")
		return
	}
	if req.Speed <= 0 || req.Speed > 4 {
		writeError(w, http.StatusBadRequest, "invalid_request", "speed must be within (0, 4]")
		return
	}
	s.feed.SetPlaybackSpeed(req.Speed)
	s.persistPlayerSettings(r.Context())
	writeJSON(w, http.StatusOK, s.feed.Snapshot())
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	var req retryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid json body")
		return
	}
	if req.Index < 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "index must be >= 0")
		return
	}
	s.feed.Retry(req.Index)
	writeJSON(w, http.StatusOK, s.feed.Snapshot())
}

func (s *Server) handleActive(w http.ResponseWriter, r *http.Request) {
	var req activeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid json body")
		return
	}
	s.feed.SetActive(req.Active)
	writeJSON(w, http.StatusOK, s.feed.Snapshot())
}
