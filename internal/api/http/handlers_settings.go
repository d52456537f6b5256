package apihttp

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"clipstream/internal/domain"
)

type updatePlayerSettingsRequest struct {
	Volume      *float64 `json:"volume"`
	Speed       *float64 `json:"speed"`
	LastVideoID *string  `json:"lastVideoId"`
}

func (s *Server) handlePlayerSettings(w http.ResponseWriter, r *http.Request) {
	if s.settings == nil {
		writeError(w, http.StatusServiceUnavailable, "not_configured", "player settings are not configured")
		return
	}
	switch r.Method {
	case http.MethodGet:
		s.handleGetPlayerSettings(w, r)
	case http.MethodPatch, http.MethodPut:
		s.handleUpdatePlayerSettings(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleGetPlayerSettings(w http.ResponseWriter, r *http.Request) {
	settings, found, err := s.settings.Get(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !found {
		settings = domain.PlayerSettings{Volume: 1, Speed: 1}
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handleUpdatePlayerSettings(w http.ResponseWriter, r *http.Request) {
	var req updatePlayerSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid json body")
		return
	}

	settings, found, err := s.settings.Get(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !found {
		settings = domain.PlayerSettings{Volume: 1, Speed: 1}
	}

	if req.Volume != nil {
		if *req.Volume < 0 || *req.Volume > 1 {
			writeError(w, http.StatusBadRequest, "invalid_request", "volume must be within [0, 1]")
			return
		}
		settings.Volume = *req.Volume
		if s.feed != nil {
			s.feed.SetVolume(*req.Volume)
		}
	}
	if req.Speed != nil {
		if *req.Speed <= 0 || *req.Speed > 4 {
			writeError(w, http.StatusBadRequest, "invalid_request", "speed must be within (0, 4]")
			return
		}
		settings.Speed = *req.Speed
		if s.feed != nil {
			s.feed.SetPlaybackSpeed(*req.Speed)
		}
	}
	if req.LastVideoID != nil {
		settings.LastVideoID = domain.VideoID(strings.TrimSpace(*req.LastVideoID))
	}

	if err := s.settings.Set(r.Context(), settings); err != nil {
		writeDomainError(w, err)
		return
	}
	s.wsHub.Broadcast("player_settings", settings)
	writeJSON(w, http.StatusOK, settings)
}

// persistPlayerSettings saves the controller's current volume and speed
// so they survive restarts. Best effort.
func (s *Server) persistPlayerSettings(ctx context.Context) {
	if s.settings == nil || s.feed == nil {
		return
	}
	snap := s.feed.Snapshot()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()

	settings, found, err := s.settings.Get(ctx)
	if err != nil {
		s.logger.Debug("load player settings failed", slog.Any("error", err))
		return
	}
	if !found {
		settings = domain.PlayerSettings{Volume: 1, Speed: 1}
	}
	settings.Volume = snap.Volume
	settings.Speed = snap.Speed
	if err := s.settings.Set(ctx, settings); err != nil {
		s.logger.Debug("persist player settings failed", slog.Any("error", err))
	}
}
