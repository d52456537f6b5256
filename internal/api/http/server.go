package apihttp

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"clipstream/internal/domain"
)

// FeedController is the slice of the feed controller the HTTP layer drives.
type FeedController interface {
	AddVideos(items []domain.VideoItem)
	OnPageChanged(newIndex int)
	SetActive(active bool)
	Play()
	Pause()
	TogglePlayPause()
	Seek(pos time.Duration)
	SetVolume(v float64)
	SetPlaybackSpeed(r float64)
	Retry(index int)
	Snapshot() domain.FeedState
}

// PoolController exposes pool observability and the pressure hooks.
type PoolController interface {
	Snapshot() domain.PoolState
	HandleMemoryPressure()
	StopAll()
}

type WatchHistoryStore interface {
	Upsert(ctx context.Context, wp domain.WatchPosition) error
	Get(ctx context.Context, id domain.VideoID) (domain.WatchPosition, error)
	ListRecent(ctx context.Context, limit int) ([]domain.WatchPosition, error)
}

type PlayerSettingsStore interface {
	Get(ctx context.Context) (domain.PlayerSettings, bool, error)
	Set(ctx context.Context, settings domain.PlayerSettings) error
}

type Server struct {
	feed           FeedController
	pool           PoolController
	watchHistory   WatchHistoryStore
	settings       PlayerSettingsStore
	allowedOrigins []string
	logger         *slog.Logger
	handler        http.Handler
	wsHub          *wsHub
}

type ServerOption func(*Server)

func WithPool(pool PoolController) ServerOption {
	return func(s *Server) {
		s.pool = pool
	}
}

func WithWatchHistory(store WatchHistoryStore) ServerOption {
	return func(s *Server) {
		s.watchHistory = store
	}
}

func WithPlayerSettings(store PlayerSettingsStore) ServerOption {
	return func(s *Server) {
		s.settings = store
	}
}

// WithAllowedOrigins configures the CORS allowed origins whitelist.
// When empty (default), any origin is permitted (development mode).
func WithAllowedOrigins(origins []string) ServerOption {
	return func(s *Server) {
		s.allowedOrigins = origins
	}
}

func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

func NewServer(feed FeedController, opts ...ServerOption) *Server {
	s := &Server{feed: feed}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	s.wsHub = newWSHub(s.logger)
	go s.wsHub.run()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/feed", s.handleFeed)
	mux.HandleFunc("/api/feed/", s.handleFeedAction)
	mux.HandleFunc("/api/pool", s.handlePool)
	mux.HandleFunc("/api/pool/memory-pressure", s.handleMemoryPressure)
	mux.HandleFunc("/api/pool/stop-all", s.handlePoolStopAll)
	mux.HandleFunc("/api/history", s.handleWatchHistory)
	mux.HandleFunc("/api/history/", s.handleWatchHistoryByID)
	mux.HandleFunc("/settings/player", s.handlePlayerSettings)
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ws", s.handleWS)

	traced := otelhttp.NewHandler(loggingMiddleware(s.logger, mux), "clipstream",
		otelhttp.WithFilter(func(r *http.Request) bool {
			p := r.URL.Path
			return p != "/metrics" && p != "/healthz"
		}),
	)
	s.handler = recoveryMiddleware(s.logger, rateLimitMiddleware(100, 200, metricsMiddleware(corsMiddleware(s.allowedOrigins, traced))))
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	resp := map[string]interface{}{"status": "ok"}
	if s.pool != nil {
		snap := s.pool.Snapshot()
		resp["poolResident"] = snap.Resident
		resp["poolCapacity"] = snap.Capacity
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if s.wsHub == nil {
		http.Error(w, "websocket not available", http.StatusServiceUnavailable)
		return
	}
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("ws upgrade failed", slog.String("error", err.Error()))
		return
	}
	client := &wsClient{
		hub:  s.wsHub,
		conn: conn,
		send: make(chan []byte, 256),
	}
	s.wsHub.register <- client
	go client.writePump()
	go client.readPump()
}

// BroadcastFeedState forwards a feed snapshot to connected WebSocket clients.
func (s *Server) BroadcastFeedState(state domain.FeedState) {
	if s.wsHub != nil {
		s.wsHub.BroadcastFeedState(state)
	}
}

// BroadcastPoolState forwards a pool snapshot to connected WebSocket clients.
func (s *Server) BroadcastPoolState(state domain.PoolState) {
	if s.wsHub != nil {
		s.wsHub.BroadcastPoolState(state)
	}
}

// Close shuts down the WebSocket hub, disconnecting all clients.
func (s *Server) Close() {
	if s.wsHub != nil {
		s.wsHub.Close()
	}
}
