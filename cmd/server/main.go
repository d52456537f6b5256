package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	apihttp "clipstream/internal/api/http"
	"clipstream/internal/app"
	"clipstream/internal/domain"
	"clipstream/internal/metrics"
	mongorepo "clipstream/internal/repository/mongo"
	"clipstream/internal/services/feed"
	"clipstream/internal/services/player/manager"
	"clipstream/internal/services/player/runtime/loopback"
	"clipstream/internal/telemetry"
	"clipstream/internal/usecase"

	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"
)

func main() {
	cfg := app.LoadConfig()
	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	metrics.Register(prometheus.DefaultRegisterer)

	shutdownTracer, err := telemetry.Init(context.Background(), "clipstream")
	if err != nil {
		logger.Warn("otel init failed", slog.String("error", err.Error()))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	capacity := cfg.EffectivePoolCapacity()
	logger.Info("configuration loaded",
		slog.String("service", "clipstream"),
		slog.String("httpAddr", cfg.HTTPAddr),
		slog.String("logLevel", cfg.LogLevel),
		slog.String("logFormat", cfg.LogFormat),
		slog.Int("poolCapacity", capacity),
		slog.Int("preloadAhead", cfg.PreloadAhead),
		slog.Int("preloadBehind", cfg.PreloadBehind),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithTimeout(rootCtx, 10*time.Second)
	defer cancel()

	mongoMonitor := otelmongo.NewMonitor()
	mongoClient, err := mongorepo.Connect(ctx, cfg.MongoURI, options.Client().SetMonitor(mongoMonitor))
	if err != nil {
		logger.Error("mongo connect failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := mongoClient.Ping(ctx, readpref.Primary()); err != nil {
		logger.Error("mongo ping failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	watchHistoryRepo := mongorepo.NewWatchHistoryRepository(mongoClient, cfg.MongoDatabase)
	playerSettingsRepo := mongorepo.NewPlayerSettingsRepository(mongoClient, cfg.MongoDatabase)

	if err := watchHistoryRepo.EnsureIndexes(ctx); err != nil {
		logger.Warn("mongo ensure indexes failed", slog.String("error", err.Error()))
	}

	runtime := loopback.New(
		loopback.WithCreateDelay(cfg.RuntimeCreateDelay),
		loopback.WithBufferDelay(cfg.RuntimeBufferDelay),
	)

	mgr, err := manager.New(runtime, manager.Config{
		Capacity:               capacity,
		MaxConcurrentCreations: cfg.MaxConcurrentCreations,
		CancelDistance:         cfg.CancelDistance,
	}, logger)
	if err != nil {
		logger.Error("pool manager init failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	controller := feed.NewController(mgr, feed.Config{
		PreloadAhead:     cfg.PreloadAhead,
		PreloadBehind:    cfg.PreloadBehind,
		PositionInterval: cfg.PositionInterval,
	}, logger)

	// Restore playback preferences persisted by the previous run.
	if settings, ok, err := playerSettingsRepo.Get(ctx); err != nil {
		logger.Warn("player settings load failed", slog.String("error", err.Error()))
	} else if ok {
		controller.SetVolume(settings.Volume)
		controller.SetPlaybackSpeed(settings.Speed)
		if settings.LastVideoID != "" {
			logger.Info("restored player settings",
				slog.String("lastVideoId", string(settings.LastVideoID)),
				slog.Float64("volume", settings.Volume),
				slog.Float64("speed", settings.Speed),
			)
		}
	}

	recorder := usecase.RecordPosition{Repo: watchHistoryRepo, Logger: logger}
	controller.SetOnPosition(recorder.Observe)

	handler := apihttp.NewServer(controller,
		apihttp.WithLogger(logger),
		apihttp.WithPool(mgr),
		apihttp.WithWatchHistory(watchHistoryRepo),
		apihttp.WithPlayerSettings(playerSettingsRepo),
	)

	broadcaster := usecase.BroadcastState{
		Pool:     mgr,
		Feed:     controller,
		Sink:     handler,
		Logger:   logger,
		Interval: cfg.BroadcastInterval,
	}
	mgr.SetOnChange(broadcaster.Nudge)
	controller.SetOnChange(broadcaster.Nudge)
	go broadcaster.Run(rootCtx)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      0,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info("server started", slog.String("addr", cfg.HTTPAddr))

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	persistLastPosition(shutdownCtx, controller, playerSettingsRepo, logger)

	if err := controller.Close(); err != nil {
		logger.Warn("feed controller close error", slog.String("error", err.Error()))
	}
	if err := mgr.Close(); err != nil {
		logger.Warn("pool manager close error", slog.String("error", err.Error()))
	}
	handler.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown error", slog.String("error", err.Error()))
	}
	if err := mongoClient.Disconnect(context.Background()); err != nil {
		logger.Warn("mongo disconnect error", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
}

// persistLastPosition saves the active video and playback preferences so
// the next run resumes where this one stopped.
func persistLastPosition(ctx context.Context, controller *feed.Controller, repo *mongorepo.PlayerSettingsRepository, logger *slog.Logger) {
	snap := controller.Snapshot()

	settings, ok, err := repo.Get(ctx)
	if err != nil {
		logger.Warn("player settings load failed", slog.String("error", err.Error()))
		return
	}
	if !ok {
		settings = domain.PlayerSettings{Volume: 1, Speed: 1}
	}
	settings.Volume = snap.Volume
	settings.Speed = snap.Speed
	for _, entry := range snap.Loaded {
		if entry.Index == snap.CurrentIndex {
			settings.LastVideoID = entry.ID
			break
		}
	}
	if err := repo.Set(ctx, settings); err != nil {
		logger.Warn("player settings persist failed", slog.String("error", err.Error()))
	}
}

func newLogger(levelRaw, formatRaw string) *slog.Logger {
	level := parseLogLevel(levelRaw)
	options := &slog.HandlerOptions{Level: level}
	format := strings.ToLower(strings.TrimSpace(formatRaw))
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, options))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, options))
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
