package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"clipstream/internal/domain"
	"clipstream/internal/domain/ports"
)

const defaultPersistInterval = 3 * time.Second

// RecordPosition persists playback positions from the feed controller's
// position timer into watch history. Writes are throttled per video so the
// timer cadence does not translate into a mongo write per tick.
type RecordPosition struct {
	Repo     ports.WatchHistoryRepository
	Logger   *slog.Logger
	Interval time.Duration

	mu        sync.Mutex
	lastWrite map[domain.VideoID]time.Time
}

func (r *RecordPosition) interval() time.Duration {
	if r.Interval > 0 {
		return r.Interval
	}
	return defaultPersistInterval
}

// Observe is wired as the controller's position callback. It must not
// block the timer goroutine, so the upsert runs detached.
func (r *RecordPosition) Observe(item domain.VideoItem, index int, pos time.Duration) {
	if r.Repo == nil {
		return
	}
	now := time.Now()

	r.mu.Lock()
	if r.lastWrite == nil {
		r.lastWrite = make(map[domain.VideoID]time.Time)
	}
	if last, ok := r.lastWrite[item.ID]; ok && now.Sub(last) < r.interval() {
		r.mu.Unlock()
		return
	}
	r.lastWrite[item.ID] = now
	r.mu.Unlock()

	wp := domain.WatchPosition{
		VideoID:   item.ID,
		Title:     item.Title,
		Position:  pos,
		UpdatedAt: now,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.Repo.Upsert(ctx, wp); err != nil && r.Logger != nil {
			r.Logger.Warn("persist watch position failed",
				slog.String("videoId", string(item.ID)),
				slog.Any("error", err),
			)
		}
	}()
}
