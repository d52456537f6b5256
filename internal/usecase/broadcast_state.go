package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"clipstream/internal/domain"
)

type PoolSnapshotter interface {
	Snapshot() domain.PoolState
}

type FeedSnapshotter interface {
	Snapshot() domain.FeedState
}

type StateBroadcaster interface {
	BroadcastPoolState(state domain.PoolState)
	BroadcastFeedState(state domain.FeedState)
}

// BroadcastState pushes pool and feed snapshots to connected presentation
// clients: periodically, and immediately after a change nudge. Change
// callbacks from the pool and controller only nudge the channel, so
// snapshotting never runs under their locks.
type BroadcastState struct {
	Pool     PoolSnapshotter
	Feed     FeedSnapshotter
	Sink     StateBroadcaster
	Logger   *slog.Logger
	Interval time.Duration

	once  sync.Once
	nudge chan struct{}
}

func (b *BroadcastState) init() {
	b.once.Do(func() {
		b.nudge = make(chan struct{}, 1)
	})
}

// Nudge requests an immediate broadcast. Safe to call from any goroutine;
// never blocks.
func (b *BroadcastState) Nudge() {
	b.init()
	select {
	case b.nudge <- struct{}{}:
	default:
	}
}

func (b *BroadcastState) Run(ctx context.Context) {
	b.init()
	interval := b.Interval
	if interval <= 0 {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.broadcast()
		case <-b.nudge:
			b.broadcast()
		}
	}
}

func (b *BroadcastState) broadcast() {
	if b.Sink == nil {
		return
	}
	if b.Pool != nil {
		b.Sink.BroadcastPoolState(b.Pool.Snapshot())
	}
	if b.Feed != nil {
		b.Sink.BroadcastFeedState(b.Feed.Snapshot())
	}
}
