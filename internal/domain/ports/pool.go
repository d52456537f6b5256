package ports

import (
	"context"
	"time"

	"clipstream/internal/domain"
)

// PlayerHandle is the consumer-facing surface of a pooled player. It has no
// Dispose: disposal is always a pool decision, consumers only release
// interest through the manager.
type PlayerHandle interface {
	ID() domain.VideoID
	Texture() TextureID

	Play() error
	Pause() error
	Stop() error
	Seek(pos time.Duration) error
	SetVolume(v float64) error
	SetRate(r float64) error
	Position() time.Duration

	Buffering() <-chan bool
	IsBuffering() bool
	IsPlaying() bool
	Disposed() bool
}

// Manager is the pooled-player orchestration layer consumed by the feed
// controller and presentation code.
type Manager interface {
	// Acquire returns a cached handle or creates one, evicting by priority
	// when at capacity. It returns domain.ErrPoolExhausted when every
	// resident entry is protected and domain.ErrAcquisitionCancelled when
	// the request was cancelled before completion.
	Acquire(ctx context.Context, id domain.VideoID, src domain.VideoSource) (PlayerHandle, error)

	// GetExisting is a synchronous, non-creating lookup.
	GetExisting(id domain.VideoID) (PlayerHandle, bool)

	// Release drops the caller's interest but leaves the entry cached and
	// eviction-eligible, so a quick re-visit is cheap.
	Release(id domain.VideoID)

	SetActive(id domain.VideoID, index int)
	SetPrewarmVideos(ids []domain.VideoID, currentIndex int)
	RegisterVideoIndex(id domain.VideoID, index int)

	CancelAcquisition(id domain.VideoID)
	CancelDistantInFlight(fromIndex int)

	HandleMemoryPressure()

	StopAll()
	Close() error
}
