package ports

import (
	"context"
	"time"

	"clipstream/internal/domain"
)

// TextureID is the render-target binding a native player draws into.
// The pool treats it as opaque; presentation code hands it to the view layer.
type TextureID int64

// Player is the native decoder/player instance behind a pooled handle.
// Creation and Open are slow; everything else is cheap. Dispose is idempotent.
type Player interface {
	// Open binds the player to a media source and begins buffering.
	Open(ctx context.Context, src domain.VideoSource) error
	Play() error
	Pause() error
	Stop() error
	Seek(pos time.Duration) error
	SetVolume(v float64) error
	SetRate(r float64) error
	Position() time.Duration

	// Buffering streams buffering-state changes after Open. The channel is
	// closed on Dispose. IsBuffering reports the current state synchronously
	// for consumers that may have missed the first event.
	Buffering() <-chan bool
	IsBuffering() bool

	Dispose() error
}

// PlayerRuntime creates native players. It is the external collaborator the
// engine is built against; the engine never decodes media itself.
type PlayerRuntime interface {
	NewPlayer(ctx context.Context) (Player, TextureID, error)
}
