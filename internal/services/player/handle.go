// Package player wraps native player instances into pooled handles.
package player

import (
	"context"
	"sync"
	"time"

	"clipstream/internal/domain"
	"clipstream/internal/domain/ports"
)

// Handle pairs a native player with its render-target binding. A Handle is
// owned exclusively by the pool layers for its whole lifetime; consumers see
// it through ports.PlayerHandle and never dispose it themselves.
//
// Every operation checks the disposed flag first and becomes a no-op after
// disposal, so an async creation completing after its caller moved on can
// never touch a dead native player.
type Handle struct {
	id      domain.VideoID
	texture ports.TextureID

	mu       sync.Mutex
	player   ports.Player
	playing  bool
	disposed bool
}

func NewHandle(id domain.VideoID, p ports.Player, texture ports.TextureID) *Handle {
	return &Handle{id: id, player: p, texture: texture}
}

func (h *Handle) ID() domain.VideoID       { return h.id }
func (h *Handle) Texture() ports.TextureID { return h.texture }

// Open binds the underlying player to its media source. Called during
// acquisition, before the handle is handed to any consumer.
func (h *Handle) Open(ctx context.Context, src domain.VideoSource) error {
	h.mu.Lock()
	if h.disposed {
		h.mu.Unlock()
		return nil
	}
	p := h.player
	h.mu.Unlock()
	return p.Open(ctx, src)
}

func (h *Handle) Play() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.disposed {
		return nil
	}
	if err := h.player.Play(); err != nil {
		return err
	}
	h.playing = true
	return nil
}

func (h *Handle) Pause() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.disposed {
		return nil
	}
	if err := h.player.Pause(); err != nil {
		return err
	}
	h.playing = false
	return nil
}

func (h *Handle) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.disposed {
		return nil
	}
	if err := h.player.Stop(); err != nil {
		return err
	}
	h.playing = false
	return nil
}

func (h *Handle) Seek(pos time.Duration) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.disposed {
		return nil
	}
	return h.player.Seek(pos)
}

func (h *Handle) SetVolume(v float64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.disposed {
		return nil
	}
	return h.player.SetVolume(v)
}

func (h *Handle) SetRate(r float64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.disposed {
		return nil
	}
	return h.player.SetRate(r)
}

func (h *Handle) Position() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.disposed {
		return 0
	}
	return h.player.Position()
}

// Buffering returns the player's buffering-state stream. After disposal it
// returns a closed channel so watchers unblock instead of hanging.
func (h *Handle) Buffering() <-chan bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.disposed {
		ch := make(chan bool)
		close(ch)
		return ch
	}
	return h.player.Buffering()
}

func (h *Handle) IsBuffering() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.disposed {
		return false
	}
	return h.player.IsBuffering()
}

func (h *Handle) IsPlaying() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.playing && !h.disposed
}

func (h *Handle) Disposed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.disposed
}

// Dispose stops playback and tears down the native player. Idempotent: the
// second and later calls are no-ops. Only the pool layers call this.
func (h *Handle) Dispose() error {
	h.mu.Lock()
	if h.disposed {
		h.mu.Unlock()
		return nil
	}
	h.disposed = true
	h.playing = false
	p := h.player
	h.mu.Unlock()

	_ = p.Stop()
	return p.Dispose()
}
