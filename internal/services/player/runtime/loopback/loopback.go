// Package loopback is an in-process PlayerRuntime with no native decoder
// behind it. It simulates creation latency and buffering transitions so the
// engine can run headless: in the server binary, in benchmarks and in
// development against UI clients connected over the websocket.
package loopback

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"clipstream/internal/domain"
	"clipstream/internal/domain/ports"
)

type Runtime struct {
	createDelay time.Duration
	bufferDelay time.Duration
	nextTexture atomic.Int64
}

type Option func(*Runtime)

// WithCreateDelay simulates the cost of allocating a native player.
func WithCreateDelay(d time.Duration) Option {
	return func(r *Runtime) { r.createDelay = d }
}

// WithBufferDelay simulates the time between open and the first
// non-buffering signal.
func WithBufferDelay(d time.Duration) Option {
	return func(r *Runtime) { r.bufferDelay = d }
}

func New(opts ...Option) *Runtime {
	r := &Runtime{
		createDelay: 20 * time.Millisecond,
		bufferDelay: 50 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runtime) NewPlayer(ctx context.Context) (ports.Player, ports.TextureID, error) {
	if r.createDelay > 0 {
		select {
		case <-time.After(r.createDelay):
		case <-ctx.Done():
			return nil, 0, ctx.Err()
		}
	}
	p := &loopbackPlayer{
		bufferDelay: r.bufferDelay,
		buffering:   true,
		signal:      make(chan bool, 4),
	}
	return p, ports.TextureID(r.nextTexture.Add(1)), nil
}

// loopbackPlayer advances a fake playhead while playing and flips its
// buffering state bufferDelay after Open.
type loopbackPlayer struct {
	bufferDelay time.Duration

	mu        sync.Mutex
	opened    bool
	playing   bool
	disposed  bool
	buffering bool
	rate      float64
	position  time.Duration
	playedAt  time.Time
	signal    chan bool
}

func (p *loopbackPlayer) Open(ctx context.Context, src domain.VideoSource) error {
	p.mu.Lock()
	if p.disposed || p.opened {
		p.mu.Unlock()
		return nil
	}
	p.opened = true
	p.mu.Unlock()

	time.AfterFunc(p.bufferDelay, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.disposed {
			return
		}
		p.buffering = false
		select {
		case p.signal <- false:
		default:
		}
	})
	return nil
}

func (p *loopbackPlayer) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.disposed || p.playing {
		return nil
	}
	p.playing = true
	p.playedAt = time.Now()
	return nil
}

func (p *loopbackPlayer) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.syncPositionLocked()
	p.playing = false
	return nil
}

func (p *loopbackPlayer) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = false
	p.position = 0
	return nil
}

func (p *loopbackPlayer) Seek(pos time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.disposed {
		return nil
	}
	p.position = pos
	p.playedAt = time.Now()
	return nil
}

func (p *loopbackPlayer) SetVolume(v float64) error { return nil }

func (p *loopbackPlayer) SetRate(r float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.syncPositionLocked()
	p.rate = r
	return nil
}

func (p *loopbackPlayer) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.syncPositionLocked()
	return p.position
}

func (p *loopbackPlayer) Buffering() <-chan bool { return p.signal }

func (p *loopbackPlayer) IsBuffering() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buffering && !p.disposed
}

func (p *loopbackPlayer) Dispose() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.disposed {
		return nil
	}
	p.disposed = true
	p.playing = false
	close(p.signal)
	return nil
}

// syncPositionLocked folds elapsed play time into position. Caller must
// hold p.mu.
func (p *loopbackPlayer) syncPositionLocked() {
	if !p.playing {
		return
	}
	rate := p.rate
	if rate <= 0 {
		rate = 1
	}
	p.position += time.Duration(float64(time.Since(p.playedAt)) * rate)
	p.playedAt = time.Now()
}
