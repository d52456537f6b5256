// Package pool implements the fixed-capacity, strictly-LRU player store.
// Protection and distance-aware priority live in the manager layer on top.
package pool

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"clipstream/internal/domain"
	"clipstream/internal/domain/ports"
	"clipstream/internal/metrics"
	"clipstream/internal/services/player"
)

// Pool is a bounded, identity-keyed store of player handles. Inserting a
// (capacity+1)-th distinct key evicts the least-recently-used entry, which is
// paused and disposed. Entry count never exceeds capacity.
type Pool struct {
	runtime  ports.PlayerRuntime
	capacity int
	logger   *slog.Logger

	mu     sync.Mutex
	cache  *lru.Cache[domain.VideoID, *player.Handle]
	closed bool

	group singleflight.Group
}

func New(runtime ports.PlayerRuntime, capacity int, logger *slog.Logger) (*Pool, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("pool capacity must be positive, got %d", capacity)
	}
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pool{runtime: runtime, capacity: capacity, logger: logger}

	cache, err := lru.NewWithEvict[domain.VideoID, *player.Handle](capacity, p.onEvict)
	if err != nil {
		return nil, err
	}
	p.cache = cache
	return p, nil
}

func (p *Pool) Capacity() int { return p.capacity }

func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cache.Len()
}

// Get returns the handle for id, marking it most-recently-used, or creates,
// inserts and returns a new one, evicting the LRU entry if at capacity.
// Concurrent Gets for the same key share a single creation: the second
// caller waits on the first's outcome instead of creating a duplicate.
func (p *Pool) Get(ctx context.Context, id domain.VideoID, src domain.VideoSource) (*player.Handle, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, domain.ErrPoolClosed
	}
	if h, ok := p.cache.Get(id); ok {
		p.mu.Unlock()
		return h, nil
	}
	p.mu.Unlock()

	v, err, _ := p.group.Do(string(id), func() (interface{}, error) {
		// A previous flight may have inserted while we waited to start.
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return nil, domain.ErrPoolClosed
		}
		if h, ok := p.cache.Get(id); ok {
			p.mu.Unlock()
			return h, nil
		}
		p.mu.Unlock()

		h, err := p.create(ctx, id, src)
		if err != nil {
			return nil, err
		}

		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			_ = h.Dispose()
			return nil, domain.ErrPoolClosed
		}
		p.cache.Add(id, h) // evicts the LRU entry via onEvict when full
		p.mu.Unlock()
		return h, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*player.Handle), nil
}

// Peek returns an existing handle without creating one and without touching
// recency.
func (p *Pool) Peek(id domain.VideoID) (*player.Handle, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, false
	}
	return p.cache.Peek(id)
}

// Release removes and disposes a specific entry. Unknown keys are a no-op.
func (p *Pool) Release(id domain.VideoID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.cache.Remove(id) // onEvict disposes
}

// StopAll pauses every handle without disposing. Used to neutralize native
// callbacks during a host-environment reload without losing cached state.
func (p *Pool) StopAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	for _, id := range p.cache.Keys() {
		if h, ok := p.cache.Peek(id); ok {
			_ = h.Pause()
		}
	}
}

// DisposeAll tears down every entry and closes the pool; all later calls
// fail fast with domain.ErrPoolClosed.
func (p *Pool) DisposeAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	p.cache.Purge() // onEvict disposes each entry
}

func (p *Pool) create(ctx context.Context, id domain.VideoID, src domain.VideoSource) (*player.Handle, error) {
	native, texture, err := p.runtime.NewPlayer(ctx)
	if err != nil {
		metrics.CreationFailuresTotal.Inc()
		return nil, fmt.Errorf("create player for %s: %w", id, err)
	}
	h := player.NewHandle(id, native, texture)
	if err := h.Open(ctx, src); err != nil {
		_ = h.Dispose()
		metrics.CreationFailuresTotal.Inc()
		return nil, fmt.Errorf("open %s: %w", id, err)
	}
	metrics.CreationsTotal.Inc()
	return h, nil
}

// onEvict runs inside cache mutations while p.mu is held. Dispose only
// touches the handle, never pool state.
func (p *Pool) onEvict(id domain.VideoID, h *player.Handle) {
	if h == nil {
		return
	}
	_ = h.Pause()
	_ = h.Dispose()
	metrics.EvictionsTotal.WithLabelValues("lru").Inc()
	p.logger.Debug("pool entry evicted", slog.String("videoId", string(id)))
}
