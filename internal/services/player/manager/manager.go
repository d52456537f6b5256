// Package manager orchestrates pooled players for the scrolling feed: it
// layers protected (active/prewarm) entries, distance-aware eviction,
// cancellable in-flight acquisition and a creation concurrency cap on top of
// a bounded keyed store of handles.
package manager

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"clipstream/internal/domain"
	"clipstream/internal/domain/ports"
	"clipstream/internal/metrics"
	"clipstream/internal/services/player"
)

// defaultCancelDistance is the index-distance threshold beyond which
// in-flight acquisitions are aborted after a fast scroll.
const defaultCancelDistance = 3

type Config struct {
	// Capacity bounds the number of simultaneously assigned handles.
	Capacity int
	// MaxConcurrentCreations caps simultaneous native player creations.
	// 0 = unlimited.
	MaxConcurrentCreations int
	// CancelDistance overrides defaultCancelDistance when positive.
	CancelDistance int
}

// inflight tracks one outstanding creation per key. The creator goroutine
// writes handle/err and closes done; joiners read only after done.
type inflight struct {
	index     int
	hasIndex  bool
	cancelled bool
	done      chan struct{}
	handle    *player.Handle
	err       error
}

type Manager struct {
	runtime        ports.PlayerRuntime
	logger         *slog.Logger
	capacity       int
	cancelDistance int
	sem            *semaphore.Weighted // nil = unlimited creations

	mu          sync.Mutex
	assigned    map[domain.VideoID]*player.Handle
	lastAccess  map[domain.VideoID]time.Time
	indexes     map[domain.VideoID]int
	prewarm     map[domain.VideoID]struct{}
	inflights   map[domain.VideoID]*inflight
	activeID    domain.VideoID
	activeIndex int
	hasActive   bool
	closed      bool

	onChange func() // invoked outside the lock after observable state changes
}

func New(runtime ports.PlayerRuntime, cfg Config, logger *slog.Logger) (*Manager, error) {
	if cfg.Capacity <= 0 {
		return nil, fmt.Errorf("manager capacity must be positive, got %d", cfg.Capacity)
	}
	if logger == nil {
		logger = slog.Default()
	}
	cancelDistance := cfg.CancelDistance
	if cancelDistance <= 0 {
		cancelDistance = defaultCancelDistance
	}
	m := &Manager{
		runtime:        runtime,
		logger:         logger,
		capacity:       cfg.Capacity,
		cancelDistance: cancelDistance,
		assigned:       make(map[domain.VideoID]*player.Handle),
		lastAccess:     make(map[domain.VideoID]time.Time),
		indexes:        make(map[domain.VideoID]int),
		prewarm:        make(map[domain.VideoID]struct{}),
		inflights:      make(map[domain.VideoID]*inflight),
	}
	if cfg.MaxConcurrentCreations > 0 {
		m.sem = semaphore.NewWeighted(int64(cfg.MaxConcurrentCreations))
	}
	return m, nil
}

// SetOnChange registers a callback fired after observable state changes, so
// presentation code can re-render. Must be set before concurrent use.
func (m *Manager) SetOnChange(fn func()) {
	m.onChange = fn
}

func (m *Manager) notifyChange() {
	if m.onChange != nil {
		m.onChange()
	}
}

func (m *Manager) Capacity() int { return m.capacity }

// Acquire returns a cached handle, joins an in-flight creation for the same
// key, or starts a new creation. At capacity it evicts by priority; when
// every candidate is protected it fails with domain.ErrPoolExhausted rather
// than evicting the active entry.
func (m *Manager) Acquire(ctx context.Context, id domain.VideoID, src domain.VideoSource) (ports.PlayerHandle, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, domain.ErrPoolClosed
	}
	if h, ok := m.assigned[id]; ok {
		m.lastAccess[id] = time.Now().UTC()
		m.mu.Unlock()
		metrics.AcquisitionsTotal.WithLabelValues("hit").Inc()
		return h, nil
	}
	if fl, ok := m.inflights[id]; ok {
		m.mu.Unlock()
		metrics.AcquisitionsTotal.WithLabelValues("joined").Inc()
		return m.join(ctx, fl)
	}

	fl := &inflight{done: make(chan struct{})}
	if idx, ok := m.indexes[id]; ok {
		fl.index = idx
		fl.hasIndex = true
	}
	m.inflights[id] = fl
	m.mu.Unlock()
	metrics.InFlightAcquisitions.Inc()

	h, err := m.runCreation(ctx, id, src, fl)
	metrics.InFlightAcquisitions.Dec()
	if err != nil {
		return nil, err
	}
	return h, nil
}

// join waits for another caller's creation of the same key. The joiner may
// abandon interest via ctx, which does not cancel the underlying creation.
func (m *Manager) join(ctx context.Context, fl *inflight) (ports.PlayerHandle, error) {
	select {
	case <-fl.done:
		if fl.err != nil {
			return nil, fl.err
		}
		return fl.handle, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// runCreation performs the slow native creation for the registered in-flight
// request and publishes the outcome. Cancellation is cooperative: a creation
// that completes after being cancelled is disposed, never inserted.
func (m *Manager) runCreation(ctx context.Context, id domain.VideoID, src domain.VideoSource, fl *inflight) (*player.Handle, error) {
	if m.sem != nil {
		if err := m.sem.Acquire(ctx, 1); err != nil {
			m.finish(id, fl, nil, err)
			return nil, err
		}
		defer m.sem.Release(1)
	}

	// The request may have been cancelled while queued behind the cap.
	if m.isCancelled(id, fl) {
		metrics.CancellationsTotal.Inc()
		metrics.AcquisitionsTotal.WithLabelValues("cancelled").Inc()
		m.finish(id, fl, nil, domain.ErrAcquisitionCancelled)
		return nil, domain.ErrAcquisitionCancelled
	}

	start := time.Now()
	h, err := m.create(ctx, id, src)
	if err != nil {
		metrics.AcquisitionsTotal.WithLabelValues("failed").Inc()
		m.finish(id, fl, nil, err)
		return nil, err
	}
	metrics.CreationDuration.Observe(time.Since(start).Seconds())

	m.mu.Lock()
	if fl.cancelled || m.closed {
		delete(m.inflights, id)
		closed := m.closed
		m.mu.Unlock()
		_ = h.Dispose()
		err := domain.ErrAcquisitionCancelled
		if closed {
			err = domain.ErrPoolClosed
		} else {
			metrics.CancellationsTotal.Inc()
			metrics.AcquisitionsTotal.WithLabelValues("cancelled").Inc()
		}
		fl.err = err
		close(fl.done)
		return nil, err
	}

	victims, evictErr := m.evictForInsertLocked(id)
	if evictErr != nil {
		delete(m.inflights, id)
		m.mu.Unlock()
		m.disposeAll(victims)
		_ = h.Dispose()
		metrics.AcquisitionsTotal.WithLabelValues("exhausted").Inc()
		fl.err = evictErr
		close(fl.done)
		return nil, evictErr
	}

	m.assigned[id] = h
	m.lastAccess[id] = time.Now().UTC()
	delete(m.inflights, id)
	resident := len(m.assigned)
	m.mu.Unlock()

	m.disposeAll(victims)
	metrics.PoolResidents.Set(float64(resident))
	metrics.AcquisitionsTotal.WithLabelValues("created").Inc()

	fl.handle = h
	close(fl.done)
	m.notifyChange()
	return h, nil
}

func (m *Manager) create(ctx context.Context, id domain.VideoID, src domain.VideoSource) (*player.Handle, error) {
	native, texture, err := m.runtime.NewPlayer(ctx)
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

func (m *Manager) isCancelled(id domain.VideoID, fl *inflight) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fl.cancelled || m.closed
}

// finish resolves an in-flight request without inserting anything.
func (m *Manager) finish(id domain.VideoID, fl *inflight, h *player.Handle, err error) {
	m.mu.Lock()
	delete(m.inflights, id)
	m.mu.Unlock()
	fl.handle = h
	fl.err = err
	close(fl.done)
}

func (m *Manager) disposeAll(handles []*player.Handle) {
	for _, h := range handles {
		if h.IsPlaying() {
			_ = h.Pause()
		}
		_ = h.Dispose()
	}
}

// GetExisting is a synchronous, non-creating lookup that refreshes recency.
func (m *Manager) GetExisting(id domain.VideoID) (ports.PlayerHandle, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, false
	}
	h, ok := m.assigned[id]
	if !ok {
		return nil, false
	}
	m.lastAccess[id] = time.Now().UTC()
	return h, true
}

// Release marks a key no longer needed by its caller but leaves it cached
// and eviction-eligible. Disposal is deferred to LRU/priority eviction so a
// quick re-visit is cheap.
func (m *Manager) Release(id domain.VideoID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	delete(m.prewarm, id)
	if h, ok := m.assigned[id]; ok && h.IsPlaying() {
		_ = h.Pause()
	}
}

// SetActive updates the protected active key and its index. A no-op when
// both are unchanged, so listeners are never notified spuriously. A jump
// larger than the cancel distance aborts now-irrelevant in-flight work.
func (m *Manager) SetActive(id domain.VideoID, index int) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	if m.hasActive && m.activeID == id && m.activeIndex == index {
		m.mu.Unlock()
		return
	}
	prevIndex := m.activeIndex
	hadActive := m.hasActive
	m.activeID = id
	m.activeIndex = index
	m.hasActive = true
	m.indexes[id] = index
	m.lastAccess[id] = time.Now().UTC()

	jump := index - prevIndex
	if jump < 0 {
		jump = -jump
	}
	if hadActive && jump > m.cancelDistance {
		m.cancelDistantLocked(index)
	}
	m.mu.Unlock()
	m.notifyChange()
}

// SetPrewarmVideos replaces the prewarm set, capped at capacity-1 entries.
// On overflow the keys closest to currentIndex win.
func (m *Manager) SetPrewarmVideos(ids []domain.VideoID, currentIndex int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	limit := m.capacity - 1
	if len(ids) > limit {
		ids = m.closestTo(ids, currentIndex, limit)
	}
	m.prewarm = make(map[domain.VideoID]struct{}, len(ids))
	for _, id := range ids {
		m.prewarm[id] = struct{}{}
	}
}

// closestTo keeps the limit keys with the smallest registered index distance
// from currentIndex, preserving input order on ties. Caller holds m.mu.
func (m *Manager) closestTo(ids []domain.VideoID, currentIndex, limit int) []domain.VideoID {
	type scored struct {
		id   domain.VideoID
		dist int
	}
	ranked := make([]scored, 0, len(ids))
	for _, id := range ids {
		ranked = append(ranked, scored{id: id, dist: m.distanceLocked(id, currentIndex)})
	}
	// Insertion sort keeps this simple; prewarm sets are tiny.
	for i := 1; i < len(ranked); i++ {
		for j := i; j > 0 && ranked[j].dist < ranked[j-1].dist; j-- {
			ranked[j], ranked[j-1] = ranked[j-1], ranked[j]
		}
	}
	kept := make([]domain.VideoID, 0, limit)
	for _, s := range ranked[:limit] {
		kept = append(kept, s.id)
	}
	return kept
}

// RegisterVideoIndex records a key's position in the content list so
// eviction and cancellation can score distance from the active index.
func (m *Manager) RegisterVideoIndex(id domain.VideoID, index int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.indexes[id] = index
}

// CancelAcquisition marks the in-flight request for id as cancelled. The
// eventual creation observes the flag and discards its result.
func (m *Manager) CancelAcquisition(id domain.VideoID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if fl, ok := m.inflights[id]; ok {
		fl.cancelled = true
	}
}

// CancelDistantInFlight cancels every in-flight acquisition whose registered
// index is farther than the cancel distance from fromIndex. Invoked
// automatically on large active-index jumps to abort fast-scroll leftovers.
func (m *Manager) CancelDistantInFlight(fromIndex int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.cancelDistantLocked(fromIndex)
}

func (m *Manager) cancelDistantLocked(fromIndex int) {
	for id, fl := range m.inflights {
		if fl.cancelled || !fl.hasIndex {
			continue
		}
		dist := fl.index - fromIndex
		if dist < 0 {
			dist = -dist
		}
		if dist > m.cancelDistance {
			fl.cancelled = true
			m.logger.Debug("cancelled distant in-flight acquisition",
				slog.String("videoId", string(id)),
				slog.Int("index", fl.index),
				slog.Int("fromIndex", fromIndex),
			)
		}
	}
}

// StopAll pauses every resident handle without disposing, neutralizing
// native callbacks during a host-environment reload.
func (m *Manager) StopAll() {
	m.mu.Lock()
	handles := make([]*player.Handle, 0, len(m.assigned))
	for _, h := range m.assigned {
		handles = append(handles, h)
	}
	m.mu.Unlock()
	for _, h := range handles {
		_ = h.Pause()
	}
}

// Close cancels all in-flight work, disposes every resident handle and
// clears state. Subsequent use fails fast.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	for _, fl := range m.inflights {
		fl.cancelled = true
	}
	handles := make([]*player.Handle, 0, len(m.assigned))
	for _, h := range m.assigned {
		handles = append(handles, h)
	}
	m.assigned = make(map[domain.VideoID]*player.Handle)
	m.lastAccess = make(map[domain.VideoID]time.Time)
	m.prewarm = make(map[domain.VideoID]struct{})
	m.mu.Unlock()

	m.disposeAll(handles)
	metrics.PoolResidents.Set(0)
	return nil
}

// Snapshot returns a point-in-time view for the API and websocket broadcast.
func (m *Manager) Snapshot() domain.PoolState {
	m.mu.Lock()
	defer m.mu.Unlock()
	state := domain.PoolState{
		Capacity:    m.capacity,
		Resident:    len(m.assigned),
		InFlight:    len(m.inflights),
		ActiveIndex: m.activeIndex,
		Entries:     make([]domain.PoolEntryState, 0, len(m.assigned)),
	}
	if m.hasActive {
		state.ActiveID = m.activeID
	}
	for id, h := range m.assigned {
		_, prewarm := m.prewarm[id]
		state.Entries = append(state.Entries, domain.PoolEntryState{
			ID:       id,
			Index:    m.indexes[id],
			Prewarm:  prewarm,
			Active:   m.hasActive && id == m.activeID,
			Playing:  h.IsPlaying(),
			LastUsed: m.lastAccess[id],
		})
	}
	return state
}
