// Package feed drives the sliding preload window of the scrolling video
// feed on top of the pooled player manager.
package feed

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"clipstream/internal/domain"
	"clipstream/internal/domain/ports"
)

// PositionFunc receives periodic playback positions for the playing index.
type PositionFunc func(item domain.VideoItem, index int, pos time.Duration)

type Config struct {
	PreloadAhead     int
	PreloadBehind    int
	PositionInterval time.Duration
}

// Controller maintains the preload window [current-behind, current+ahead]
// over the backing video list and a per-index load state machine
// (none -> loading -> ready | error). It never owns handle lifetime: it
// acquires and releases interest through the manager, which decides
// disposal.
//
// Loads are tracked with a per-index generation so that a creation or
// buffering event completing after its index was superseded is structurally
// ignored instead of mutating stale state.
type Controller struct {
	manager ports.Manager
	logger  *slog.Logger

	ahead            int
	behind           int
	positionInterval time.Duration

	rootCtx    context.Context
	rootCancel context.CancelFunc

	mu          sync.Mutex
	videos      []domain.VideoItem
	current     int
	active      bool
	paused      bool
	volume      float64
	speed       float64
	states      map[int]domain.LoadState
	handles     map[int]ports.PlayerHandle
	loadGen     map[int]uint64
	nextGen     uint64
	timerCancel context.CancelFunc
	closed      bool

	onPosition PositionFunc
	onChange   func()
}

func NewController(mgr ports.Manager, cfg Config, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		manager:          mgr,
		logger:           logger,
		ahead:            cfg.PreloadAhead,
		behind:           cfg.PreloadBehind,
		positionInterval: cfg.PositionInterval,
		rootCtx:          ctx,
		rootCancel:       cancel,
		volume:           1,
		speed:            1,
		states:           make(map[int]domain.LoadState),
		handles:          make(map[int]ports.PlayerHandle),
		loadGen:          make(map[int]uint64),
	}
}

// SetOnPosition registers the periodic position callback. Must be set
// before the controller is activated.
func (c *Controller) SetOnPosition(fn PositionFunc) { c.onPosition = fn }

// SetOnChange registers a change-notification callback for presentation
// re-rendering. Must be set before the controller is activated.
func (c *Controller) SetOnChange(fn func()) { c.onChange = fn }

func (c *Controller) notifyChange() {
	if c.onChange != nil {
		c.onChange()
	}
}

// AddVideos appends to the backing list and, if active, recomputes the
// window since new entries may fall inside it.
func (c *Controller) AddVideos(items []domain.VideoItem) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	base := len(c.videos)
	c.videos = append(c.videos, items...)
	for i, item := range items {
		c.manager.RegisterVideoIndex(item.ID, base+i)
	}
	if c.active {
		c.recomputeWindowLocked()
	}
	c.mu.Unlock()
	c.notifyChange()
}

// OnPageChanged moves the current index: pauses the outgoing item, starts
// the incoming one immediately when already buffered, drops out-of-window
// interest and schedules acquisition for missing in-window indices,
// current first.
func (c *Controller) OnPageChanged(newIndex int) {
	c.mu.Lock()
	if c.closed || len(c.videos) == 0 {
		c.mu.Unlock()
		return
	}
	if newIndex < 0 {
		newIndex = 0
	}
	if newIndex >= len(c.videos) {
		newIndex = len(c.videos) - 1
	}

	prev := c.current
	if prev != newIndex {
		if h := c.handles[prev]; h != nil {
			_ = h.Pause()
		}
	}
	c.stopPositionTimerLocked()
	c.current = newIndex

	if !c.active {
		c.mu.Unlock()
		return
	}

	var playNow ports.PlayerHandle
	if c.states[newIndex] == domain.LoadReady && !c.paused {
		if h := c.handles[newIndex]; h != nil {
			playNow = h
			c.startPositionTimerLocked(newIndex, h)
		}
	}
	volume := c.volume
	c.recomputeWindowLocked()
	c.mu.Unlock()

	if playNow != nil {
		_ = playNow.SetVolume(volume)
		_ = playNow.Play()
	}
	c.notifyChange()
}

// SetActive shows or hides the feed. Deactivation pauses and releases every
// loaded index to free memory; reactivation recomputes the window from the
// current index.
func (c *Controller) SetActive(active bool) {
	c.mu.Lock()
	if c.closed || c.active == active {
		c.mu.Unlock()
		return
	}
	c.active = active
	if active {
		c.recomputeWindowLocked()
	} else {
		c.stopPositionTimerLocked()
		c.releaseAllLocked()
	}
	c.mu.Unlock()
	c.notifyChange()
}

func (c *Controller) Play() {
	c.mu.Lock()
	if c.closed || c.states[c.current] != domain.LoadReady {
		c.mu.Unlock()
		return
	}
	c.paused = false
	h := c.handles[c.current]
	volume := c.volume
	if h != nil {
		c.startPositionTimerLocked(c.current, h)
	}
	c.mu.Unlock()

	if h != nil {
		_ = h.SetVolume(volume)
		_ = h.Play()
	}
	c.notifyChange()
}

func (c *Controller) Pause() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.paused = true
	c.stopPositionTimerLocked()
	h := c.handles[c.current]
	c.mu.Unlock()

	if h != nil {
		_ = h.Pause()
	}
	c.notifyChange()
}

func (c *Controller) TogglePlayPause() {
	c.mu.Lock()
	paused := c.paused
	c.mu.Unlock()
	if paused {
		c.Play()
	} else {
		c.Pause()
	}
}

func (c *Controller) Seek(pos time.Duration) {
	if h := c.currentHandle(); h != nil {
		_ = h.Seek(pos)
	}
}

func (c *Controller) SetVolume(v float64) {
	c.mu.Lock()
	c.volume = v
	h := c.handles[c.current]
	c.mu.Unlock()
	if h != nil {
		_ = h.SetVolume(v)
	}
}

func (c *Controller) SetPlaybackSpeed(r float64) {
	c.mu.Lock()
	c.speed = r
	h := c.handles[c.current]
	c.mu.Unlock()
	if h != nil {
		_ = h.SetRate(r)
	}
}

// Retry re-attempts acquisition for an index stuck in the error state.
// Creation failures are never retried automatically; this is the
// user-initiated path.
func (c *Controller) Retry(index int) {
	c.mu.Lock()
	if c.closed || c.states[index] != domain.LoadError {
		c.mu.Unlock()
		return
	}
	c.states[index] = domain.LoadLoading
	g := c.nextGenLocked(index)
	c.mu.Unlock()
	go c.load(index, g)
	c.notifyChange()
}

// CurrentIndex returns the feed's current position.
func (c *Controller) CurrentIndex() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Snapshot returns a point-in-time view for the API and websocket broadcast.
func (c *Controller) Snapshot() domain.FeedState {
	c.mu.Lock()
	defer c.mu.Unlock()
	state := domain.FeedState{
		Active:       c.active,
		Paused:       c.paused,
		CurrentIndex: c.current,
		VideoCount:   len(c.videos),
		Volume:       c.volume,
		Speed:        c.speed,
		Loaded:       make([]domain.IndexLoadState, 0, len(c.states)),
	}
	for idx, st := range c.states {
		state.Loaded = append(state.Loaded, domain.IndexLoadState{
			Index: idx,
			ID:    c.videos[idx].ID,
			State: st,
		})
	}
	return state
}

// Close releases everything and stops all timers and pending loads.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.stopPositionTimerLocked()
	c.releaseAllLocked()
	c.mu.Unlock()
	c.rootCancel()
	return nil
}

// ---------------------------------------------------------------------------
// Window management
// ---------------------------------------------------------------------------

// recomputeWindowLocked applies the current window: registers indices with
// the manager, refreshes the active and prewarm sets, releases out-of-window
// indices and schedules loads for missing ones. Caller must hold c.mu.
func (c *Controller) recomputeWindowLocked() {
	win := window(c.current, c.behind, c.ahead, len(c.videos))
	if len(win) == 0 {
		return
	}

	for _, idx := range win {
		c.manager.RegisterVideoIndex(c.videos[idx].ID, idx)
	}
	c.manager.SetActive(c.videos[c.current].ID, c.current)

	prewarmIDs := make([]domain.VideoID, 0, len(win)-1)
	for _, idx := range win {
		if idx != c.current {
			prewarmIDs = append(prewarmIDs, c.videos[idx].ID)
		}
	}
	c.manager.SetPrewarmVideos(prewarmIDs, c.current)

	for idx := range c.states {
		if !contains(win, idx) {
			c.releaseIndexLocked(idx)
		}
	}

	// Current index first, then the rest in window order.
	for _, idx := range win {
		switch c.states[idx] {
		case domain.LoadLoading, domain.LoadReady, domain.LoadError:
			continue
		}
		c.states[idx] = domain.LoadLoading
		g := c.nextGenLocked(idx)
		go c.load(idx, g)
	}
}

// releaseIndexLocked drops interest in an index: any state falls back to
// none, a pending acquisition is cancelled and the manager keeps the entry
// cached but eviction-eligible. Caller must hold c.mu.
func (c *Controller) releaseIndexLocked(idx int) {
	id := c.videos[idx].ID
	if c.states[idx] == domain.LoadLoading {
		c.manager.CancelAcquisition(id)
	}
	delete(c.states, idx)
	delete(c.handles, idx)
	delete(c.loadGen, idx)
	c.manager.Release(id)
}

func (c *Controller) releaseAllLocked() {
	for idx := range c.states {
		if h := c.handles[idx]; h != nil {
			_ = h.Pause()
		}
		c.releaseIndexLocked(idx)
	}
}

func (c *Controller) nextGenLocked(idx int) uint64 {
	c.nextGen++
	c.loadGen[idx] = c.nextGen
	return c.nextGen
}

func (c *Controller) genValidLocked(idx int, g uint64) bool {
	return g != 0 && c.loadGen[idx] == g
}

func (c *Controller) currentHandle() ports.PlayerHandle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handles[c.current]
}

// ---------------------------------------------------------------------------
// Loading and buffering
// ---------------------------------------------------------------------------

// load acquires a handle for an index, pre-buffers it muted and waits for
// the first non-buffering signal before marking it ready. Runs in its own
// goroutine; the generation guard discards stale completions.
func (c *Controller) load(index int, g uint64) {
	c.mu.Lock()
	if c.closed || !c.genValidLocked(index, g) {
		c.mu.Unlock()
		return
	}
	item := c.videos[index]
	c.mu.Unlock()

	h, err := c.manager.Acquire(c.rootCtx, item.ID, item.Source)
	if err != nil {
		c.mu.Lock()
		if c.genValidLocked(index, g) {
			if errors.Is(err, domain.ErrAcquisitionCancelled) || errors.Is(err, context.Canceled) {
				delete(c.states, index)
				delete(c.loadGen, index)
			} else {
				c.states[index] = domain.LoadError
				c.logger.Warn("acquisition failed",
					slog.String("videoId", string(item.ID)),
					slog.Int("index", index),
					slog.String("error", err.Error()),
				)
			}
		}
		c.mu.Unlock()
		c.notifyChange()
		return
	}

	c.mu.Lock()
	if c.closed || !c.genValidLocked(index, g) {
		c.mu.Unlock()
		c.manager.Release(item.ID)
		return
	}
	c.handles[index] = h
	c.mu.Unlock()

	// Pre-buffer muted: playback forces the native player to fill its
	// buffer without the user hearing an off-screen item.
	_ = h.SetVolume(0)
	_ = h.Play()

	if !h.IsBuffering() {
		c.markReady(index, g, h)
		return
	}

	buf := h.Buffering()
	for {
		select {
		case buffering, ok := <-buf:
			if !ok {
				// The handle was disposed under us (evicted); drop our view.
				c.mu.Lock()
				if c.genValidLocked(index, g) {
					delete(c.states, index)
					delete(c.handles, index)
					delete(c.loadGen, index)
				}
				c.mu.Unlock()
				c.notifyChange()
				return
			}
			if !buffering {
				c.markReady(index, g, h)
				return
			}
		case <-c.rootCtx.Done():
			return
		}
	}
}

// markReady transitions an index to ready after its first non-buffering
// signal. Only the current index of an active, unpaused feed keeps playing;
// anything else was merely pre-buffered and is paused again.
func (c *Controller) markReady(index int, g uint64, h ports.PlayerHandle) {
	c.mu.Lock()
	if c.closed || !c.genValidLocked(index, g) {
		c.mu.Unlock()
		return
	}
	c.states[index] = domain.LoadReady
	play := index == c.current && c.active && !c.paused
	volume := c.volume
	speed := c.speed
	if play {
		c.startPositionTimerLocked(index, h)
	}
	c.mu.Unlock()

	_ = h.SetRate(speed)
	if play {
		_ = h.SetVolume(volume)
		_ = h.Play()
	} else {
		_ = h.Pause()
		_ = h.SetVolume(volume)
	}
	c.notifyChange()
}

// ---------------------------------------------------------------------------
// Position timer
// ---------------------------------------------------------------------------

// startPositionTimerLocked starts the periodic position callback for an
// index, replacing any live timer so at most one exists. Caller must hold
// c.mu.
func (c *Controller) startPositionTimerLocked(index int, h ports.PlayerHandle) {
	c.stopPositionTimerLocked()
	if c.positionInterval <= 0 || c.onPosition == nil {
		return
	}
	ctx, cancel := context.WithCancel(c.rootCtx)
	c.timerCancel = cancel
	item := c.videos[index]
	go c.positionLoop(ctx, item, index, h)
}

func (c *Controller) stopPositionTimerLocked() {
	if c.timerCancel != nil {
		c.timerCancel()
		c.timerCancel = nil
	}
}

func (c *Controller) positionLoop(ctx context.Context, item domain.VideoItem, index int, h ports.PlayerHandle) {
	ticker := time.NewTicker(c.positionInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.emitPosition(item, index, h)
		}
	}
}

// emitPosition shields the scheduling loop from callback panics.
func (c *Controller) emitPosition(item domain.VideoItem, index int, h ports.PlayerHandle) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("position callback panic",
				slog.Any("error", r),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()
	c.onPosition(item, index, h.Position())
}
