package domain

// LoadState is the feed controller's per-index view of a pooled player.
// It is engine-internal and never persisted.
type LoadState string

const (
	LoadNone    LoadState = "none"    // Not in the preload window.
	LoadLoading LoadState = "loading" // Acquisition or buffering in progress.
	LoadReady   LoadState = "ready"   // Buffered at least once, playable.
	LoadError   LoadState = "error"   // Creation or open failed.
)

// validLoadTransitions defines the adjacency list of allowed transitions.
// Any state may fall back to LoadNone when an index leaves the window.
var validLoadTransitions = map[LoadState][]LoadState{
	LoadNone:    {LoadLoading},
	LoadLoading: {LoadReady, LoadError, LoadNone},
	LoadReady:   {LoadNone},
	LoadError:   {LoadLoading, LoadNone},
}

// CanTransitionLoad reports whether a load-state transition is valid.
func CanTransitionLoad(from, to LoadState) bool {
	for _, t := range validLoadTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}
