package domain

import "time"

// PoolEntryState describes one resident pool entry for observability.
type PoolEntryState struct {
	ID       VideoID   `json:"id"`
	Index    int       `json:"index"`
	Prewarm  bool      `json:"prewarm"`
	Active   bool      `json:"active"`
	Playing  bool      `json:"playing"`
	LastUsed time.Time `json:"lastUsed"`
}

// PoolState is a point-in-time snapshot of the pool manager.
type PoolState struct {
	Capacity    int              `json:"capacity"`
	Resident    int              `json:"resident"`
	InFlight    int              `json:"inFlight"`
	ActiveID    VideoID          `json:"activeId,omitempty"`
	ActiveIndex int              `json:"activeIndex"`
	Entries     []PoolEntryState `json:"entries"`
}

// IndexLoadState pairs a feed index with its load state.
type IndexLoadState struct {
	Index int       `json:"index"`
	ID    VideoID   `json:"id"`
	State LoadState `json:"state"`
}

// FeedState is a point-in-time snapshot of the feed controller.
type FeedState struct {
	Active       bool             `json:"active"`
	Paused       bool             `json:"paused"`
	CurrentIndex int              `json:"currentIndex"`
	VideoCount   int              `json:"videoCount"`
	Volume       float64          `json:"volume"`
	Speed        float64          `json:"speed"`
	Loaded       []IndexLoadState `json:"loaded"`
}
