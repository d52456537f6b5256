package domain

import "time"

// WatchPosition records how far a viewer got into a video. Positions are
// persisted so the feed can resume after a restart; pool contents are not.
type WatchPosition struct {
	VideoID   VideoID       `json:"videoId"`
	Title     string        `json:"title,omitempty"`
	Position  time.Duration `json:"position"`
	Duration  time.Duration `json:"duration"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// PlayerSettings are the user-facing playback preferences restored at startup.
type PlayerSettings struct {
	Volume      float64 `json:"volume"`
	Speed       float64 `json:"speed"`
	LastVideoID VideoID `json:"lastVideoId,omitempty"`
}
