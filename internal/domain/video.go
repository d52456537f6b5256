package domain

// VideoID is the content identity a pooled player is keyed by: a stable
// video id or the media URL when no id exists.
type VideoID string

// VideoSource locates the bytes of a video. URL is the remote locator;
// CacheFile, when non-empty, points at a locally cached copy the native
// player should prefer.
type VideoSource struct {
	URL       string `json:"url"`
	CacheFile string `json:"cacheFile,omitempty"`
}

// VideoItem is one entry of the feed's backing list.
type VideoItem struct {
	ID     VideoID     `json:"id"`
	Title  string      `json:"title,omitempty"`
	Source VideoSource `json:"source"`
}
