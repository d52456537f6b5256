package apihttp

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"clipstream/internal/domain"
)

type fakeFeed struct {
	snapshot domain.FeedState

	added        []domain.VideoItem
	pageCalled   int
	lastPage     int
	activeCalled int
	lastActive   bool
	playCalled   int
	pauseCalled  int
	toggleCalled int
	seekCalled   int
	lastSeek     time.Duration
	lastVolume   float64
	volumeCalled int
	lastSpeed    float64
	speedCalled  int
	retryCalled  int
	lastRetry    int
}

func (f *fakeFeed) AddVideos(items []domain.VideoItem) { f.added = append(f.added, items...) }
func (f *fakeFeed) OnPageChanged(newIndex int)         { f.pageCalled++; f.lastPage = newIndex }
func (f *fakeFeed) SetActive(active bool)              { f.activeCalled++; f.lastActive = active }
func (f *fakeFeed) Play()                              { f.playCalled++ }
func (f *fakeFeed) Pause()                             { f.pauseCalled++ }
func (f *fakeFeed) TogglePlayPause()                   { f.toggleCalled++ }
func (f *fakeFeed) Seek(pos time.Duration)             { f.seekCalled++; f.lastSeek = pos }
func (f *fakeFeed) SetVolume(v float64)                { f.volumeCalled++; f.lastVolume = v }
func (f *fakeFeed) SetPlaybackSpeed(r float64)         { f.speedCalled++; f.lastSpeed = r }
func (f *fakeFeed) Retry(index int)                    { f.retryCalled++; f.lastRetry = index }
func (f *fakeFeed) Snapshot() domain.FeedState         { return f.snapshot }

type fakePool struct {
	snapshot       domain.PoolState
	pressureCalled int
	stopAllCalled  int
}

func (f *fakePool) Snapshot() domain.PoolState { return f.snapshot }
func (f *fakePool) HandleMemoryPressure()      { f.pressureCalled++ }
func (f *fakePool) StopAll()                   { f.stopAllCalled++ }

type fakeHistory struct {
	upserted  []domain.WatchPosition
	upsertErr error
	get       domain.WatchPosition
	getErr    error
	list      []domain.WatchPosition
	listErr   error
	lastLimit int
}

func (f *fakeHistory) Upsert(ctx context.Context, wp domain.WatchPosition) error {
	f.upserted = append(f.upserted, wp)
	return f.upsertErr
}

func (f *fakeHistory) Get(ctx context.Context, id domain.VideoID) (domain.WatchPosition, error) {
	if f.getErr != nil {
		return domain.WatchPosition{}, f.getErr
	}
	return f.get, nil
}

func (f *fakeHistory) ListRecent(ctx context.Context, limit int) ([]domain.WatchPosition, error) {
	f.lastLimit = limit
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.list, nil
}

type fakeSettingsStore struct {
	settings  domain.PlayerSettings
	found     bool
	getErr    error
	setErr    error
	setCalled int
}

func (f *fakeSettingsStore) Get(ctx context.Context) (domain.PlayerSettings, bool, error) {
	if f.getErr != nil {
		return domain.PlayerSettings{}, false, f.getErr
	}
	return f.settings, f.found, nil
}

func (f *fakeSettingsStore) Set(ctx context.Context, settings domain.PlayerSettings) error {
	f.setCalled++
	if f.setErr != nil {
		return f.setErr
	}
	f.settings = settings
	f.found = true
	return nil
}

type serverFixture struct {
	server   *Server
	feed     *fakeFeed
	pool     *fakePool
	history  *fakeHistory
	settings *fakeSettingsStore
}

func newTestServer(t *testing.T) *serverFixture {
	t.Helper()
	fx := &serverFixture{
		feed:     &fakeFeed{snapshot: domain.FeedState{VideoCount: 2, Volume: 1, Speed: 1}},
		pool:     &fakePool{snapshot: domain.PoolState{Capacity: 3, Resident: 1}},
		history:  &fakeHistory{},
		settings: &fakeSettingsStore{},
	}
	fx.server = NewServer(fx.feed,
		WithPool(fx.pool),
		WithWatchHistory(fx.history),
		WithPlayerSettings(fx.settings),
	)
	t.Cleanup(fx.server.Close)
	return fx
}

func doJSON(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decodeErrorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope errorEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	return envelope.Error.Code
}

// ---------- feed endpoints ----------

func TestHandleFeed_ReturnsSnapshot(t *testing.T) {
	fx := newTestServer(t)

	rec := doJSON(t, fx.server, http.MethodGet, "/api/feed", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var state domain.FeedState
	if err := json.NewDecoder(rec.Body).Decode(&state); err != nil {
		t.Fatal(err)
	}
	if state.VideoCount != 2 {
		t.Errorf("expected snapshot videoCount 2, got %d", state.VideoCount)
	}
}

func TestHandleFeed_RejectsPost(t *testing.T) {
	fx := newTestServer(t)

	rec := doJSON(t, fx.server, http.MethodPost, "/api/feed", nil)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}

func TestHandleAddVideos(t *testing.T) {
	fx := newTestServer(t)

	rec := doJSON(t, fx.server, http.MethodPost, "/api/feed/videos", addVideosRequest{
		Videos: []videoItemPayload{
			{ID: " v1 ", Title: "first", URL: "https://cdn.test/v1.mp4"},
			{ID: "v2", CacheFile: "/cache/v2.mp4"},
		},
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(fx.feed.added) != 2 {
		t.Fatalf("expected 2 videos added, got %d", len(fx.feed.added))
	}
	if fx.feed.added[0].ID != "v1" {
		t.Errorf("expected trimmed id v1, got %q", fx.feed.added[0].ID)
	}
	if fx.feed.added[1].Source.CacheFile != "/cache/v2.mp4" {
		t.Errorf("cache-file source lost: %+v", fx.feed.added[1].Source)
	}
}

func TestHandleAddVideos_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  addVideosRequest
	}{
		{"missing id", addVideosRequest{Videos: []videoItemPayload{{URL: "https://cdn.test/x.mp4"}}}},
		{"missing source", addVideosRequest{Videos: []videoItemPayload{{ID: "v1"}}}},
		{"empty list", addVideosRequest{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fx := newTestServer(t)
			rec := doJSON(t, fx.server, http.MethodPost, "/api/feed/videos", tc.req)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
			if code := decodeErrorCode(t, rec); code != "invalid_request" {
				t.Errorf("expected invalid_request, got %q", code)
			}
			if len(fx.feed.added) != 0 {
				t.Error("invalid request must not reach the controller")
			}
		})
	}
}

func TestHandlePageChanged(t *testing.T) {
	fx := newTestServer(t)

	rec := doJSON(t, fx.server, http.MethodPost, "/api/feed/page", pageChangedRequest{Index: 7})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if fx.feed.pageCalled != 1 || fx.feed.lastPage != 7 {
		t.Errorf("expected OnPageChanged(7), got called=%d last=%d", fx.feed.pageCalled, fx.feed.lastPage)
	}
}

func TestHandlePageChanged_NegativeIndex(t *testing.T) {
	fx := newTestServer(t)

	rec := doJSON(t, fx.server, http.MethodPost, "/api/feed/page", pageChangedRequest{Index: -1})

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	if fx.feed.pageCalled != 0 {
		t.Error("invalid index must not reach the controller")
	}
}

func TestHandleFeedPlaybackActions(t *testing.T) {
	fx := newTestServer(t)

	for _, action := range []string{"play", "pause", "toggle"} {
		rec := doJSON(t, fx.server, http.MethodPost, "/api/feed/"+action, nil)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", action, rec.Code)
		}
	}
	if fx.feed.playCalled != 1 || fx.feed.pauseCalled != 1 || fx.feed.toggleCalled != 1 {
		t.Errorf("play/pause/toggle = %d/%d/%d", fx.feed.playCalled, fx.feed.pauseCalled, fx.feed.toggleCalled)
	}
}

func TestHandleFeedActions_RequirePost(t *testing.T) {
	fx := newTestServer(t)

	rec := doJSON(t, fx.server, http.MethodGet, "/api/feed/play", nil)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}

func TestHandleSeek(t *testing.T) {
	fx := newTestServer(t)

	rec := doJSON(t, fx.server, http.MethodPost, "/api/feed/seek", seekRequest{PositionMs: 1500})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if fx.feed.lastSeek != 1500*time.Millisecond {
		t.Errorf("expected seek 1.5s, got %s", fx.feed.lastSeek)
	}

	rec = doJSON(t, fx.server, http.MethodPost, "/api/feed/seek", seekRequest{PositionMs: -1})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for negative position, got %d", rec.Code)
	}
}

func TestHandleVolume(t *testing.T) {
	fx := newTestServer(t)

	rec := doJSON(t, fx.server, http.MethodPost, "/api/feed/volume", volumeRequest{Volume: 0.4})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if fx.feed.lastVolume != 0.4 {
		t.Errorf("expected volume 0.4, got %v", fx.feed.lastVolume)
	}
	// Volume changes are persisted to the settings store.
	if fx.settings.setCalled != 1 {
		t.Errorf("expected settings persisted once, got %d", fx.settings.setCalled)
	}

	for _, bad := range []float64{-0.1, 1.1} {
		rec = doJSON(t, fx.server, http.MethodPost, "/api/feed/volume", volumeRequest{Volume: bad})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("volume %v: expected 400, got %d", bad, rec.Code)
		}
	}
}

func TestHandleSpeed(t *testing.T) {
	fx := newTestServer(t)

	rec := doJSON(t, fx.server, http.MethodPost, "/api/feed/speed", speedRequest{Speed: 1.5})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if fx.feed.lastSpeed != 1.5 {
		t.Errorf("expected speed 1.5, got %v", fx.feed.lastSpeed)
	}

	for _, bad := range []float64{0, -1, 4.5} {
		rec = doJSON(t, fx.server, http.MethodPost, "/api/feed/speed", speedRequest{Speed: bad})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("speed %v: expected 400, got %d", bad, rec.Code)
		}
	}
}

func TestHandleRetry(t *testing.T) {
	fx := newTestServer(t)

	rec := doJSON(t, fx.server, http.MethodPost, "/api/feed/retry", retryRequest{Index: 3})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if fx.feed.retryCalled != 1 || fx.feed.lastRetry != 3 {
		t.Errorf("expected Retry(3), got called=%d last=%d", fx.feed.retryCalled, fx.feed.lastRetry)
	}
}

func TestHandleActive(t *testing.T) {
	fx := newTestServer(t)

	rec := doJSON(t, fx.server, http.MethodPost, "/api/feed/active", activeRequest{Active: true})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if fx.feed.activeCalled != 1 || !fx.feed.lastActive {
		t.Errorf("expected SetActive(true), got called=%d last=%v", fx.feed.activeCalled, fx.feed.lastActive)
	}
}

func TestHandleFeedAction_UnknownAction(t *testing.T) {
	fx := newTestServer(t)

	rec := doJSON(t, fx.server, http.MethodPost, "/api/feed/destroy", nil)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if code := decodeErrorCode(t, rec); code != "not_found" {
		t.Errorf("expected not_found, got %q", code)
	}
}

// ---------- pool endpoints ----------

func TestHandlePool_ReturnsSnapshot(t *testing.T) {
	fx := newTestServer(t)

	rec := doJSON(t, fx.server, http.MethodGet, "/api/pool", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var state domain.PoolState
	if err := json.NewDecoder(rec.Body).Decode(&state); err != nil {
		t.Fatal(err)
	}
	if state.Capacity != 3 || state.Resident != 1 {
		t.Errorf("unexpected pool snapshot: %+v", state)
	}
}

func TestHandlePool_NotConfigured(t *testing.T) {
	server := NewServer(&fakeFeed{})
	t.Cleanup(server.Close)

	rec := doJSON(t, server, http.MethodGet, "/api/pool", nil)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if code := decodeErrorCode(t, rec); code != "not_configured" {
		t.Errorf("expected not_configured, got %q", code)
	}
}

func TestHandleMemoryPressure(t *testing.T) {
	fx := newTestServer(t)

	rec := doJSON(t, fx.server, http.MethodPost, "/api/pool/memory-pressure", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if fx.pool.pressureCalled != 1 {
		t.Errorf("expected HandleMemoryPressure once, got %d", fx.pool.pressureCalled)
	}

	rec = doJSON(t, fx.server, http.MethodGet, "/api/pool/memory-pressure", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405 for GET, got %d", rec.Code)
	}
}

func TestHandlePoolStopAll(t *testing.T) {
	fx := newTestServer(t)

	rec := doJSON(t, fx.server, http.MethodPost, "/api/pool/stop-all", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if fx.pool.stopAllCalled != 1 {
		t.Errorf("expected StopAll once, got %d", fx.pool.stopAllCalled)
	}
}

// ---------- watch history endpoints ----------

func TestHandleWatchHistory_Upsert(t *testing.T) {
	fx := newTestServer(t)

	rec := doJSON(t, fx.server, http.MethodPut, "/api/history", watchPositionPayload{
		VideoID:    "v1",
		Title:      "first",
		PositionMs: 42000,
		DurationMs: 90000,
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(fx.history.upserted) != 1 {
		t.Fatalf("expected 1 upsert, got %d", len(fx.history.upserted))
	}
	wp := fx.history.upserted[0]
	if wp.VideoID != "v1" || wp.Position != 42*time.Second || wp.Duration != 90*time.Second {
		t.Errorf("unexpected upsert payload: %+v", wp)
	}
	if wp.UpdatedAt.IsZero() {
		t.Error("expected UpdatedAt stamped")
	}
}

func TestHandleWatchHistory_UpsertValidation(t *testing.T) {
	fx := newTestServer(t)

	rec := doJSON(t, fx.server, http.MethodPut, "/api/history", watchPositionPayload{PositionMs: 10})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing videoId: expected 400, got %d", rec.Code)
	}

	rec = doJSON(t, fx.server, http.MethodPut, "/api/history", watchPositionPayload{VideoID: "v1", PositionMs: -5})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("negative position: expected 400, got %d", rec.Code)
	}
}

func TestHandleWatchHistory_List(t *testing.T) {
	fx := newTestServer(t)
	fx.history.list = []domain.WatchPosition{{VideoID: "v1"}, {VideoID: "v2"}}

	rec := doJSON(t, fx.server, http.MethodGet, "/api/history?limit=5", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if fx.history.lastLimit != 5 {
		t.Errorf("expected limit 5, got %d", fx.history.lastLimit)
	}
	var list []domain.WatchPosition
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Errorf("expected 2 positions, got %d", len(list))
	}
}

func TestHandleWatchHistory_ListDefaultLimit(t *testing.T) {
	fx := newTestServer(t)

	rec := doJSON(t, fx.server, http.MethodGet, "/api/history", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if fx.history.lastLimit != defaultHistoryLimit {
		t.Errorf("expected default limit %d, got %d", defaultHistoryLimit, fx.history.lastLimit)
	}
}

func TestHandleWatchHistory_ListBadLimit(t *testing.T) {
	fx := newTestServer(t)

	for _, limit := range []string{"abc", "0", "-3"} {
		rec := doJSON(t, fx.server, http.MethodGet, "/api/history?limit="+limit, nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("limit %q: expected 400, got %d", limit, rec.Code)
		}
	}
}

func TestHandleWatchHistoryByID(t *testing.T) {
	fx := newTestServer(t)
	fx.history.get = domain.WatchPosition{VideoID: "v1", Position: 3 * time.Second}

	rec := doJSON(t, fx.server, http.MethodGet, "/api/history/v1", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var wp domain.WatchPosition
	if err := json.NewDecoder(rec.Body).Decode(&wp); err != nil {
		t.Fatal(err)
	}
	if wp.VideoID != "v1" {
		t.Errorf("expected v1, got %q", wp.VideoID)
	}
}

func TestHandleWatchHistoryByID_NotFound(t *testing.T) {
	fx := newTestServer(t)
	fx.history.getErr = domain.ErrNotFound

	rec := doJSON(t, fx.server, http.MethodGet, "/api/history/missing", nil)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if code := decodeErrorCode(t, rec); code != "not_found" {
		t.Errorf("expected not_found, got %q", code)
	}
}

// ---------- player settings endpoints ----------

func TestHandleGetPlayerSettings_DefaultsWhenMissing(t *testing.T) {
	fx := newTestServer(t)

	rec := doJSON(t, fx.server, http.MethodGet, "/settings/player", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var settings domain.PlayerSettings
	if err := json.NewDecoder(rec.Body).Decode(&settings); err != nil {
		t.Fatal(err)
	}
	if settings.Volume != 1 || settings.Speed != 1 {
		t.Errorf("expected defaults 1/1, got %v/%v", settings.Volume, settings.Speed)
	}
}

func TestHandleUpdatePlayerSettings(t *testing.T) {
	fx := newTestServer(t)
	volume := 0.3
	last := "v9"

	rec := doJSON(t, fx.server, http.MethodPatch, "/settings/player", updatePlayerSettingsRequest{
		Volume:      &volume,
		LastVideoID: &last,
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if fx.settings.setCalled != 1 {
		t.Errorf("expected settings persisted once, got %d", fx.settings.setCalled)
	}
	if fx.settings.settings.Volume != 0.3 || fx.settings.settings.LastVideoID != "v9" {
		t.Errorf("unexpected persisted settings: %+v", fx.settings.settings)
	}
	// The live controller must follow the stored volume.
	if fx.feed.volumeCalled != 1 || fx.feed.lastVolume != 0.3 {
		t.Errorf("expected controller volume updated, got called=%d last=%v", fx.feed.volumeCalled, fx.feed.lastVolume)
	}
}

func TestHandleUpdatePlayerSettings_Validation(t *testing.T) {
	fx := newTestServer(t)
	badVolume := 1.5
	badSpeed := 0.0

	rec := doJSON(t, fx.server, http.MethodPatch, "/settings/player", updatePlayerSettingsRequest{Volume: &badVolume})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("volume 1.5: expected 400, got %d", rec.Code)
	}

	rec = doJSON(t, fx.server, http.MethodPatch, "/settings/player", updatePlayerSettingsRequest{Speed: &badSpeed})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("speed 0: expected 400, got %d", rec.Code)
	}
	if fx.settings.setCalled != 0 {
		t.Error("invalid settings must not be persisted")
	}
}

// ---------- healthz ----------

func TestHandleHealthz(t *testing.T) {
	fx := newTestServer(t)

	rec := doJSON(t, fx.server, http.MethodGet, "/healthz", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp["status"] != "ok" {
		t.Errorf("expected status ok, got %v", resp["status"])
	}
	if resp["poolCapacity"] != float64(3) {
		t.Errorf("expected poolCapacity 3, got %v", resp["poolCapacity"])
	}
}

func TestHandleHealthz_RejectsPost(t *testing.T) {
	fx := newTestServer(t)

	rec := doJSON(t, fx.server, http.MethodPost, "/healthz", nil)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}

// ---------- domain error mapping ----------

func TestWriteDomainError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{domain.ErrNotFound, http.StatusNotFound, "not_found"},
		{domain.ErrPoolExhausted, http.StatusConflict, "pool_exhausted"},
		{domain.ErrAcquisitionCancelled, http.StatusConflict, "cancelled"},
		{domain.ErrPoolClosed, http.StatusServiceUnavailable, "pool_closed"},
		{context.DeadlineExceeded, http.StatusInternalServerError, "internal_error"},
	}

	for _, tc := range tests {
		rec := httptest.NewRecorder()
		writeDomainError(rec, tc.err)
		if rec.Code != tc.status {
			t.Errorf("%v: expected %d, got %d", tc.err, tc.status, rec.Code)
		}
		if code := decodeErrorCode(t, rec); code != tc.code {
			t.Errorf("%v: expected code %q, got %q", tc.err, tc.code, code)
		}
	}
}
