package app

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rxvxrsx/revgrab/internal/domain"
)

type fakeDisk struct{ free bool }

func (d fakeDisk) HasFreeSpace(path string, minFreeMB int64) bool { return d.free }

type recordingRecorder struct {
	mu      sync.Mutex
	results []domain.SessionResult
}

func (r *recordingRecorder) RecordResult(session *domain.DownloadSession, result domain.SessionResult) {
	r.mu.Lock()
	r.results = append(r.results, result)
	r.mu.Unlock()
}

func newTestController(backend domain.MediaBackend, recorders ...ResultRecorder) *SessionController {
	return NewSessionController(backend, testEngineConfig(), fakeDisk{free: true}, NewEventBus(), zap.NewNop(), recorders...)
}

func startAndWait(t *testing.T, sc *SessionController, url string, opts domain.DownloadOptions) domain.SessionResult {
	t.Helper()
	sessionID, err := sc.StartSession(url, opts)
	require.NoError(t, err)
	result, ok := sc.Wait(sessionID)
	require.True(t, ok)
	return result
}

func TestSessionController_RejectsInvalidURL(t *testing.T) {
	sc := newTestController(&fakeBackend{})

	_, err := sc.StartSession("not a url", domain.DefaultDownloadOptions())
	assert.ErrorIs(t, err, domain.ErrInvalidURL)

	_, err = sc.StartSession("", domain.DefaultDownloadOptions())
	assert.ErrorIs(t, err, domain.ErrInvalidURL)
}

func TestSessionController_RejectsDRMPlatforms(t *testing.T) {
	sc := newTestController(&fakeBackend{})

	_, err := sc.StartSession("https://open.spotify.com/track/abc", domain.DefaultDownloadOptions())
	assert.ErrorIs(t, err, domain.ErrDRMUnsupported)
}

func TestSessionController_RejectsWhenDiskFull(t *testing.T) {
	sc := NewSessionController(&fakeBackend{}, testEngineConfig(), fakeDisk{free: false}, NewEventBus(), zap.NewNop())

	_, err := sc.StartSession("https://youtube.com/watch?v=abc", domain.DefaultDownloadOptions())
	assert.ErrorIs(t, err, domain.ErrInsufficientDiskSpace)
}

func TestSessionController_SingleActiveSession(t *testing.T) {
	backend := &fakeBackend{blockUntilCancel: true}
	cfg := testEngineConfig()
	cfg.StartSpacing = 0
	sc := NewSessionController(backend, cfg, fakeDisk{free: true}, NewEventBus(), zap.NewNop())

	sessionID, err := sc.StartSession("https://youtube.com/watch?v=abc", domain.DefaultDownloadOptions())
	require.NoError(t, err)

	// Give the resolve/run goroutine a moment to become the active session.
	require.Eventually(t, func() bool { return sc.Current() != nil }, time.Second, 5*time.Millisecond)

	_, err = sc.StartSession("https://youtube.com/watch?v=def", domain.DefaultDownloadOptions())
	assert.ErrorIs(t, err, domain.ErrAlreadyDownloading)

	sc.Cancel()
	result, ok := sc.Wait(sessionID)
	require.True(t, ok)
	assert.Equal(t, domain.OutcomeCancelled, result.Outcome)
}

func TestSessionController_StartSpacing(t *testing.T) {
	backend := &fakeBackend{}
	cfg := testEngineConfig()
	cfg.StartSpacing = time.Hour
	sc := NewSessionController(backend, cfg, fakeDisk{free: true}, NewEventBus(), zap.NewNop())

	sessionID, err := sc.StartSession("https://youtube.com/watch?v=abc", domain.DefaultDownloadOptions())
	require.NoError(t, err)
	sc.Wait(sessionID)

	_, err = sc.StartSession("https://youtube.com/watch?v=def", domain.DefaultDownloadOptions())
	assert.ErrorIs(t, err, domain.ErrTooSoon)
}

func TestSessionController_SingleItemSession(t *testing.T) {
	backend := &fakeBackend{meta: &domain.Metadata{Title: "My Video"}}
	recorder := &recordingRecorder{}
	sc := newTestController(backend, recorder)

	result := startAndWait(t, sc, "https://youtube.com/watch?v=abc", domain.DefaultDownloadOptions())

	assert.Equal(t, domain.OutcomeAllSucceeded, result.Outcome)
	assert.Equal(t, 1, result.Completed)
	require.Len(t, recorder.results, 1)
	assert.Equal(t, result.SessionID, recorder.results[0].SessionID)
}

func TestSessionController_DefaultsOutputDirFromConfig(t *testing.T) {
	backend := &fakeBackend{meta: &domain.Metadata{Title: "My Video"}}
	sc := newTestController(backend)

	opts := domain.DefaultDownloadOptions()
	require.Empty(t, opts.OutputDir)
	startAndWait(t, sc, "https://youtube.com/watch?v=abc", opts)

	backend.mu.Lock()
	got := backend.lastOpts.OutputDir
	backend.mu.Unlock()
	assert.Equal(t, "/tmp", got)
}

func TestSessionController_PlaylistSession(t *testing.T) {
	entries := []domain.MetadataEntry{
		{URL: "https://youtube.com/watch?v=1", Title: "One"},
		{URL: "https://youtube.com/watch?v=2", Title: "Two"},
		{URL: "https://youtube.com/watch?v=3", Title: "Three"},
	}
	backend := &fakeBackend{meta: &domain.Metadata{Title: "Mix", Type: "playlist", Entries: entries}}
	sc := newTestController(backend)

	result := startAndWait(t, sc, "https://youtube.com/playlist?list=PLabc", domain.DefaultDownloadOptions())

	assert.Equal(t, domain.OutcomeAllSucceeded, result.Outcome)
	assert.Equal(t, 3, result.Completed)
}

func TestSessionController_PlaylistLimitCapsItems(t *testing.T) {
	var entries []domain.MetadataEntry
	for i := 0; i < 20; i++ {
		entries = append(entries, domain.MetadataEntry{URL: "https://youtube.com/watch?v=x"})
	}
	backend := &fakeBackend{meta: &domain.Metadata{Type: "playlist", Entries: entries}}
	sc := newTestController(backend)

	opts := domain.DefaultDownloadOptions()
	opts.PlaylistLimit = 5
	result := startAndWait(t, sc, "https://youtube.com/playlist?list=PLabc", opts)

	assert.Equal(t, 5, result.Completed)
}

func TestSessionController_SingleEntryUnderPlainURLIsSingle(t *testing.T) {
	backend := &fakeBackend{meta: &domain.Metadata{
		Title:   "One",
		Entries: []domain.MetadataEntry{{URL: "https://youtube.com/watch?v=1", Title: "One"}},
	}}
	sc := newTestController(backend)

	result := startAndWait(t, sc, "https://youtube.com/watch?v=1", domain.DefaultDownloadOptions())
	assert.Equal(t, 1, result.Completed)

	session := sc.Current()
	assert.Nil(t, session) // finished sessions are cleared
}

func TestSessionController_SingleEntryUnderPlaylistURLIsSingle(t *testing.T) {
	backend := &fakeBackend{meta: &domain.Metadata{
		Title:   "My Playlist",
		Type:    "playlist",
		Entries: []domain.MetadataEntry{{URL: "https://youtube.com/watch?v=1", Title: "Only One"}},
	}}
	sc := newTestController(backend)

	result := startAndWait(t, sc, "https://youtube.com/playlist?list=PLonly", domain.DefaultDownloadOptions())

	// One resolved entry stays a single-item session even under a
	// playlist-shaped URL and a playlist type tag.
	assert.Equal(t, 1, result.Completed)
	assert.Zero(t, result.Failed)
}

func TestSessionController_ResolveFailureEndsSession(t *testing.T) {
	backend := &fakeBackend{resolveErr: errors.New("ERROR: Private video")}
	recorder := &recordingRecorder{}
	sc := newTestController(backend, recorder)

	sessionID, err := sc.StartSession("https://youtube.com/watch?v=abc", domain.DefaultDownloadOptions())
	require.NoError(t, err)

	result, ok := sc.Wait(sessionID)
	require.True(t, ok)
	assert.Equal(t, domain.OutcomeAllFailed, result.Outcome)
	assert.Zero(t, result.Completed)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, recorder.results, 1)
}

func TestSessionController_CancelWithoutSessionIsNoop(t *testing.T) {
	sc := newTestController(&fakeBackend{})
	sc.Cancel()
	sc.Cancel()
	assert.Nil(t, sc.Current())
}

func TestSessionController_WaitUnknownSession(t *testing.T) {
	sc := newTestController(&fakeBackend{})
	_, ok := sc.Wait("nope")
	assert.False(t, ok)
}
