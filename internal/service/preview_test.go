package service

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuedeck/cuedeck/internal/adapter/engine/mock"
	"github.com/cuedeck/cuedeck/internal/domain"
	"github.com/cuedeck/cuedeck/internal/logger"
	"github.com/cuedeck/cuedeck/internal/ports"
	"github.com/cuedeck/cuedeck/internal/testutil"
)

// mockFactory builds mock engines and keeps every instance for assertions.
type mockFactory struct {
	mu      sync.Mutex
	engines []*mock.Engine

	// prepare configures each new engine before it is handed out.
	prepare func(*mock.Engine)
}

func (f *mockFactory) new() ports.Engine {
	engine := mock.NewEngine()
	engine.SetLogger(logger.NewTestLogger())
	if f.prepare != nil {
		f.prepare(engine)
	}

	f.mu.Lock()
	f.engines = append(f.engines, engine)
	f.mu.Unlock()
	return engine
}

func (f *mockFactory) engine(i int) *mock.Engine {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.engines[i]
}

func (f *mockFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.engines)
}

func newPreviewHarness(t *testing.T, cfg PreviewConfig) (*PreviewService, *mockFactory) {
	t.Helper()

	t.Cleanup(func() {
		testutil.VerifyNoLeaks(t)
	})

	if cfg.StreamBaseURL == "" {
		cfg.StreamBaseURL = "http://127.0.0.1:8000"
	}

	factory := &mockFactory{}
	svc := NewPreviewService(logger.NewTestLogger(), factory.new, cfg)

	t.Cleanup(svc.StopPreview)

	return svc, factory
}

func TestPreviewService_PlayPreview_PreRolledStart(t *testing.T) {
	svc, factory := newPreviewHarness(t, PreviewConfig{PreRoll: 3})

	ts := 40.0
	require.NoError(t, svc.PlayPreview("Music/loop.mp3", &ts))
	require.Equal(t, 1, factory.count())

	engine := factory.engine(0)
	assert.Equal(t, "http://127.0.0.1:8000/stream?path=Music%2Floop.mp3", engine.Source())
	assert.Equal(t, 1, engine.LoadCalls())
	assert.True(t, svc.Active())

	// The engine was not ready, so the start position applies on the loaded
	// edge rather than being lost.
	assert.Empty(t, engine.Seeks())
	engine.SignalReady(domain.ReadyEnoughData)
	assert.Equal(t, 37.0, engine.Position())
}

func TestPreviewService_PlayPreview_TimestampNearZeroClamps(t *testing.T) {
	svc, factory := newPreviewHarness(t, PreviewConfig{PreRoll: 3})

	ts := 1.0
	require.NoError(t, svc.PlayPreview("Music/loop.mp3", &ts))

	engine := factory.engine(0)
	engine.SignalReady(domain.ReadyEnoughData)
	assert.Empty(t, engine.Seeks(), "a clamped-to-zero start needs no seek")
}

func TestPreviewService_PlayPreview_NoTimestamp(t *testing.T) {
	svc, factory := newPreviewHarness(t, PreviewConfig{})

	require.NoError(t, svc.PlayPreview("Music/loop.mp3", nil))

	engine := factory.engine(0)
	engine.SignalReady(domain.ReadyEnoughData)
	assert.Empty(t, engine.Seeks())
	assert.False(t, engine.Paused())
}

func TestPreviewService_SecondPreviewStopsFirst(t *testing.T) {
	svc, factory := newPreviewHarness(t, PreviewConfig{})

	require.NoError(t, svc.PlayPreview("Music/first.mp3", nil))
	require.NoError(t, svc.PlayPreview("Music/second.mp3", nil))

	require.Equal(t, 2, factory.count())
	assert.True(t, factory.engine(0).Closed(), "first engine torn down")
	assert.False(t, factory.engine(1).Closed())
	assert.True(t, svc.Active())
}

func TestPreviewService_AutoStop(t *testing.T) {
	svc, factory := newPreviewHarness(t, PreviewConfig{
		AutoStop: 20 * time.Millisecond,
	})

	require.NoError(t, svc.PlayPreview("Music/loop.mp3", nil))
	require.True(t, svc.Active())

	require.Eventually(t, func() bool {
		return !svc.Active()
	}, time.Second, 2*time.Millisecond, "preview never auto-stopped")
	assert.True(t, factory.engine(0).Closed())
}

func TestPreviewService_EndedStopsPreview(t *testing.T) {
	svc, factory := newPreviewHarness(t, PreviewConfig{})

	require.NoError(t, svc.PlayPreview("Music/short.mp3", nil))

	factory.engine(0).FinishTrack()

	assert.False(t, svc.Active())
	assert.True(t, factory.engine(0).Closed())
}

func TestPreviewService_ErrorStopsPreview(t *testing.T) {
	svc, factory := newPreviewHarness(t, PreviewConfig{})

	require.NoError(t, svc.PlayPreview("Music/missing.mp3", nil))

	factory.engine(0).FailLoad(domain.ErrNoSource)

	assert.False(t, svc.Active())
	assert.True(t, factory.engine(0).Closed())
}

func TestPreviewService_RejectedPlayReturnsError(t *testing.T) {
	svc, factory := newPreviewHarness(t, PreviewConfig{})
	factory.prepare = func(e *mock.Engine) {
		e.SetFailPlay(true)
	}

	err := svc.PlayPreview("Music/loop.mp3", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPlaybackRejected)
	assert.False(t, svc.Active())
	assert.True(t, factory.engine(0).Closed(), "rejected engine must not leak")
}

func TestPreviewService_StaleTeardownIgnoresReplacedEngine(t *testing.T) {
	svc, factory := newPreviewHarness(t, PreviewConfig{})

	require.NoError(t, svc.PlayPreview("Music/first.mp3", nil))
	first := factory.engine(0)
	require.NoError(t, svc.PlayPreview("Music/second.mp3", nil))
	second := factory.engine(1)

	// A late auto-stop callback from the replaced preview must not stop
	// its successor.
	svc.stopEngine(first)

	assert.True(t, svc.Active())
	assert.False(t, second.Closed())

	svc.stopEngine(second)
	assert.False(t, svc.Active())
	assert.True(t, second.Closed())
}

func TestPreviewService_IsolatedFromMainPlayback(t *testing.T) {
	// Main playback running through the sync service.
	h := newSyncHarness(t, SyncConfig{})
	h.st.Play(syncTrack("main"))
	h.engine.SignalReady(domain.ReadyEnoughData)
	h.engine.ReportPosition(42.5)

	// A full preview cycle on a different source.
	svc, factory := newPreviewHarness(t, PreviewConfig{PreRoll: 3})
	ts := 90.0
	require.NoError(t, svc.PlayPreview("Music/other.mp3", &ts))
	factory.engine(0).SignalReady(domain.ReadyEnoughData)
	svc.StopPreview()

	// The main store and engine must be untouched.
	snap := h.st.Snapshot()
	require.NotNil(t, snap.CurrentTrack)
	assert.Equal(t, "main", snap.CurrentTrack.ID)
	assert.True(t, snap.IsPlaying)
	assert.Equal(t, 42.5, snap.Progress)
	assert.Nil(t, snap.SeekRequest)
	assert.False(t, h.engine.Paused())
	assert.Empty(t, h.engine.Seeks())
}

func TestPreviewService_StopPreview_Idempotent(t *testing.T) {
	svc, _ := newPreviewHarness(t, PreviewConfig{})

	svc.StopPreview()
	svc.StopPreview()

	require.NoError(t, svc.PlayPreview("Music/loop.mp3", nil))
	svc.StopPreview()
	svc.StopPreview()
	assert.False(t, svc.Active())
}
