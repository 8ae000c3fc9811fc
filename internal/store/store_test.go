package store

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuedeck/cuedeck/internal/adapter/eventbus"
	"github.com/cuedeck/cuedeck/internal/domain"
	"github.com/cuedeck/cuedeck/internal/logger"
)

// eventRecorder collects published event types for assertions.
type eventRecorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *eventRecorder) record(event domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *eventRecorder) types() []domain.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type())
	}
	return out
}

func (r *eventRecorder) countOf(t domain.EventType) int {
	n := 0
	for _, et := range r.types() {
		if et == t {
			n++
		}
	}
	return n
}

func newTestStore(t *testing.T) (*Store, *eventRecorder) {
	t.Helper()

	bus := eventbus.NewSyncEventBus()
	rec := &eventRecorder{}
	bus.SubscribeAll(rec.record)

	st := New(logger.NewTestLogger(), bus, 0.8, 3)
	return st, rec
}

func testTrack(id string) *domain.Track {
	return &domain.Track{
		ID:       id,
		Title:    "Test Track " + id,
		Artist:   "Test Artist",
		FilePath: "Music/" + id + ".mp3",
		Duration: 180,
	}
}

func TestStore_InitialState(t *testing.T) {
	st, _ := newTestStore(t)

	snap := st.Snapshot()
	assert.Nil(t, snap.CurrentTrack)
	assert.False(t, snap.IsPlaying)
	assert.Equal(t, 0.8, snap.Volume)
	assert.Equal(t, 0.0, snap.Progress)
	assert.Equal(t, 0.0, snap.Duration)
	assert.Nil(t, snap.SeekRequest)
}

func TestStore_SetTrack(t *testing.T) {
	st, rec := newTestStore(t)

	st.SetProgress(42)
	st.RequestSeek(10) // no track loaded, must be dropped

	track := testTrack("a")
	st.SetTrack(track)

	snap := st.Snapshot()
	require.NotNil(t, snap.CurrentTrack)
	assert.Equal(t, "a", snap.CurrentTrack.ID)
	assert.Equal(t, 0.0, snap.Progress, "progress resets on track change")
	assert.Equal(t, 180.0, snap.Duration, "nominal duration is provisional")
	assert.Nil(t, snap.SeekRequest)

	assert.Equal(t, 1, rec.countOf(domain.EventTrackChanged))
}

func TestStore_SetTrack_SameTrackIsNoOp(t *testing.T) {
	st, rec := newTestStore(t)

	st.SetTrack(testTrack("a"))
	st.SetProgress(42)

	// Same ID, different pointer: still the same track.
	st.SetTrack(testTrack("a"))

	snap := st.Snapshot()
	assert.Equal(t, 42.0, snap.Progress, "progress survives a same-track set")
	assert.Equal(t, 1, rec.countOf(domain.EventTrackChanged))
}

func TestStore_SetTrack_PendingSeekAbandoned(t *testing.T) {
	st, _ := newTestStore(t)

	st.SetTrack(testTrack("a"))
	st.RequestSeek(60)
	require.NotNil(t, st.Snapshot().SeekRequest)

	st.SetTrack(testTrack("b"))
	assert.Nil(t, st.Snapshot().SeekRequest)
}

func TestStore_SetTrack_NilUnloads(t *testing.T) {
	st, _ := newTestStore(t)

	st.SetTrack(testTrack("a"))
	st.SetTrack(nil)

	snap := st.Snapshot()
	assert.Nil(t, snap.CurrentTrack)
	assert.Equal(t, 0.0, snap.Duration)
}

func TestStore_Play_WithoutTrackIsNoOp(t *testing.T) {
	st, rec := newTestStore(t)

	st.Play(nil)

	assert.False(t, st.Snapshot().IsPlaying)
	assert.Equal(t, 0, rec.countOf(domain.EventIntentChanged))
}

func TestStore_Play_Resume(t *testing.T) {
	st, _ := newTestStore(t)

	st.SetTrack(testTrack("a"))
	st.Play(nil)

	assert.True(t, st.Snapshot().IsPlaying)
}

func TestStore_Play_NewTrack(t *testing.T) {
	st, _ := newTestStore(t)

	st.Play(testTrack("a"))

	snap := st.Snapshot()
	require.NotNil(t, snap.CurrentTrack)
	assert.Equal(t, "a", snap.CurrentTrack.ID)
	assert.True(t, snap.IsPlaying)
}

func TestStore_PlayAt_AppliesPreRoll(t *testing.T) {
	st, rec := newTestStore(t)

	st.PlayAt(testTrack("a"), 40)

	snap := st.Snapshot()
	assert.True(t, snap.IsPlaying)
	require.NotNil(t, snap.SeekRequest)
	assert.Equal(t, 37.0, *snap.SeekRequest, "pre-roll of 3s subtracted")
	assert.Equal(t, 1, rec.countOf(domain.EventSeekRequested))
}

func TestStore_PlayAt_ClampsNearZero(t *testing.T) {
	st, _ := newTestStore(t)

	st.PlayAt(testTrack("a"), 1)

	snap := st.Snapshot()
	require.NotNil(t, snap.SeekRequest)
	assert.Equal(t, 0.0, *snap.SeekRequest)
}

func TestStore_RequestSeek(t *testing.T) {
	st, _ := newTestStore(t)

	st.SetTrack(testTrack("a"))
	st.RequestSeek(65.5)

	snap := st.Snapshot()
	require.NotNil(t, snap.SeekRequest)
	assert.Equal(t, 65.5, *snap.SeekRequest, "scrubber seeks carry no pre-roll")
}

func TestStore_RequestSeek_NegativeClamps(t *testing.T) {
	st, _ := newTestStore(t)

	st.SetTrack(testTrack("a"))
	st.RequestSeek(-5)

	snap := st.Snapshot()
	require.NotNil(t, snap.SeekRequest)
	assert.Equal(t, 0.0, *snap.SeekRequest)
}

func TestStore_Pause_Idempotent(t *testing.T) {
	st, rec := newTestStore(t)

	st.SetTrack(testTrack("a"))
	st.Play(nil)
	st.Pause()
	st.Pause()
	st.Pause()

	assert.False(t, st.Snapshot().IsPlaying)
	// One intent flip up, one down; redundant pauses publish nothing.
	assert.Equal(t, 2, rec.countOf(domain.EventIntentChanged))
}

func TestStore_TogglePlay(t *testing.T) {
	st, _ := newTestStore(t)

	st.TogglePlay()
	assert.False(t, st.Snapshot().IsPlaying, "toggle without a track is a no-op")

	st.SetTrack(testTrack("a"))
	st.TogglePlay()
	assert.True(t, st.Snapshot().IsPlaying)

	st.TogglePlay()
	assert.False(t, st.Snapshot().IsPlaying)
}

func TestStore_SetVolume_Clamps(t *testing.T) {
	st, _ := newTestStore(t)

	st.SetVolume(1.7)
	assert.Equal(t, 1.0, st.Snapshot().Volume)

	st.SetVolume(-0.3)
	assert.Equal(t, 0.0, st.Snapshot().Volume)

	st.SetVolume(0.5)
	assert.Equal(t, 0.5, st.Snapshot().Volume)
}

func TestStore_SetVolume_UnchangedIsNoOp(t *testing.T) {
	st, rec := newTestStore(t)

	st.SetVolume(0.8) // matches initial volume
	assert.Equal(t, 0, rec.countOf(domain.EventVolumeChanged))
}

func TestStore_SetDuration_WinsOverNominal(t *testing.T) {
	st, _ := newTestStore(t)

	st.SetTrack(testTrack("a"))
	require.Equal(t, 180.0, st.Snapshot().Duration)

	st.SetDuration(182.4)
	assert.Equal(t, 182.4, st.Snapshot().Duration)
}

func TestStore_ClearSeekRequest(t *testing.T) {
	st, rec := newTestStore(t)

	st.SetTrack(testTrack("a"))
	st.RequestSeek(30)
	st.ClearSeekRequest()

	assert.Nil(t, st.Snapshot().SeekRequest)

	before := rec.countOf(domain.EventStateChanged)
	st.ClearSeekRequest() // already clear, publishes nothing
	assert.Equal(t, before, rec.countOf(domain.EventStateChanged))
}

func TestStore_SnapshotIsIsolated(t *testing.T) {
	st, _ := newTestStore(t)

	st.SetTrack(testTrack("a"))
	st.RequestSeek(30)

	snap := st.Snapshot()
	*snap.SeekRequest = 999

	fresh := st.Snapshot()
	require.NotNil(t, fresh.SeekRequest)
	assert.Equal(t, 30.0, *fresh.SeekRequest, "snapshot mutation must not leak back")
}

func TestStore_StateChangedCarriesSnapshot(t *testing.T) {
	var got *domain.PlaybackSnapshot
	bus := eventbus.NewSyncEventBus()
	bus.Subscribe(domain.EventStateChanged, func(event domain.Event) {
		if e, ok := event.(domain.StateChangedEvent); ok {
			state := e.State
			got = &state
		}
	})

	st := New(logger.NewTestLogger(), bus, 0.8, 3)
	st.SetTrack(testTrack("a"))

	require.NotNil(t, got)
	require.NotNil(t, got.CurrentTrack)
	assert.Equal(t, "a", got.CurrentTrack.ID)
}
