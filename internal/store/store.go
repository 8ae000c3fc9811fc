// Package store holds the playback state store, the single source of truth
// for what should be playing, at what volume, at what position, and whether a
// seek is pending.
//
// The store is pure data plus a closed set of mutation actions. Actions never
// touch the engine; that is the sync service's job. This separation is what
// keeps the store testable without a real engine. Every mutation publishes
// change events on the bus so the sync service and UI surfaces can react
// without polling.
package store

import (
	"log/slog"
	"sync"

	"github.com/cuedeck/cuedeck/internal/domain"
	"github.com/cuedeck/cuedeck/internal/ports"
)

// Store is the playback state store. All fields are written only through the
// declared actions, never mutated in place from outside.
//
// Thread-safety: all actions are safe for concurrent use. Events are always
// published after the internal lock is released, so handlers may call back
// into the store.
type Store struct {
	logger *slog.Logger
	bus    ports.EventBus

	mu           sync.RWMutex
	currentTrack *domain.Track
	isPlaying    bool
	volume       float64
	progress     float64
	duration     float64
	seekRequest  *float64

	// preRoll is the fixed lead-in subtracted from jump-to-phrase targets so
	// playback provides context before the exact point.
	preRoll float64
}

// New creates a playback state store.
func New(logger *slog.Logger, bus ports.EventBus, initialVolume, preRoll float64) *Store {
	return &Store{
		logger:  logger,
		bus:     bus,
		volume:  clampUnit(initialVolume),
		preRoll: preRoll,
	}
}

// Snapshot returns a point-in-time copy of the full playback state.
func (s *Store) Snapshot() domain.PlaybackSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() domain.PlaybackSnapshot {
	snap := domain.PlaybackSnapshot{
		CurrentTrack: s.currentTrack,
		IsPlaying:    s.isPlaying,
		Volume:       s.volume,
		Progress:     s.progress,
		Duration:     s.duration,
	}
	if s.seekRequest != nil {
		target := *s.seekRequest
		snap.SeekRequest = &target
	}
	return snap
}

// SetTrack replaces the current track (nil unloads). Progress resets, the
// nominal duration becomes the provisional duration until the engine reports
// its own, and any pending seek is abandoned.
func (s *Store) SetTrack(track *domain.Track) {
	s.mu.Lock()
	if sameTrack(s.currentTrack, track) {
		s.mu.Unlock()
		return
	}
	s.currentTrack = track
	s.progress = 0
	s.duration = 0
	s.seekRequest = nil
	if track != nil {
		s.duration = track.Duration
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.logger.Debug("track changed", slog.Any("track", trackLabel(track)))
	s.bus.Publish(domain.NewTrackChangedEvent(track))
	s.bus.Publish(domain.NewStateChangedEvent(snap))
}

// SetIsPlaying sets the playback intent. No-op when unchanged.
func (s *Store) SetIsPlaying(playing bool) {
	s.mu.Lock()
	if s.isPlaying == playing {
		s.mu.Unlock()
		return
	}
	s.isPlaying = playing
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.bus.Publish(domain.NewIntentChangedEvent(playing))
	s.bus.Publish(domain.NewStateChangedEvent(snap))
}

// SetVolume sets the volume, clamped to [0, 1].
func (s *Store) SetVolume(volume float64) {
	volume = clampUnit(volume)

	s.mu.Lock()
	if s.volume == volume {
		s.mu.Unlock()
		return
	}
	s.volume = volume
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.bus.Publish(domain.NewVolumeChangedEvent(volume))
	s.bus.Publish(domain.NewStateChangedEvent(snap))
}

// SetProgress records an observed playback position in seconds.
func (s *Store) SetProgress(seconds float64) {
	s.mu.Lock()
	if s.progress == seconds {
		s.mu.Unlock()
		return
	}
	s.progress = seconds
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.bus.Publish(domain.NewStateChangedEvent(snap))
}

// SetDuration records the engine-observed total length in seconds.
// The engine's value wins over the track's nominal duration.
func (s *Store) SetDuration(seconds float64) {
	s.mu.Lock()
	if s.duration == seconds {
		s.mu.Unlock()
		return
	}
	s.duration = seconds
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.bus.Publish(domain.NewStateChangedEvent(snap))
}

// Play resumes the current track, or starts a new one when track is non-nil.
// With no argument and no track loaded there is nothing to resume, so this is
// a no-op. Passing a different track is a new-track transition, not a resume.
func (s *Store) Play(track *domain.Track) {
	if track != nil {
		s.SetTrack(track)
		s.SetIsPlaying(true)
		return
	}

	s.mu.RLock()
	loaded := s.currentTrack != nil
	s.mu.RUnlock()
	if !loaded {
		return
	}
	s.SetIsPlaying(true)
}

// PlayAt starts the given track with a pending seek to just before the target
// position: max(0, seconds − preRoll). The sync service picks up the seek
// request and runs the forced-seek protocol against the engine.
func (s *Store) PlayAt(track *domain.Track, seconds float64) {
	target := seconds - s.preRoll
	if target < 0 {
		target = 0
	}

	s.SetTrack(track)

	s.mu.Lock()
	s.isPlaying = true
	s.seekRequest = &target
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.bus.Publish(domain.NewIntentChangedEvent(true))
	s.bus.Publish(domain.NewSeekRequestedEvent(target))
	s.bus.Publish(domain.NewStateChangedEvent(snap))
}

// RequestSeek records a pending seek to an absolute position in seconds.
// This is the scrubber's entry point; no pre-roll is applied.
func (s *Store) RequestSeek(seconds float64) {
	if seconds < 0 {
		seconds = 0
	}

	s.mu.Lock()
	if s.currentTrack == nil {
		s.mu.Unlock()
		return
	}
	target := seconds
	s.seekRequest = &target
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.bus.Publish(domain.NewSeekRequestedEvent(seconds))
	s.bus.Publish(domain.NewStateChangedEvent(snap))
}

// Pause clears the playback intent. Calling Pause while already paused leaves
// every field unchanged.
func (s *Store) Pause() {
	s.SetIsPlaying(false)
}

// TogglePlay flips between play and pause. With no track loaded it is a no-op.
func (s *Store) TogglePlay() {
	s.mu.RLock()
	loaded := s.currentTrack != nil
	playing := s.isPlaying
	s.mu.RUnlock()

	if !loaded {
		return
	}
	s.SetIsPlaying(!playing)
}

// ClearSeekRequest drops the pending seek. Called by the sync service once a
// forced seek completed or was abandoned.
func (s *Store) ClearSeekRequest() {
	s.mu.Lock()
	if s.seekRequest == nil {
		s.mu.Unlock()
		return
	}
	s.seekRequest = nil
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.bus.Publish(domain.NewStateChangedEvent(snap))
}

func clampUnit(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func sameTrack(a, b *domain.Track) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.ID == b.ID
}

func trackLabel(t *domain.Track) string {
	if t == nil {
		return "<none>"
	}
	return t.ID
}
