// Package domain contains core business models and logic with no external dependencies.
// This package defines the fundamental entities of the cuedeck playback core.
package domain

// Track represents a single library track as supplied by the metadata backend.
// It is read-only to the playback core: the backend owns persistence, analysis
// and waveform extraction.
type Track struct {
	// ID is a stable unique identifier for the track
	ID string

	// Title is the display title (may be empty, used for logging only)
	Title string

	// Artist is the performing artist name (may be empty)
	Artist string

	// FilePath is the source locator handed to the streaming backend
	FilePath string

	// Duration is the nominal track length in seconds from the backend's
	// analysis. The engine-observed duration wins once known.
	Duration float64

	// WaveformPeaks holds normalized amplitude samples (0.0-1.0) for the
	// scrubber. May be empty; rendering falls back to a flat bar.
	WaveformPeaks []float64
}

// PlaybackSnapshot is a point-in-time copy of the playback state store.
// UI surfaces render from snapshots; they never mutate store fields directly.
type PlaybackSnapshot struct {
	// CurrentTrack is the track that should be playing (nil if none loaded)
	CurrentTrack *Track

	// IsPlaying is the user's playback intent, not the observed engine state
	IsPlaying bool

	// Volume is the current volume level (0.0 to 1.0)
	Volume float64

	// Progress is the last observed playback position in seconds.
	// Not authoritative while a forced seek is in flight.
	Progress float64

	// Duration is the last observed total length in seconds (0 until known)
	Duration float64

	// SeekRequest is a target position in seconds awaiting application,
	// nil unless a forced seek is pending
	SeekRequest *float64
}

// ReadyState models the engine's self-reported buffering level, mirroring the
// readiness ladder of media-element style engines.
type ReadyState int

const (
	// ReadyNothing indicates no data is available yet
	ReadyNothing ReadyState = iota

	// ReadyMetadata indicates duration and format are known
	ReadyMetadata

	// ReadyCurrentData indicates data for the current position is buffered.
	// This is the minimum readiness at which a seek is likely to be honored
	// rather than silently dropped.
	ReadyCurrentData

	// ReadyFutureData indicates playback can proceed at least briefly
	ReadyFutureData

	// ReadyEnoughData indicates playback can proceed without stalling
	ReadyEnoughData
)

// MinSeekReadiness is the readiness level at which the engine can be trusted
// to report and accept a current position.
const MinSeekReadiness = ReadyCurrentData

// String returns a human-readable representation of the ready state.
func (s ReadyState) String() string {
	switch s {
	case ReadyNothing:
		return "nothing"
	case ReadyMetadata:
		return "metadata"
	case ReadyCurrentData:
		return "current-data"
	case ReadyFutureData:
		return "future-data"
	case ReadyEnoughData:
		return "enough-data"
	default:
		return "unknown"
	}
}

// CanSeek returns true if the buffering level is sufficient for a seek to stick.
func (s ReadyState) CanSeek() bool {
	return s >= MinSeekReadiness
}
