// Package ports defines interfaces for dependency inversion.
// These interfaces allow the playback core to remain independent of the
// concrete audio engine and event infrastructure.
package ports

import (
	"github.com/cuedeck/cuedeck/internal/domain"
)

// Engine is the interface for a single audio decode/playback unit that
// streams from a URL. It mirrors the media-element model the sync protocol
// was designed against: readiness is self-reported, position reports arrive
// asynchronously, and seeks issued before minimum readiness may be silently
// dropped.
//
// One engine instance serves one session: the sync service owns the main
// instance, the preview service creates and discards its own. Implementations
// must be thread-safe.
type Engine interface {
	// SetSource points the engine at a new stream URL. It does not start
	// buffering; call Load after changing the source.
	SetSource(url string)

	// Load begins (re)buffering the current source. Readiness progress is
	// reported via EngineLoaded and EngineCanPlay events.
	Load()

	// Play starts or resumes playback. Play can be rejected by the engine
	// (for example a device or policy failure); callers must not assume
	// playback is running when an error is returned.
	Play() error

	// Pause pauses playback, preserving the position.
	Pause()

	// Paused returns the engine's own paused flag, which can disagree with
	// the store's intent while events are in flight.
	Paused() bool

	// SetVolume sets the output volume (0.0 to 1.0). Volume writes are
	// synchronous and reliable; no retry logic is needed.
	SetVolume(volume float64)

	// Position returns the engine's current reported position in seconds.
	// Not trustworthy immediately after a seek; see the forced-seek protocol.
	Position() float64

	// SetPosition requests a seek to the given position in seconds.
	// Before minimum readiness the request may be silently dropped, and even
	// an accepted seek can be followed by an unsolicited reset to zero.
	SetPosition(seconds float64)

	// Duration returns the engine-observed total length in seconds,
	// or 0 if not yet known.
	Duration() float64

	// ReadyState returns the engine's self-reported buffering level.
	ReadyState() domain.ReadyState

	// On registers a handler for the given engine event type.
	On(eventType domain.EventType, handler domain.EventHandler) domain.SubscriptionID

	// Once registers a handler that deregisters itself after the first
	// delivery. Every one-shot wait in the sync protocol uses this so
	// listeners never leak across track changes.
	Once(eventType domain.EventType, handler domain.EventHandler) domain.SubscriptionID

	// Off removes a previously registered handler. Unknown IDs are a no-op.
	Off(id domain.SubscriptionID)

	// Close stops playback and releases all engine resources.
	Close() error
}

// EngineFactory creates a fresh Engine instance. The preview service uses
// this to build an isolated engine per audition.
type EngineFactory func() Engine
