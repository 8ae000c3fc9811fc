// Package domain defines events for the event-driven architecture.
// Engine adapters and the state store publish these instead of invoking
// callbacks directly, which keeps producers and consumers loosely coupled.
package domain

import (
	"time"
)

// Event is the base interface for all events in the system.
type Event interface {
	// Type returns the event type identifier
	Type() EventType

	// Timestamp returns when the event occurred
	Timestamp() time.Time
}

// EventType is a string identifier for different event types.
type EventType string

// Engine events. Each live engine instance emits these on its own emitter;
// the sync service is the only consumer for the main engine.
const (
	// EngineLoaded fires once the engine has buffered enough data to report
	// and accept a current position (minimum readiness reached).
	EventEngineLoaded EventType = "engine.loaded"

	// EngineCanPlay fires when the engine believes playback can proceed.
	EventEngineCanPlay EventType = "engine.canplay"

	// EnginePosition fires on every position report from the engine.
	// Reports are asynchronous and occasionally self-correcting; a report
	// near zero right after a seek is a known spurious reset.
	EventEnginePosition EventType = "engine.position"

	// EngineDuration fires when the engine learns the total length.
	EventEngineDuration EventType = "engine.duration"

	// EnginePlaying fires when playback has truly started. Some engines only
	// accept a reliable seek after this point.
	EventEnginePlaying EventType = "engine.playing"

	// EngineEnded fires when the current source finished playing.
	EventEngineEnded EventType = "engine.ended"

	// EngineError fires when the engine failed to load or play its source.
	EventEngineError EventType = "engine.error"
)

// Store events. The playback state store publishes these after each mutation
// so the sync service and UI surfaces can react without polling.
const (
	EventTrackChanged  EventType = "store.track_changed"
	EventIntentChanged EventType = "store.intent_changed"
	EventVolumeChanged EventType = "store.volume_changed"
	EventSeekRequested EventType = "store.seek_requested"
	EventStateChanged  EventType = "store.state_changed"
)

// EventHandler is a function that handles events.
type EventHandler func(event Event)

// SubscriptionID uniquely identifies an event subscription.
type SubscriptionID string

// baseEvent provides common event functionality.
type baseEvent struct {
	timestamp time.Time
}

// Timestamp returns when the event occurred.
func (e baseEvent) Timestamp() time.Time {
	return e.timestamp
}

func newBaseEvent() baseEvent {
	return baseEvent{timestamp: time.Now()}
}

// EngineLoadedEvent is published when minimum readiness is reached.
type EngineLoadedEvent struct {
	baseEvent
	Ready ReadyState
}

// Type returns the event type.
func (e EngineLoadedEvent) Type() EventType {
	return EventEngineLoaded
}

// NewEngineLoadedEvent creates a new EngineLoadedEvent.
func NewEngineLoadedEvent(ready ReadyState) EngineLoadedEvent {
	return EngineLoadedEvent{
		baseEvent: newBaseEvent(),
		Ready:     ready,
	}
}

// EngineCanPlayEvent is published when the engine can begin playback.
type EngineCanPlayEvent struct {
	baseEvent
	Ready ReadyState
}

// Type returns the event type.
func (e EngineCanPlayEvent) Type() EventType {
	return EventEngineCanPlay
}

// NewEngineCanPlayEvent creates a new EngineCanPlayEvent.
func NewEngineCanPlayEvent(ready ReadyState) EngineCanPlayEvent {
	return EngineCanPlayEvent{
		baseEvent: newBaseEvent(),
		Ready:     ready,
	}
}

// EnginePositionEvent carries an observed playback position in seconds.
type EnginePositionEvent struct {
	baseEvent
	Position float64
}

// Type returns the event type.
func (e EnginePositionEvent) Type() EventType {
	return EventEnginePosition
}

// NewEnginePositionEvent creates a new EnginePositionEvent.
func NewEnginePositionEvent(position float64) EnginePositionEvent {
	return EnginePositionEvent{
		baseEvent: newBaseEvent(),
		Position:  position,
	}
}

// EngineDurationEvent carries the engine-observed total length in seconds.
type EngineDurationEvent struct {
	baseEvent
	Duration float64
}

// Type returns the event type.
func (e EngineDurationEvent) Type() EventType {
	return EventEngineDuration
}

// NewEngineDurationEvent creates a new EngineDurationEvent.
func NewEngineDurationEvent(duration float64) EngineDurationEvent {
	return EngineDurationEvent{
		baseEvent: newBaseEvent(),
		Duration:  duration,
	}
}

// EnginePlayingEvent is published when playback has truly started.
type EnginePlayingEvent struct {
	baseEvent
}

// Type returns the event type.
func (e EnginePlayingEvent) Type() EventType {
	return EventEnginePlaying
}

// NewEnginePlayingEvent creates a new EnginePlayingEvent.
func NewEnginePlayingEvent() EnginePlayingEvent {
	return EnginePlayingEvent{baseEvent: newBaseEvent()}
}

// EngineEndedEvent is published when the source finished playing.
type EngineEndedEvent struct {
	baseEvent
}

// Type returns the event type.
func (e EngineEndedEvent) Type() EventType {
	return EventEngineEnded
}

// NewEngineEndedEvent creates a new EngineEndedEvent.
func NewEngineEndedEvent() EngineEndedEvent {
	return EngineEndedEvent{baseEvent: newBaseEvent()}
}

// EngineErrorEvent is published when the engine failed to load or play.
type EngineErrorEvent struct {
	baseEvent
	Source string
	Err    error
}

// Type returns the event type.
func (e EngineErrorEvent) Type() EventType {
	return EventEngineError
}

// NewEngineErrorEvent creates a new EngineErrorEvent.
func NewEngineErrorEvent(source string, err error) EngineErrorEvent {
	return EngineErrorEvent{
		baseEvent: newBaseEvent(),
		Source:    source,
		Err:       err,
	}
}

// TrackChangedEvent is published when the store's current track is replaced.
// Track is nil when the track was cleared.
type TrackChangedEvent struct {
	baseEvent
	Track *Track
}

// Type returns the event type.
func (e TrackChangedEvent) Type() EventType {
	return EventTrackChanged
}

// NewTrackChangedEvent creates a new TrackChangedEvent.
func NewTrackChangedEvent(track *Track) TrackChangedEvent {
	return TrackChangedEvent{
		baseEvent: newBaseEvent(),
		Track:     track,
	}
}

// IntentChangedEvent is published when the playback intent flips.
type IntentChangedEvent struct {
	baseEvent
	IsPlaying bool
}

// Type returns the event type.
func (e IntentChangedEvent) Type() EventType {
	return EventIntentChanged
}

// NewIntentChangedEvent creates a new IntentChangedEvent.
func NewIntentChangedEvent(isPlaying bool) IntentChangedEvent {
	return IntentChangedEvent{
		baseEvent: newBaseEvent(),
		IsPlaying: isPlaying,
	}
}

// VolumeChangedEvent is published when the volume changes.
type VolumeChangedEvent struct {
	baseEvent
	Volume float64 // 0.0 to 1.0
}

// Type returns the event type.
func (e VolumeChangedEvent) Type() EventType {
	return EventVolumeChanged
}

// NewVolumeChangedEvent creates a new VolumeChangedEvent.
func NewVolumeChangedEvent(volume float64) VolumeChangedEvent {
	return VolumeChangedEvent{
		baseEvent: newBaseEvent(),
		Volume:    volume,
	}
}

// SeekRequestedEvent is published when the store holds a new pending seek.
type SeekRequestedEvent struct {
	baseEvent
	Target float64 // seconds
}

// Type returns the event type.
func (e SeekRequestedEvent) Type() EventType {
	return EventSeekRequested
}

// NewSeekRequestedEvent creates a new SeekRequestedEvent.
func NewSeekRequestedEvent(target float64) SeekRequestedEvent {
	return SeekRequestedEvent{
		baseEvent: newBaseEvent(),
		Target:    target,
	}
}

// StateChangedEvent carries a full snapshot after any store mutation.
// UI surfaces subscribe to this one event and re-render from the snapshot.
type StateChangedEvent struct {
	baseEvent
	State PlaybackSnapshot
}

// Type returns the event type.
func (e StateChangedEvent) Type() EventType {
	return EventStateChanged
}

// NewStateChangedEvent creates a new StateChangedEvent.
func NewStateChangedEvent(state PlaybackSnapshot) StateChangedEvent {
	return StateChangedEvent{
		baseEvent: newBaseEvent(),
		State:     state,
	}
}
