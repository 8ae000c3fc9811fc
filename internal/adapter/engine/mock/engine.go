// Package mock provides a mock implementation of the Engine interface.
// It simulates a streaming engine in memory, including the misbehaviors the
// sync protocol exists to defeat: seeks silently dropped before minimum
// readiness and unsolicited position resets after an accepted seek.
package mock

import (
	"log/slog"
	"sync"

	"github.com/cuedeck/cuedeck/internal/adapter/eventbus"
	"github.com/cuedeck/cuedeck/internal/domain"
	"github.com/cuedeck/cuedeck/internal/ports"
)

// Engine is a mock implementation of the Engine interface.
//
// Readiness and position reports are driven explicitly from tests via
// SignalReady, ReportPosition, TriggerSpuriousReset and FinishTrack, so tests
// control the exact interleaving of engine events.
//
// Thread-safety: this implementation is thread-safe.
type Engine struct {
	logger  *slog.Logger
	emitter *eventbus.SyncEventBus

	mu       sync.Mutex
	source   string
	ready    domain.ReadyState
	paused   bool
	closed   bool
	position float64
	duration float64
	volume   float64

	// Behavior configuration (for testing failure scenarios)
	failPlay        bool
	dropSeekUnready bool
	resetAfterSeek  bool

	// Call records for assertions
	playCalls int
	loadCalls int
	seeks     []float64
}

// NewEngine creates a new mock engine. Seeks below minimum readiness are
// dropped by default, matching the real engine's known limitation.
func NewEngine() *Engine {
	return &Engine{
		emitter:         eventbus.NewSyncEventBus(),
		paused:          true,
		dropSeekUnready: true,
	}
}

// SetLogger sets the logger for this engine.
func (m *Engine) SetLogger(logger *slog.Logger) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logger = logger
}

// SetFailPlay configures Play to be rejected (for testing).
func (m *Engine) SetFailPlay(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failPlay = fail
}

// SetDropSeekWhenUnready configures whether seeks below minimum readiness are
// silently dropped.
func (m *Engine) SetDropSeekWhenUnready(drop bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropSeekUnready = drop
}

// SetResetAfterSeek configures the engine to follow every accepted seek with
// an immediate unsolicited position report of zero, simulating the known
// spurious-reset failure mode.
func (m *Engine) SetResetAfterSeek(reset bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetAfterSeek = reset
}

// SetDuration sets the duration the engine will report for its source.
func (m *Engine) SetDuration(seconds float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.duration = seconds
}

// SetSource points the engine at a new stream URL and resets buffering state.
func (m *Engine) SetSource(url string) {
	m.mu.Lock()
	m.source = url
	m.ready = domain.ReadyNothing
	m.position = 0
	m.paused = true
	m.mu.Unlock()
}

// Source returns the current stream URL (for assertions).
func (m *Engine) Source() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.source
}

// Load records a load request. Readiness does not advance until the test
// calls SignalReady.
func (m *Engine) Load() {
	m.mu.Lock()
	m.loadCalls++
	m.mu.Unlock()
}

// Play starts or resumes playback and emits the playing event.
func (m *Engine) Play() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return domain.ErrEngineClosed
	}
	m.playCalls++
	if m.failPlay {
		m.mu.Unlock()
		return domain.ErrPlaybackRejected
	}
	alreadyPlaying := !m.paused
	m.paused = false
	m.mu.Unlock()

	if !alreadyPlaying {
		m.emitter.Publish(domain.NewEnginePlayingEvent())
	}
	return nil
}

// Pause pauses playback.
func (m *Engine) Pause() {
	m.mu.Lock()
	m.paused = true
	m.mu.Unlock()
}

// Paused returns the engine's paused flag.
func (m *Engine) Paused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paused
}

// SetVolume records the volume. Volume writes never fail.
func (m *Engine) SetVolume(volume float64) {
	m.mu.Lock()
	m.volume = volume
	m.mu.Unlock()
}

// Volume returns the last volume written (for assertions).
func (m *Engine) Volume() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.volume
}

// Position returns the current reported position in seconds.
func (m *Engine) Position() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

// SetPosition requests a seek. Below minimum readiness the request is
// silently dropped when drop-when-unready is enabled. With reset-after-seek
// enabled, an accepted seek is immediately followed by an unsolicited
// position report of zero.
func (m *Engine) SetPosition(seconds float64) {
	m.mu.Lock()
	m.seeks = append(m.seeks, seconds)
	if m.dropSeekUnready && !m.ready.CanSeek() {
		m.mu.Unlock()
		return
	}
	m.position = seconds
	reset := m.resetAfterSeek
	if reset {
		// The reset fires once per accepted seek; the correction re-seek
		// that follows must be allowed to stick.
		m.resetAfterSeek = false
		m.position = 0
	}
	m.mu.Unlock()

	if reset {
		m.emitter.Publish(domain.NewEnginePositionEvent(0))
	}
}

// Duration returns the engine-observed duration in seconds.
func (m *Engine) Duration() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.duration
}

// ReadyState returns the current buffering level.
func (m *Engine) ReadyState() domain.ReadyState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ready
}

// On registers an event handler.
func (m *Engine) On(eventType domain.EventType, handler domain.EventHandler) domain.SubscriptionID {
	return m.emitter.Subscribe(eventType, handler)
}

// Once registers a one-shot event handler.
func (m *Engine) Once(eventType domain.EventType, handler domain.EventHandler) domain.SubscriptionID {
	return m.emitter.SubscribeOnce(eventType, handler)
}

// Off removes an event handler.
func (m *Engine) Off(id domain.SubscriptionID) {
	m.emitter.Unsubscribe(id)
}

// Close marks the engine closed and drops all subscriptions.
func (m *Engine) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return domain.ErrEngineClosed
	}
	m.closed = true
	m.paused = true
	m.mu.Unlock()

	return m.emitter.Close()
}

// Closed returns true once Close was called (for assertions).
func (m *Engine) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Test controls. These drive the engine's asynchronous timeline explicitly.

// SignalReady advances the buffering level and emits the matching readiness
// events: loaded once minimum seek readiness is reached, canplay once
// playback can proceed. Emits the duration event alongside metadata.
func (m *Engine) SignalReady(state domain.ReadyState) {
	m.mu.Lock()
	prev := m.ready
	m.ready = state
	duration := m.duration
	m.mu.Unlock()

	if prev < domain.ReadyMetadata && state >= domain.ReadyMetadata && duration > 0 {
		m.emitter.Publish(domain.NewEngineDurationEvent(duration))
	}
	if prev < domain.MinSeekReadiness && state >= domain.MinSeekReadiness {
		m.emitter.Publish(domain.NewEngineLoadedEvent(state))
	}
	if prev < domain.ReadyFutureData && state >= domain.ReadyFutureData {
		m.emitter.Publish(domain.NewEngineCanPlayEvent(state))
	}
}

// ReportPosition sets the reported position and emits a position event,
// simulating a periodic progress report.
func (m *Engine) ReportPosition(seconds float64) {
	m.mu.Lock()
	m.position = seconds
	m.mu.Unlock()

	m.emitter.Publish(domain.NewEnginePositionEvent(seconds))
}

// TriggerSpuriousReset resets the reported position to zero and emits the
// near-zero position report the sync protocol must suppress.
func (m *Engine) TriggerSpuriousReset() {
	m.ReportPosition(0)
}

// FinishTrack simulates the source playing to its end.
func (m *Engine) FinishTrack() {
	m.mu.Lock()
	m.paused = true
	m.position = 0
	m.mu.Unlock()

	m.emitter.Publish(domain.NewEngineEndedEvent())
}

// FailLoad emits an engine error for the current source.
func (m *Engine) FailLoad(err error) {
	m.mu.Lock()
	source := m.source
	m.mu.Unlock()

	m.emitter.Publish(domain.NewEngineErrorEvent(source, err))
}

// PlayCalls returns how many times Play was invoked.
func (m *Engine) PlayCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playCalls
}

// LoadCalls returns how many times Load was invoked.
func (m *Engine) LoadCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadCalls
}

// Seeks returns every position ever requested via SetPosition, including
// dropped ones.
func (m *Engine) Seeks() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]float64, len(m.seeks))
	copy(out, m.seeks)
	return out
}

// Verify that Engine implements the ports.Engine interface
var _ ports.Engine = (*Engine)(nil)
