// Package service provides the playback orchestration logic: the sync service
// that keeps one live engine consistent with the playback state store, and the
// preview service for short isolated auditions.
package service

import (
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/cuedeck/cuedeck/internal/domain"
	"github.com/cuedeck/cuedeck/internal/ports"
	"github.com/cuedeck/cuedeck/internal/store"
	"github.com/cuedeck/cuedeck/internal/stream"
)

// DefaultRetryDelays is the correction-check schedule used when none is
// configured. The values are empirically chosen against the engine's observed
// snap-back behavior and are tunable via configuration.
var DefaultRetryDelays = []time.Duration{
	50 * time.Millisecond,
	150 * time.Millisecond,
	300 * time.Millisecond,
}

const (
	// DefaultDriftTolerance is the position drift, in seconds, beyond which a
	// correction check re-applies the seek target.
	DefaultDriftTolerance = 1.5

	// DefaultResetThreshold is the position, in seconds, below which a report
	// arriving during a forced seek is treated as a spurious reset.
	DefaultResetThreshold = 0.5
)

// SyncConfig holds the sync service tunables.
type SyncConfig struct {
	// StreamBaseURL is the backend base URL for the /stream endpoint.
	StreamBaseURL string

	// RetryDelays is the correction-check schedule, measured from the moment
	// the seek is first issued.
	RetryDelays []time.Duration

	// DriftTolerance in seconds; see DefaultDriftTolerance.
	DriftTolerance float64

	// ResetThreshold in seconds; see DefaultResetThreshold.
	ResetThreshold float64
}

func (c *SyncConfig) normalize() {
	if len(c.RetryDelays) == 0 {
		c.RetryDelays = DefaultRetryDelays
	}
	if c.DriftTolerance <= 0 {
		c.DriftTolerance = DefaultDriftTolerance
	}
	if c.ResetThreshold <= 0 {
		c.ResetThreshold = DefaultResetThreshold
	}
}

// SyncService binds the playback state store to one live engine instance.
// It is the only component allowed to touch the main engine: it loads the
// right source when the track changes, drives play/pause to match the store's
// intent, relays engine events back into the store, and runs the forced-seek
// protocol whenever the store holds a pending seek request.
type SyncService struct {
	logger *slog.Logger
	st     *store.Store
	engine ports.Engine
	bus    ports.EventBus
	cfg    SyncConfig

	mu     sync.Mutex
	active *seekOperation
	// startListener is the one-shot loaded listener that starts playback
	// once a freshly loaded track reaches minimum readiness.
	startListener domain.SubscriptionID
	closed        bool

	busSubs    []domain.SubscriptionID
	engineSubs []domain.SubscriptionID
}

// NewSyncService creates the sync service and attaches it to the store's
// change events and the engine's event timeline.
func NewSyncService(logger *slog.Logger, st *store.Store, engine ports.Engine, bus ports.EventBus, cfg SyncConfig) *SyncService {
	cfg.normalize()

	s := &SyncService{
		logger: logger,
		st:     st,
		engine: engine,
		bus:    bus,
		cfg:    cfg,
	}

	s.busSubs = []domain.SubscriptionID{
		bus.Subscribe(domain.EventTrackChanged, s.onTrackChanged),
		bus.Subscribe(domain.EventIntentChanged, s.onIntentChanged),
		bus.Subscribe(domain.EventVolumeChanged, s.onVolumeChanged),
		bus.Subscribe(domain.EventSeekRequested, s.onSeekRequested),
	}

	s.engineSubs = []domain.SubscriptionID{
		engine.On(domain.EventEnginePosition, s.onEnginePosition),
		engine.On(domain.EventEngineDuration, s.onEngineDuration),
		engine.On(domain.EventEngineEnded, s.onEngineEnded),
		engine.On(domain.EventEnginePlaying, s.onEnginePlaying),
		engine.On(domain.EventEngineError, s.onEngineError),
	}

	logger.Debug("sync service attached")

	return s
}

// Close detaches all listeners and cancels any in-flight forced seek.
// The engine itself is owned by the caller and is not closed here.
func (s *SyncService) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	op := s.active
	s.active = nil
	startListener := s.startListener
	s.startListener = ""
	busSubs := s.busSubs
	engineSubs := s.engineSubs
	s.busSubs = nil
	s.engineSubs = nil
	s.mu.Unlock()

	if op != nil {
		op.cancel()
		if id := op.takeListener(); id != "" {
			s.engine.Off(id)
		}
	}
	if startListener != "" {
		s.engine.Off(startListener)
	}
	for _, id := range busSubs {
		s.bus.Unsubscribe(id)
	}
	for _, id := range engineSubs {
		s.engine.Off(id)
	}

	return nil
}

// SeekInFlight reports whether a forced seek is currently active.
func (s *SyncService) SeekInFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active != nil
}

// Store change reactions.

// onTrackChanged loads the new track's stream into the engine. Replacing the
// track implicitly cancels any in-flight forced seek for the old one.
func (s *SyncService) onTrackChanged(event domain.Event) {
	e, ok := event.(domain.TrackChangedEvent)
	if !ok {
		return
	}

	s.cancelActiveSeek()
	s.detachStartListener()

	if e.Track == nil {
		s.engine.Pause()
		return
	}

	url := stream.TrackURL(s.cfg.StreamBaseURL, e.Track.FilePath)
	s.logger.Debug("loading source",
		slog.String("track_id", e.Track.ID),
		slog.String("url", url))

	s.engine.SetSource(url)
	s.engine.Load()

	// If playback is wanted and no seek is pending, start as soon as the
	// engine signals minimum readiness.
	snap := s.st.Snapshot()
	if !snap.IsPlaying || snap.SeekRequest != nil {
		return
	}

	if s.engine.ReadyState().CanSeek() {
		s.startPlayback()
		return
	}

	id := s.engine.Once(domain.EventEngineLoaded, func(domain.Event) {
		s.mu.Lock()
		s.startListener = ""
		s.mu.Unlock()
		s.startPlayback()
	})

	s.mu.Lock()
	s.startListener = id
	s.mu.Unlock()
}

// onIntentChanged reconciles the engine's paused flag with the store's
// intent. While a forced seek is active the protocol owns play/pause, and
// when the engine already agrees no call is made: redundant calls can
// themselves trigger spurious events.
func (s *SyncService) onIntentChanged(event domain.Event) {
	e, ok := event.(domain.IntentChangedEvent)
	if !ok {
		return
	}

	if s.st.Snapshot().CurrentTrack == nil {
		return
	}
	if s.SeekInFlight() {
		return
	}

	switch {
	case e.IsPlaying && s.engine.Paused():
		s.startPlayback()
	case !e.IsPlaying && !s.engine.Paused():
		s.engine.Pause()
	}
}

// onVolumeChanged writes the volume straight through to the engine.
func (s *SyncService) onVolumeChanged(event domain.Event) {
	e, ok := event.(domain.VolumeChangedEvent)
	if !ok {
		return
	}
	s.engine.SetVolume(e.Volume)
}

func (s *SyncService) onSeekRequested(event domain.Event) {
	e, ok := event.(domain.SeekRequestedEvent)
	if !ok {
		return
	}
	s.forceSeek(e.Target)
}

// Engine event relay.

// onEnginePosition writes observed positions into the store, except while a
// forced seek is active and the report looks like an unsolicited reset; then
// the target is re-applied instead of propagating the near-zero value.
func (s *SyncService) onEnginePosition(event domain.Event) {
	e, ok := event.(domain.EnginePositionEvent)
	if !ok {
		return
	}

	s.mu.Lock()
	op := s.active
	s.mu.Unlock()

	if op != nil && e.Position < s.cfg.ResetThreshold {
		s.logger.Debug("suppressing spurious position reset",
			slog.Float64("reported", e.Position),
			slog.Float64("target", op.target))
		s.engine.SetPosition(op.target)
		return
	}

	s.st.SetProgress(e.Position)
}

func (s *SyncService) onEngineDuration(event domain.Event) {
	e, ok := event.(domain.EngineDurationEvent)
	if !ok {
		return
	}
	s.st.SetDuration(e.Duration)
}

func (s *SyncService) onEngineEnded(domain.Event) {
	s.st.SetIsPlaying(false)
	s.st.SetProgress(0)
}

// onEnginePlaying triggers the pending forced seek once playback has truly
// started: some engines only accept a reliable seek from that point on.
func (s *SyncService) onEnginePlaying(domain.Event) {
	if s.SeekInFlight() {
		return
	}
	snap := s.st.Snapshot()
	if snap.SeekRequest != nil {
		s.forceSeek(*snap.SeekRequest)
	}
}

// onEngineError recovers locally: stop claiming playback that isn't
// happening and abandon any seek against the broken source.
func (s *SyncService) onEngineError(event domain.Event) {
	e, ok := event.(domain.EngineErrorEvent)
	if !ok {
		return
	}
	s.logger.Warn("engine error",
		slog.String("source", e.Source),
		slog.Any("error", e.Err))

	s.cancelActiveSeek()
	s.st.ClearSeekRequest()
	s.st.SetIsPlaying(false)
}

// Forced-seek protocol.

// forceSeek makes a requested position change stick despite readiness gaps
// and self-correcting resets. A new request supersedes any in-flight one.
func (s *SyncService) forceSeek(target float64) {
	op := newSeekOperation(target)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	prev := s.active
	s.active = op
	s.mu.Unlock()

	if prev != nil {
		prev.cancel()
		if id := prev.takeListener(); id != "" {
			s.engine.Off(id)
		}
	}

	s.logger.Debug("forced seek started",
		slog.Float64("target", target),
		slog.String("op", op.id.String()))

	if s.engine.ReadyState().CanSeek() {
		s.applySeek(op)
	} else {
		// Not ready yet: apply on the canplay edge, and push the engine
		// toward readiness by starting playback now.
		id := s.engine.Once(domain.EventEngineCanPlay, func(domain.Event) {
			op.setListener("")
			if s.isActive(op) {
				s.applySeek(op)
			}
		})
		op.setListener(id)

		if err := s.engine.Play(); err != nil {
			s.logger.Warn("abandoning seek, engine rejected playback",
				slog.Float64("target", target),
				slog.Any("error", err))
			s.abandonSeek(op)
			s.st.SetIsPlaying(false)
			return
		}
	}

	op.schedule(s.cfg.RetryDelays, s.correctionCheck)
}

// applySeek sets the engine position and, if the engine is stopped, starts
// playback: seeks on a fully stopped engine are sometimes ignored until
// playback begins.
func (s *SyncService) applySeek(op *seekOperation) {
	s.engine.SetPosition(op.target)
	if s.engine.Paused() {
		if err := s.engine.Play(); err != nil {
			s.logger.Warn("play during seek rejected", slog.Any("error", err))
			s.st.SetIsPlaying(false)
		}
	}
}

// correctionCheck runs at each scheduled retry delay. A superseded operation
// does nothing. Otherwise the target is re-applied when the engine drifted
// beyond tolerance, defeating engines that accept a seek but silently snap
// back shortly after. The final check always deactivates the operation and
// clears the store's pending seek.
func (s *SyncService) correctionCheck(op *seekOperation, final bool) {
	s.mu.Lock()
	if s.active != op {
		s.mu.Unlock()
		return
	}
	if final {
		s.active = nil
	}
	s.mu.Unlock()

	pos := s.engine.Position()
	if math.Abs(pos-op.target) > s.cfg.DriftTolerance {
		s.logger.Debug("re-applying drifted seek",
			slog.Float64("reported", pos),
			slog.Float64("target", op.target))
		s.engine.SetPosition(op.target)
	}

	if final {
		if id := op.takeListener(); id != "" {
			s.engine.Off(id)
		}
		s.st.ClearSeekRequest()
	}
}

func (s *SyncService) isActive(op *seekOperation) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active == op
}

// cancelActiveSeek drops the in-flight operation without touching the store.
func (s *SyncService) cancelActiveSeek() {
	s.mu.Lock()
	op := s.active
	s.active = nil
	s.mu.Unlock()

	if op == nil {
		return
	}
	op.cancel()
	if id := op.takeListener(); id != "" {
		s.engine.Off(id)
	}
}

// abandonSeek drops the operation and clears the store's pending request.
func (s *SyncService) abandonSeek(op *seekOperation) {
	s.mu.Lock()
	if s.active == op {
		s.active = nil
	}
	s.mu.Unlock()

	op.cancel()
	if id := op.takeListener(); id != "" {
		s.engine.Off(id)
	}
	s.st.ClearSeekRequest()
}

func (s *SyncService) startPlayback() {
	if err := s.engine.Play(); err != nil {
		// Engine-rejected playback is recovered locally: the store must not
		// claim playback that isn't happening.
		s.logger.Warn("engine rejected playback", slog.Any("error", err))
		s.st.SetIsPlaying(false)
	}
}

func (s *SyncService) detachStartListener() {
	s.mu.Lock()
	id := s.startListener
	s.startListener = ""
	s.mu.Unlock()

	if id != "" {
		s.engine.Off(id)
	}
}
