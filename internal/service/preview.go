package service

import (
	"log/slog"
	"sync"
	"time"

	"github.com/cuedeck/cuedeck/internal/domain"
	"github.com/cuedeck/cuedeck/internal/ports"
	"github.com/cuedeck/cuedeck/internal/stream"
)

const (
	// DefaultPreviewAutoStop bounds how long an audition may play.
	DefaultPreviewAutoStop = 10 * time.Second

	// DefaultPreviewPreRoll is the lead-in subtracted from a preview
	// timestamp so the audition provides context before the exact point.
	DefaultPreviewPreRoll = 3.0
)

// PreviewConfig holds the preview service tunables.
type PreviewConfig struct {
	// StreamBaseURL is the backend base URL for the /stream endpoint.
	StreamBaseURL string

	// AutoStop unconditionally stops a preview after this long, regardless
	// of content length.
	AutoStop time.Duration

	// PreRoll in seconds; see DefaultPreviewPreRoll.
	PreRoll float64
}

func (c *PreviewConfig) normalize() {
	if c.AutoStop <= 0 {
		c.AutoStop = DefaultPreviewAutoStop
	}
	if c.PreRoll <= 0 {
		c.PreRoll = DefaultPreviewPreRoll
	}
}

// PreviewService plays short, auto-stopping auditions on its own engine
// instance. It never reads or mutates the playback state store, so starting
// or stopping a preview cannot disturb main playback; the isolation is
// structural, the service simply has no reference to the store.
//
// Only one preview may play at a time; starting a new one tears down the
// previous engine first.
type PreviewService struct {
	logger  *slog.Logger
	factory ports.EngineFactory
	cfg     PreviewConfig

	mu        sync.Mutex
	engine    ports.Engine
	stopTimer *time.Timer
}

// NewPreviewService creates a preview service. Engines are built lazily, one
// per audition, via the factory.
func NewPreviewService(logger *slog.Logger, factory ports.EngineFactory, cfg PreviewConfig) *PreviewService {
	cfg.normalize()
	return &PreviewService{
		logger:  logger,
		factory: factory,
		cfg:     cfg,
	}
}

// PlayPreview auditions the given source. When a timestamp is given, playback
// starts at max(0, timestamp − preRoll). The start position uses the
// forced-seek idea in miniature: an immediate best-effort seek plus a belated
// re-apply once minimum readiness is reached. No multi-retry schedule is
// needed because previews are short-lived and self-terminate.
func (s *PreviewService) PlayPreview(sourceLocator string, timestamp *float64) error {
	s.StopPreview()

	start := 0.0
	if timestamp != nil {
		start = *timestamp - s.cfg.PreRoll
		if start < 0 {
			start = 0
		}
	}

	engine := s.factory()
	engine.SetSource(stream.TrackURL(s.cfg.StreamBaseURL, sourceLocator))
	engine.Load()

	// Stop early when a short clip plays to its end. The teardown is bound
	// to this engine's identity so a handler firing after the preview was
	// replaced cannot stop its successor.
	engine.On(domain.EventEngineEnded, func(domain.Event) {
		s.stopEngine(engine)
	})
	engine.On(domain.EventEngineError, func(e domain.Event) {
		if err, ok := e.(domain.EngineErrorEvent); ok {
			s.logger.Warn("preview source failed",
				slog.String("source", err.Source),
				slog.Any("error", err.Err))
		}
		s.stopEngine(engine)
	})

	// Best-effort seek now; if the engine wasn't ready it drops the request,
	// so re-apply once readiness arrives.
	if start > 0 {
		if engine.ReadyState().CanSeek() {
			engine.SetPosition(start)
		} else {
			engine.Once(domain.EventEngineLoaded, func(domain.Event) {
				engine.SetPosition(start)
			})
		}
	}

	if err := engine.Play(); err != nil {
		s.logger.Warn("preview playback rejected",
			slog.String("source", sourceLocator),
			slog.Any("error", err))
		if closeErr := engine.Close(); closeErr != nil {
			s.logger.Warn("closing rejected preview engine", slog.Any("error", closeErr))
		}
		return domain.NewEngineError("preview", sourceLocator, err)
	}

	s.mu.Lock()
	s.engine = engine
	s.stopTimer = time.AfterFunc(s.cfg.AutoStop, func() {
		s.stopEngine(engine)
	})
	s.mu.Unlock()

	s.logger.Debug("preview started",
		slog.String("source", sourceLocator),
		slog.Float64("start", start))

	return nil
}

// StopPreview halts and discards the current preview engine and cancels the
// auto-stop timer. Safe to call with no active preview.
func (s *PreviewService) StopPreview() {
	s.mu.Lock()
	engine := s.engine
	timer := s.stopTimer
	s.engine = nil
	s.stopTimer = nil
	s.mu.Unlock()

	s.teardown(engine, timer)
}

// stopEngine tears down one specific engine's preview. A teardown arriving
// late (auto-stop timer racing a replacing PlayPreview, stale ended handler)
// finds a different engine installed and must leave it alone; staleness is
// decided by identity, never by arrival order.
func (s *PreviewService) stopEngine(engine ports.Engine) {
	s.mu.Lock()
	if s.engine != engine {
		s.mu.Unlock()
		return
	}
	timer := s.stopTimer
	s.engine = nil
	s.stopTimer = nil
	s.mu.Unlock()

	s.teardown(engine, timer)
}

func (s *PreviewService) teardown(engine ports.Engine, timer *time.Timer) {
	if timer != nil {
		timer.Stop()
	}
	if engine == nil {
		return
	}

	engine.Pause()
	if err := engine.Close(); err != nil {
		s.logger.Warn("closing preview engine", slog.Any("error", err))
	}
}

// Active reports whether a preview is currently playing.
func (s *PreviewService) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine != nil
}
