// Package beep implements the Engine interface on top of gopxl/beep,
// streaming audio from the backend's /stream endpoint and playing it through
// the beep speaker.
//
// The whole response is buffered before decoding, so once a source is loaded
// the engine jumps straight to full readiness. Before that point it exhibits
// the same limitation the sync protocol is built for: position and seek
// requests are silently dropped.
package beep

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	beepv2 "github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"

	"github.com/cuedeck/cuedeck/internal/adapter/eventbus"
	"github.com/cuedeck/cuedeck/internal/domain"
	"github.com/cuedeck/cuedeck/internal/ports"
)

const (
	// positionInterval is how often the engine reports its position while
	// playing.
	positionInterval = 250 * time.Millisecond

	// resampleQuality balances resampling fidelity against CPU for sources
	// whose sample rate differs from the speaker's.
	resampleQuality = 4
)

// The speaker is process-global and shared by every engine instance (main and
// preview mix on it), so it is initialized once at the first load.
var (
	speakerMu   sync.Mutex
	speakerRate beepv2.SampleRate
)

// Engine streams one source from a URL and plays it through the beep speaker.
//
// Thread-safety: this implementation is thread-safe. Events are emitted
// outside of all locks.
type Engine struct {
	logger  *slog.Logger
	emitter *eventbus.SyncEventBus
	client  *http.Client

	mu       sync.Mutex
	source   string
	closed   bool
	ready    domain.ReadyState
	streamer beepv2.StreamSeekCloser
	format   beepv2.Format
	ctrl     *beepv2.Ctrl
	volume   *effects.Volume
	level    float64
	paused   bool
	attached bool

	// loadGen invalidates in-flight loads and speaker callbacks after the
	// source changes or the engine closes.
	loadGen int

	// pendingPlay remembers a Play issued before the source finished
	// buffering; playback starts as soon as readiness arrives.
	pendingPlay bool

	stopTicker chan struct{}
	tickerWg   sync.WaitGroup
}

// NewEngine creates a beep-backed engine.
func NewEngine(logger *slog.Logger) *Engine {
	e := &Engine{
		logger:     logger,
		emitter:    eventbus.NewSyncEventBus(),
		client:     &http.Client{},
		level:      1.0,
		paused:     true,
		stopTicker: make(chan struct{}),
	}

	e.tickerWg.Add(1)
	go e.positionLoop()

	return e
}

// Factory returns an EngineFactory producing beep engines, used by the
// preview service to build one isolated engine per audition.
func Factory(logger *slog.Logger) ports.EngineFactory {
	return func() ports.Engine {
		return NewEngine(logger)
	}
}

// SetSource points the engine at a new stream URL and drops the old source.
func (e *Engine) SetSource(url string) {
	e.mu.Lock()
	e.source = url
	e.loadGen++
	e.ready = domain.ReadyNothing
	e.pendingPlay = false
	e.detachLocked()
	e.mu.Unlock()
}

// Load fetches and decodes the source in the background. Readiness events
// fire once the stream is fully buffered and decodable.
func (e *Engine) Load() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	source := e.source
	gen := e.loadGen
	e.mu.Unlock()

	if source == "" {
		e.emitter.Publish(domain.NewEngineErrorEvent("", domain.ErrNoSource))
		return
	}

	go e.fetch(gen, source)
}

func (e *Engine) fetch(gen int, source string) {
	resp, err := e.client.Get(source)
	if err != nil {
		e.failLoad(gen, source, err)
		return
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			e.logger.Warn("closing stream body", slog.Any("error", err))
		}
	}()

	if resp.StatusCode != http.StatusOK {
		e.failLoad(gen, source, fmt.Errorf("unexpected status %s", resp.Status))
		return
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		e.failLoad(gen, source, err)
		return
	}

	streamer, format, err := decode(data, resp.Header.Get("Content-Type"))
	if err != nil {
		e.failLoad(gen, source, err)
		return
	}

	rate, err := ensureSpeaker(format)
	if err != nil {
		if cerr := streamer.Close(); cerr != nil {
			e.logger.Warn("closing streamer", slog.Any("error", cerr))
		}
		e.failLoad(gen, source, err)
		return
	}

	e.mu.Lock()
	if e.closed || gen != e.loadGen {
		// Source changed while buffering; this load is stale.
		e.mu.Unlock()
		if err := streamer.Close(); err != nil {
			e.logger.Warn("closing stale streamer", slog.Any("error", err))
		}
		return
	}

	e.streamer = streamer
	e.format = format
	e.ctrl = &beepv2.Ctrl{Streamer: playbackStreamer(streamer, format.SampleRate, rate), Paused: true}
	e.volume = &effects.Volume{
		Streamer: e.ctrl,
		Base:     2,
		Volume:   levelToVolume(e.level),
		Silent:   e.level <= 0,
	}
	e.ready = domain.ReadyEnoughData
	duration := format.SampleRate.D(streamer.Len()).Seconds()
	startNow := e.pendingPlay
	e.pendingPlay = false
	e.mu.Unlock()

	e.emitter.Publish(domain.NewEngineDurationEvent(duration))
	e.emitter.Publish(domain.NewEngineLoadedEvent(domain.ReadyEnoughData))
	e.emitter.Publish(domain.NewEngineCanPlayEvent(domain.ReadyEnoughData))

	if startNow {
		if err := e.Play(); err != nil {
			e.logger.Warn("deferred play failed", slog.Any("error", err))
		}
	}
}

func (e *Engine) failLoad(gen int, source string, err error) {
	e.mu.Lock()
	stale := e.closed || gen != e.loadGen
	e.mu.Unlock()
	if stale {
		return
	}

	e.logger.Warn("stream load failed",
		slog.String("source", source),
		slog.Any("error", err))
	e.emitter.Publish(domain.NewEngineErrorEvent(source, domain.NewEngineError("load", source, err)))
}

// Play starts or resumes playback. Called before the source is buffered it
// arranges playback to start as soon as readiness arrives.
func (e *Engine) Play() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return domain.ErrEngineClosed
	}
	if e.source == "" {
		e.mu.Unlock()
		return domain.NewEngineError("play", "", domain.ErrNoSource)
	}
	if e.streamer == nil {
		e.pendingPlay = true
		e.paused = false
		e.mu.Unlock()
		return nil
	}

	wasPaused := e.paused || !e.attached
	if !e.attached {
		gen := e.loadGen
		// The callback runs on the speaker goroutine while it holds the
		// speaker lock; taking e.mu there would invert the lock order, so
		// the drain notification hops to a fresh goroutine.
		speaker.Play(beepv2.Seq(e.volume, beepv2.Callback(func() {
			go e.onDrained(gen)
		})))
		e.attached = true
	}
	speaker.Lock()
	e.ctrl.Paused = false
	speaker.Unlock()
	e.paused = false
	e.mu.Unlock()

	if wasPaused {
		e.emitter.Publish(domain.NewEnginePlayingEvent())
	}
	return nil
}

// Pause pauses playback, preserving the position.
func (e *Engine) Pause() {
	e.mu.Lock()
	e.pendingPlay = false
	e.paused = true
	if e.ctrl != nil && e.attached {
		speaker.Lock()
		e.ctrl.Paused = true
		speaker.Unlock()
	}
	e.mu.Unlock()
}

// Paused returns the engine's paused flag.
func (e *Engine) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

// SetVolume sets the output level (0.0 to 1.0). Reliable and synchronous.
func (e *Engine) SetVolume(volume float64) {
	switch {
	case volume < 0:
		volume = 0
	case volume > 1:
		volume = 1
	}

	e.mu.Lock()
	e.level = volume
	if e.volume != nil {
		speaker.Lock()
		e.volume.Volume = levelToVolume(volume)
		e.volume.Silent = volume <= 0
		speaker.Unlock()
	}
	e.mu.Unlock()
}

// Position returns the current position in seconds, or 0 before readiness.
func (e *Engine) Position() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.streamer == nil {
		return 0
	}
	return e.format.SampleRate.D(e.streamer.Position()).Seconds()
}

// SetPosition seeks to the given position in seconds. Before the source is
// buffered the request is silently dropped.
func (e *Engine) SetPosition(seconds float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.streamer == nil {
		return
	}

	n := e.format.SampleRate.N(time.Duration(seconds * float64(time.Second)))
	if n < 0 {
		n = 0
	}
	if maxN := e.streamer.Len() - 1; n > maxN {
		n = maxN
	}

	speaker.Lock()
	err := e.streamer.Seek(n)
	speaker.Unlock()
	if err != nil {
		e.logger.Warn("seek failed",
			slog.Float64("seconds", seconds),
			slog.Any("error", err))
	}
}

// Duration returns the total length in seconds, or 0 until known.
func (e *Engine) Duration() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.streamer == nil {
		return 0
	}
	return e.format.SampleRate.D(e.streamer.Len()).Seconds()
}

// ReadyState returns the current buffering level.
func (e *Engine) ReadyState() domain.ReadyState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ready
}

// On registers an event handler.
func (e *Engine) On(eventType domain.EventType, handler domain.EventHandler) domain.SubscriptionID {
	return e.emitter.Subscribe(eventType, handler)
}

// Once registers a one-shot event handler.
func (e *Engine) Once(eventType domain.EventType, handler domain.EventHandler) domain.SubscriptionID {
	return e.emitter.SubscribeOnce(eventType, handler)
}

// Off removes an event handler.
func (e *Engine) Off(id domain.SubscriptionID) {
	e.emitter.Unsubscribe(id)
}

// Close stops playback, detaches from the speaker and releases resources.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return domain.ErrEngineClosed
	}
	e.closed = true
	e.loadGen++
	e.detachLocked()
	e.mu.Unlock()

	close(e.stopTicker)
	e.tickerWg.Wait()

	return e.emitter.Close()
}

// detachLocked releases the current streamer. The caller holds e.mu.
// The speaker is shared with other engine instances, so the streamer is
// starved out via its Ctrl rather than clearing the whole speaker.
func (e *Engine) detachLocked() {
	if e.ctrl != nil && e.attached {
		speaker.Lock()
		e.ctrl.Paused = true
		e.ctrl.Streamer = nil
		speaker.Unlock()
	}
	if e.streamer != nil {
		if err := e.streamer.Close(); err != nil {
			e.logger.Warn("closing streamer", slog.Any("error", err))
		}
	}
	e.streamer = nil
	e.ctrl = nil
	e.volume = nil
	e.attached = false
	e.paused = true
}

// onDrained fires from the speaker when the streamer finished. Stale
// generations (source changed, engine closed) are ignored.
func (e *Engine) onDrained(gen int) {
	e.mu.Lock()
	if e.closed || gen != e.loadGen {
		e.mu.Unlock()
		return
	}
	e.paused = true
	e.mu.Unlock()

	e.emitter.Publish(domain.NewEngineEndedEvent())
}

// ensureSpeaker initializes the global speaker once, at the first track's
// sample rate, and returns the rate the speaker runs at.
func ensureSpeaker(format beepv2.Format) (beepv2.SampleRate, error) {
	speakerMu.Lock()
	defer speakerMu.Unlock()

	if speakerRate != 0 {
		return speakerRate, nil
	}
	if err := speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10)); err != nil {
		return 0, err
	}
	speakerRate = format.SampleRate
	return speakerRate, nil
}

// playbackStreamer adapts a source to the speaker's sample rate. Attached raw,
// a mismatched source plays at the wrong speed and its wall-clock progress
// diverges from the reported position.
func playbackStreamer(src beepv2.Streamer, trackRate, outputRate beepv2.SampleRate) beepv2.Streamer {
	if trackRate == outputRate {
		return src
	}
	return beepv2.Resample(resampleQuality, trackRate, outputRate, src)
}

// positionLoop periodically reports the playback position while playing.
func (e *Engine) positionLoop() {
	defer e.tickerWg.Done()

	ticker := time.NewTicker(positionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopTicker:
			return
		case <-ticker.C:
			e.mu.Lock()
			playing := !e.paused && e.streamer != nil
			var pos float64
			if playing {
				pos = e.format.SampleRate.D(e.streamer.Position()).Seconds()
			}
			e.mu.Unlock()

			if playing {
				e.emitter.Publish(domain.NewEnginePositionEvent(pos))
			}
		}
	}
}

// decode picks a decoder from the content type, falling back to trying each
// supported format in turn.
func decode(data []byte, contentType string) (beepv2.StreamSeekCloser, beepv2.Format, error) {
	type decoder struct {
		name string
		fn   func() (beepv2.StreamSeekCloser, beepv2.Format, error)
	}

	reader := func() io.ReadCloser {
		return io.NopCloser(bytes.NewReader(data))
	}

	decoders := []decoder{
		{"mp3", func() (beepv2.StreamSeekCloser, beepv2.Format, error) { return mp3.Decode(reader()) }},
		{"flac", func() (beepv2.StreamSeekCloser, beepv2.Format, error) { return flac.Decode(bytes.NewReader(data)) }},
		{"wav", func() (beepv2.StreamSeekCloser, beepv2.Format, error) { return wav.Decode(bytes.NewReader(data)) }},
		{"vorbis", func() (beepv2.StreamSeekCloser, beepv2.Format, error) { return vorbis.Decode(reader()) }},
	}

	// Content type hint first, then brute force.
	var preferred string
	switch {
	case contains(contentType, "mpeg", "mp3"):
		preferred = "mp3"
	case contains(contentType, "flac"):
		preferred = "flac"
	case contains(contentType, "wav", "wave"):
		preferred = "wav"
	case contains(contentType, "ogg", "vorbis"):
		preferred = "vorbis"
	}

	if preferred != "" {
		for _, d := range decoders {
			if d.name == preferred {
				if s, f, err := d.fn(); err == nil {
					return s, f, nil
				}
				break
			}
		}
	}

	for _, d := range decoders {
		if s, f, err := d.fn(); err == nil {
			return s, f, nil
		}
	}

	return nil, beepv2.Format{}, domain.ErrUnsupportedFormat
}

func contains(s string, subs ...string) bool {
	for _, sub := range subs {
		if s != "" && strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// levelToVolume converts a 0.0-1.0 level to beep's logarithmic Volume value:
// 1.0 -> 0, 0.5 -> -1, 0.25 -> -2; 0 is handled via Silent.
func levelToVolume(level float64) float64 {
	if level <= 0 {
		return -10
	}
	if level >= 1 {
		return 0
	}
	return math.Log2(level)
}

// Verify that Engine implements the ports.Engine interface
var _ ports.Engine = (*Engine)(nil)
