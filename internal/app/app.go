// Package app provides application-level orchestration and dependency injection.
// This package wires together all components and manages their lifecycle.
package app

import (
	"log/slog"

	beepengine "github.com/cuedeck/cuedeck/internal/adapter/engine/beep"
	"github.com/cuedeck/cuedeck/internal/adapter/engine/mock"
	"github.com/cuedeck/cuedeck/internal/adapter/eventbus"
	"github.com/cuedeck/cuedeck/internal/config"
	"github.com/cuedeck/cuedeck/internal/logger"
	"github.com/cuedeck/cuedeck/internal/ports"
	"github.com/cuedeck/cuedeck/internal/service"
	"github.com/cuedeck/cuedeck/internal/store"
)

// Application is the root structure holding all wired dependencies.
// It follows the Dependency Injection pattern with constructor-based
// injection: every component receives its collaborators explicitly, so each
// can be replaced in tests.
type Application struct {
	logger *slog.Logger
	cfg    *config.Config

	// Infrastructure
	eventBus ports.EventBus
	engine   ports.Engine

	// Core
	store          *store.Store
	syncService    *service.SyncService
	previewService *service.PreviewService
}

// Options control construction.
type Options struct {
	// UseMockEngine swaps the real audio engine for the in-memory mock
	// (for tests and headless environments).
	UseMockEngine bool
}

// New creates the application with all dependencies wired. Configuration is
// loaded from disk over the defaults.
func New(opts Options) (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log := logger.NewLogger(logger.FromStrings(cfg.Log.Level, cfg.Log.Format))
	log.Info("initializing", slog.String("version", GetVersionInfo().FullString()))

	a := &Application{
		logger: log,
		cfg:    cfg,
	}

	bus := eventbus.NewSyncEventBus()
	bus.SetLogger(log.With(slog.String("component", "eventbus")))
	a.eventBus = bus

	var factory ports.EngineFactory
	if opts.UseMockEngine {
		factory = func() ports.Engine {
			engine := mock.NewEngine()
			engine.SetLogger(log.With(slog.String("engine", "mock")))
			return engine
		}
	} else {
		factory = beepengine.Factory(log.With(slog.String("engine", "beep")))
	}
	a.engine = factory()

	a.store = store.New(
		log.With(slog.String("component", "store")),
		a.eventBus,
		cfg.Playback.Volume,
		cfg.Playback.PreRollSeconds,
	)

	a.syncService = service.NewSyncService(
		log.With(slog.String("service", "sync")),
		a.store,
		a.engine,
		a.eventBus,
		service.SyncConfig{
			StreamBaseURL:  cfg.Stream.BaseURL,
			RetryDelays:    cfg.Seek.RetryDelays(),
			DriftTolerance: cfg.Seek.DriftToleranceSeconds,
			ResetThreshold: cfg.Seek.ResetThresholdSeconds,
		},
	)

	a.previewService = service.NewPreviewService(
		log.With(slog.String("service", "preview")),
		factory,
		service.PreviewConfig{
			StreamBaseURL: cfg.Stream.BaseURL,
			AutoStop:      cfg.Preview.AutoStop(),
			PreRoll:       cfg.Preview.PreRollSeconds,
		},
	)

	log.Info("all services initialized")

	return a, nil
}

// Logger returns the application logger.
func (a *Application) Logger() *slog.Logger {
	return a.logger
}

// Store returns the playback state store, the write surface for callers.
func (a *Application) Store() *store.Store {
	return a.store
}

// Preview returns the preview service.
func (a *Application) Preview() *service.PreviewService {
	return a.previewService
}

// Sync returns the sync service.
func (a *Application) Sync() *service.SyncService {
	return a.syncService
}

// Config returns the loaded configuration.
func (a *Application) Config() *config.Config {
	return a.cfg
}

// Shutdown tears everything down in reverse order of creation.
func (a *Application) Shutdown() {
	a.logger.Info("shutting down")

	if a.previewService != nil {
		a.previewService.StopPreview()
	}

	if a.syncService != nil {
		if err := a.syncService.Close(); err != nil {
			a.logger.Warn("closing sync service", slog.Any("error", err))
		}
	}

	if a.engine != nil {
		if err := a.engine.Close(); err != nil {
			a.logger.Warn("closing engine", slog.Any("error", err))
		}
	}

	if a.eventBus != nil {
		if err := a.eventBus.Close(); err != nil {
			a.logger.Warn("closing event bus", slog.Any("error", err))
		}
	}

	a.logger.Info("shutdown complete")
}
