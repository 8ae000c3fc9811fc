// Package domain defines domain-specific errors.
// These errors represent playback failures and are independent of infrastructure.
package domain

import (
	"errors"
	"fmt"
)

// Common errors that the playback core can return.
var (
	// ErrPlaybackRejected is returned when the engine refused to start playback.
	// This is recovered locally: the store's intent is forced back to paused.
	ErrPlaybackRejected = errors.New("playback rejected by engine")

	// ErrNoSource is returned when the engine is driven before a source was set.
	ErrNoSource = errors.New("no source set")

	// ErrEngineClosed is returned when an operation is attempted on a closed engine.
	ErrEngineClosed = errors.New("engine closed")

	// ErrUnsupportedFormat is returned when an audio stream format is not supported.
	ErrUnsupportedFormat = errors.New("unsupported audio format")
)

// EngineError wraps a low-level engine failure with the operation and source
// it occurred on.
type EngineError struct {
	Op     string // Operation that failed (e.g., "load", "play", "seek")
	Source string // Stream source (if applicable)
	Err    error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("engine %s failed for %q: %v", e.Op, e.Source, e.Err)
	}
	return fmt.Sprintf("engine %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *EngineError) Unwrap() error {
	return e.Err
}

// NewEngineError creates a new EngineError.
func NewEngineError(op, source string, err error) *EngineError {
	return &EngineError{
		Op:     op,
		Source: source,
		Err:    err,
	}
}
