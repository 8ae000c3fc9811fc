package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEngineError(t *testing.T) {
	underlying := errors.New("connection refused")
	err := NewEngineError("load", "http://x/stream?path=a.mp3", underlying)

	assert.ErrorIs(t, err, underlying)
	assert.Contains(t, err.Error(), "load")
	assert.Contains(t, err.Error(), "a.mp3")

	bare := NewEngineError("play", "", ErrPlaybackRejected)
	assert.ErrorIs(t, bare, ErrPlaybackRejected)
	assert.Equal(t, `engine play failed: playback rejected by engine`, bare.Error())
}
