package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadyState_CanSeek(t *testing.T) {
	assert.False(t, ReadyNothing.CanSeek())
	assert.False(t, ReadyMetadata.CanSeek())
	assert.True(t, ReadyCurrentData.CanSeek())
	assert.True(t, ReadyFutureData.CanSeek())
	assert.True(t, ReadyEnoughData.CanSeek())
}

func TestReadyState_Ordering(t *testing.T) {
	// The ladder must stay strictly ordered; threshold comparisons depend
	// on it.
	assert.Less(t, ReadyNothing, ReadyMetadata)
	assert.Less(t, ReadyMetadata, ReadyCurrentData)
	assert.Less(t, ReadyCurrentData, ReadyFutureData)
	assert.Less(t, ReadyFutureData, ReadyEnoughData)
	assert.Equal(t, ReadyCurrentData, MinSeekReadiness)
}

func TestReadyState_String(t *testing.T) {
	assert.Equal(t, "current-data", ReadyCurrentData.String())
	assert.Equal(t, "unknown", ReadyState(99).String())
}
