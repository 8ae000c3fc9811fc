package beep

import (
	"bytes"
	"encoding/binary"
	"testing"

	beepv2 "github.com/gopxl/beep/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuedeck/cuedeck/internal/domain"
)

// wavBytes builds a minimal 16-bit PCM mono WAV file in memory.
func wavBytes(sampleRate int, frames int) []byte {
	samples := make([]byte, frames*2)
	var buf bytes.Buffer

	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(36+len(samples)))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1)) // mono
	_ = binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*2))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(2))  // block align
	_ = binary.Write(&buf, binary.LittleEndian, uint16(16)) // bit depth
	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(samples)))
	buf.Write(samples)

	return buf.Bytes()
}

func TestDecode_WavByContentType(t *testing.T) {
	streamer, format, err := decode(wavBytes(8000, 64), "audio/wav")
	require.NoError(t, err)
	defer streamer.Close()

	assert.Equal(t, beepv2.SampleRate(8000), format.SampleRate)
	assert.Equal(t, 64, streamer.Len())
}

func TestDecode_FallbackWithoutContentType(t *testing.T) {
	streamer, format, err := decode(wavBytes(44100, 16), "")
	require.NoError(t, err)
	defer streamer.Close()

	assert.Equal(t, beepv2.SampleRate(44100), format.SampleRate)
}

func TestDecode_UnsupportedData(t *testing.T) {
	_, _, err := decode([]byte("definitely not audio"), "audio/mpeg")
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
}

func TestPlaybackStreamer_ResamplesMismatchedRates(t *testing.T) {
	src, _, err := decode(wavBytes(48000, 16), "audio/wav")
	require.NoError(t, err)
	defer src.Close()

	// Matching rates attach the source untouched.
	same := playbackStreamer(src, 48000, 48000)
	assert.Equal(t, beepv2.Streamer(src), same)

	// A mismatched source must be wrapped, not fed to the speaker raw.
	adapted := playbackStreamer(src, 48000, 44100)
	_, resampled := adapted.(*beepv2.Resampler)
	assert.True(t, resampled)
}

func TestLevelToVolume(t *testing.T) {
	assert.Equal(t, 0.0, levelToVolume(1.0))
	assert.Equal(t, -1.0, levelToVolume(0.5))
	assert.Equal(t, -2.0, levelToVolume(0.25))
	assert.Equal(t, -10.0, levelToVolume(0))
	assert.Equal(t, -10.0, levelToVolume(-0.5))
	assert.Equal(t, 0.0, levelToVolume(1.3))
}
