package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeWAVHeader(t *testing.T) {
	buf := sineBuffer(16000, 440, 0.5)
	data, err := EncodeWAV(buf, DefaultSampleRate)
	require.NoError(t, err)

	require.Len(t, data, wavHeaderSize+len(buf)*2)
	assert.Equal(t, "RIFF", string(data[0:4]))
	assert.Equal(t, "WAVE", string(data[8:12]))
	assert.Equal(t, "data", string(data[36:40]))
}

func TestEncodeWAVRejectsBadInput(t *testing.T) {
	_, err := EncodeWAV(Buffer{}, DefaultSampleRate)
	require.ErrorIs(t, err, ErrEmptyAudio)

	_, err = EncodeWAV(constantBuffer(10, 0.5), 0)
	require.ErrorIs(t, err, ErrInvalidSampleRate)
}

func TestWAVRoundTrip(t *testing.T) {
	original := sineBuffer(8000, 220, 0.6)
	data, err := EncodeWAV(original, DefaultSampleRate)
	require.NoError(t, err)

	decoded, rate, err := DecodeWAV(data)
	require.NoError(t, err)
	assert.Equal(t, DefaultSampleRate, rate)
	require.Len(t, decoded, len(original))

	// 16-bit quantization loses at most half a step.
	for i := range original {
		assert.InDelta(t, float64(original[i]), float64(decoded[i]), 1.0/32767)
	}
}

func TestEncodeWAVClampsOutOfRangeSamples(t *testing.T) {
	// Gain stages may leave samples outside [-1, 1]; PCM conversion must
	// saturate instead of wrapping.
	buf := Buffer{1.7, -2.3, 0.5}
	data, err := EncodeWAV(buf, DefaultSampleRate)
	require.NoError(t, err)

	decoded, _, err := DecodeWAV(data)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, float64(decoded[0]), 1e-4)
	assert.InDelta(t, -1.0, float64(decoded[1]), 1e-4)
}

func TestDecodeWAVRejectsGarbage(t *testing.T) {
	_, _, err := DecodeWAV([]byte("not a wav file"))
	require.Error(t, err)

	junk := make([]byte, 64)
	copy(junk, "RIFFxxxxWAVE")
	_, _, err = DecodeWAV(junk)
	require.Error(t, err)
}
