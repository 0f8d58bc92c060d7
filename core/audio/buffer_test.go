package audio

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBufferRMS(t *testing.T) {
	assert.Zero(t, Buffer{}.RMS())
	assert.InDelta(t, 0.5, float64(constantBuffer(100, 0.5).RMS()), 1e-6)
	assert.InDelta(t, 0.5, float64(constantBuffer(100, -0.5).RMS()), 1e-6)

	// A full-scale sine has RMS amp/√2.
	sine := sineBuffer(320000, 440, 0.8)
	assert.InDelta(t, 0.8/math.Sqrt2, float64(sine.RMS()), 1e-3)
}

func TestBufferPeakAndClamp(t *testing.T) {
	buf := Buffer{0.2, -1.6, 1.3, -0.4}
	assert.InDelta(t, 1.6, float64(buf.Peak()), 1e-6)

	clamped := buf.Clamp()
	assert.Equal(t, Buffer{0.2, -1, 1, -0.4}, clamped)
	// Original is untouched.
	assert.InDelta(t, -1.6, float64(buf[1]), 1e-6)
}

func TestBufferScaleDoesNotClamp(t *testing.T) {
	out := constantBuffer(4, 0.6).Scale(2)
	for _, v := range out {
		assert.InDelta(t, 1.2, float64(v), 1e-6)
	}
}

func TestPCM16RoundTrip(t *testing.T) {
	buf := Buffer{-1, -0.5, 0, 0.5, 1}
	back := FromPCM16(buf.ToPCM16())
	for i := range buf {
		assert.InDelta(t, float64(buf[i]), float64(back[i]), 1.0/32767)
	}
}

func TestDuration(t *testing.T) {
	assert.InDelta(t, 10.0, constantBuffer(320000, 0).Duration(32000), 1e-9)
	assert.Zero(t, constantBuffer(10, 0).Duration(0))
}
