package audio

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constantBuffer(n int, v float32) Buffer {
	buf := make(Buffer, n)
	for i := range buf {
		buf[i] = v
	}
	return buf
}

func sineBuffer(n int, freq float64, amp float32) Buffer {
	buf := make(Buffer, n)
	for i := range buf {
		buf[i] = amp * float32(math.Sin(2*math.Pi*freq*float64(i)/float64(DefaultSampleRate)))
	}
	return buf
}

func TestNewStitcherRejectsBadSampleRate(t *testing.T) {
	_, err := NewStitcher(0, nil)
	require.ErrorIs(t, err, ErrInvalidSampleRate)

	_, err = NewStitcher(-1, nil)
	require.ErrorIs(t, err, ErrInvalidSampleRate)
}

func TestMatchLoudnessEqualizesRMS(t *testing.T) {
	s, err := NewStitcher(DefaultSampleRate, nil)
	require.NoError(t, err)

	segments := []Buffer{
		constantBuffer(1000, 0.1),
		constantBuffer(1000, 0.3),
	}
	matched := s.MatchLoudness(segments)
	require.Len(t, matched, 2)

	// Target is the mean RMS of the inputs: (0.1 + 0.3) / 2 = 0.2.
	assert.InDelta(t, 0.2, float64(matched[0].RMS()), 1e-5)
	assert.InDelta(t, 0.2, float64(matched[1].RMS()), 1e-5)

	// Inputs stay untouched.
	assert.InDelta(t, 0.1, float64(segments[0][0]), 1e-6)
	assert.InDelta(t, 0.3, float64(segments[1][0]), 1e-6)
}

func TestMatchLoudnessSilentSegmentPassesThrough(t *testing.T) {
	s, err := NewStitcher(DefaultSampleRate, nil)
	require.NoError(t, err)

	segments := []Buffer{
		constantBuffer(500, 0),
		constantBuffer(500, 0.4),
	}
	matched := s.MatchLoudness(segments)

	for _, v := range matched[0] {
		assert.Zero(t, v)
	}
	// The silent segment still participates in the mean: target is 0.2.
	assert.InDelta(t, 0.2, float64(matched[1].RMS()), 1e-5)
}

func TestMatchLoudnessDegenerateInputsUnchanged(t *testing.T) {
	s, err := NewStitcher(DefaultSampleRate, nil)
	require.NoError(t, err)

	assert.Empty(t, s.MatchLoudness(nil))

	single := []Buffer{constantBuffer(100, 0.5)}
	out := s.MatchLoudness(single)
	require.Len(t, out, 1)
	assert.Equal(t, single[0], out[0])
}

func TestCrossfadeWeightsSumToOne(t *testing.T) {
	s, err := NewStitcher(DefaultSampleRate, nil)
	require.NoError(t, err)

	// Crossfading two all-ones buffers exposes the raw curve sum: every
	// overlap sample equals fadeOut[i] + fadeIn[i].
	a := constantBuffer(3000, 1)
	b := constantBuffer(3000, 1)
	out, err := s.Crossfade(a, b, 0.02)
	require.NoError(t, err)

	for i, v := range out {
		assert.InDelta(t, 1.0, float64(v), 1e-6, "sample %d", i)
	}
}

func TestCrossfadeLength(t *testing.T) {
	s, err := NewStitcher(DefaultSampleRate, nil)
	require.NoError(t, err)

	tests := []struct {
		name        string
		lenA, lenB  int
		fadeSeconds float64
		wantOverlap int
	}{
		{"fade fits both", 32000, 32000, 0.1, 3200},
		{"capped by first third", 3000, 32000, 1.0, 1000},
		{"capped by second third", 32000, 3000, 1.0, 1000},
		{"zero fade", 1000, 1000, 0, 0},
		{"zero-length second buffer", 1000, 0, 0.5, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := s.Crossfade(constantBuffer(tt.lenA, 0.5), constantBuffer(tt.lenB, 0.5), tt.fadeSeconds)
			require.NoError(t, err)
			assert.Len(t, out, tt.lenA+tt.lenB-tt.wantOverlap)
		})
	}
}

func TestCrossfadeRejectsNegativeFade(t *testing.T) {
	s, err := NewStitcher(DefaultSampleRate, nil)
	require.NoError(t, err)

	_, err = s.Crossfade(constantBuffer(100, 0.5), constantBuffer(100, 0.5), -0.1)
	require.ErrorIs(t, err, ErrNegativeFade)
}

func TestCrossfadeZeroOverlapIsHardConcat(t *testing.T) {
	s, err := NewStitcher(DefaultSampleRate, nil)
	require.NoError(t, err)

	a := constantBuffer(6, 0.25)
	b := constantBuffer(2, -0.75)
	// 2/3 == 0, so the cap clamps the overlap to nothing.
	out, err := s.Crossfade(a, b, 1.0)
	require.NoError(t, err)
	require.Len(t, out, 8)
	assert.Equal(t, append(a.Clone(), b...), out)
}

func TestAlignToBeatGridQuantizesLengths(t *testing.T) {
	s, err := NewStitcher(DefaultSampleRate, nil)
	require.NoError(t, err)

	// 120 BPM at 32 kHz → 16000 samples per beat.
	segments := []Buffer{
		constantBuffer(16100, 0.5), // rounds down to 16000
		constantBuffer(23900, 0.5), // rounds up to 32000, zero-padded
	}
	aligned, err := s.AlignToBeatGrid(segments, 120)
	require.NoError(t, err)

	require.Len(t, aligned[0], 16000)
	require.Len(t, aligned[1], 32000)
	// Padding is trailing silence.
	for _, v := range aligned[1][23900:] {
		assert.Zero(t, v)
	}
}

func TestAlignToBeatGridUsesEstimatorWhenBPMUnset(t *testing.T) {
	s, err := NewStitcher(DefaultSampleRate, &FixedTempoEstimator{BPM: 60})
	require.NoError(t, err)

	// 60 BPM at 32 kHz → 32000 samples per beat.
	segments := []Buffer{
		constantBuffer(40000, 0.5),
		constantBuffer(40000, 0.5),
	}
	aligned, err := s.AlignToBeatGrid(segments, 0)
	require.NoError(t, err)
	assert.Len(t, aligned[0], 32000)
	assert.Len(t, aligned[1], 32000)
}

func TestAlignToBeatGridShortListUnchanged(t *testing.T) {
	s, err := NewStitcher(DefaultSampleRate, nil)
	require.NoError(t, err)

	single := []Buffer{constantBuffer(123, 0.5)}
	aligned, err := s.AlignToBeatGrid(single, 97)
	require.NoError(t, err)
	assert.Len(t, aligned[0], 123)
}

func TestStitchDegenerateInputs(t *testing.T) {
	s, err := NewStitcher(DefaultSampleRate, nil)
	require.NoError(t, err)

	out, err := s.Stitch(nil, 1.0, false)
	require.NoError(t, err)
	assert.Empty(t, out)

	seg := sineBuffer(5000, 440, 0.5)
	out, err = s.Stitch([]Buffer{seg}, 1.0, true)
	require.NoError(t, err)
	assert.Equal(t, seg, out)
}

func TestStitchRejectsNegativeFade(t *testing.T) {
	s, err := NewStitcher(DefaultSampleRate, nil)
	require.NoError(t, err)

	_, err = s.Stitch([]Buffer{constantBuffer(10, 0), constantBuffer(10, 0)}, -1, false)
	require.ErrorIs(t, err, ErrNegativeFade)
}

func TestStitchLengthProperty(t *testing.T) {
	s, err := NewStitcher(DefaultSampleRate, nil)
	require.NoError(t, err)

	// n segments of equal length L with the fade under the 1/3 cap:
	// result length is n·L - (n-1)·round(fade·rate), exactly.
	const (
		n    = 4
		L    = 64000
		fade = 0.25
	)
	segments := make([]Buffer, n)
	for i := range segments {
		segments[i] = sineBuffer(L, 220*float64(i+1), 0.4)
	}

	out, err := s.Stitch(segments, fade, false)
	require.NoError(t, err)

	overlap := int(math.Round(fade * DefaultSampleRate))
	assert.Len(t, out, n*L-(n-1)*overlap)
}

func TestStitchThreeTenSecondSegments(t *testing.T) {
	s, err := NewStitcher(DefaultSampleRate, nil)
	require.NoError(t, err)

	// Three 10 s segments at 32 kHz with a 1.0 s crossfade and no beat
	// alignment: 3·320000 - 2·32000 = 896000 samples, i.e. 28.0 s.
	segments := []Buffer{
		sineBuffer(320000, 440, 0.5),
		sineBuffer(320000, 550, 0.5),
		sineBuffer(320000, 660, 0.5),
	}
	out, err := s.Stitch(segments, 1.0, false)
	require.NoError(t, err)
	assert.Len(t, out, 896000)
	assert.InDelta(t, 28.0, out.Duration(DefaultSampleRate), 1e-9)
}

func TestStitchWithZeroLengthSegmentInMiddle(t *testing.T) {
	s, err := NewStitcher(DefaultSampleRate, nil)
	require.NoError(t, err)

	segments := []Buffer{
		constantBuffer(9000, 0.5),
		{},
		constantBuffer(9000, 0.5),
	}
	// Both crossfades touching the empty segment clamp to zero overlap,
	// so the result is a plain concatenation.
	out, err := s.Stitch(segments, 1.0, false)
	require.NoError(t, err)
	assert.Len(t, out, 18000)
}
