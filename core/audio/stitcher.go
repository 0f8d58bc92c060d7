package audio

import (
	"errors"
	"fmt"
	"math"
	"sync"
)

var (
	// ErrInvalidSampleRate is returned when a component is constructed with
	// a non-positive sample rate.
	ErrInvalidSampleRate = errors.New("sample rate must be positive")
	// ErrNegativeFade is returned when a fade duration below zero is passed in.
	ErrNegativeFade = errors.New("fade duration must be non-negative")
	// ErrInvalidBPM is returned when beat alignment receives a tempo that
	// cannot produce a usable beat grid.
	ErrInvalidBPM = errors.New("bpm must be positive")
)

// Stitcher combines independently generated audio segments into one track
// without audible seams. All methods treat their inputs as read-only and
// return fresh buffers.
type Stitcher struct {
	sampleRate int
	tempo      TempoEstimator
}

// NewStitcher creates a Stitcher for the given sample rate. A nil estimator
// falls back to the fixed 120 BPM placeholder.
func NewStitcher(sampleRate int, tempo TempoEstimator) (*Stitcher, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("stitcher: %w (got %d)", ErrInvalidSampleRate, sampleRate)
	}
	if tempo == nil {
		tempo = NewFixedTempoEstimator()
	}
	return &Stitcher{sampleRate: sampleRate, tempo: tempo}, nil
}

// SampleRate returns the rate the stitcher operates at.
func (s *Stitcher) SampleRate() int { return s.sampleRate }

// MatchLoudness scales each segment so its RMS energy meets the arithmetic
// mean of all per-segment RMS values. Silent segments pass through unscaled.
// The output may exceed [-1, 1]; callers clamp downstream. Lists shorter
// than two segments are returned unchanged.
func (s *Stitcher) MatchLoudness(segments []Buffer) []Buffer {
	if len(segments) < 2 {
		return segments
	}

	rms := make([]float32, len(segments))
	var sum float64
	for i, seg := range segments {
		rms[i] = seg.RMS()
		sum += float64(rms[i])
	}
	target := float32(sum / float64(len(segments)))

	// Per-segment gain is independent, so the scaling fans out.
	out := make([]Buffer, len(segments))
	var wg sync.WaitGroup
	for i, seg := range segments {
		wg.Add(1)
		go func(i int, seg Buffer) {
			defer wg.Done()
			if rms[i] > 0 {
				out[i] = seg.Scale(target / rms[i])
			} else {
				out[i] = seg
			}
		}(i, seg)
	}
	wg.Wait()
	return out
}

// AlignToBeatGrid rounds every segment length to the nearest whole multiple
// of one beat at the given tempo, padding with trailing silence or
// truncating as needed. A bpm of zero or below means "estimate from the
// first segment" via the configured TempoEstimator. Lists shorter than two
// segments are returned unchanged.
func (s *Stitcher) AlignToBeatGrid(segments []Buffer, bpm float64) ([]Buffer, error) {
	if len(segments) < 2 {
		return segments, nil
	}

	if bpm <= 0 {
		est := s.tempo.Estimate(segments[0])
		bpm = est.BPM
	}
	samplesPerBeat := int(math.Round(float64(s.sampleRate) * 60.0 / bpm))
	if samplesPerBeat <= 0 {
		return nil, fmt.Errorf("align to beat grid: %w (bpm=%.2f)", ErrInvalidBPM, bpm)
	}

	aligned := make([]Buffer, len(segments))
	for i, seg := range segments {
		beats := math.Round(float64(len(seg)) / float64(samplesPerBeat))
		target := int(beats) * samplesPerBeat

		switch {
		case target > len(seg):
			padded := make(Buffer, target)
			copy(padded, seg)
			aligned[i] = padded
		case target < len(seg):
			aligned[i] = seg[:target].Clone()
		default:
			aligned[i] = seg
		}
	}
	return aligned, nil
}

// Crossfade blends the tail of a into the head of b over fadeSeconds using
// an equal-power curve pair. The overlap is capped at a third of either
// buffer so a non-degenerate head and tail always survive; a cap of zero
// degenerates to a hard concatenation, which is defined behavior.
func (s *Stitcher) Crossfade(a, b Buffer, fadeSeconds float64) (Buffer, error) {
	if fadeSeconds < 0 {
		return nil, fmt.Errorf("crossfade: %w (got %.3fs)", ErrNegativeFade, fadeSeconds)
	}

	n := int(math.Round(fadeSeconds * float64(s.sampleRate)))
	if max := len(a) / 3; n > max {
		n = max
	}
	if max := len(b) / 3; n > max {
		n = max
	}

	out := make(Buffer, 0, len(a)+len(b)-n)
	out = append(out, a[:len(a)-n]...)

	fadeOut, fadeIn := crossfadeCurves(n)
	for i := 0; i < n; i++ {
		out = append(out, a[len(a)-n+i]*fadeOut[i]+b[i]*fadeIn[i])
	}

	out = append(out, b[n:]...)
	return out, nil
}

// crossfadeCurves builds the equal-power fade pair over n samples. The raw
// curves are 0.9·cos²(t)+0.1 and 0.9·sin²(t)+0.1 for t in [0, π/2]; the 0.1
// floor keeps both sources audible at the fade boundary so neither edge
// clicks. Renormalizing by the pointwise sum makes the pair add to exactly
// one at every position.
func crossfadeCurves(n int) (fadeOut, fadeIn []float32) {
	fadeOut = make([]float32, n)
	fadeIn = make([]float32, n)
	for i := 0; i < n; i++ {
		var t float64
		if n > 1 {
			t = (math.Pi / 2) * float64(i) / float64(n-1)
		}
		c, sn := math.Cos(t), math.Sin(t)
		fo := 0.9*c*c + 0.1
		fi := 0.9*sn*sn + 0.1
		norm := fo + fi
		fadeOut[i] = float32(fo / norm)
		fadeIn[i] = float32(fi / norm)
	}
	return fadeOut, fadeIn
}

// Stitch folds Crossfade left-to-right across the segment list, optionally
// beat-aligning first. The fold order is the playback order; crossfade is
// not associative because the overlap cap depends on accumulated length.
// An empty list yields an empty buffer and a single segment is returned
// unchanged.
func (s *Stitcher) Stitch(segments []Buffer, fadeSeconds float64, alignToBeat bool) (Buffer, error) {
	if fadeSeconds < 0 {
		return nil, fmt.Errorf("stitch: %w (got %.3fs)", ErrNegativeFade, fadeSeconds)
	}
	if len(segments) == 0 {
		return Buffer{}, nil
	}
	if len(segments) == 1 {
		return segments[0], nil
	}

	if alignToBeat {
		var err error
		segments, err = s.AlignToBeatGrid(segments, 0)
		if err != nil {
			return nil, err
		}
	}

	result := segments[0]
	for _, seg := range segments[1:] {
		var err error
		result, err = s.Crossfade(result, seg, fadeSeconds)
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}
