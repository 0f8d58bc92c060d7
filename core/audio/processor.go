package audio

import (
	"fmt"
	"math"
)

// Default post-processing parameters, carried over from the generation
// pipeline's historical tuning.
const (
	DefaultTargetDb          = -3.0
	DefaultFadeInSeconds     = 0.5
	DefaultFadeOutSeconds    = 1.0
	DefaultCompressThreshold = 0.5
	DefaultCompressRatio     = 4.0
)

// ProcessOptions selects which finishing stages Process applies.
type ProcessOptions struct {
	Normalize bool
	Fades     bool
	Compress  bool

	TargetDb          float64
	FadeInSeconds     float64
	FadeOutSeconds    float64
	CompressThreshold float32
	CompressRatio     float32
}

// DefaultProcessOptions mirrors the defaults of the generation pipeline:
// normalize and fade, no compression.
func DefaultProcessOptions() ProcessOptions {
	return ProcessOptions{
		Normalize:         true,
		Fades:             true,
		Compress:          false,
		TargetDb:          DefaultTargetDb,
		FadeInSeconds:     DefaultFadeInSeconds,
		FadeOutSeconds:    DefaultFadeOutSeconds,
		CompressThreshold: DefaultCompressThreshold,
		CompressRatio:     DefaultCompressRatio,
	}
}

// PostProcessor finalizes a stitched buffer for export: peak normalization,
// optional dynamic-range compression, and edge fades. Stateless apart from
// the sample rate; every method returns a new buffer.
type PostProcessor struct {
	sampleRate int
}

// NewPostProcessor creates a PostProcessor for the given sample rate.
func NewPostProcessor(sampleRate int) (*PostProcessor, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("post-processor: %w (got %d)", ErrInvalidSampleRate, sampleRate)
	}
	return &PostProcessor{sampleRate: sampleRate}, nil
}

// Normalize scales the buffer so its peak sits at targetDb (relative to
// full scale) and clamps to [-1, 1]. A silent buffer passes through
// untouched. The clamp is a safety net; with a negative targetDb it is not
// expected to fire.
func (p *PostProcessor) Normalize(buf Buffer, targetDb float64) Buffer {
	peak := buf.Peak()
	if peak == 0 {
		return buf
	}
	targetLinear := math.Pow(10, targetDb/20.0)
	gain := float32(targetLinear) / peak
	return buf.Scale(gain).Clamp()
}

// FadeIn applies a linear 0→1 ramp over the leading seconds of the buffer.
// The ramp is capped at the buffer length.
func (p *PostProcessor) FadeIn(buf Buffer, seconds float64) Buffer {
	n := p.fadeSamples(seconds, len(buf))
	out := buf.Clone()
	for i := 0; i < n; i++ {
		out[i] *= rampUp(i, n)
	}
	return out
}

// FadeOut applies a linear 1→0 ramp over the trailing seconds of the buffer.
func (p *PostProcessor) FadeOut(buf Buffer, seconds float64) Buffer {
	n := p.fadeSamples(seconds, len(buf))
	out := buf.Clone()
	start := len(out) - n
	for i := 0; i < n; i++ {
		out[start+i] *= 1 - rampUp(i, n)
	}
	return out
}

// ApplyFades runs FadeIn then FadeOut with the given durations.
func (p *PostProcessor) ApplyFades(buf Buffer, fadeInSeconds, fadeOutSeconds float64) Buffer {
	return p.FadeOut(p.FadeIn(buf, fadeInSeconds), fadeOutSeconds)
}

// CompressDynamicRange soft-limits every sample whose magnitude exceeds the
// threshold: the excess is divided by ratio, sign preserved. This is a
// static memoryless nonlinearity with no attack or release smoothing.
func (p *PostProcessor) CompressDynamicRange(buf Buffer, threshold, ratio float32) Buffer {
	out := buf.Clone()
	if ratio <= 0 {
		return out
	}
	for i, s := range out {
		mag := s
		if mag < 0 {
			mag = -mag
		}
		if mag > threshold {
			compressed := threshold + (mag-threshold)/ratio
			if s < 0 {
				out[i] = -compressed
			} else {
				out[i] = compressed
			}
		}
	}
	return out
}

// Process runs the full finishing chain in a fixed order: compression
// first, then normalization, then fades. Compressing after normalization
// would undo the peak target and fading before it would leave the fade
// endpoints at an unpredictable level, so the order is not configurable.
func (p *PostProcessor) Process(buf Buffer, opts ProcessOptions) Buffer {
	result := buf.Clone()

	if opts.Compress {
		result = p.CompressDynamicRange(result, opts.CompressThreshold, opts.CompressRatio)
	}
	if opts.Normalize {
		result = p.Normalize(result, opts.TargetDb)
	}
	if opts.Fades {
		result = p.ApplyFades(result, opts.FadeInSeconds, opts.FadeOutSeconds)
	}
	return result
}

func (p *PostProcessor) fadeSamples(seconds float64, bufLen int) int {
	if seconds < 0 {
		return 0
	}
	n := int(math.Round(seconds * float64(p.sampleRate)))
	if n > bufLen {
		n = bufLen
	}
	return n
}

// rampUp returns the linear ramp value at position i of an n-sample fade,
// running 0 at i=0 to 1 at i=n-1.
func rampUp(i, n int) float32 {
	if n <= 1 {
		return 0
	}
	return float32(i) / float32(n-1)
}
