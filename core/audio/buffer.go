package audio

import "math"

// DefaultSampleRate is the sample rate of everything the generation model
// produces. The whole pipeline runs at this rate; it is only overridable
// through the Stitcher/PostProcessor constructors.
const DefaultSampleRate = 32000

// Buffer is a mono audio signal as single-precision samples, nominally in
// [-1.0, 1.0]. Gain operations may push samples outside that range; Clamp
// brings them back before PCM conversion.
type Buffer []float32

// Clone returns an independent copy of the buffer.
func (b Buffer) Clone() Buffer {
	out := make(Buffer, len(b))
	copy(out, b)
	return out
}

// RMS returns the root-mean-square energy of the buffer, the loudness proxy
// used for segment matching. An empty buffer has zero energy.
func (b Buffer) RMS() float32 {
	if len(b) == 0 {
		return 0
	}
	var sum float64
	for _, s := range b {
		sum += float64(s) * float64(s)
	}
	return float32(math.Sqrt(sum / float64(len(b))))
}

// Peak returns the maximum absolute sample value.
func (b Buffer) Peak() float32 {
	var peak float32
	for _, s := range b {
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	return peak
}

// Scale returns a new buffer with every sample multiplied by gain.
// The result is not clamped.
func (b Buffer) Scale(gain float32) Buffer {
	out := make(Buffer, len(b))
	for i, s := range b {
		out[i] = s * gain
	}
	return out
}

// Clamp returns a new buffer with every sample limited to [-1, 1].
func (b Buffer) Clamp() Buffer {
	out := make(Buffer, len(b))
	for i, s := range b {
		switch {
		case s > 1:
			out[i] = 1
		case s < -1:
			out[i] = -1
		default:
			out[i] = s
		}
	}
	return out
}

// ToPCM16 converts the buffer to 16-bit signed PCM using full-scale mapping.
// Samples are clamped first so the int16 conversion cannot wrap.
func (b Buffer) ToPCM16() []int16 {
	out := make([]int16, len(b))
	for i, s := range b {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		out[i] = int16(s * 32767)
	}
	return out
}

// FromPCM16 converts 16-bit signed PCM back to a float buffer.
func FromPCM16(samples []int16) Buffer {
	out := make(Buffer, len(samples))
	for i, s := range samples {
		out[i] = float32(s) / 32767
	}
	return out
}

// Duration returns the buffer length in seconds at the given sample rate.
func (b Buffer) Duration(sampleRate int) float64 {
	if sampleRate <= 0 {
		return 0
	}
	return float64(len(b)) / float64(sampleRate)
}
