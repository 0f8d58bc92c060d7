package audio

// TempoEstimate is the result of tempo analysis on a segment.
type TempoEstimate struct {
	BPM        float64
	Confidence float64 // 0 = pure guess, 1 = certain
}

// TempoEstimator estimates the tempo of an audio segment. The stitcher uses
// it to derive the beat grid when no explicit BPM is supplied.
type TempoEstimator interface {
	Estimate(buf Buffer) TempoEstimate
}

// FixedTempoEstimator is a placeholder estimator that always reports the
// configured tempo with zero confidence. It performs no onset or beat
// analysis whatsoever; swap in a real beat tracker for production use.
type FixedTempoEstimator struct {
	BPM float64
}

// NewFixedTempoEstimator returns an estimator pinned to 120 BPM, the
// historical default of the generation pipeline.
func NewFixedTempoEstimator() *FixedTempoEstimator {
	return &FixedTempoEstimator{BPM: 120}
}

// Estimate ignores the buffer and returns the fixed tempo.
func (e *FixedTempoEstimator) Estimate(_ Buffer) TempoEstimate {
	return TempoEstimate{BPM: e.BPM, Confidence: 0}
}
