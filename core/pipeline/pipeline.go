package pipeline

import (
	"context"
	"errors"
	"fmt"

	"orpheus/core/audio"
	"orpheus/core/lyrics"
	"orpheus/core/musicgen"
	"orpheus/core/planner"
	"orpheus/logger"
)

// DefaultFadeSeconds is the crossfade length between stitched segments.
// Long fades keep the transitions imperceptible on generated material.
const DefaultFadeSeconds = 6.0

// ErrNoSegments is returned when the model produces nothing to assemble.
var ErrNoSegments = errors.New("model produced no audio segments")

// Request describes one generation job.
type Request struct {
	Prompt      string        `json:"prompt"`
	UseLyrics   bool          `json:"useLyrics"`
	Duration    string        `json:"duration"` // short, medium, long
	ApplyFades  bool          `json:"applyFades"`
	Normalize   bool          `json:"normalize"`
	Compress    bool          `json:"compress"`
	AlignToBeat bool          `json:"alignToBeat"`
	FadeSeconds float64       `json:"fadeSeconds,omitempty"` // 0 means the default
	Plan        *planner.Plan `json:"plan,omitempty"`        // precomputed plan overrides the prompt analysis
}

// Metadata describes a finished track.
type Metadata struct {
	Prompt      string       `json:"prompt"`
	Plan        planner.Plan `json:"plan"`
	Lyrics      string       `json:"lyrics,omitempty"`
	DurationSec float64      `json:"durationSec"`
	SampleRate  int          `json:"sampleRate"`
	NumSegments int          `json:"numSegments"`
}

// Result is the typed outcome of a pipeline run: the assembled buffer, its
// WAV encoding, and the track metadata. Failures are reported through the
// error return, never panics.
type Result struct {
	Audio    audio.Buffer
	WAV      []byte
	Metadata Metadata
}

// Progress receives stage updates while a job runs. segment/total are only
// meaningful during the generation stage.
type Progress func(stage string, segment, total int)

// Pipeline turns a prompt into a finished track: plan, generate segments,
// loudness-match, stitch, post-process, encode. It is a pure function of
// its inputs; the surrounding job system owns persistence and concurrency.
type Pipeline struct {
	generator  musicgen.Generator
	stitcher   *audio.Stitcher
	post       *audio.PostProcessor
	planner    *planner.Planner
	lyricsGen  *lyrics.Generator
	sampleRate int
}

// New wires a Pipeline at the given sample rate.
func New(generator musicgen.Generator, sampleRate int) (*Pipeline, error) {
	stitcher, err := audio.NewStitcher(sampleRate, nil)
	if err != nil {
		return nil, err
	}
	post, err := audio.NewPostProcessor(sampleRate)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		generator:  generator,
		stitcher:   stitcher,
		post:       post,
		planner:    planner.New(),
		lyricsGen:  lyrics.NewGenerator(),
		sampleRate: sampleRate,
	}, nil
}

// Plan exposes the prompt analysis for dry-run requests.
func (p *Pipeline) Plan(prompt string) planner.Plan {
	return p.planner.Plan(prompt)
}

// Lyrics exposes lyric generation for dry-run requests.
func (p *Pipeline) Lyrics(mood string, structure []string) lyrics.Lyrics {
	return p.lyricsGen.Generate(mood, structure)
}

// Run executes the full generation pipeline for one request. onProgress may
// be nil.
func (p *Pipeline) Run(ctx context.Context, req Request, onProgress Progress) (*Result, error) {
	notify := onProgress
	if notify == nil {
		notify = func(string, int, int) {}
	}

	plan := p.resolvePlan(req)
	conditioning := plan.Conditioning()

	var lyricText string
	if req.UseLyrics {
		l := p.lyricsGen.Generate(plan.Mood, plan.Structure)
		lyricText = l.FormatForConditioning()
	}

	preset := musicgen.PresetFor(req.Duration)
	notify("generating", 0, preset.Segments)

	segments := make([]audio.Buffer, 0, preset.Segments)
	for i := 0; i < preset.Segments; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("generation cancelled: %w", err)
		}
		segment, err := p.generator.GenerateSegment(ctx, conditioning, preset.MaxTokens)
		if err != nil {
			return nil, fmt.Errorf("segment %d/%d: %w", i+1, preset.Segments, err)
		}
		segments = append(segments, segment)
		notify("generating", i+1, preset.Segments)
	}
	if len(segments) == 0 {
		return nil, ErrNoSegments
	}

	notify("stitching", 0, 0)
	track, err := p.assemble(segments, req)
	if err != nil {
		return nil, err
	}

	notify("processing", 0, 0)
	opts := audio.DefaultProcessOptions()
	opts.Normalize = req.Normalize
	opts.Fades = req.ApplyFades
	opts.Compress = req.Compress
	track = p.post.Process(track, opts).Clamp()

	notify("encoding", 0, 0)
	wavData, err := audio.EncodeWAV(track, p.sampleRate)
	if err != nil {
		return nil, fmt.Errorf("failed to encode track: %w", err)
	}

	logger.Info("pipeline finished",
		logger.String("prompt", req.Prompt),
		logger.Int("segments", len(segments)),
		logger.Float64("durationSec", track.Duration(p.sampleRate)))

	return &Result{
		Audio: track,
		WAV:   wavData,
		Metadata: Metadata{
			Prompt:      req.Prompt,
			Plan:        plan,
			Lyrics:      lyricText,
			DurationSec: track.Duration(p.sampleRate),
			SampleRate:  p.sampleRate,
			NumSegments: len(segments),
		},
	}, nil
}

// assemble loudness-matches and stitches the raw segments into one buffer.
// A single segment skips stitching entirely.
func (p *Pipeline) assemble(segments []audio.Buffer, req Request) (audio.Buffer, error) {
	if len(segments) == 1 {
		return segments[0], nil
	}

	fade := req.FadeSeconds
	if fade == 0 {
		fade = DefaultFadeSeconds
	}

	matched := p.stitcher.MatchLoudness(segments)
	track, err := p.stitcher.Stitch(matched, fade, req.AlignToBeat)
	if err != nil {
		return nil, fmt.Errorf("failed to stitch segments: %w", err)
	}
	return track, nil
}

func (p *Pipeline) resolvePlan(req Request) planner.Plan {
	if req.Plan != nil {
		return *req.Plan
	}
	return p.planner.Plan(req.Prompt)
}
