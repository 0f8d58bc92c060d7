package musicgen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"orpheus/core/audio"
	"orpheus/logger"
)

// Duration presets map the user-facing track length to a segment count and
// per-segment token budget for the model.
const (
	DurationShort  = "short"  // one segment, ~8s
	DurationMedium = "medium" // three segments, ~48s stitched
	DurationLong   = "long"   // three longer segments, ~72s stitched
)

// Preset is the generation shape for one duration class.
type Preset struct {
	Segments  int
	MaxTokens int
}

// PresetFor resolves a duration name to its preset. Unknown names fall back
// to short.
func PresetFor(duration string) Preset {
	switch duration {
	case DurationMedium:
		return Preset{Segments: 3, MaxTokens: 512}
	case DurationLong:
		return Preset{Segments: 3, MaxTokens: 768}
	default:
		return Preset{Segments: 1, MaxTokens: 256}
	}
}

// Generator produces one raw audio segment per call from a conditioning
// string. The inference backend is a black box behind this interface.
type Generator interface {
	GenerateSegment(ctx context.Context, conditioning string, maxTokens int) (audio.Buffer, error)
}

// ErrSampleRateMismatch is returned when the model serves audio at a rate
// other than the one the pipeline runs at.
var ErrSampleRateMismatch = errors.New("model sample rate does not match pipeline rate")

// Config holds the connection settings for the inference service.
type Config struct {
	APIBaseURL string
	APIKey     string
	Model      string
	SampleRate int
	Timeout    time.Duration
}

// Client calls a MusicGen-style inference HTTP service. The service accepts
// a conditioning text plus a token budget and answers with a mono WAV body.
type Client struct {
	config     *Config
	httpClient *http.Client
}

// NewClient creates a Client for the given inference service.
func NewClient(config *Config) *Client {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 300 * time.Second // generation is slow on CPU backends
	}
	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type generateRequest struct {
	Model        string `json:"model,omitempty"`
	Conditioning string `json:"conditioning"`
	MaxNewTokens int    `json:"maxNewTokens"`
	DoSample     bool   `json:"doSample"`
}

// GenerateSegment asks the model for one segment and decodes the WAV reply
// into a float buffer at the pipeline rate.
func (c *Client) GenerateSegment(ctx context.Context, conditioning string, maxTokens int) (audio.Buffer, error) {
	reqBody := generateRequest{
		Model:        c.config.Model,
		Conditioning: conditioning,
		MaxNewTokens: maxTokens,
		DoSample:     true,
	}
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.APIBaseURL+"/generate", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/wav")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("model request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("model returned status %d: %s", resp.StatusCode, string(body))
	}

	wavData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read model response: %w", err)
	}

	buf, rate, err := audio.DecodeWAV(wavData)
	if err != nil {
		return nil, fmt.Errorf("failed to decode model audio: %w", err)
	}
	if c.config.SampleRate > 0 && rate != c.config.SampleRate {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrSampleRateMismatch, rate, c.config.SampleRate)
	}

	logger.Debug("model segment generated",
		logger.Int("samples", len(buf)),
		logger.Int("sampleRate", rate),
		logger.Duration("elapsed", time.Since(start)))

	return buf, nil
}
