package musicgen

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"orpheus/core/audio"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresetFor(t *testing.T) {
	assert.Equal(t, Preset{Segments: 1, MaxTokens: 256}, PresetFor(DurationShort))
	assert.Equal(t, Preset{Segments: 3, MaxTokens: 512}, PresetFor(DurationMedium))
	assert.Equal(t, Preset{Segments: 3, MaxTokens: 768}, PresetFor(DurationLong))
	assert.Equal(t, Preset{Segments: 1, MaxTokens: 256}, PresetFor("bogus"))
}

func TestGenerateSegment(t *testing.T) {
	segment := make(audio.Buffer, 16000)
	for i := range segment {
		segment[i] = 0.25
	}
	wavData, err := audio.EncodeWAV(segment, audio.DefaultSampleRate)
	require.NoError(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/generate", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "jazz music, sad mood", req.Conditioning)
		assert.Equal(t, 256, req.MaxNewTokens)
		assert.True(t, req.DoSample)

		w.Header().Set("Content-Type", "audio/wav")
		_, _ = w.Write(wavData)
	}))
	defer server.Close()

	client := NewClient(&Config{
		APIBaseURL: server.URL,
		APIKey:     "test-key",
		SampleRate: audio.DefaultSampleRate,
	})

	buf, err := client.GenerateSegment(context.Background(), "jazz music, sad mood", 256)
	require.NoError(t, err)
	require.Len(t, buf, 16000)
	assert.InDelta(t, 0.25, float64(buf[0]), 1e-3)
}

func TestGenerateSegmentErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(&Config{APIBaseURL: server.URL})
	_, err := client.GenerateSegment(context.Background(), "anything", 256)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestGenerateSegmentSampleRateMismatch(t *testing.T) {
	wavData, err := audio.EncodeWAV(make(audio.Buffer, 100), 44100)
	require.NoError(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(wavData)
	}))
	defer server.Close()

	client := NewClient(&Config{APIBaseURL: server.URL, SampleRate: audio.DefaultSampleRate})
	_, err = client.GenerateSegment(context.Background(), "anything", 256)
	require.ErrorIs(t, err, ErrSampleRateMismatch)
}
