package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orpheus/config"
	"orpheus/core/audio"
	"orpheus/core/auth"
	"orpheus/core/pipeline"
)

type fakeGenerator struct{}

func (fakeGenerator) GenerateSegment(_ context.Context, _ string, _ int) (audio.Buffer, error) {
	return make(audio.Buffer, 32000), nil
}

func newTestHandler(t *testing.T) *APIHandler {
	t.Helper()
	pl, err := pipeline.New(fakeGenerator{}, audio.DefaultSampleRate)
	require.NoError(t, err)
	return NewAPIHandler(nil, nil, pl, config.Load())
}

func TestPlanHandler(t *testing.T) {
	h := newTestHandler(t)

	body, _ := json.Marshal(map[string]string{"prompt": "a sad jazz ballad with piano at 90 bpm"})
	req := httptest.NewRequest(http.MethodPost, "/api/plan", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.PlanHandler(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var plan struct {
		Genre       string `json:"genre"`
		Mood        string `json:"mood"`
		BPM         int    `json:"bpm"`
		Description string `json:"description"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&plan))
	assert.Equal(t, "jazz", plan.Genre)
	assert.Equal(t, "sad", plan.Mood)
	assert.Equal(t, 90, plan.BPM)
	assert.NotEmpty(t, plan.Description)
}

func TestPlanHandlerRequiresPrompt(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/plan", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()

	h.PlanHandler(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLyricsHandler(t *testing.T) {
	h := newTestHandler(t)

	body, _ := json.Marshal(map[string]interface{}{"mood": "happy"})
	req := httptest.NewRequest(http.MethodPost, "/api/lyrics", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.LyricsHandler(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Conditioning string `json:"conditioning"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.NotEmpty(t, resp.Conditioning)
}

func TestLyricsHandlerRequiresMood(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/lyrics", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()

	h.LyricsHandler(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthMiddlewareRejectsMissingHeader(t *testing.T) {
	h := newTestHandler(t)

	handler := h.AuthMiddleware(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/jobs", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddlewareRejectsMalformedHeader(t *testing.T) {
	h := newTestHandler(t)

	handler := h.AuthMiddleware(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/jobs", nil)
	req.Header.Set("Authorization", "Basic abc123")
	rec := httptest.NewRecorder()
	handler(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddlewarePassesValidToken(t *testing.T) {
	h := newTestHandler(t)

	token, err := auth.GenerateToken(42, "tester")
	require.NoError(t, err)

	var gotUserID int64
	handler := h.AuthMiddleware(func(w http.ResponseWriter, r *http.Request) {
		gotUserID, _ = GetUserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/jobs", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(42), gotUserID)
}
