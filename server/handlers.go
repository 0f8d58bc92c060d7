package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"orpheus/cache"
	"orpheus/config"
	"orpheus/core/pipeline"
	"orpheus/logger"
	"orpheus/model"
	"orpheus/repository"
	"orpheus/storage"
)

// APIHandler handles all API requests.
type APIHandler struct {
	jobRepo  repository.JobRepository
	userRepo repository.UserRepository
	pipeline *pipeline.Pipeline
	cfg      *config.Config
}

// NewAPIHandler creates a new API handler.
func NewAPIHandler(
	jobRepo repository.JobRepository,
	userRepo repository.UserRepository,
	pl *pipeline.Pipeline,
	cfg *config.Config,
) *APIHandler {
	return &APIHandler{
		jobRepo:  jobRepo,
		userRepo: userRepo,
		pipeline: pl,
		cfg:      cfg,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// GenerateRequest is the body of POST /api/generate.
type GenerateRequest struct {
	Prompt      string  `json:"prompt"`
	Duration    string  `json:"duration"`
	UseLyrics   bool    `json:"useLyrics"`
	ApplyFades  *bool   `json:"applyFades,omitempty"`
	Normalize   *bool   `json:"normalize,omitempty"`
	Compress    bool    `json:"compress"`
	AlignToBeat *bool   `json:"alignToBeat,omitempty"`
	FadeSeconds float64 `json:"fadeSeconds,omitempty"`
}

// GenerateHandler accepts a prompt, creates a job and starts generation in
// the background. The client polls /api/status or subscribes to the progress
// WebSocket.
func (h *APIHandler) GenerateHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Prompt == "" {
		writeError(w, http.StatusBadRequest, "Prompt is required")
		return
	}
	if req.Duration == "" {
		req.Duration = "short"
	}

	job := &model.Job{
		ID:       uuid.New().String(),
		UserID:   userID,
		Prompt:   req.Prompt,
		Duration: req.Duration,
		Status:   model.JobStatusProcessing,
	}
	if err := h.jobRepo.CreateJob(job); err != nil {
		logger.Error("Failed to create job", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to create job")
		return
	}

	plReq := pipeline.Request{
		Prompt:      req.Prompt,
		UseLyrics:   req.UseLyrics,
		Duration:    req.Duration,
		ApplyFades:  boolOrDefault(req.ApplyFades, true),
		Normalize:   boolOrDefault(req.Normalize, true),
		Compress:    req.Compress,
		AlignToBeat: boolOrDefault(req.AlignToBeat, h.cfg.AlignToBeat),
		FadeSeconds: req.FadeSeconds,
	}
	if plReq.FadeSeconds == 0 {
		plReq.FadeSeconds = h.cfg.CrossfadeSeconds
	}

	go h.runGeneration(job, plReq)

	logger.Info("Generation job accepted",
		logger.String("jobId", job.ID),
		logger.Int64("userId", userID),
		logger.String("duration", req.Duration))

	writeJSON(w, http.StatusAccepted, map[string]string{
		"jobId":  job.ID,
		"status": job.Status,
	})
}

func boolOrDefault(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

// runGeneration drives a job through the pipeline in the background and
// records the outcome in MySQL, Redis and MinIO. Progress is mirrored into
// a per-job file under WorkDir so the WebSocket watcher can push it.
func (h *APIHandler) runGeneration(job *model.Job, req pipeline.Request) {
	ctx, cancel := context.WithTimeout(context.Background(),
		time.Duration(h.cfg.ModelTimeoutSec)*time.Second*10)
	defer cancel()

	jobDir := filepath.Join(h.cfg.WorkDir, job.ID)
	if err := os.MkdirAll(jobDir, 0755); err != nil {
		logger.Warn("Failed to create job work dir", logger.ErrorField(err))
		jobDir = ""
	}
	defer func() {
		if jobDir != "" {
			go func(dir string) {
				time.Sleep(60 * time.Second)
				os.RemoveAll(dir)
			}(jobDir)
		}
	}()

	onProgress := func(stage string, segment, total int) {
		progress := &model.JobProgress{
			JobID:          job.ID,
			Stage:          stage,
			CurrentSegment: segment,
			TotalSegments:  total,
		}
		if err := cache.SetProgress(ctx, progress); err != nil {
			logger.Warn("Failed to cache progress", logger.ErrorField(err))
		}
		writeProgressFile(jobDir, progress)
	}

	result, err := h.pipeline.Run(ctx, req, onProgress)
	if err != nil {
		logger.Error("Generation failed",
			logger.String("jobId", job.ID),
			logger.ErrorField(err))
		h.failJob(ctx, job, jobDir, err.Error())
		return
	}

	objectName := fmt.Sprintf("audio/%s.wav", job.ID)
	if err := storage.UploadAudio(ctx, h.cfg.MinioBucket, objectName, result.WAV); err != nil {
		logger.Error("Failed to upload track",
			logger.String("jobId", job.ID),
			logger.ErrorField(err))
		h.failJob(ctx, job, jobDir, "failed to store generated audio")
		return
	}

	meta := result.Metadata
	if err := h.jobRepo.MarkCompleted(job.ID, objectName, meta.DurationSec, meta.SampleRate, meta.NumSegments); err != nil {
		logger.Error("Failed to mark job completed",
			logger.String("jobId", job.ID),
			logger.ErrorField(err))
		return
	}

	job.Status = model.JobStatusCompleted
	job.FilePath = objectName
	job.DurationSec = meta.DurationSec
	job.SampleRate = meta.SampleRate
	job.NumSegments = meta.NumSegments
	if err := cache.SetJob(ctx, job); err != nil {
		logger.Warn("Failed to cache job", logger.ErrorField(err))
	}
	writeProgressFile(jobDir, &model.JobProgress{JobID: job.ID, Stage: "completed"})

	logger.Info("Generation job completed",
		logger.String("jobId", job.ID),
		logger.Float64("durationSec", meta.DurationSec),
		logger.Int("numSegments", meta.NumSegments))
}

func (h *APIHandler) failJob(ctx context.Context, job *model.Job, jobDir, msg string) {
	if err := h.jobRepo.MarkFailed(job.ID, msg); err != nil {
		logger.Error("Failed to mark job failed", logger.ErrorField(err))
	}
	job.Status = model.JobStatusFailed
	job.Error = msg
	if err := cache.SetJob(ctx, job); err != nil {
		logger.Warn("Failed to cache job", logger.ErrorField(err))
	}
	writeProgressFile(jobDir, &model.JobProgress{JobID: job.ID, Stage: "failed"})
}

// writeProgressFile mirrors progress into the job work dir. The WebSocket
// handler watches this file with fsnotify.
func writeProgressFile(jobDir string, progress *model.JobProgress) {
	if jobDir == "" {
		return
	}
	data, err := json.Marshal(progress)
	if err != nil {
		return
	}
	tmp := filepath.Join(jobDir, ".progress.tmp")
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		logger.Warn("Failed to write progress file", logger.ErrorField(err))
		return
	}
	// Rename so watchers never observe a partial write.
	if err := os.Rename(tmp, filepath.Join(jobDir, "progress.json")); err != nil {
		logger.Warn("Failed to publish progress file", logger.ErrorField(err))
	}
}

// StatusHandler returns the job record plus transient progress if the job is
// still running. Completed and failed jobs come from cache when possible.
func (h *APIHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	vars := mux.Vars(r)
	jobID := vars["job_id"]
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "Job ID is required")
		return
	}

	job, err := cache.GetJob(r.Context(), jobID)
	if err != nil || job == nil {
		job, err = h.jobRepo.GetJobByID(jobID)
		if err != nil {
			logger.Error("Failed to get job",
				logger.String("jobId", jobID),
				logger.ErrorField(err))
			writeError(w, http.StatusInternalServerError, "Failed to get job")
			return
		}
	}
	if job == nil {
		writeError(w, http.StatusNotFound, "Job not found")
		return
	}
	if job.UserID != userID {
		writeError(w, http.StatusForbidden, "Forbidden")
		return
	}

	response := map[string]interface{}{"job": job}
	if job.Status == model.JobStatusProcessing {
		if progress, err := cache.GetProgress(r.Context(), jobID); err == nil && progress != nil {
			response["progress"] = progress
		}
	}
	writeJSON(w, http.StatusOK, response)
}

// DownloadHandler streams the finished WAV for a completed job.
func (h *APIHandler) DownloadHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	vars := mux.Vars(r)
	jobID := vars["job_id"]

	job, err := h.jobRepo.GetJobByID(jobID)
	if err != nil {
		logger.Error("Failed to get job for download",
			logger.String("jobId", jobID),
			logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to get job")
		return
	}
	if job == nil {
		writeError(w, http.StatusNotFound, "Job not found")
		return
	}
	if job.UserID != userID {
		writeError(w, http.StatusForbidden, "Forbidden")
		return
	}
	if job.Status != model.JobStatusCompleted || job.FilePath == "" {
		writeError(w, http.StatusConflict, fmt.Sprintf("Job is %s, nothing to download", job.Status))
		return
	}

	data, err := storage.DownloadAudio(r.Context(), h.cfg.MinioBucket, job.FilePath)
	if err != nil {
		logger.Error("Failed to download track from storage",
			logger.String("jobId", jobID),
			logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch audio")
		return
	}

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.wav"`, jobID))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(data)))
	w.Write(data)
}

// PlanHandler runs the prompt analysis without generating any audio.
func (h *APIHandler) PlanHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prompt string `json:"prompt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Prompt == "" {
		writeError(w, http.StatusBadRequest, "Prompt is required")
		return
	}

	plan := h.pipeline.Plan(req.Prompt)
	writeJSON(w, http.StatusOK, plan)
}

// LyricsHandler generates template lyrics for a mood without audio.
func (h *APIHandler) LyricsHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mood      string   `json:"mood"`
		Structure []string `json:"structure,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Mood == "" {
		writeError(w, http.StatusBadRequest, "Mood is required")
		return
	}

	result := h.pipeline.Lyrics(req.Mood, req.Structure)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"lyrics":       result,
		"conditioning": result.FormatForConditioning(),
	})
}

// JobsHandler lists the caller's recent jobs.
func (h *APIHandler) JobsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	jobs, err := h.jobRepo.GetJobsByUserID(userID, 50)
	if err != nil {
		logger.Error("Failed to list jobs",
			logger.Int64("userId", userID),
			logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"jobs": jobs})
}
