package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"orpheus/cache"
	"orpheus/core/auth"
	"orpheus/logger"
	"orpheus/model"
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WebSocketProgressHandler streams live generation progress for a job. The
// job runner publishes progress into WorkDir/{job_id}/progress.json; this
// handler watches the file with fsnotify and pushes each update to the
// client. The connection closes once the job reaches a terminal stage.
//
// Browsers cannot set an Authorization header on WebSocket requests, so the
// token rides in the query string.
func (h *APIHandler) WebSocketProgressHandler(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "Authentication token required", http.StatusUnauthorized)
		return
	}
	claims, err := auth.ParseToken(token)
	if err != nil {
		logger.Warn("Invalid WebSocket token", logger.ErrorField(err))
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	jobID := vars["job_id"]

	job, err := h.jobRepo.GetJobByID(jobID)
	if err != nil || job == nil {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}
	if job.UserID != claims.UserID {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", logger.ErrorField(err))
		return
	}
	defer conn.Close()

	// Job may already be done before the client connects.
	if job.Status != model.JobStatusProcessing {
		conn.WriteJSON(&model.JobProgress{JobID: jobID, Stage: job.Status})
		return
	}

	jobDir := filepath.Join(h.cfg.WorkDir, jobID)
	progressPath := filepath.Join(jobDir, "progress.json")

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Error("Failed to create progress watcher", logger.ErrorField(err))
		return
	}
	defer watcher.Close()

	if err := watcher.Add(jobDir); err != nil {
		// Work dir may be gone already; fall back to cached progress once.
		if progress, cerr := cache.GetProgress(r.Context(), jobID); cerr == nil && progress != nil {
			conn.WriteJSON(progress)
		}
		return
	}

	// Push current state immediately so the client does not wait for the
	// next transition.
	if last := readProgressFile(progressPath); last != nil {
		if sendProgress(conn, last) || isTerminalStage(last.Stage) {
			return
		}
	}

	// Safety net against a runner that dies without writing a terminal
	// stage.
	deadline := time.NewTimer(30 * time.Minute)
	defer deadline.Stop()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Name != progressPath {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			progress := readProgressFile(progressPath)
			if progress == nil {
				continue
			}
			if sendProgress(conn, progress) || isTerminalStage(progress.Stage) {
				return
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("Progress watcher error", logger.ErrorField(err))
		case <-deadline.C:
			logger.Warn("Progress stream timed out", logger.String("jobId", jobID))
			return
		}
	}
}

func readProgressFile(path string) *model.JobProgress {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	progress := &model.JobProgress{}
	if err := json.Unmarshal(data, progress); err != nil {
		return nil
	}
	return progress
}

// sendProgress reports true when the connection is dead.
func sendProgress(conn *websocket.Conn, progress *model.JobProgress) bool {
	if err := conn.WriteJSON(progress); err != nil {
		logger.Warn("WebSocket write failed", logger.ErrorField(err))
		return true
	}
	return false
}

func isTerminalStage(stage string) bool {
	return stage == "completed" || stage == "failed"
}
