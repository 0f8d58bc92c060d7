package model

import "time"

// Job statuses, mirrored into the API responses.
const (
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// Job represents one music generation request and its lifecycle.
type Job struct {
	ID          string    `json:"jobId"`
	UserID      int64     `json:"userId"`
	Prompt      string    `json:"prompt"`
	Duration    string    `json:"duration"` // requested length class: short, medium, long
	Status      string    `json:"status"`
	Error       string    `json:"error,omitempty"`
	FilePath    string    `json:"-"` // object path in storage, not exposed directly
	DurationSec float64   `json:"durationSec,omitempty"`
	SampleRate  int       `json:"sampleRate,omitempty"`
	NumSegments int       `json:"numSegments,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// JobProgress is the transient generation progress pushed over the status
// endpoint and the progress WebSocket. It lives in Redis, not MySQL.
type JobProgress struct {
	JobID          string `json:"jobId"`
	Stage          string `json:"stage"`
	CurrentSegment int    `json:"currentSegment,omitempty"`
	TotalSegments  int    `json:"totalSegments,omitempty"`
}
