package repository

import (
	"database/sql"
	"fmt"
	"time"

	"orpheus/db"
	"orpheus/model"
)

// JobRepository defines the interface for job data operations.
type JobRepository interface {
	CreateJob(job *model.Job) error
	GetJobByID(id string) (*model.Job, error)
	GetJobsByUserID(userID int64, limit int) ([]*model.Job, error)
	MarkCompleted(id, filePath string, durationSec float64, sampleRate, numSegments int) error
	MarkFailed(id, errMsg string) error
}

// mysqlJobRepository implements JobRepository for MySQL.
type mysqlJobRepository struct {
	DB *sql.DB
}

// NewMySQLJobRepository creates a new instance of mysqlJobRepository.
func NewMySQLJobRepository() JobRepository {
	return &mysqlJobRepository{DB: db.DB}
}

// CreateJob inserts a new job in processing state.
func (r *mysqlJobRepository) CreateJob(job *model.Job) error {
	query := `INSERT INTO jobs (id, user_id, prompt, duration, status, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`
	stmt, err := r.DB.Prepare(query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement for CreateJob: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	if _, err := stmt.Exec(job.ID, job.UserID, job.Prompt, job.Duration, job.Status, now, now); err != nil {
		return fmt.Errorf("failed to execute CreateJob: %w", err)
	}
	return nil
}

// GetJobByID retrieves a job by its ID. Returns (nil, nil) when not found.
func (r *mysqlJobRepository) GetJobByID(id string) (*model.Job, error) {
	query := `SELECT id, user_id, prompt, duration, status, COALESCE(error, ''), COALESCE(file_path, ''),
	                  COALESCE(duration_sec, 0), COALESCE(sample_rate, 0), COALESCE(num_segments, 0),
	                  created_at, updated_at
	           FROM jobs WHERE id = ?`
	row := r.DB.QueryRow(query, id)

	job := &model.Job{}
	err := row.Scan(&job.ID, &job.UserID, &job.Prompt, &job.Duration, &job.Status, &job.Error,
		&job.FilePath, &job.DurationSec, &job.SampleRate, &job.NumSegments,
		&job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Job not found
		}
		return nil, fmt.Errorf("failed to scan job by ID %s: %w", id, err)
	}
	return job, nil
}

// GetJobsByUserID retrieves the most recent jobs for a user.
func (r *mysqlJobRepository) GetJobsByUserID(userID int64, limit int) ([]*model.Job, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, user_id, prompt, duration, status, COALESCE(error, ''), COALESCE(file_path, ''),
	                  COALESCE(duration_sec, 0), COALESCE(sample_rate, 0), COALESCE(num_segments, 0),
	                  created_at, updated_at
	           FROM jobs WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`
	rows, err := r.DB.Query(query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs for user ID %d: %w", userID, err)
	}
	defer rows.Close()

	jobs := make([]*model.Job, 0)
	for rows.Next() {
		job := &model.Job{}
		if err := rows.Scan(&job.ID, &job.UserID, &job.Prompt, &job.Duration, &job.Status, &job.Error,
			&job.FilePath, &job.DurationSec, &job.SampleRate, &job.NumSegments,
			&job.CreatedAt, &job.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan job row: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating job rows: %w", err)
	}
	return jobs, nil
}

// MarkCompleted records a finished job and its output location.
func (r *mysqlJobRepository) MarkCompleted(id, filePath string, durationSec float64, sampleRate, numSegments int) error {
	query := `UPDATE jobs SET status = ?, file_path = ?, duration_sec = ?, sample_rate = ?,
	                  num_segments = ?, error = NULL, updated_at = ? WHERE id = ?`
	if _, err := r.DB.Exec(query, model.JobStatusCompleted, filePath, durationSec, sampleRate,
		numSegments, time.Now(), id); err != nil {
		return fmt.Errorf("failed to mark job %s completed: %w", id, err)
	}
	return nil
}

// MarkFailed records a failed job with its error message.
func (r *mysqlJobRepository) MarkFailed(id, errMsg string) error {
	query := `UPDATE jobs SET status = ?, error = ?, updated_at = ? WHERE id = ?`
	if _, err := r.DB.Exec(query, model.JobStatusFailed, errMsg, time.Now(), id); err != nil {
		return fmt.Errorf("failed to mark job %s failed: %w", id, err)
	}
	return nil
}
