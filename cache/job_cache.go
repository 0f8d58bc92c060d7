package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"orpheus/logger"
	"orpheus/model"

	"github.com/go-redis/redis/v8"
)

// Job snapshots are hot for the duration of a generation plus a polling
// tail; the database remains the source of truth after expiry.
const (
	jobSnapshotTTL = 30 * time.Minute
	progressTTL    = 10 * time.Minute
)

// jobKey builds the Redis key for a job snapshot.
func jobKey(jobID string) string {
	return fmt.Sprintf("job:%s", jobID)
}

// jobProgressKey builds the Redis key for transient generation progress.
func jobProgressKey(jobID string) string {
	return fmt.Sprintf("job:%s:progress", jobID)
}

// SetJob caches a snapshot of the job so status polling does not hit MySQL.
func SetJob(ctx context.Context, job *model.Job) error {
	if RedisClient == nil {
		return fmt.Errorf("Redis client not initialized")
	}

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	if err := RedisClient.Set(ctx, jobKey(job.ID), data, jobSnapshotTTL).Err(); err != nil {
		logger.Error("failed to cache job snapshot",
			logger.String("jobId", job.ID),
			logger.ErrorField(err))
		return err
	}
	return nil
}

// GetJob returns the cached job snapshot, or (nil, nil) on a cache miss so
// the caller falls through to the database.
func GetJob(ctx context.Context, jobID string) (*model.Job, error) {
	if RedisClient == nil {
		return nil, fmt.Errorf("Redis client not initialized")
	}

	data, err := RedisClient.Get(ctx, jobKey(jobID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		// Cache trouble is not fatal; the database still has the job.
		logger.Warn("failed to read job snapshot from cache",
			logger.String("jobId", jobID),
			logger.ErrorField(err))
		return nil, nil
	}

	var job model.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached job: %w", err)
	}
	return &job, nil
}

// DeleteJob drops the cached snapshot, forcing the next read to MySQL.
func DeleteJob(ctx context.Context, jobID string) error {
	if RedisClient == nil {
		return fmt.Errorf("Redis client not initialized")
	}
	return RedisClient.Del(ctx, jobKey(jobID)).Err()
}

// SetProgress publishes transient generation progress for the status
// endpoint and WebSocket pushes.
func SetProgress(ctx context.Context, progress *model.JobProgress) error {
	if RedisClient == nil {
		return fmt.Errorf("Redis client not initialized")
	}

	data, err := json.Marshal(progress)
	if err != nil {
		return fmt.Errorf("failed to marshal job progress: %w", err)
	}
	return RedisClient.Set(ctx, jobProgressKey(progress.JobID), data, progressTTL).Err()
}

// GetProgress returns the latest progress, or (nil, nil) when none exists.
func GetProgress(ctx context.Context, jobID string) (*model.JobProgress, error) {
	if RedisClient == nil {
		return nil, fmt.Errorf("Redis client not initialized")
	}

	data, err := RedisClient.Get(ctx, jobProgressKey(jobID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read job progress: %w", err)
	}

	var progress model.JobProgress
	if err := json.Unmarshal(data, &progress); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job progress: %w", err)
	}
	return &progress, nil
}
