package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// ImportManuscriptTask is scheduled each time a manuscript PDF is
	// uploaded for chapter extraction.
	ImportManuscriptTask = "manuscript:import"
	// CleanupArtifactsTask sweeps expired export artifacts from storage.
	CleanupArtifactsTask = "export:cleanup"
)

// ImportPayload is serialized into the task payload so the worker knows
// which uploaded object to ingest and which book receives the chapters.
type ImportPayload struct {
	BookID    string `json:"book_id"`
	ObjectKey string `json:"object_key"`
	FileName  string `json:"file_name"`
}

// EnqueueImport enqueues a manuscript import job.
func EnqueueImport(ctx context.Context, client *asynq.Client, payload ImportPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	task := asynq.NewTask(ImportManuscriptTask, data)
	if _, err := client.EnqueueContext(ctx, task, asynq.MaxRetry(5)); err != nil {
		return fmt.Errorf("enqueue import task: %w", err)
	}
	return nil
}

// NewCleanupTask builds the periodic artifact sweep task registered with the
// asynq scheduler.
func NewCleanupTask() *asynq.Task {
	return asynq.NewTask(CleanupArtifactsTask, nil)
}
