package driving

import (
	"context"

	"github.com/loreweave/loreweave/internal/core/domain"
)

// IngestionService accepts content for asynchronous ingestion and
// exposes the task queue.
type IngestionService interface {
	// Submit validates a payload and enqueues an ingestion task.
	// Returns immediately with the pending task; processing happens in
	// the background.
	Submit(ctx context.Context, ownerID string, payload domain.Payload) (*domain.IngestionTask, error)

	// SubmitFile stores file bytes and enqueues a file ingestion task.
	SubmitFile(ctx context.Context, ownerID, fileName string, data []byte, category, instructions string) (*domain.IngestionTask, error)

	// GetTask returns a single task, scoped to the owner.
	GetTask(ctx context.Context, ownerID, id string) (*domain.IngestionTask, error)

	// ListActive returns the owner's pending and in-progress tasks.
	ListActive(ctx context.Context, ownerID string) ([]domain.IngestionTask, error)

	// ListByStatus returns the owner's tasks in a given status.
	ListByStatus(ctx context.Context, ownerID string, status domain.TaskStatus) ([]domain.IngestionTask, error)

	// Cancel cancels a pending or in-progress task. Cancelling a
	// running task is best effort: the current attempt finishes but
	// its outcome is discarded. Finished tasks cannot be cancelled.
	Cancel(ctx context.Context, ownerID, id string) error
}

// PipelineWorker runs the background ingestion pipeline.
type PipelineWorker interface {
	// Start launches the worker pool and begins claiming tasks.
	// It recovers tasks orphaned by a previous run before polling.
	Start(ctx context.Context) error

	// Stop drains in-flight tasks and shuts the pool down.
	Stop()
}
