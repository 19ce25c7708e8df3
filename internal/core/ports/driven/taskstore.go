package driven

import (
	"context"
	"time"

	"github.com/loreweave/loreweave/internal/core/domain"
)

// TaskStore persists the durable ingestion task queue.
// Backed by SQLite so tasks survive restarts.
type TaskStore interface {
	// CreateTask stores a new pending task.
	CreateTask(ctx context.Context, task *domain.IngestionTask) error

	// GetTask retrieves a task by ID, scoped to the owner.
	// Returns domain.ErrNotFound if no such task exists for the owner.
	GetTask(ctx context.Context, ownerID, id string) (*domain.IngestionTask, error)

	// ClaimNext atomically claims the oldest claimable pending task:
	// status pending and retry-due time at or before now. The claim
	// flips the task to in_progress and increments its attempt counter
	// in the same statement, so no two workers can claim the same task.
	// Returns domain.ErrNotFound when nothing is claimable.
	ClaimNext(ctx context.Context, now time.Time) (*domain.IngestionTask, error)

	// MarkCompleted transitions a claimed task to completed and records
	// the content it produced.
	MarkCompleted(ctx context.Context, id, contentID string) error

	// MarkFailed transitions a claimed task to error with a persisted
	// failure message.
	MarkFailed(ctx context.Context, id, message string) error

	// Requeue returns a claimed task to pending with a retry-due time,
	// keeping its attempt count. Records the failure message and any
	// partial content for cleanup on the next attempt.
	Requeue(ctx context.Context, id, message, contentID string, retryAt time.Time) error

	// CancelTask transitions a pending or in_progress task to
	// cancelled. A running attempt finishes but cannot settle or
	// requeue a cancelled task. Returns domain.ErrTaskNotClaimable if
	// the task is already terminal.
	CancelTask(ctx context.Context, ownerID, id string) error

	// ListActive returns the owner's pending and in_progress tasks,
	// oldest first.
	ListActive(ctx context.Context, ownerID string) ([]domain.IngestionTask, error)

	// ListByStatus returns the owner's tasks in a given status,
	// newest first.
	ListByStatus(ctx context.Context, ownerID string, status domain.TaskStatus) ([]domain.IngestionTask, error)

	// ResetOrphaned returns in_progress tasks to pending. Called at
	// startup to recover tasks abandoned by a crashed worker.
	ResetOrphaned(ctx context.Context) (int, error)
}
