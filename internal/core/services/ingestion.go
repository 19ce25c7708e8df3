package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/loreweave/loreweave/internal/core/domain"
	"github.com/loreweave/loreweave/internal/core/ports/driven"
	"github.com/loreweave/loreweave/internal/core/ports/driving"
	"github.com/loreweave/loreweave/internal/logger"
)

// Ensure IngestionService implements the interface.
var _ driving.IngestionService = (*IngestionService)(nil)

// IngestionService accepts content submissions and manages the task
// queue. Submission is synchronous and cheap; the pipeline worker does
// the heavy lifting in the background.
type IngestionService struct {
	taskStore driven.TaskStore
	fileStore driven.FileStore
}

// NewIngestionService creates a new ingestion service.
// The fileStore parameter is optional; without it, file submissions fail.
func NewIngestionService(taskStore driven.TaskStore, fileStore driven.FileStore) *IngestionService {
	return &IngestionService{
		taskStore: taskStore,
		fileStore: fileStore,
	}
}

// Submit validates a payload and enqueues an ingestion task.
func (s *IngestionService) Submit(
	ctx context.Context, ownerID string, payload domain.Payload,
) (*domain.IngestionTask, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("submit: %w", domain.ErrInvalidInput)
	}
	if err := payload.Validate(); err != nil {
		return nil, fmt.Errorf("submit: %w", err)
	}

	now := time.Now().UTC()
	task := &domain.IngestionTask{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Payload:   payload,
		Status:    domain.TaskStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.taskStore.CreateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	logger.Info("Enqueued %s task %s", task.Payload.Kind, task.ID)
	return task, nil
}

// SubmitFile stores file bytes and enqueues a file ingestion task.
// Resubmitting identical bytes reuses the stored file.
func (s *IngestionService) SubmitFile(
	ctx context.Context, ownerID, fileName string, data []byte, category, instructions string,
) (*domain.IngestionTask, error) {
	if s.fileStore == nil {
		return nil, fmt.Errorf("submit file: %w", domain.ErrUnsupportedType)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("submit file: %w", domain.ErrInvalidInput)
	}

	ref, err := s.fileStore.Store(ctx, ownerID, fileName, data)
	if err != nil {
		return nil, fmt.Errorf("store file: %w", err)
	}
	logger.Debug("Stored file %s as %s (%s)", fileName, ref.ID, ref.MIMEType)

	return s.Submit(ctx, ownerID, domain.Payload{
		Kind:         domain.PayloadFile,
		FileID:       ref.ID,
		Category:     category,
		Instructions: instructions,
	})
}

// GetTask returns a single task, scoped to the owner.
func (s *IngestionService) GetTask(ctx context.Context, ownerID, id string) (*domain.IngestionTask, error) {
	return s.taskStore.GetTask(ctx, ownerID, id)
}

// ListActive returns the owner's pending and in-progress tasks.
func (s *IngestionService) ListActive(ctx context.Context, ownerID string) ([]domain.IngestionTask, error) {
	return s.taskStore.ListActive(ctx, ownerID)
}

// ListByStatus returns the owner's tasks in a given status.
func (s *IngestionService) ListByStatus(
	ctx context.Context, ownerID string, status domain.TaskStatus,
) ([]domain.IngestionTask, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("list tasks: %w", domain.ErrInvalidInput)
	}
	return s.taskStore.ListByStatus(ctx, ownerID, status)
}

// Cancel cancels a pending or in-progress task. A task already claimed
// by a worker runs to completion of its current attempt, but the
// outcome is discarded and no retry is scheduled.
func (s *IngestionService) Cancel(ctx context.Context, ownerID, id string) error {
	if err := s.taskStore.CancelTask(ctx, ownerID, id); err != nil {
		return fmt.Errorf("cancel task: %w", err)
	}
	logger.Info("Cancelled task %s", id)
	return nil
}
