package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/loreweave/loreweave/internal/core/domain"
	"github.com/loreweave/loreweave/internal/core/ports/driven"
)

// taskStore implements driven.TaskStore.
type taskStore struct {
	store *Store
}

var _ driven.TaskStore = (*taskStore)(nil)

const taskColumns = `id, owner_id, kind, text, url, file_id, category, instructions,
	status, attempts, retry_at, error, content_id, created_at, updated_at`

// CreateTask stores a new pending task.
func (s *taskStore) CreateTask(ctx context.Context, task *domain.IngestionTask) error {
	now := time.Now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	if task.UpdatedAt.IsZero() {
		task.UpdatedAt = now
	}
	if task.Status == "" {
		task.Status = domain.TaskStatusPending
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO ingestion_tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, task.ID, task.OwnerID, task.Payload.Kind, task.Payload.Text, task.Payload.URL,
		nullString(task.Payload.FileID), task.Payload.Category, task.Payload.Instructions,
		task.Status, task.Attempts, nullTime(task.RetryAt), task.Error,
		nullString(task.ContentID), task.CreatedAt, task.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating task: %w", err)
	}
	return nil
}

// GetTask retrieves a task by ID, scoped to the owner.
func (s *taskStore) GetTask(ctx context.Context, ownerID, id string) (*domain.IngestionTask, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT `+taskColumns+` FROM ingestion_tasks WHERE id = ? AND owner_id = ?
	`, id, ownerID)
	return scanTask(row)
}

// ClaimNext atomically claims the oldest due pending task. The status
// flip and attempt increment happen in a single UPDATE, so concurrent
// claimers can never win the same task.
func (s *taskStore) ClaimNext(ctx context.Context, now time.Time) (*domain.IngestionTask, error) {
	row := s.store.db.QueryRowContext(ctx, `
		UPDATE ingestion_tasks
		SET status = ?, attempts = attempts + 1, updated_at = ?
		WHERE id = (
			SELECT id FROM ingestion_tasks
			WHERE status = ? AND (retry_at IS NULL OR retry_at <= ?)
			ORDER BY created_at
			LIMIT 1
		)
		RETURNING `+taskColumns+`
	`, domain.TaskStatusInProgress, now, domain.TaskStatusPending, now)
	return scanTask(row)
}

// MarkCompleted transitions a claimed task to completed.
func (s *taskStore) MarkCompleted(ctx context.Context, id, contentID string) error {
	return s.settle(ctx, id, domain.TaskStatusCompleted, "", contentID)
}

// MarkFailed transitions a claimed task to error.
func (s *taskStore) MarkFailed(ctx context.Context, id, message string) error {
	return s.settle(ctx, id, domain.TaskStatusError, message, "")
}

// settle moves an in_progress task to a terminal state. The status
// guard keeps a finishing worker from resurrecting a task that was
// cancelled while it ran.
func (s *taskStore) settle(ctx context.Context, id string, status domain.TaskStatus, message, contentID string) error {
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE ingestion_tasks
		SET status = ?, error = ?, content_id = COALESCE(?, content_id), updated_at = ?
		WHERE id = ? AND status = ?
	`, status, message, nullString(contentID), time.Now().UTC(), id, domain.TaskStatusInProgress)
	if err != nil {
		return fmt.Errorf("updating task: %w", err)
	}
	return s.requireInProgress(ctx, id, res)
}

// Requeue returns a claimed task to pending with a retry-due time.
// Like settle, it only touches in_progress rows.
func (s *taskStore) Requeue(ctx context.Context, id, message, contentID string, retryAt time.Time) error {
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE ingestion_tasks
		SET status = ?, error = ?, content_id = ?, retry_at = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`, domain.TaskStatusPending, message, nullString(contentID), retryAt, time.Now().UTC(), id, domain.TaskStatusInProgress)
	if err != nil {
		return fmt.Errorf("requeueing task: %w", err)
	}
	return s.requireInProgress(ctx, id, res)
}

// requireInProgress interprets a zero-row settle/requeue: the task is
// gone, or it was cancelled out from under the worker. A concurrent
// cancel wins silently.
func (s *taskStore) requireInProgress(ctx context.Context, id string, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}

	var status domain.TaskStatus
	row := s.store.db.QueryRowContext(ctx, `SELECT status FROM ingestion_tasks WHERE id = ?`, id)
	if err := row.Scan(&status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("checking task status: %w", err)
	}
	if status == domain.TaskStatusCancelled {
		return nil
	}
	return domain.ErrTaskNotClaimable
}

// CancelTask transitions a pending or in_progress task to cancelled.
// Cancelling a running task is best effort: the current attempt is
// allowed to finish, but its outcome no longer settles the task and no
// retry is scheduled. Finished tasks are not cancellable.
func (s *taskStore) CancelTask(ctx context.Context, ownerID, id string) error {
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE ingestion_tasks
		SET status = ?, updated_at = ?
		WHERE id = ? AND owner_id = ? AND status IN (?, ?)
	`, domain.TaskStatusCancelled, time.Now().UTC(), id, ownerID,
		domain.TaskStatusPending, domain.TaskStatusInProgress)
	if err != nil {
		return fmt.Errorf("cancelling task: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("cancelling task: %w", err)
	}
	if n > 0 {
		return nil
	}

	// Distinguish a missing task from one in the wrong state.
	if _, err := s.GetTask(ctx, ownerID, id); err != nil {
		return err
	}
	return domain.ErrTaskNotClaimable
}

// ListActive returns the owner's pending and in_progress tasks, oldest
// first.
func (s *taskStore) ListActive(ctx context.Context, ownerID string) ([]domain.IngestionTask, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+taskColumns+` FROM ingestion_tasks
		WHERE owner_id = ? AND status IN (?, ?)
		ORDER BY created_at
	`, ownerID, domain.TaskStatusPending, domain.TaskStatusInProgress)
	if err != nil {
		return nil, fmt.Errorf("querying active tasks: %w", err)
	}
	defer rows.Close()
	return scanTasks(rows)
}

// ListByStatus returns the owner's tasks in a given status, newest
// first.
func (s *taskStore) ListByStatus(ctx context.Context, ownerID string, status domain.TaskStatus) ([]domain.IngestionTask, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+taskColumns+` FROM ingestion_tasks
		WHERE owner_id = ? AND status = ?
		ORDER BY created_at DESC
	`, ownerID, status)
	if err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	defer rows.Close()
	return scanTasks(rows)
}

// ResetOrphaned returns in_progress tasks to pending, recovering work
// abandoned by a crashed worker.
func (s *taskStore) ResetOrphaned(ctx context.Context) (int, error) {
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE ingestion_tasks SET status = ?, updated_at = ? WHERE status = ?
	`, domain.TaskStatusPending, time.Now().UTC(), domain.TaskStatusInProgress)
	if err != nil {
		return 0, fmt.Errorf("resetting orphaned tasks: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("resetting orphaned tasks: %w", err)
	}
	return int(n), nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTaskFrom(row rowScanner) (*domain.IngestionTask, error) {
	var task domain.IngestionTask
	var fileID, contentID sql.NullString
	var retryAt sql.NullTime

	if err := row.Scan(&task.ID, &task.OwnerID, &task.Payload.Kind, &task.Payload.Text,
		&task.Payload.URL, &fileID, &task.Payload.Category, &task.Payload.Instructions,
		&task.Status, &task.Attempts, &retryAt, &task.Error, &contentID,
		&task.CreatedAt, &task.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning task: %w", err)
	}

	task.Payload.FileID = fileID.String
	task.ContentID = contentID.String
	if retryAt.Valid {
		task.RetryAt = retryAt.Time
	}
	return &task, nil
}

func scanTask(row *sql.Row) (*domain.IngestionTask, error) {
	return scanTaskFrom(row)
}

func scanTasks(rows *sql.Rows) ([]domain.IngestionTask, error) {
	var tasks []domain.IngestionTask
	for rows.Next() {
		task, err := scanTaskFrom(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tasks: %w", err)
	}
	return tasks, nil
}

// nullTime converts a zero time to a NULL-able value.
func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
