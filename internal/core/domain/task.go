package domain

import "time"

// TaskStatus identifies the lifecycle state of an ingestion task.
type TaskStatus string

// Task lifecycle states.
const (
	// TaskStatusPending means the task is waiting to be claimed by a worker.
	// Retried tasks return to Pending with a retry-due time in the future.
	TaskStatusPending TaskStatus = "pending"

	// TaskStatusInProgress means a worker has claimed the task.
	TaskStatusInProgress TaskStatus = "in_progress"

	// TaskStatusCompleted is terminal: the pipeline ran to completion.
	TaskStatusCompleted TaskStatus = "completed"

	// TaskStatusError is terminal: the task failed permanently.
	// The failure message is preserved for user visibility.
	TaskStatusError TaskStatus = "error"

	// TaskStatusCancelled is terminal: the task was cancelled by its owner.
	TaskStatusCancelled TaskStatus = "cancelled"
)

// IsValid returns true if the status is recognised.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted,
		TaskStatusError, TaskStatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal returns true if no further transitions are possible.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusError, TaskStatusCancelled:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (s TaskStatus) String() string {
	return string(s)
}

// PayloadKind identifies the variant of an ingestion payload.
type PayloadKind string

// Payload variants.
const (
	// PayloadText is inline plain text.
	PayloadText PayloadKind = "text"

	// PayloadURL is a web page to fetch and extract.
	PayloadURL PayloadKind = "url"

	// PayloadFile is a stored file (PDF, image or audio) referenced by
	// its FileRef.
	PayloadFile PayloadKind = "file"
)

// IsValid returns true if the payload kind is recognised.
func (k PayloadKind) IsValid() bool {
	switch k {
	case PayloadText, PayloadURL, PayloadFile:
		return true
	default:
		return false
	}
}

// Payload is the content submitted for ingestion. Exactly one of Text,
// URL or FileID is set, according to Kind. Every consumer must switch on
// Kind exhaustively.
type Payload struct {
	// Kind selects the active variant.
	Kind PayloadKind

	// Text is the inline content for PayloadText.
	Text string

	// URL is the page address for PayloadURL.
	URL string

	// FileID references a stored FileRef for PayloadFile.
	FileID string

	// Category classifies the resulting content (e.g. "notes", "papers").
	Category string

	// Instructions is free-text context supplied by the owner, passed to
	// the knowledge extractor.
	Instructions string
}

// Validate checks that the payload variant is well formed.
func (p *Payload) Validate() error {
	switch p.Kind {
	case PayloadText:
		if p.Text == "" {
			return ErrInvalidInput
		}
	case PayloadURL:
		if p.URL == "" {
			return ErrInvalidInput
		}
	case PayloadFile:
		if p.FileID == "" {
			return ErrInvalidInput
		}
	default:
		return ErrUnsupportedType
	}
	return nil
}

// IngestionTask is a durable unit of ingestion work. Tasks are created on
// submission and mutated only by the pipeline orchestrator.
type IngestionTask struct {
	// ID is the unique identifier for the task.
	ID string

	// OwnerID scopes the task and everything it produces to one owner.
	OwnerID string

	// Payload is the submitted content.
	Payload Payload

	// Status is the current lifecycle state.
	Status TaskStatus

	// Attempts counts how many times a worker has claimed the task.
	Attempts int

	// RetryAt is the earliest time a pending task may be claimed again.
	// Zero for tasks that have never failed.
	RetryAt time.Time

	// Error is the persisted failure message for TaskStatusError tasks.
	Error string

	// ContentID links to the Content produced by a (possibly partial)
	// pipeline run. Used for cleanup before a retry.
	ContentID string

	// CreatedAt is when the task was submitted.
	CreatedAt time.Time

	// UpdatedAt is when the task last changed state.
	UpdatedAt time.Time
}
