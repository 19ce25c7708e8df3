package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a record already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown payload kind or MIME type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrTaskNotClaimable indicates the task is not in a claimable state.
	ErrTaskNotClaimable = errors.New("task not claimable")

	// ErrDimensionMismatch indicates a stored vector's length does not
	// match the configured embedding dimension. Raised loudly instead of
	// silently truncating or padding; a dimension change requires a full
	// re-embed.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrOwnershipViolation indicates an operation addressed another
	// owner's records. Never retried.
	ErrOwnershipViolation = errors.New("record belongs to another owner")

	// ErrEmbeddingUnavailable indicates the embedding service is not
	// configured. Vector search is disabled without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrNoReadableContent indicates a fetched page or file yielded no
	// extractable text.
	ErrNoReadableContent = errors.New("no readable content")
)

// Failure classes for pipeline steps. Every step error is wrapped in
// exactly one class so the orchestrator can decide between retry and
// terminal failure without inspecting adapter internals.

// TransientError marks a failure worth retrying: network faults,
// timeouts, rate limits.
type TransientError struct {
	Err error
}

// Error implements the error interface.
func (e *TransientError) Error() string {
	return fmt.Sprintf("transient: %v", e.Err)
}

// Unwrap exposes the underlying error.
func (e *TransientError) Unwrap() error {
	return e.Err
}

// Transient wraps err as retryable. Returns nil for a nil err.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// ValidationError marks a failure that retrying will not fix: schema
// mismatches, unsupported formats, dimension mismatches.
type ValidationError struct {
	Err error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %v", e.Err)
}

// Unwrap exposes the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Validation wraps err as an unrecoverable input failure. Returns nil
// for a nil err.
func Validation(err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Err: err}
}

// ConfigurationError marks a failure an operator must fix: missing
// credentials, unreachable provider. Distinguished from TransientError so
// the pipeline stops retrying uselessly.
type ConfigurationError struct {
	Err error
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %v", e.Err)
}

// Unwrap exposes the underlying error.
func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// Configuration wraps err as an operator problem. Returns nil for a nil
// err.
func Configuration(err error) error {
	if err == nil {
		return nil
	}
	return &ConfigurationError{Err: err}
}

// IsTransient reports whether err is classified as retryable.
func IsTransient(err error) bool {
	var t *TransientError
	return errors.As(err, &t)
}

// IsValidation reports whether err is classified as a validation failure.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsConfiguration reports whether err is classified as a configuration
// failure.
func IsConfiguration(err error) bool {
	var c *ConfigurationError
	return errors.As(err, &c)
}

// IsRetryable reports whether the orchestrator should schedule another
// attempt for err. Only transient failures are retried; validation,
// configuration and ownership failures are terminal.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrOwnershipViolation) {
		return false
	}
	if IsValidation(err) || IsConfiguration(err) {
		return false
	}
	return IsTransient(err)
}
