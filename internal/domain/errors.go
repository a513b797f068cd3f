package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrUnauthenticated    = errors.New("authentication required")
	ErrSessionExpired     = errors.New("session expired")
	ErrInvalidToken       = errors.New("invalid security token")
	ErrRateLimited        = errors.New("too many login attempts")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrDuplicateID        = errors.New("product id already exists")
	ErrNotFound           = errors.New("not found")
	ErrStorage            = errors.New("storage error")
	ErrOrphanedRecord     = errors.New("orphaned record")
)

// ValidationError reports a missing or malformed input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError builds a field-level validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// StorageError wraps a failed file or database operation.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// OrphanedRecordError describes a manifest entry without a data file, or a
// data directory the manifest does not list.
type OrphanedRecordError struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

func (e *OrphanedRecordError) Error() string {
	return fmt.Sprintf("orphaned record %q: %s", e.ID, e.Reason)
}

func (e *OrphanedRecordError) Is(target error) bool { return target == ErrOrphanedRecord }

// RateLimitError is returned when a client exceeded its login attempts.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%v, retry after %s", ErrRateLimited, e.RetryAfter.Round(time.Second))
}

func (e *RateLimitError) Is(target error) bool { return target == ErrRateLimited }
