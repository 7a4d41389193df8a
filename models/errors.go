package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrAuthRequired is returned when no caller identity could be resolved.
	ErrAuthRequired = errors.New("authentication required")

	// ErrAuthUnavailable is returned when the auth service itself failed.
	// Distinct from a permission denial: a broken auth service must never
	// read as "not admin".
	ErrAuthUnavailable = errors.New("auth service unavailable")

	// ErrPermissionDenied is returned when the caller resolved but lacks the
	// admin role required for template-mutating operations.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotFound is returned when the referenced record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidSource is returned when instantiation is attempted from a
	// record that is not a template.
	ErrInvalidSource = errors.New("source record is not a template")

	// ErrTemplateFlagMismatch is returned when a write path that asserts a
	// specific is_template mode receives a record contradicting it. Never
	// silently corrected.
	ErrTemplateFlagMismatch = errors.New("is_template flag does not match call path")

	// ErrInvalidInput is returned when required instance fields are missing
	// or malformed.
	ErrInvalidInput = errors.New("invalid input")
)

// StoreErrorKind classifies store adapter failures.
type StoreErrorKind int

const (
	StoreOther StoreErrorKind = iota
	StoreTimeout
	StoreConnection
	StoreConstraint
)

func (k StoreErrorKind) String() string {
	switch k {
	case StoreTimeout:
		return "timeout"
	case StoreConnection:
		return "connection"
	case StoreConstraint:
		return "constraint"
	default:
		return "other"
	}
}

// StoreError wraps a failure from the record store adapter.
type StoreError struct {
	Kind StoreErrorKind
	Op   string
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s failed (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Retryable reports whether the failure class is worth retrying. Timeouts and
// connection drops are; constraint violations are not.
func (e *StoreError) Retryable() bool {
	return e.Kind == StoreTimeout || e.Kind == StoreConnection
}

// PartialPropagationError reports a propagation batch that completed but left
// one or more instance writes failed. The successful subset stays committed.
type PartialPropagationError struct {
	Updated   int
	FailedIDs []uuid.UUID
}

func (e *PartialPropagationError) Error() string {
	ids := make([]string, len(e.FailedIDs))
	for i, id := range e.FailedIDs {
		ids[i] = id.String()
	}
	return fmt.Sprintf("propagation partially failed: %d updated, %d failed (%s)",
		e.Updated, len(e.FailedIDs), strings.Join(ids, ", "))
}
