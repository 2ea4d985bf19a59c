package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrPersistence wraps every storage write failure. Write-path callers log it and move on.
	ErrPersistence = errors.New("persistence failure")
	ErrForbidden   = errors.New("forbidden")
	ErrNotFound    = errors.New("not found")
	// ErrEmptyFilter guards Delete against wiping the whole store by accident.
	ErrEmptyFilter = errors.New("delete requires at least one filter criterion")
)

// SchemaViolation rejects malformed or out-of-enumeration input. Field uses the JSON name.
type SchemaViolation struct {
	Field  string
	Reason string
}

func (e *SchemaViolation) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// QueryError is a read-path failure, always surfaced to the caller.
type QueryError struct {
	Op  string
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query %s failed: %v", e.Op, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// BatchError reports which rows of an unordered insert-many were rejected.
// Rows not listed were written.
type BatchError struct {
	Failed map[int]error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("%d of the batch rows failed", len(e.Failed))
}

func (e *BatchError) Unwrap() error { return ErrPersistence }
