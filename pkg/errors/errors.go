// Package errors defines error types and utilities for TableKit
package errors

import (
	"errors"
	"fmt"
)

// Common errors that can occur in TableKit operations
var (
	// ErrItemNotFound is returned when an item is not found in the table
	ErrItemNotFound = errors.New("item not found")

	// ErrMissingPrimaryKey is returned when an item lacks its partition key attribute
	ErrMissingPrimaryKey = errors.New("missing primary key")

	// ErrConditionFailed is returned when a condition check fails
	ErrConditionFailed = errors.New("condition check failed")

	// ErrBatchOperationFailed is returned when a batch operation could not be completed
	ErrBatchOperationFailed = errors.New("batch operation failed")

	// ErrInvalidBatchSize is returned when a queue is configured outside 1..25 items per chunk
	ErrInvalidBatchSize = errors.New("invalid batch size")

	// ErrUnsupportedType is returned when a value cannot be converted to an attribute value
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrInvalidOperator is returned when an invalid expression operator is used
	ErrInvalidOperator = errors.New("invalid expression operator")

	// ErrInvalidTableProps is returned when a table definition is incomplete
	ErrInvalidTableProps = errors.New("invalid table definition")
)

// TableKitError represents a detailed error with context
type TableKitError struct {
	Err   error
	Op    string
	Table string
}

// Error implements the error interface
func (e *TableKitError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("tablekit: %s operation failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("tablekit: %s operation on %s failed: %v", e.Op, e.Table, e.Err)
}

// Unwrap returns the underlying error
func (e *TableKitError) Unwrap() error {
	return e.Err
}

// Is checks if the error matches the target error
func (e *TableKitError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewError creates a new TableKitError
func NewError(op, table string, err error) *TableKitError {
	return &TableKitError{
		Op:    op,
		Table: table,
		Err:   err,
	}
}

// BatchError reports a transport failure for one chunk of a batch write.
// Items of a failed chunk are never re-enqueued.
type BatchError struct {
	Err   error
	Table string
	Chunk int
	Size  int
}

func (e *BatchError) Error() string {
	if e == nil {
		return "tablekit: batch chunk failed"
	}
	return fmt.Sprintf("tablekit: batch chunk %d (%d items) on %s failed: %v", e.Chunk, e.Size, e.Table, e.Err)
}

// Unwrap returns the transport error.
func (e *BatchError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// DrainError is returned when a drain loop runs out of rounds with chunks still pending.
type DrainError struct {
	Table   string
	Rounds  int
	Pending int
}

func (e *DrainError) Error() string {
	return fmt.Sprintf("tablekit: %d unprocessed items left on %s after %d rounds", e.Pending, e.Table, e.Rounds)
}

// Is reports DrainError as a batch failure.
func (e *DrainError) Is(target error) bool {
	return target == ErrBatchOperationFailed
}

// IsNotFound checks if an error indicates an item was not found
func IsNotFound(err error) bool {
	return errors.Is(err, ErrItemNotFound)
}

// IsConditionFailed checks if an error indicates a condition check failure
func IsConditionFailed(err error) bool {
	return errors.Is(err, ErrConditionFailed)
}

// IsBatchFailure checks if an error indicates an incomplete batch operation
func IsBatchFailure(err error) bool {
	return errors.Is(err, ErrBatchOperationFailed)
}
