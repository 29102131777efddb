package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestErrorTypes tests all predefined error variables
func TestErrorTypes(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{name: "ErrItemNotFound", err: ErrItemNotFound, expected: "item not found"},
		{name: "ErrMissingPrimaryKey", err: ErrMissingPrimaryKey, expected: "missing primary key"},
		{name: "ErrConditionFailed", err: ErrConditionFailed, expected: "condition check failed"},
		{name: "ErrBatchOperationFailed", err: ErrBatchOperationFailed, expected: "batch operation failed"},
		{name: "ErrInvalidBatchSize", err: ErrInvalidBatchSize, expected: "invalid batch size"},
		{name: "ErrUnsupportedType", err: ErrUnsupportedType, expected: "unsupported type"},
		{name: "ErrInvalidOperator", err: ErrInvalidOperator, expected: "invalid expression operator"},
		{name: "ErrInvalidTableProps", err: ErrInvalidTableProps, expected: "invalid table definition"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestTableKitError(t *testing.T) {
	t.Run("with table", func(t *testing.T) {
		err := NewError("put", "users", ErrConditionFailed)
		assert.Equal(t, "tablekit: put operation on users failed: condition check failed", err.Error())
		assert.True(t, errors.Is(err, ErrConditionFailed))
		assert.True(t, IsConditionFailed(err))
		assert.Equal(t, ErrConditionFailed, errors.Unwrap(err))
	})

	t.Run("without table", func(t *testing.T) {
		err := NewError("get", "", ErrItemNotFound)
		assert.Equal(t, "tablekit: get operation failed: item not found", err.Error())
		assert.True(t, IsNotFound(err))
	})

	t.Run("wrapped twice", func(t *testing.T) {
		err := fmt.Errorf("outer: %w", NewError("get", "users", ErrItemNotFound))
		var tkErr *TableKitError
		require.True(t, errors.As(err, &tkErr))
		assert.Equal(t, "users", tkErr.Table)
	})
}

func TestBatchError(t *testing.T) {
	cause := errors.New("throttled")
	err := &BatchError{Err: cause, Table: "users", Chunk: 2, Size: 25}

	assert.Equal(t, "tablekit: batch chunk 2 (25 items) on users failed: throttled", err.Error())
	assert.True(t, errors.Is(err, cause))

	var nilErr *BatchError
	assert.Equal(t, "tablekit: batch chunk failed", nilErr.Error())
	assert.Nil(t, nilErr.Unwrap())
}

func TestDrainError(t *testing.T) {
	err := &DrainError{Table: "users", Rounds: 3, Pending: 4}

	assert.Equal(t, "tablekit: 4 unprocessed items left on users after 3 rounds", err.Error())
	assert.True(t, IsBatchFailure(err))
	assert.True(t, IsBatchFailure(fmt.Errorf("wrapped: %w", err)))
	assert.False(t, IsBatchFailure(ErrItemNotFound))
}
