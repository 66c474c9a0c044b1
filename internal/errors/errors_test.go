package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationError(t *testing.T) {
	err := fmt.Errorf("update: %w", NewInvalidIDError(0))

	assert.True(t, IsValidationError(err))
	assert.ErrorIs(t, err, ErrInvalidID)
	assert.NotErrorIs(t, err, ErrInvalidURL)

	validationErr := GetValidationError(err)
	require.NotNil(t, validationErr)
	assert.Equal(t, "id", validationErr.Field)
	assert.Equal(t, "validation error in field 'id': ID must be a positive integer, got 0", validationErr.Error())

	assert.Equal(t, "validation error: bad", NewValidationError("", "bad").Error())
	assert.Nil(t, errors.Unwrap(NewValidationError("x", "bad")))
}

func TestBusinessError(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("list: %w", NewStoreError("failed to list records", cause))

	assert.True(t, IsStoreUnavailable(err))
	assert.False(t, IsAllocationFailed(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "list: failed to list records: connection refused", err.Error())

	alloc := NewAllocationError(5)
	assert.True(t, IsAllocationFailed(alloc))
	assert.ErrorIs(t, alloc, ErrIDConflict)
	assert.Equal(t, CodeAllocationFailed, GetBusinessError(alloc).Code)

	assert.Nil(t, GetBusinessError(ErrRecordNotFound))
	assert.False(t, IsValidationError(alloc))
}
