package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelMessages(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{name: "ErrItemNotFound", err: ErrItemNotFound, expected: "item not found"},
		{name: "ErrInvalidModel", err: ErrInvalidModel, expected: "invalid model"},
		{name: "ErrConditionFailed", err: ErrConditionFailed, expected: "condition check failed"},
		{name: "ErrBatchOperationFailed", err: ErrBatchOperationFailed, expected: "batch operation failed"},
		{name: "ErrInvalidTag", err: ErrInvalidTag, expected: "invalid struct tag"},
		{name: "ErrInvalidTemplate", err: ErrInvalidTemplate, expected: "invalid key template"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestNotFoundError(t *testing.T) {
	err := NewNotFound("sk")

	assert.Equal(t, "tablerow: sk not found", err.Error())
	assert.True(t, IsNotFound(err))
	assert.True(t, IsNotFound(fmt.Errorf("cursor: %w", err)))
	assert.False(t, IsConditionFailed(err))

	var nilErr *NotFoundError
	assert.Equal(t, "tablerow: not found", nilErr.Error())
}

func TestDecodeError(t *testing.T) {
	cause := errors.New("strconv.ParseInt: parsing \"abc\": invalid syntax")
	err := NewDecodeError("retry", "number", `N("abc")`, cause)

	assert.Contains(t, err.Error(), "decode retry")
	assert.Contains(t, err.Error(), "expected number")
	assert.Contains(t, err.Error(), `N("abc")`)
	assert.ErrorIs(t, err, cause)

	wrapped := fmt.Errorf("get item: %w", err)
	assert.True(t, IsDecodeError(wrapped))

	extracted, ok := AsDecodeError(wrapped)
	require.True(t, ok)
	assert.Equal(t, "retry", extracted.Field)
	assert.Equal(t, "number", extracted.Expected)

	_, ok = AsDecodeError(errors.New("other"))
	assert.False(t, ok)
}

func TestStoreError(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewStoreError("update item failed", cause)

	assert.Equal(t, "tablerow: update item failed: connection reset", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.True(t, IsStoreError(err))
	assert.False(t, IsNotFound(err))
}

func TestConditionFailedError(t *testing.T) {
	cause := &types.ConditionalCheckFailedException{}
	err := &ConditionFailedError{Op: "delete item failed", Err: cause}

	assert.True(t, IsConditionFailed(err))
	assert.True(t, IsConditionFailed(fmt.Errorf("wrapped: %w", err)))
	assert.Equal(t, "tablerow: delete item failed: condition check failed", err.Error())

	var target *types.ConditionalCheckFailedException
	assert.True(t, errors.As(err, &target))
}

func TestPartialBatchFailure(t *testing.T) {
	put := types.WriteRequest{PutRequest: &types.PutRequest{Item: map[string]types.AttributeValue{
		"pk": &types.AttributeValueMemberS{Value: "a"},
	}}}

	err := &PartialBatchFailure{Unprocessed: map[string][]types.WriteRequest{
		"users":  {put, put},
		"orders": {put},
	}}

	assert.Equal(t, 3, err.Count())
	assert.Equal(t, []string{"orders", "users"}, err.Tables())
	assert.ErrorIs(t, err, ErrBatchOperationFailed)
	assert.True(t, IsPartialBatchFailure(fmt.Errorf("batch: %w", err)))
	assert.Contains(t, err.Error(), "3 unprocessed items across 2 tables")

	joined := NewStoreError("batch write item failed", errors.Join(errors.New("validation"), err))
	extracted, ok := AsPartialBatchFailure(joined)
	require.True(t, ok)
	assert.Equal(t, 3, extracted.Count())

	var nilErr *PartialBatchFailure
	assert.Equal(t, 0, nilErr.Count())
	assert.Nil(t, nilErr.Tables())
}
