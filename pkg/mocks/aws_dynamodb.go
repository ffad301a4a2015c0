// Package mocks provides testify mocks for the store client tablerow drives.
package mocks

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/mock"

	"github.com/theory-cloud/tablerow/pkg/core"
)

// MockDynamoDBClient is a testify mock implementing core.Client.
//
// Example usage:
//
//	client := new(mocks.MockDynamoDBClient)
//	client.On("GetItem", mock.Anything, mock.Anything, mock.Anything).
//		Return(mocks.NewMockGetItemOutput(item), nil)
type MockDynamoDBClient struct {
	mock.Mock
}

var _ core.Client = (*MockDynamoDBClient)(nil)

// BatchWriteFunc computes a BatchWriteItem response from the request. Pass
// one to Return to script responses that depend on the input.
type BatchWriteFunc func(*dynamodb.BatchWriteItemInput) *dynamodb.BatchWriteItemOutput

// GetItem mocks the DynamoDB GetItem operation
func (m *MockDynamoDBClient) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	args := m.Called(ctx, params, optFns)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	output, ok := args.Get(0).(*dynamodb.GetItemOutput)
	if !ok {
		panic("unexpected type: expected *dynamodb.GetItemOutput")
	}
	return output, args.Error(1)
}

// PutItem mocks the DynamoDB PutItem operation
func (m *MockDynamoDBClient) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	args := m.Called(ctx, params, optFns)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	output, ok := args.Get(0).(*dynamodb.PutItemOutput)
	if !ok {
		panic("unexpected type: expected *dynamodb.PutItemOutput")
	}
	return output, args.Error(1)
}

// UpdateItem mocks the DynamoDB UpdateItem operation
func (m *MockDynamoDBClient) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	args := m.Called(ctx, params, optFns)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	output, ok := args.Get(0).(*dynamodb.UpdateItemOutput)
	if !ok {
		panic("unexpected type: expected *dynamodb.UpdateItemOutput")
	}
	return output, args.Error(1)
}

// DeleteItem mocks the DynamoDB DeleteItem operation
func (m *MockDynamoDBClient) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	args := m.Called(ctx, params, optFns)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	output, ok := args.Get(0).(*dynamodb.DeleteItemOutput)
	if !ok {
		panic("unexpected type: expected *dynamodb.DeleteItemOutput")
	}
	return output, args.Error(1)
}

// Query mocks the DynamoDB Query operation
func (m *MockDynamoDBClient) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	args := m.Called(ctx, params, optFns)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	output, ok := args.Get(0).(*dynamodb.QueryOutput)
	if !ok {
		panic("unexpected type: expected *dynamodb.QueryOutput")
	}
	return output, args.Error(1)
}

// BatchWriteItem mocks the DynamoDB BatchWriteItem operation. The first
// return value may be a BatchWriteFunc.
func (m *MockDynamoDBClient) BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	args := m.Called(ctx, params, optFns)
	switch output := args.Get(0).(type) {
	case nil:
		return nil, args.Error(1)
	case BatchWriteFunc:
		return output(params), args.Error(1)
	case *dynamodb.BatchWriteItemOutput:
		return output, args.Error(1)
	default:
		panic("unexpected type: expected *dynamodb.BatchWriteItemOutput")
	}
}

// Helper functions for creating common mock responses

// NewMockGetItemOutput creates a GetItem response carrying item. A nil item
// models a missing row.
func NewMockGetItemOutput(item map[string]types.AttributeValue) *dynamodb.GetItemOutput {
	return &dynamodb.GetItemOutput{Item: item}
}

// NewMockQueryOutput creates a Query response with an optional pagination cursor.
func NewMockQueryOutput(items []map[string]types.AttributeValue, lastEvaluatedKey map[string]types.AttributeValue) *dynamodb.QueryOutput {
	return &dynamodb.QueryOutput{
		Items:            items,
		Count:            int32(len(items)),
		LastEvaluatedKey: lastEvaluatedKey,
	}
}

// NewMockBatchWriteItemOutput creates a BatchWriteItem response leaving
// unprocessed behind.
func NewMockBatchWriteItemOutput(unprocessed map[string][]types.WriteRequest) *dynamodb.BatchWriteItemOutput {
	return &dynamodb.BatchWriteItemOutput{UnprocessedItems: unprocessed}
}

// EchoUnprocessed is a BatchWriteFunc reporting every request as unprocessed.
func EchoUnprocessed(input *dynamodb.BatchWriteItemInput) *dynamodb.BatchWriteItemOutput {
	unprocessed := make(map[string][]types.WriteRequest, len(input.RequestItems))
	for table, requests := range input.RequestItems {
		unprocessed[table] = append([]types.WriteRequest(nil), requests...)
	}
	return NewMockBatchWriteItemOutput(unprocessed)
}

// Type aliases for convenience
type (
	// DynamoDBClient is an alias for MockDynamoDBClient
	DynamoDBClient = MockDynamoDBClient
)
