package mocks_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/theory-cloud/tablerow/pkg/mocks"
)

func TestMockDynamoDBClientGetItem(t *testing.T) {
	client := new(mocks.MockDynamoDBClient)
	ctx := context.Background()
	item := map[string]types.AttributeValue{"pk": &types.AttributeValueMemberS{Value: "a"}}

	client.On("GetItem", ctx, mock.Anything, mock.Anything).Return(mocks.NewMockGetItemOutput(item), nil).Once()
	client.On("GetItem", ctx, mock.Anything, mock.Anything).Return(nil, errors.New("boom")).Once()

	out, err := client.GetItem(ctx, &dynamodb.GetItemInput{TableName: aws.String("t")})
	require.NoError(t, err)
	assert.Equal(t, item, out.Item)

	out, err = client.GetItem(ctx, &dynamodb.GetItemInput{TableName: aws.String("t")})
	assert.Nil(t, out)
	assert.EqualError(t, err, "boom")

	client.AssertExpectations(t)
}

func TestMockDynamoDBClientWrites(t *testing.T) {
	client := new(mocks.MockDynamoDBClient)
	ctx := context.Background()

	client.On("PutItem", ctx, mock.Anything, mock.Anything).Return(&dynamodb.PutItemOutput{}, nil)
	client.On("UpdateItem", ctx, mock.Anything, mock.Anything).Return(&dynamodb.UpdateItemOutput{}, nil)
	client.On("DeleteItem", ctx, mock.Anything, mock.Anything).Return(&dynamodb.DeleteItemOutput{}, nil)

	_, err := client.PutItem(ctx, &dynamodb.PutItemInput{})
	require.NoError(t, err)
	_, err = client.UpdateItem(ctx, &dynamodb.UpdateItemInput{})
	require.NoError(t, err)
	_, err = client.DeleteItem(ctx, &dynamodb.DeleteItemInput{})
	require.NoError(t, err)

	client.AssertExpectations(t)
}

func TestMockQueryOutput(t *testing.T) {
	items := []map[string]types.AttributeValue{{"pk": &types.AttributeValueMemberS{Value: "a"}}}
	last := map[string]types.AttributeValue{"pk": &types.AttributeValueMemberS{Value: "a"}}

	out := mocks.NewMockQueryOutput(items, last)
	assert.Equal(t, int32(1), out.Count)
	assert.Equal(t, last, out.LastEvaluatedKey)
}

func TestBatchWriteFuncEchoesUnprocessed(t *testing.T) {
	client := new(mocks.MockDynamoDBClient)
	ctx := context.Background()

	client.On("BatchWriteItem", ctx, mock.Anything, mock.Anything).
		Return(mocks.BatchWriteFunc(mocks.EchoUnprocessed), nil)

	requests := []types.WriteRequest{{DeleteRequest: &types.DeleteRequest{}}}
	out, err := client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
		RequestItems: map[string][]types.WriteRequest{"t": requests},
	})
	require.NoError(t, err)
	assert.Equal(t, requests, out.UnprocessedItems["t"])
}
