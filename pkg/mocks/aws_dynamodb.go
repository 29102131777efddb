// Package mocks provides testify mocks for the DynamoDB client and table waiter
// used by tablekit.
//
// Example usage:
//
//	mockClient := new(mocks.MockDynamoDBClient)
//	mockClient.On("BatchWriteItem", mock.Anything, mock.Anything, mock.Anything).
//	    Return(mocks.NewMockBatchWriteItemOutput("orders"), nil)
//
//	table := tablekit.NewTable(mockClient, props)
package mocks

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/mock"
)

// MockDynamoDBClient implements interfaces.DynamoDBClientInterface.
// Expectations receive (ctx, params, optFns).
type MockDynamoDBClient struct {
	mock.Mock
}

func result[T any](args mock.Arguments) (*T, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	output, ok := args.Get(0).(*T)
	if !ok {
		panic(fmt.Sprintf("unexpected type: expected %T, got %T", output, args.Get(0)))
	}
	return output, args.Error(1)
}

// CreateTable mocks the DynamoDB CreateTable operation
func (m *MockDynamoDBClient) CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	return result[dynamodb.CreateTableOutput](m.Called(ctx, params, optFns))
}

// DescribeTable mocks the DynamoDB DescribeTable operation
func (m *MockDynamoDBClient) DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	return result[dynamodb.DescribeTableOutput](m.Called(ctx, params, optFns))
}

// DeleteTable mocks the DynamoDB DeleteTable operation
func (m *MockDynamoDBClient) DeleteTable(ctx context.Context, params *dynamodb.DeleteTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteTableOutput, error) {
	return result[dynamodb.DeleteTableOutput](m.Called(ctx, params, optFns))
}

// GetItem mocks the DynamoDB GetItem operation
func (m *MockDynamoDBClient) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return result[dynamodb.GetItemOutput](m.Called(ctx, params, optFns))
}

// PutItem mocks the DynamoDB PutItem operation
func (m *MockDynamoDBClient) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	return result[dynamodb.PutItemOutput](m.Called(ctx, params, optFns))
}

// DeleteItem mocks the DynamoDB DeleteItem operation
func (m *MockDynamoDBClient) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	return result[dynamodb.DeleteItemOutput](m.Called(ctx, params, optFns))
}

// UpdateItem mocks the DynamoDB UpdateItem operation
func (m *MockDynamoDBClient) UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	return result[dynamodb.UpdateItemOutput](m.Called(ctx, params, optFns))
}

// Query mocks the DynamoDB Query operation
func (m *MockDynamoDBClient) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	return result[dynamodb.QueryOutput](m.Called(ctx, params, optFns))
}

// BatchWriteItem mocks the DynamoDB BatchWriteItem operation
func (m *MockDynamoDBClient) BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	return result[dynamodb.BatchWriteItemOutput](m.Called(ctx, params, optFns))
}

// MockTableExistsWaiter provides a mock implementation of the DynamoDB table exists waiter
//
// Example usage:
//
//	mockWaiter := new(mocks.MockTableExistsWaiter)
//	mockWaiter.On("Wait", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
type MockTableExistsWaiter struct {
	mock.Mock
}

// Wait mocks waiting for a table to exist
func (m *MockTableExistsWaiter) Wait(ctx context.Context, params *dynamodb.DescribeTableInput, maxWaitDur time.Duration, optFns ...func(*dynamodb.TableExistsWaiterOptions)) error {
	args := m.Called(ctx, params, maxWaitDur, optFns)
	return args.Error(0)
}

// Helper functions for creating common mock responses

// NewMockCreateTableOutput creates a mock CreateTable response
func NewMockCreateTableOutput(tableName string) *dynamodb.CreateTableOutput {
	return &dynamodb.CreateTableOutput{
		TableDescription: &types.TableDescription{
			TableName:   &tableName,
			TableStatus: types.TableStatusCreating,
		},
	}
}

// NewMockDescribeTableOutput creates a mock DescribeTable response
func NewMockDescribeTableOutput(tableName string, status types.TableStatus) *dynamodb.DescribeTableOutput {
	return &dynamodb.DescribeTableOutput{
		Table: &types.TableDescription{
			TableName:   &tableName,
			TableStatus: status,
		},
	}
}

// NewMockDeleteTableOutput creates a mock DeleteTable response
func NewMockDeleteTableOutput(tableName string) *dynamodb.DeleteTableOutput {
	return &dynamodb.DeleteTableOutput{
		TableDescription: &types.TableDescription{
			TableName:   &tableName,
			TableStatus: types.TableStatusDeleting,
		},
	}
}

// NewMockBatchWriteItemOutput creates a BatchWriteItem response reporting
// unprocessed as unprocessed for tableName.
func NewMockBatchWriteItemOutput(tableName string, unprocessed ...types.WriteRequest) *dynamodb.BatchWriteItemOutput {
	out := &dynamodb.BatchWriteItemOutput{
		UnprocessedItems: map[string][]types.WriteRequest{},
	}
	if len(unprocessed) > 0 {
		out.UnprocessedItems[tableName] = unprocessed
	}
	return out
}

// NewResourceNotFoundError creates the error DescribeTable returns for a missing table
func NewResourceNotFoundError(tableName string) error {
	msg := fmt.Sprintf("Requested resource not found: Table: %s not found", tableName)
	return &types.ResourceNotFoundException{Message: &msg}
}

// NewResourceInUseError creates the error CreateTable returns for an existing table
func NewResourceInUseError(tableName string) error {
	msg := fmt.Sprintf("Table already exists: %s", tableName)
	return &types.ResourceInUseException{Message: &msg}
}

// Type aliases for convenience
type (
	// DynamoDBClient is an alias for MockDynamoDBClient
	DynamoDBClient = MockDynamoDBClient

	// TableExistsWaiter is an alias for MockTableExistsWaiter
	TableExistsWaiter = MockTableExistsWaiter
)
