// Package core defines the core interfaces and types for TableKit
package core

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// MaxBatchWriteSize is the BatchWriteItem hard limit on requests per call.
const MaxBatchWriteSize = 25

// Item is the wire representation of a single DynamoDB item.
type Item = map[string]types.AttributeValue

// IssueFunc sends one table-scoped batch write request to the store.
// It is supplied by the caller on every drain and never stored.
type IssueFunc func(ctx context.Context, input *dynamodb.BatchWriteItemInput) (*dynamodb.BatchWriteItemOutput, error)

// BatchWriteClient is the part of the DynamoDB client the batch executor needs.
type BatchWriteClient interface {
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// KeySchema represents a primary key or index key schema
type KeySchema struct {
	PartitionKey string
	SortKey      string // optional
}

// HasSortKey reports whether the schema defines a sort key.
func (k KeySchema) HasSortKey() bool {
	return k.SortKey != ""
}
