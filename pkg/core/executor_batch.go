package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// BatchWriteExecutor issues batch write chunks against a DynamoDB client and
// keeps a running total of the capacity they consumed.
type BatchWriteExecutor struct {
	client   BatchWriteClient
	mu       sync.Mutex
	consumed map[string]float64
}

// NewBatchWriteExecutor creates a new batch write executor
func NewBatchWriteExecutor(client BatchWriteClient) *BatchWriteExecutor {
	return &BatchWriteExecutor{
		client:   client,
		consumed: make(map[string]float64),
	}
}

// Issue sends one chunk. It has the IssueFunc signature so it can be passed to a queue drain directly.
func (e *BatchWriteExecutor) Issue(ctx context.Context, input *dynamodb.BatchWriteItemInput) (*dynamodb.BatchWriteItemOutput, error) {
	if input == nil || len(input.RequestItems) == 0 {
		return &dynamodb.BatchWriteItemOutput{}, nil
	}

	total := 0
	for _, requests := range input.RequestItems {
		total += len(requests)
	}
	// DynamoDB BatchWriteItem supports max 25 items per request
	if total > MaxBatchWriteSize {
		return nil, fmt.Errorf("batch write supports maximum %d items per request, got %d", MaxBatchWriteSize, total)
	}

	if input.ReturnConsumedCapacity == "" {
		input.ReturnConsumedCapacity = types.ReturnConsumedCapacityTotal
	}

	output, err := e.client.BatchWriteItem(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("batch write failed: %w", err)
	}
	if output == nil {
		return nil, fmt.Errorf("batch write returned nil output")
	}

	e.record(output.ConsumedCapacity)
	return output, nil
}

// ConsumedCapacity returns the write capacity units consumed per table so far.
func (e *BatchWriteExecutor) ConsumedCapacity() map[string]float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make(map[string]float64, len(e.consumed))
	for table, units := range e.consumed {
		out[table] = units
	}
	return out
}

func (e *BatchWriteExecutor) record(capacity []types.ConsumedCapacity) {
	if len(capacity) == 0 {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, c := range capacity {
		if c.TableName == nil || c.CapacityUnits == nil {
			continue
		}
		e.consumed[*c.TableName] += *c.CapacityUnits
	}
}
