package queue

import (
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/theory-cloud/tablekit/pkg/core"
	"github.com/theory-cloud/tablekit/pkg/marshal"
)

// Strategy supplies the per-item request shape of a batch kind and knows which
// part of an unprocessed write request belongs to it.
type Strategy interface {
	// Kind names the batch kind for logs, e.g. "put".
	Kind() string
	// ToRequest wraps one caller item into a write request.
	ToRequest(item any) (types.WriteRequest, error)
	// ExtractUnprocessed returns the requests of this kind reported unprocessed for table.
	ExtractUnprocessed(table string, output *dynamodb.BatchWriteItemOutput) []types.WriteRequest
	// Payload returns the item (put) or key (delete) carried by a request.
	Payload(req types.WriteRequest) core.Item
}

// PutStrategy writes whole items.
type PutStrategy struct {
	// Marshaler converts items; nil uses the package default.
	Marshaler *marshal.Marshaler
}

// Kind implements Strategy.
func (PutStrategy) Kind() string { return "put" }

// ToRequest implements Strategy.
func (s PutStrategy) ToRequest(item any) (types.WriteRequest, error) {
	var (
		encoded core.Item
		err     error
	)
	if s.Marshaler != nil {
		encoded, err = s.Marshaler.ToStoreItem(item)
	} else {
		encoded, err = marshal.ToStoreItem(item)
	}
	if err != nil {
		return types.WriteRequest{}, err
	}
	return types.WriteRequest{PutRequest: &types.PutRequest{Item: encoded}}, nil
}

// ExtractUnprocessed implements Strategy.
func (PutStrategy) ExtractUnprocessed(table string, output *dynamodb.BatchWriteItemOutput) []types.WriteRequest {
	return unprocessedFor(table, output, func(req types.WriteRequest) bool { return req.PutRequest != nil })
}

// Payload implements Strategy.
func (PutStrategy) Payload(req types.WriteRequest) core.Item {
	if req.PutRequest == nil {
		return nil
	}
	return req.PutRequest.Item
}

// DeleteStrategy deletes items by key. Only the key attributes of an item are sent;
// the sort key is left out when the table has none or the item lacks it.
type DeleteStrategy struct {
	// Marshaler converts items; nil uses the package default.
	Marshaler *marshal.Marshaler
	Key       core.KeySchema
}

// Kind implements Strategy.
func (DeleteStrategy) Kind() string { return "delete" }

// ToRequest implements Strategy.
func (s DeleteStrategy) ToRequest(item any) (types.WriteRequest, error) {
	var (
		key core.Item
		err error
	)
	if s.Marshaler != nil {
		key, err = s.Marshaler.ExtractKey(item, s.Key)
	} else {
		key, err = marshal.ExtractKey(item, s.Key)
	}
	if err != nil {
		return types.WriteRequest{}, err
	}
	return types.WriteRequest{DeleteRequest: &types.DeleteRequest{Key: key}}, nil
}

// ExtractUnprocessed implements Strategy.
func (DeleteStrategy) ExtractUnprocessed(table string, output *dynamodb.BatchWriteItemOutput) []types.WriteRequest {
	return unprocessedFor(table, output, func(req types.WriteRequest) bool { return req.DeleteRequest != nil })
}

// Payload implements Strategy.
func (DeleteStrategy) Payload(req types.WriteRequest) core.Item {
	if req.DeleteRequest == nil {
		return nil
	}
	return req.DeleteRequest.Key
}

func unprocessedFor(table string, output *dynamodb.BatchWriteItemOutput, keep func(types.WriteRequest) bool) []types.WriteRequest {
	if output == nil {
		return nil
	}

	requests := output.UnprocessedItems[table]
	if len(requests) == 0 {
		return nil
	}

	out := make([]types.WriteRequest, 0, len(requests))
	for _, req := range requests {
		if keep(req) {
			out = append(out, req)
		}
	}
	return out
}
