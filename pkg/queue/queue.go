// Package queue batches write requests for one table into chunks the store accepts,
// issues them, and re-enqueues whatever the store reports as unprocessed.
package queue

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/theory-cloud/tablekit/pkg/core"
	tkErrors "github.com/theory-cloud/tablekit/pkg/errors"
)

// Queue holds pending chunks of write requests for a single table.
// It is safe for concurrent use; Drain takes every pending chunk at once and
// responses append unprocessed requests as new chunks at the tail.
type Queue struct {
	strategy     Strategy
	logger       *slog.Logger
	id           string
	table        string
	pending      []*dynamodb.BatchWriteItemInput
	maxBatchSize int
	mu           sync.Mutex
}

// Option configures a Queue.
type Option func(*Queue)

// WithMaxBatchSize sets the number of requests per chunk. Valid sizes are 1
// through core.MaxBatchWriteSize.
func WithMaxBatchSize(n int) Option {
	return func(q *Queue) {
		q.maxBatchSize = n
	}
}

// WithLogger sets the logger used for drain and re-enqueue events.
func WithLogger(logger *slog.Logger) Option {
	return func(q *Queue) {
		if logger != nil {
			q.logger = logger
		}
	}
}

// New builds a queue for table, converting every item with strategy and
// splitting the requests into consecutive chunks in input order.
func New[T any](table string, strategy Strategy, items []T, opts ...Option) (*Queue, error) {
	if strategy == nil {
		return nil, fmt.Errorf("queue: strategy is required")
	}

	q := &Queue{
		id:           uuid.NewString(),
		table:        table,
		strategy:     strategy,
		maxBatchSize: core.MaxBatchWriteSize,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(q)
	}
	if q.maxBatchSize < 1 || q.maxBatchSize > core.MaxBatchWriteSize {
		return nil, fmt.Errorf("%w: %d (must be 1-%d)", tkErrors.ErrInvalidBatchSize, q.maxBatchSize, core.MaxBatchWriteSize)
	}

	requests := make([]types.WriteRequest, 0, len(items))
	for i, item := range items {
		req, err := strategy.ToRequest(item)
		if err != nil {
			return nil, fmt.Errorf("queue: %s item %d for %s: %w", strategy.Kind(), i, table, err)
		}
		requests = append(requests, req)
	}

	for start := 0; start < len(requests); start += q.maxBatchSize {
		end := min(start+q.maxBatchSize, len(requests))
		q.pending = append(q.pending, q.chunk(requests[start:end]))
	}

	return q, nil
}

// NewBatchPutQueue builds a queue that writes items to table.
func NewBatchPutQueue[T any](table string, items []T, opts ...Option) (*Queue, error) {
	return New(table, PutStrategy{}, items, opts...)
}

// NewBatchDeleteQueue builds a queue that deletes items from table by key.
func NewBatchDeleteQueue[T any](table string, key core.KeySchema, items []T, opts ...Option) (*Queue, error) {
	return New(table, DeleteStrategy{Key: key}, items, opts...)
}

// ID identifies the queue in logs.
func (q *Queue) ID() string { return q.id }

// Table returns the table the queue writes to.
func (q *Queue) Table() string { return q.table }

// Len returns the number of pending chunks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Empty reports whether no chunks are pending.
func (q *Queue) Empty() bool {
	return q.Len() == 0
}

// Pending returns a snapshot of the pending chunks' requests, oldest first.
func (q *Queue) Pending() [][]types.WriteRequest {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([][]types.WriteRequest, len(q.pending))
	for i, in := range q.pending {
		out[i] = append([]types.WriteRequest(nil), in.RequestItems[q.table]...)
	}
	return out
}

// Drain removes every pending chunk, issues each one concurrently, and returns
// one future per chunk in the order the chunks were pending. Chunks appended by
// responses during this call are left for the next Drain.
//
// A chunk's future resolves with the chunk's items (put) or keys (delete) that
// the store did not report unprocessed. Unprocessed requests are appended to the
// queue as one new chunk before the future resolves. A transport error resolves
// the future with that error and nothing is re-enqueued for the chunk.
func (q *Queue) Drain(ctx context.Context, issue core.IssueFunc) []*Future {
	q.mu.Lock()
	chunks := q.pending
	q.pending = nil
	q.mu.Unlock()

	if len(chunks) == 0 {
		return nil
	}

	q.logger.DebugContext(ctx, "draining batch queue",
		slog.String("queue_id", q.id),
		slog.String("table", q.table),
		slog.String("kind", q.strategy.Kind()),
		slog.Int("chunks", len(chunks)),
	)

	futures := make([]*Future, len(chunks))
	for i, input := range chunks {
		future := newFuture(len(input.RequestItems[q.table]))
		futures[i] = future
		go func(i int, input *dynamodb.BatchWriteItemInput) {
			requests := input.RequestItems[q.table]
			output, err := issue(ctx, input)
			if err != nil {
				q.logger.WarnContext(ctx, "batch write chunk failed",
					slog.String("queue_id", q.id),
					slog.String("table", q.table),
					slog.Int("chunk", i),
					slog.Int("size", len(requests)),
					slog.Any("error", err),
				)
				future.resolve(nil, err)
				return
			}
			future.resolve(q.handleResponse(ctx, requests, output), nil)
		}(i, input)
	}
	return futures
}

func (q *Queue) handleResponse(ctx context.Context, requests []types.WriteRequest, output *dynamodb.BatchWriteItemOutput) []core.Item {
	unprocessed := q.strategy.ExtractUnprocessed(q.table, output)
	if len(unprocessed) > 0 {
		q.mu.Lock()
		q.pending = append(q.pending, q.chunk(unprocessed))
		q.mu.Unlock()

		q.logger.DebugContext(ctx, "re-enqueued unprocessed requests",
			slog.String("queue_id", q.id),
			slog.String("table", q.table),
			slog.Int("count", len(unprocessed)),
		)
	}
	return q.processed(requests, unprocessed)
}

// processed returns the payloads of requests not matched by an unprocessed
// request, keeping request order. Each unprocessed request matches at most one
// request.
func (q *Queue) processed(requests, unprocessed []types.WriteRequest) []core.Item {
	leftover := make([]core.Item, len(unprocessed))
	for i, req := range unprocessed {
		leftover[i] = q.strategy.Payload(req)
	}

	out := make([]core.Item, 0, len(requests))
	for _, req := range requests {
		payload := q.strategy.Payload(req)
		if idx := indexOfItem(leftover, payload); idx >= 0 {
			leftover = append(leftover[:idx], leftover[idx+1:]...)
			continue
		}
		out = append(out, payload)
	}
	return out
}

func (q *Queue) chunk(requests []types.WriteRequest) *dynamodb.BatchWriteItemInput {
	return &dynamodb.BatchWriteItemInput{
		RequestItems: map[string][]types.WriteRequest{
			q.table: append([]types.WriteRequest(nil), requests...),
		},
	}
}

func indexOfItem(items []core.Item, target core.Item) int {
	for i, item := range items {
		if reflect.DeepEqual(item, target) {
			return i
		}
	}
	return -1
}
