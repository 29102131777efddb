package queue_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theory-cloud/tablekit/pkg/core"
	tkErrors "github.com/theory-cloud/tablekit/pkg/errors"
	"github.com/theory-cloud/tablekit/pkg/queue"
)

func noDelayPolicy(retries int) *core.RetryPolicy {
	return &core.RetryPolicy{MaxRetries: retries}
}

func TestDrainAllRetriesUntilEmpty(t *testing.T) {
	q, err := queue.NewBatchPutQueue(testTable, idsOf(3), queue.WithMaxBatchSize(2))
	require.NoError(t, err)

	// item 2 is throttled on its first two attempts
	var attempts atomic.Int32
	issuer := &fakeIssuer{unprocessed: func(req types.WriteRequest) bool {
		if !putOf(2)(req) {
			return false
		}
		return attempts.Add(1) <= 2
	}}

	result, err := queue.DrainAll(context.Background(), q, issuer.issue, noDelayPolicy(3))
	require.NoError(t, err)
	assert.Equal(t, 3, result.Rounds)
	assert.ElementsMatch(t, []core.Item{numItem(1), numItem(2), numItem(3)}, result.Processed)
	assert.True(t, q.Empty())
	assert.Equal(t, 4, issuer.callCount())
}

func TestDrainAllGivesUp(t *testing.T) {
	q, err := queue.NewBatchPutQueue(testTable, idsOf(3))
	require.NoError(t, err)

	issuer := &fakeIssuer{unprocessed: putOf(3)}
	result, err := queue.DrainAll(context.Background(), q, issuer.issue, noDelayPolicy(2))
	require.Error(t, err)
	assert.True(t, tkErrors.IsBatchFailure(err))

	var drainErr *tkErrors.DrainError
	require.ErrorAs(t, err, &drainErr)
	assert.Equal(t, testTable, drainErr.Table)
	assert.Equal(t, 3, drainErr.Rounds)
	assert.Equal(t, 1, drainErr.Pending)

	assert.Equal(t, []core.Item{numItem(1), numItem(2)}, result.Processed)
	assert.Equal(t, 1, q.Len())
}

func TestDrainAllNilPolicyDrainsOnce(t *testing.T) {
	q, err := queue.NewBatchPutQueue(testTable, idsOf(2))
	require.NoError(t, err)

	issuer := &fakeIssuer{unprocessed: putOf(1)}
	result, err := queue.DrainAll(context.Background(), q, issuer.issue, nil)
	require.Error(t, err)
	assert.Equal(t, 1, result.Rounds)
	assert.Equal(t, 1, issuer.callCount())
	assert.Equal(t, []core.Item{numItem(2)}, result.Processed)
}

func TestDrainAllEmptyQueue(t *testing.T) {
	q, err := queue.NewBatchPutQueue[map[string]any](testTable, nil)
	require.NoError(t, err)

	result, err := queue.DrainAll(context.Background(), q, (&fakeIssuer{}).issue, core.DefaultRetryPolicy())
	require.NoError(t, err)
	assert.Zero(t, result.Rounds)
	assert.Empty(t, result.Processed)
}

func TestDrainAllTransportError(t *testing.T) {
	q, err := queue.NewBatchPutQueue(testTable, idsOf(4), queue.WithMaxBatchSize(2))
	require.NoError(t, err)

	boom := errors.New("throttled connection")
	issue := func(_ context.Context, input *dynamodb.BatchWriteItemInput) (*dynamodb.BatchWriteItemOutput, error) {
		if putOf(1)(input.RequestItems[testTable][0]) {
			return nil, boom
		}
		return &dynamodb.BatchWriteItemOutput{}, nil
	}

	result, err := queue.DrainAll(context.Background(), q, issue, noDelayPolicy(1))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var batchErr *tkErrors.BatchError
	require.ErrorAs(t, err, &batchErr)
	assert.Equal(t, 0, batchErr.Chunk)
	assert.Equal(t, 2, batchErr.Size)

	assert.Equal(t, []core.Item{numItem(3), numItem(4)}, result.Processed)
	assert.True(t, q.Empty())
}

func TestDrainAllStopsOnContextCancel(t *testing.T) {
	q, err := queue.NewBatchPutQueue(testTable, idsOf(1))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	issuer := &fakeIssuer{unprocessed: func(types.WriteRequest) bool {
		cancel()
		return true
	}}
	policy := &core.RetryPolicy{MaxRetries: 5, InitialDelay: time.Hour}

	_, err = queue.DrainAll(ctx, q, issuer.issue, policy)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, issuer.callCount())
}

func TestDrainAllCancelDuringBackoffKeepsBatchErrors(t *testing.T) {
	q, err := queue.NewBatchPutQueue(testTable, idsOf(4), queue.WithMaxBatchSize(2))
	require.NoError(t, err)

	boom := errors.New("connection reset")
	issue := func(_ context.Context, input *dynamodb.BatchWriteItemInput) (*dynamodb.BatchWriteItemOutput, error) {
		reqs := input.RequestItems[testTable]
		if putOf(1)(reqs[0]) {
			return nil, boom
		}
		return &dynamodb.BatchWriteItemOutput{
			UnprocessedItems: map[string][]types.WriteRequest{testTable: reqs},
		}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	timer := time.AfterFunc(100*time.Millisecond, cancel)
	defer timer.Stop()

	policy := &core.RetryPolicy{MaxRetries: 5, InitialDelay: time.Hour}
	result, err := queue.DrainAll(ctx, q, issue, policy)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, boom)

	var batchErr *tkErrors.BatchError
	require.ErrorAs(t, err, &batchErr)
	assert.Equal(t, 0, batchErr.Chunk)
	assert.Equal(t, 2, batchErr.Size)

	assert.Equal(t, 1, result.Rounds)
	assert.Empty(t, result.Processed)
	assert.Equal(t, 1, q.Len())
}

type batchWriteFunc func(context.Context, *dynamodb.BatchWriteItemInput, ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)

func (f batchWriteFunc) BatchWriteItem(ctx context.Context, in *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	return f(ctx, in, optFns...)
}

func TestClientIssuer(t *testing.T) {
	var seen *dynamodb.BatchWriteItemInput
	client := batchWriteFunc(func(_ context.Context, in *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
		seen = in
		return &dynamodb.BatchWriteItemOutput{}, nil
	})

	q, err := queue.NewBatchPutQueue(testTable, idsOf(2))
	require.NoError(t, err)

	result, err := queue.DrainAll(context.Background(), q, queue.ClientIssuer(client), nil)
	require.NoError(t, err)
	assert.Len(t, result.Processed, 2)
	require.NotNil(t, seen)
	assert.Len(t, seen.RequestItems[testTable], 2)
}
