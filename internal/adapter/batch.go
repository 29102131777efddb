package adapter

import (
	"context"
	"fmt"
	"reflect"

	tkErrors "github.com/theory-cloud/tablekit/pkg/errors"
	"github.com/theory-cloud/tablekit/pkg/queue"
)

// BatchPut writes every element of items, which must be a slice, through a
// put queue and drains it under the table's retry policy.
func (t *Table) BatchPut(ctx context.Context, items any) (queue.DrainResult, error) {
	elems, err := sliceOf(items)
	if err != nil {
		return queue.DrainResult{}, tkErrors.NewError("batch put", t.Name(), err)
	}
	q, err := queue.New(t.Name(), queue.PutStrategy{Marshaler: t.marshaler}, elems, t.queueOptions()...)
	if err != nil {
		return queue.DrainResult{}, tkErrors.NewError("batch put", t.Name(), err)
	}
	return t.drain(ctx, "batch put", q)
}

// BatchDelete deletes the items keyed by every element of keys, which must be
// a slice of items or keys.
func (t *Table) BatchDelete(ctx context.Context, keys any) (queue.DrainResult, error) {
	elems, err := sliceOf(keys)
	if err != nil {
		return queue.DrainResult{}, tkErrors.NewError("batch delete", t.Name(), err)
	}
	strategy := queue.DeleteStrategy{Marshaler: t.marshaler, Key: t.props.KeySchema()}
	q, err := queue.New(t.Name(), strategy, elems, t.queueOptions()...)
	if err != nil {
		return queue.DrainResult{}, tkErrors.NewError("batch delete", t.Name(), err)
	}
	return t.drain(ctx, "batch delete", q)
}

// NewPutQueue exposes a put queue for callers that drive draining themselves.
func (t *Table) NewPutQueue(items any) (*queue.Queue, error) {
	elems, err := sliceOf(items)
	if err != nil {
		return nil, err
	}
	return queue.New(t.Name(), queue.PutStrategy{Marshaler: t.marshaler}, elems, t.queueOptions()...)
}

// NewDeleteQueue exposes a delete queue for callers that drive draining themselves.
func (t *Table) NewDeleteQueue(keys any) (*queue.Queue, error) {
	elems, err := sliceOf(keys)
	if err != nil {
		return nil, err
	}
	strategy := queue.DeleteStrategy{Marshaler: t.marshaler, Key: t.props.KeySchema()}
	return queue.New(t.Name(), strategy, elems, t.queueOptions()...)
}

// Drain drains q with the table's issuer and retry policy.
func (t *Table) Drain(ctx context.Context, q *queue.Queue) (queue.DrainResult, error) {
	return t.drain(ctx, "batch write", q)
}

func (t *Table) drain(ctx context.Context, op string, q *queue.Queue) (queue.DrainResult, error) {
	result, err := queue.DrainAll(ctx, q, t.executor.Issue, t.retry)
	if err != nil {
		return result, tkErrors.NewError(op, t.Name(), err)
	}
	return result, nil
}

func (t *Table) queueOptions() []queue.Option {
	opts := []queue.Option{queue.WithLogger(t.logger)}
	if t.batchSize > 0 {
		opts = append(opts, queue.WithMaxBatchSize(t.batchSize))
	}
	return opts
}

func sliceOf(items any) ([]any, error) {
	if elems, ok := items.([]any); ok {
		return elems, nil
	}

	v := reflect.ValueOf(items)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return nil, fmt.Errorf("%w: expected a slice, got %T", tkErrors.ErrUnsupportedType, items)
	}

	elems := make([]any, v.Len())
	for i := range elems {
		elems[i] = v.Index(i).Interface()
	}
	return elems, nil
}
