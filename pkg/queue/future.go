package queue

import (
	"context"
	"errors"

	"github.com/theory-cloud/tablekit/pkg/core"
)

// Future is the eventual result of one drained chunk: the items the store
// applied, in chunk order, or the transport error.
type Future struct {
	done  chan struct{}
	err   error
	items []core.Item
	size  int
}

func newFuture(size int) *Future {
	return &Future{done: make(chan struct{}), size: size}
}

// Size returns the number of requests in the chunk.
func (f *Future) Size() int {
	return f.size
}

func (f *Future) resolve(items []core.Item, err error) {
	f.items = items
	f.err = err
	close(f.done)
}

// Done is closed once the chunk's response has been handled.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the chunk resolves or ctx is done.
func (f *Future) Wait(ctx context.Context) ([]core.Item, error) {
	select {
	case <-f.done:
		return f.items, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Await waits for every future and returns their results in chunk order.
// Failed chunks leave a nil entry; their errors are joined.
func Await(ctx context.Context, futures []*Future) ([][]core.Item, error) {
	results := make([][]core.Item, len(futures))
	var errs []error
	for i, f := range futures {
		items, err := f.Wait(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				return results, err
			}
			errs = append(errs, err)
			continue
		}
		results[i] = items
	}
	return results, errors.Join(errs...)
}
