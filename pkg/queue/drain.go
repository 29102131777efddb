package queue

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/theory-cloud/tablekit/pkg/core"
	tkErrors "github.com/theory-cloud/tablekit/pkg/errors"
)

// ClientIssuer adapts a BatchWriteItem client to an IssueFunc.
func ClientIssuer(client core.BatchWriteClient) core.IssueFunc {
	return func(ctx context.Context, input *dynamodb.BatchWriteItemInput) (*dynamodb.BatchWriteItemOutput, error) {
		return client.BatchWriteItem(ctx, input)
	}
}

// DrainResult summarizes a DrainAll run.
type DrainResult struct {
	// Processed holds the items (put) or keys (delete) the store applied, in
	// the order their chunks were drained.
	Processed []core.Item
	// Rounds counts Drain calls that issued at least one chunk.
	Rounds int
}

// DrainAll drains q until it is empty or the policy's retries are used up,
// sleeping policy.Delay between rounds. A nil policy drains once.
//
// Chunks that fail in transport are not retried; their errors are returned as
// *errors.BatchError values joined with any leftover *errors.DrainError. A
// cancelled ctx ends the run with ctx.Err() joined to the errors seen so far.
func DrainAll(ctx context.Context, q *Queue, issue core.IssueFunc, policy *core.RetryPolicy) (DrainResult, error) {
	var (
		result DrainResult
		errs   []error
	)

	maxRetries := 0
	if policy != nil {
		maxRetries = policy.MaxRetries
	}

	for {
		futures := q.Drain(ctx, issue)
		if len(futures) == 0 {
			break
		}
		result.Rounds++

		for i, future := range futures {
			items, err := future.Wait(ctx)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
					return result, errors.Join(append(errs, err)...)
				}
				errs = append(errs, &tkErrors.BatchError{Table: q.table, Chunk: i, Size: future.Size(), Err: err})
				continue
			}
			result.Processed = append(result.Processed, items...)
		}

		if q.Empty() {
			break
		}
		if result.Rounds > maxRetries {
			pending := 0
			for _, chunk := range q.Pending() {
				pending += len(chunk)
			}
			q.logger.WarnContext(ctx, "batch queue not drained",
				slog.String("queue_id", q.id),
				slog.String("table", q.table),
				slog.Int("rounds", result.Rounds),
				slog.Int("pending", pending),
			)
			errs = append(errs, &tkErrors.DrainError{Table: q.table, Rounds: result.Rounds, Pending: pending})
			break
		}

		if err := sleep(ctx, policy.Delay(result.Rounds)); err != nil {
			return result, errors.Join(append(errs, err)...)
		}
	}

	return result, errors.Join(errs...)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
