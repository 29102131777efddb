// Package stream replays DynamoDB stream records into another table through
// the batch request queues.
package stream

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"github.com/theory-cloud/tablekit/pkg/core"
	tkErrors "github.com/theory-cloud/tablekit/pkg/errors"
	"github.com/theory-cloud/tablekit/pkg/queue"
)

// Stream event names.
const (
	EventInsert = "INSERT"
	EventModify = "MODIFY"
	EventRemove = "REMOVE"
)

// Writer applies batches of puts and deletes to the replica table.
type Writer interface {
	BatchPut(ctx context.Context, items any) (queue.DrainResult, error)
	BatchDelete(ctx context.Context, keys any) (queue.DrainResult, error)
}

// Result counts what one event replayed.
type Result struct {
	Puts    int
	Deletes int
	// Collapsed counts records superseded by a later record for the same key.
	Collapsed int
}

// Handler replays stream events into a Writer.
type Handler struct {
	target Writer
	logger *slog.Logger
}

// NewHandler creates a new stream handler.
func NewHandler(target Writer, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		target: target,
		logger: logger,
	}
}

// HandleReplication is a Lambda handler for DynamoDB stream events.
func (h *Handler) HandleReplication(ctx context.Context, event events.DynamoDBEvent) error {
	_, err := h.Replay(ctx, event.Records)
	return err
}

// Replay applies records in order. Only the last record for each key is
// written, since one batch request cannot touch the same key twice.
func (h *Handler) Replay(ctx context.Context, records []events.DynamoDBEventRecord) (Result, error) {
	type change struct {
		remove bool
		item   core.Item
	}

	var order []string
	var result Result
	latest := make(map[string]change, len(records))
	for _, record := range records {
		id, err := keyID(record.Change.Keys)
		if err != nil {
			h.logger.ErrorContext(ctx, "failed to process record",
				slog.String("eventID", record.EventID),
				slog.Any("error", err),
			)
			return result, fmt.Errorf("record %s: %w", record.EventID, err)
		}

		var c change
		switch record.EventName {
		case EventInsert, EventModify:
			c.item = ConvertImage(record.Change.NewImage)
			if c.item == nil {
				err := fmt.Errorf("record %s: %s event carries no new image", record.EventID, record.EventName)
				h.logger.ErrorContext(ctx, "failed to process record",
					slog.String("eventID", record.EventID),
					slog.Any("error", err),
				)
				return result, err
			}
		case EventRemove:
			c.remove = true
			c.item = ConvertImage(record.Change.Keys)
		default:
			h.logger.WarnContext(ctx, "skipping unknown stream event",
				slog.String("eventID", record.EventID),
				slog.String("eventName", record.EventName),
			)
			continue
		}

		if _, seen := latest[id]; seen {
			result.Collapsed++
		} else {
			order = append(order, id)
		}
		latest[id] = c
	}

	var puts, deletes []core.Item
	for _, id := range order {
		c := latest[id]
		if c.remove {
			deletes = append(deletes, c.item)
		} else {
			puts = append(puts, c.item)
		}
	}

	h.logger.InfoContext(ctx, "replaying stream records",
		slog.Int("records", len(records)),
		slog.Int("puts", len(puts)),
		slog.Int("deletes", len(deletes)),
	)

	if len(puts) > 0 {
		drained, err := h.target.BatchPut(ctx, puts)
		result.Puts = len(drained.Processed)
		if err != nil {
			h.logger.ErrorContext(ctx, "replica put failed", slog.Any("error", err))
			return result, fmt.Errorf("replay puts: %w", err)
		}
	}
	if len(deletes) > 0 {
		drained, err := h.target.BatchDelete(ctx, deletes)
		result.Deletes = len(drained.Processed)
		if err != nil {
			h.logger.ErrorContext(ctx, "replica delete failed", slog.Any("error", err))
			return result, fmt.Errorf("replay deletes: %w", err)
		}
	}
	return result, nil
}

// keyID renders a record key as a stable string.
func keyID(keys map[string]events.DynamoDBAttributeValue) (string, error) {
	if len(keys) == 0 {
		return "", fmt.Errorf("%w: record has no keys", tkErrors.ErrMissingPrimaryKey)
	}

	names := make([]string, 0, len(keys))
	for name := range keys {
		names = append(names, name)
	}
	sort.Strings(names)

	// each part is quoted so no value can forge a separator
	var b strings.Builder
	for _, name := range names {
		v := keys[name]
		switch v.DataType() {
		case events.DataTypeString:
			fmt.Fprintf(&b, "%q=S:%q;", name, v.String())
		case events.DataTypeNumber:
			fmt.Fprintf(&b, "%q=N:%q;", name, v.Number())
		case events.DataTypeBinary:
			fmt.Fprintf(&b, "%q=B:%q;", name, v.Binary())
		default:
			return "", fmt.Errorf("%w: key %s has type %v", tkErrors.ErrUnsupportedType, name, v.DataType())
		}
	}
	return b.String(), nil
}
