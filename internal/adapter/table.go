// Package adapter binds a table definition to a DynamoDB client and exposes
// item, query and batch operations built on the expression compiler and the
// batch request queue.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/theory-cloud/tablekit/pkg/core"
	tkErrors "github.com/theory-cloud/tablekit/pkg/errors"
	"github.com/theory-cloud/tablekit/pkg/expr"
	"github.com/theory-cloud/tablekit/pkg/interfaces"
	"github.com/theory-cloud/tablekit/pkg/marshal"
	"github.com/theory-cloud/tablekit/pkg/schema"
)

// Options configures a Table.
type Options struct {
	Marshaler *marshal.Marshaler
	// RetryPolicy bounds batch drain rounds; nil drains once.
	RetryPolicy *core.RetryPolicy
	Logger      *slog.Logger
	// MaxBatchSize overrides the batch chunk size when positive.
	MaxBatchSize int
}

// Table performs operations against one table.
type Table struct {
	client    interfaces.DynamoDBClientInterface
	marshaler *marshal.Marshaler
	retry     *core.RetryPolicy
	logger    *slog.Logger
	executor  *core.BatchWriteExecutor
	props     schema.TableProps
	batchSize int
}

// New creates a Table.
func New(client interfaces.DynamoDBClientInterface, props schema.TableProps, opts Options) *Table {
	t := &Table{
		client:    client,
		props:     props,
		marshaler: opts.Marshaler,
		retry:     opts.RetryPolicy.Clone(),
		logger:    opts.Logger,
		executor:  core.NewBatchWriteExecutor(client),
		batchSize: opts.MaxBatchSize,
	}
	if t.marshaler == nil {
		t.marshaler = marshal.New(marshal.Config{})
	}
	if t.logger == nil {
		t.logger = slog.Default()
	}
	return t
}

// Name returns the table name.
func (t *Table) Name() string { return t.props.TableName }

// Props returns the table definition.
func (t *Table) Props() schema.TableProps { return t.props }

// ConsumedCapacity returns the write capacity consumed by batch operations so far.
func (t *Table) ConsumedCapacity() map[string]float64 {
	return t.executor.ConsumedCapacity()
}

// WriteOption configures a single-item write.
type WriteOption func(*writeOptions)

type writeOptions struct {
	condition func(*expr.ConditionBuilder) error
}

// WithCondition adds a condition expression to the write.
func WithCondition(fn func(*expr.ConditionBuilder) error) WriteOption {
	return func(o *writeOptions) {
		o.condition = fn
	}
}

// ReadOption configures a single-item read.
type ReadOption func(*readOptions)

type readOptions struct {
	projection []expr.AttributePath
	consistent bool
}

// WithConsistentRead requests a strongly consistent read.
func WithConsistentRead() ReadOption {
	return func(o *readOptions) {
		o.consistent = true
	}
}

// WithProjection limits the attributes returned.
func WithProjection(paths ...expr.AttributePath) ReadOption {
	return func(o *readOptions) {
		o.projection = append(o.projection, paths...)
	}
}

// Put writes item, replacing any item with the same key.
func (t *Table) Put(ctx context.Context, item any, opts ...WriteOption) error {
	encoded, err := t.marshaler.ToStoreItem(item)
	if err != nil {
		return tkErrors.NewError("put", t.Name(), err)
	}
	if _, err := t.marshaler.ExtractKey(encoded, t.props.KeySchema()); err != nil {
		return tkErrors.NewError("put", t.Name(), err)
	}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(t.Name()),
		Item:      encoded,
	}

	condition, err := buildCondition(expr.NewAttributeMap(), writeConfig(opts).condition)
	if err != nil {
		return tkErrors.NewError("put", t.Name(), err)
	}
	if condition.Expression != "" {
		input.ConditionExpression = aws.String(condition.Expression)
		input.ExpressionAttributeNames = condition.Names
		input.ExpressionAttributeValues = condition.Values
	}

	if _, err := t.client.PutItem(ctx, input); err != nil {
		return tkErrors.NewError("put", t.Name(), classify(err))
	}
	return nil
}

// Get reads the item with key's primary key into out. It returns
// errors.ErrItemNotFound when no such item exists.
func (t *Table) Get(ctx context.Context, key any, out any, opts ...ReadOption) error {
	encodedKey, err := t.marshaler.ExtractKey(key, t.props.KeySchema())
	if err != nil {
		return tkErrors.NewError("get", t.Name(), err)
	}

	cfg := &readOptions{}
	for _, opt := range opts {
		opt(cfg)
	}

	input := &dynamodb.GetItemInput{
		TableName: aws.String(t.Name()),
		Key:       encodedKey,
	}
	if cfg.consistent {
		input.ConsistentRead = aws.Bool(true)
	}
	if len(cfg.projection) > 0 {
		attrs := expr.NewAttributeMap()
		input.ProjectionExpression = aws.String(projectionExpression(attrs, cfg.projection))
		input.ExpressionAttributeNames = attrs.ToExpressionAttributeNames()
	}

	output, err := t.client.GetItem(ctx, input)
	if err != nil {
		return tkErrors.NewError("get", t.Name(), classify(err))
	}
	if output == nil || len(output.Item) == 0 {
		return tkErrors.NewError("get", t.Name(), tkErrors.ErrItemNotFound)
	}
	if err := t.marshaler.FromStoreItem(output.Item, out); err != nil {
		return tkErrors.NewError("get", t.Name(), err)
	}
	return nil
}

// Update applies the update built by build to the item with key's primary key
// and returns the item as it is after the update. A key condition guarding
// against upserts can be added with WithCondition.
func (t *Table) Update(ctx context.Context, key any, build func(*expr.UpdateBuilder) error, opts ...WriteOption) (core.Item, error) {
	encodedKey, err := t.marshaler.ExtractKey(key, t.props.KeySchema())
	if err != nil {
		return nil, tkErrors.NewError("update", t.Name(), err)
	}

	attrs := expr.NewAttributeMap()
	update := expr.NewUpdateBuilder(attrs)
	if build != nil {
		if err := build(update); err != nil {
			return nil, tkErrors.NewError("update", t.Name(), err)
		}
	}
	if update.Empty() {
		return nil, tkErrors.NewError("update", t.Name(), errors.New("update expression is empty"))
	}

	condition, err := buildCondition(attrs, writeConfig(opts).condition)
	if err != nil {
		return nil, tkErrors.NewError("update", t.Name(), err)
	}

	built := update.Build()
	input := &dynamodb.UpdateItemInput{
		TableName:                 aws.String(t.Name()),
		Key:                       encodedKey,
		UpdateExpression:          aws.String(built.Expression),
		ExpressionAttributeNames:  attrs.ToExpressionAttributeNames(),
		ExpressionAttributeValues: attrs.ToExpressionAttributeValues(),
		ReturnValues:              types.ReturnValueAllNew,
	}
	if condition.Expression != "" {
		input.ConditionExpression = aws.String(condition.Expression)
	}

	output, err := t.client.UpdateItem(ctx, input)
	if err != nil {
		return nil, tkErrors.NewError("update", t.Name(), classify(err))
	}
	if output == nil {
		return nil, nil
	}
	return output.Attributes, nil
}

// Delete removes the item with key's primary key. Deleting a missing item is not an error.
func (t *Table) Delete(ctx context.Context, key any, opts ...WriteOption) error {
	encodedKey, err := t.marshaler.ExtractKey(key, t.props.KeySchema())
	if err != nil {
		return tkErrors.NewError("delete", t.Name(), err)
	}

	input := &dynamodb.DeleteItemInput{
		TableName: aws.String(t.Name()),
		Key:       encodedKey,
	}

	condition, err := buildCondition(expr.NewAttributeMap(), writeConfig(opts).condition)
	if err != nil {
		return tkErrors.NewError("delete", t.Name(), err)
	}
	if condition.Expression != "" {
		input.ConditionExpression = aws.String(condition.Expression)
		input.ExpressionAttributeNames = condition.Names
		input.ExpressionAttributeValues = condition.Values
	}

	if _, err := t.client.DeleteItem(ctx, input); err != nil {
		return tkErrors.NewError("delete", t.Name(), classify(err))
	}
	return nil
}

func writeConfig(opts []WriteOption) *writeOptions {
	cfg := &writeOptions{}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// buildCondition runs fn against a builder sharing attrs. A nil fn yields an
// empty expression.
func buildCondition(attrs *expr.AttributeMap, fn func(*expr.ConditionBuilder) error) (expr.Expression, error) {
	if fn == nil {
		return expr.Expression{}, nil
	}
	builder := expr.NewConditionBuilder(attrs)
	if err := fn(builder); err != nil {
		return expr.Expression{}, err
	}
	return builder.Build(), nil
}

func projectionExpression(attrs *expr.AttributeMap, paths []expr.AttributePath) string {
	out := ""
	for i, path := range paths {
		if i > 0 {
			out += ", "
		}
		out += attrs.AddName(path)
	}
	return out
}

// classify maps store errors onto tablekit sentinels.
func classify(err error) error {
	var conditionErr *types.ConditionalCheckFailedException
	if errors.As(err, &conditionErr) {
		return fmt.Errorf("%w: %w", tkErrors.ErrConditionFailed, err)
	}
	return err
}
