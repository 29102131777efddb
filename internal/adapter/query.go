package adapter

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/theory-cloud/tablekit/internal/numutil"
	"github.com/theory-cloud/tablekit/pkg/core"
	tkErrors "github.com/theory-cloud/tablekit/pkg/errors"
	"github.com/theory-cloud/tablekit/pkg/expr"
)

// Query describes a query against the table or one of its indexes.
type Query struct {
	// KeyCondition is required and must constrain the partition key.
	KeyCondition func(*expr.ConditionBuilder) error
	Filter       func(*expr.ConditionBuilder) error
	StartKey     core.Item
	Index        string
	Projection   []expr.AttributePath
	// Limit caps the items evaluated per page; zero means no limit.
	Limit          int
	Descending     bool
	ConsistentRead bool
}

// QueryResult describes the pages read by a query.
type QueryResult struct {
	LastEvaluatedKey core.Item
	Count            int
	ScannedCount     int
	Pages            int
}

// Query reads one page of results into out, which must point to a slice.
func (t *Table) Query(ctx context.Context, q Query, out any) (*QueryResult, error) {
	input, err := t.queryInput(q)
	if err != nil {
		return nil, tkErrors.NewError("query", t.Name(), err)
	}

	output, err := t.client.Query(ctx, input)
	if err != nil {
		return nil, tkErrors.NewError("query", t.Name(), err)
	}
	if output == nil {
		output = &dynamodb.QueryOutput{}
	}

	if err := t.marshaler.FromStoreItems(output.Items, out); err != nil {
		return nil, tkErrors.NewError("query", t.Name(), err)
	}
	return &QueryResult{
		Count:            int(output.Count),
		ScannedCount:     int(output.ScannedCount),
		LastEvaluatedKey: output.LastEvaluatedKey,
		Pages:            1,
	}, nil
}

// QueryAll follows LastEvaluatedKey until the result set is exhausted and
// decodes every item into out, which must point to a slice.
func (t *Table) QueryAll(ctx context.Context, q Query, out any) (*QueryResult, error) {
	input, err := t.queryInput(q)
	if err != nil {
		return nil, tkErrors.NewError("query", t.Name(), err)
	}

	result := &QueryResult{}
	var items []core.Item
	paginator := dynamodb.NewQueryPaginator(t.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, tkErrors.NewError("query", t.Name(), err)
		}
		result.Pages++
		result.Count += int(page.Count)
		result.ScannedCount += int(page.ScannedCount)
		items = append(items, page.Items...)
	}

	if err := t.marshaler.FromStoreItems(items, out); err != nil {
		return nil, tkErrors.NewError("query", t.Name(), err)
	}
	return result, nil
}

func (t *Table) queryInput(q Query) (*dynamodb.QueryInput, error) {
	if q.KeyCondition == nil {
		return nil, fmt.Errorf("key condition is required")
	}
	if q.Index != "" {
		if _, ok := t.props.IndexKeySchema(q.Index); !ok {
			return nil, fmt.Errorf("unknown index %q", q.Index)
		}
	}

	attrs := expr.NewAttributeMap()
	keyCondition, err := buildCondition(attrs, q.KeyCondition)
	if err != nil {
		return nil, fmt.Errorf("key condition: %w", err)
	}
	if keyCondition.Expression == "" {
		return nil, fmt.Errorf("key condition is empty")
	}
	filter, err := buildCondition(attrs, q.Filter)
	if err != nil {
		return nil, fmt.Errorf("filter: %w", err)
	}

	input := &dynamodb.QueryInput{
		TableName:              aws.String(t.Name()),
		KeyConditionExpression: aws.String(keyCondition.Expression),
		ExclusiveStartKey:      q.StartKey,
		Limit:                  numutil.PositiveInt32(q.Limit),
	}
	if q.Index != "" {
		input.IndexName = aws.String(q.Index)
	}
	if filter.Expression != "" {
		input.FilterExpression = aws.String(filter.Expression)
	}
	if len(q.Projection) > 0 {
		input.ProjectionExpression = aws.String(projectionExpression(attrs, q.Projection))
	}
	if q.Descending {
		input.ScanIndexForward = aws.Bool(false)
	}
	if q.ConsistentRead {
		input.ConsistentRead = aws.Bool(true)
	}

	input.ExpressionAttributeNames = attrs.ToExpressionAttributeNames()
	input.ExpressionAttributeValues = attrs.ToExpressionAttributeValues()
	return input, nil
}
