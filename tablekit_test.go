package tablekit_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/theory-cloud/tablekit"
	"github.com/theory-cloud/tablekit/pkg/core"
	tkErrors "github.com/theory-cloud/tablekit/pkg/errors"
	"github.com/theory-cloud/tablekit/pkg/mocks"
)

type order struct {
	ID    string `dynamodbav:"id"`
	Total int    `dynamodbav:"total"`
}

func ordersProps() tablekit.TableProps {
	return tablekit.TableProps{
		TableName:    "orders",
		PartitionKey: tablekit.Attribute{Name: "id"},
	}
}

func TestLoadConfig(t *testing.T) {
	cfg, err := tablekit.LoadConfig(strings.NewReader(`
session:
  region: eu-west-1
  endpoint: http://localhost:8000
marshal:
  tag_key: db
retry:
  max_retries: 5
  initial_delay: 50ms
max_batch_size: 10
`))
	require.NoError(t, err)

	assert.Equal(t, "eu-west-1", cfg.Session.Region)
	assert.Equal(t, "http://localhost:8000", cfg.Session.Endpoint)
	assert.Equal(t, 30*time.Second, cfg.Session.HTTPTimeout)
	assert.Equal(t, "db", cfg.Marshal.TagKey)
	assert.Equal(t, 5, cfg.RetryPolicy.MaxRetries)
	assert.Equal(t, 50*time.Millisecond, cfg.RetryPolicy.InitialDelay)
	assert.Equal(t, core.DefaultRetryPolicy().MaxDelay, cfg.RetryPolicy.MaxDelay)
	assert.Equal(t, 10, cfg.MaxBatchSize)
}

func TestLoadConfigEmptyAndUnknown(t *testing.T) {
	cfg, err := tablekit.LoadConfig(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, tablekit.DefaultConfig(), cfg)

	_, err = tablekit.LoadConfig(strings.NewReader("sessoin:\n  region: x\n"))
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	cfg := tablekit.DefaultConfig()
	cfg.Session.AccessKeyID = "test"
	cfg.Session.SecretAccessKey = "test"
	cfg.Session.Endpoint = "http://localhost:8000"

	db, err := tablekit.New(cfg)
	require.NoError(t, err)

	table, err := db.Table(ordersProps())
	require.NoError(t, err)
	assert.Equal(t, "orders", table.Name())
}

func TestTableValidatesProps(t *testing.T) {
	db := tablekit.NewWithClient(new(mocks.MockDynamoDBClient), tablekit.DefaultConfig())
	_, err := db.Table(tablekit.TableProps{TableName: "orders"})
	assert.ErrorIs(t, err, tkErrors.ErrInvalidTableProps)
}

func TestBatchPutThroughDB(t *testing.T) {
	client := new(mocks.MockDynamoDBClient)
	client.On("BatchWriteItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.BatchWriteItemInput) bool {
		return len(in.RequestItems["orders"]) == 2
	}), mock.Anything).Return(mocks.NewMockBatchWriteItemOutput("orders"), nil).Times(2)
	client.On("BatchWriteItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.BatchWriteItemInput) bool {
		return len(in.RequestItems["orders"]) == 1
	}), mock.Anything).Return(mocks.NewMockBatchWriteItemOutput("orders"), nil).Once()

	cfg := tablekit.DefaultConfig()
	cfg.MaxBatchSize = 2
	db := tablekit.NewWithClient(client, cfg)
	table, err := db.Table(ordersProps())
	require.NoError(t, err)

	orders := []order{{"o1", 1}, {"o2", 2}, {"o3", 3}, {"o4", 4}, {"o5", 5}}
	result, err := table.BatchPut(context.Background(), orders)
	require.NoError(t, err)
	assert.Len(t, result.Processed, 5)
	assert.Equal(t, 1, result.Rounds)

	var decoded []order
	require.NoError(t, tablekit.UnmarshalItems(result.Processed, &decoded))
	assert.Equal(t, orders, decoded)
	client.AssertExpectations(t)
}

func TestSchemaThroughDB(t *testing.T) {
	client := new(mocks.MockDynamoDBClient)
	client.On("DescribeTable", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, mocks.NewResourceNotFoundError("orders"))

	db := tablekit.NewWithClient(client, tablekit.DefaultConfig())
	exists, err := db.Schema().TableExists(context.Background(), "orders")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestNewTable(t *testing.T) {
	client := new(mocks.MockDynamoDBClient)
	client.On("GetItem", mock.Anything, mock.Anything, mock.Anything).
		Return(&dynamodb.GetItemOutput{Item: map[string]types.AttributeValue{
			"id":    &types.AttributeValueMemberS{Value: "o1"},
			"total": &types.AttributeValueMemberN{Value: "7"},
		}}, nil)

	var got order
	err := tablekit.NewTable(client, ordersProps()).Get(context.Background(), order{ID: "o1"}, &got)
	require.NoError(t, err)
	assert.Equal(t, order{ID: "o1", Total: 7}, got)
}

func TestNewAttributeMap(t *testing.T) {
	attrs := tablekit.NewAttributeMap()
	assert.Nil(t, attrs.ToExpressionAttributeNames())
	assert.Nil(t, attrs.ToExpressionAttributeValues())
}

func TestCreateTableThroughDB(t *testing.T) {
	client := new(mocks.MockDynamoDBClient)
	client.On("CreateTable", mock.Anything, mock.MatchedBy(func(in *dynamodb.CreateTableInput) bool {
		return *in.TableName == "orders"
	}), mock.Anything).Return(mocks.NewMockCreateTableOutput("orders"), nil)
	client.On("DescribeTable", mock.Anything, mock.Anything, mock.Anything).
		Return(mocks.NewMockDescribeTableOutput("orders", types.TableStatusActive), nil)

	db := tablekit.NewWithClient(client, tablekit.DefaultConfig())
	require.NoError(t, db.CreateTable(context.Background(), ordersProps()))
	client.AssertExpectations(t)
}

func TestReplicationHandler(t *testing.T) {
	client := new(mocks.MockDynamoDBClient)
	client.On("BatchWriteItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.BatchWriteItemInput) bool {
		reqs := in.RequestItems["orders"]
		return len(reqs) == 1 && reqs[0].PutRequest != nil
	}), mock.Anything).Return(mocks.NewMockBatchWriteItemOutput("orders"), nil).Once()

	db := tablekit.NewWithClient(client, tablekit.DefaultConfig())
	table, err := db.Table(ordersProps())
	require.NoError(t, err)

	err = db.ReplicationHandler(table).HandleReplication(context.Background(), events.DynamoDBEvent{
		Records: []events.DynamoDBEventRecord{{
			EventID:   "1",
			EventName: "INSERT",
			Change: events.DynamoDBStreamRecord{
				Keys: map[string]events.DynamoDBAttributeValue{"id": events.NewStringAttribute("o1")},
				NewImage: map[string]events.DynamoDBAttributeValue{
					"id":    events.NewStringAttribute("o1"),
					"total": events.NewNumberAttribute("3"),
				},
			},
		}},
	})
	require.NoError(t, err)
	client.AssertExpectations(t)
}
