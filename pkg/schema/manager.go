package schema

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/theory-cloud/tablekit/pkg/interfaces"
)

const defaultWaitTimeout = 5 * time.Minute

// Manager creates, inspects and deletes tables described by TableProps
type Manager struct {
	client      interfaces.DynamoDBClientInterface
	waiter      interfaces.TableWaiterInterface
	logger      *slog.Logger
	waitTimeout time.Duration
}

// ManagerOption configures a Manager
type ManagerOption func(*Manager)

// WithWaiter replaces the table-exists waiter
func WithWaiter(waiter interfaces.TableWaiterInterface) ManagerOption {
	return func(m *Manager) {
		m.waiter = waiter
	}
}

// WithWaitTimeout bounds how long CreateTable waits for the table to become active
func WithWaitTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) {
		m.waitTimeout = d
	}
}

// WithManagerLogger sets the logger
func WithManagerLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager creates a new schema manager
func NewManager(client interfaces.DynamoDBClientInterface, opts ...ManagerOption) *Manager {
	m := &Manager{
		client:      client,
		logger:      slog.Default(),
		waitTimeout: defaultWaitTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.waiter == nil {
		m.waiter = interfaces.NewTableExistsWaiterWrapper(client)
	}
	return m
}

// TableOption configures table creation options
type TableOption func(*dynamodb.CreateTableInput)

// WithBillingMode sets the billing mode for the table
func WithBillingMode(mode types.BillingMode) TableOption {
	return func(input *dynamodb.CreateTableInput) {
		input.BillingMode = mode
		if mode == types.BillingModePayPerRequest {
			input.ProvisionedThroughput = nil
			for i := range input.GlobalSecondaryIndexes {
				input.GlobalSecondaryIndexes[i].ProvisionedThroughput = nil
			}
		}
	}
}

// WithStreamSpecification enables DynamoDB streams
func WithStreamSpecification(view types.StreamViewType) TableOption {
	return func(input *dynamodb.CreateTableInput) {
		input.StreamSpecification = &types.StreamSpecification{
			StreamEnabled:  aws.Bool(true),
			StreamViewType: view,
		}
	}
}

// CreateTable creates the table and waits for it to become active. A table that
// already exists is not an error.
func (m *Manager) CreateTable(ctx context.Context, props TableProps, opts ...TableOption) error {
	input, err := props.CreateTableInput()
	if err != nil {
		return err
	}
	for _, opt := range opts {
		opt(input)
	}

	if _, err := m.client.CreateTable(ctx, input); err != nil {
		var existsErr *types.ResourceInUseException
		if errors.As(err, &existsErr) {
			m.logger.DebugContext(ctx, "table already exists", slog.String("table", props.TableName))
			return nil
		}
		return fmt.Errorf("failed to create table %s: %w", props.TableName, err)
	}

	m.logger.InfoContext(ctx, "created table", slog.String("table", props.TableName))

	if err := m.waiter.Wait(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(props.TableName),
	}, m.waitTimeout); err != nil {
		return fmt.Errorf("failed waiting for table %s to be active: %w", props.TableName, err)
	}
	return nil
}

// TableExists checks if a table exists
func (m *Manager) TableExists(ctx context.Context, tableName string) (bool, error) {
	_, err := m.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(tableName),
	})
	if err != nil {
		var notFoundErr *types.ResourceNotFoundException
		if errors.As(err, &notFoundErr) {
			return false, nil
		}
		return false, fmt.Errorf("failed to describe table %s: %w", tableName, err)
	}
	return true, nil
}

// DescribeTable returns the table description
func (m *Manager) DescribeTable(ctx context.Context, tableName string) (*types.TableDescription, error) {
	out, err := m.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(tableName),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to describe table %s: %w", tableName, err)
	}
	return out.Table, nil
}

// DeleteTable deletes a table. A table that does not exist is not an error.
func (m *Manager) DeleteTable(ctx context.Context, tableName string) error {
	_, err := m.client.DeleteTable(ctx, &dynamodb.DeleteTableInput{
		TableName: aws.String(tableName),
	})
	if err != nil {
		var notFoundErr *types.ResourceNotFoundException
		if errors.As(err, &notFoundErr) {
			return nil
		}
		return fmt.Errorf("failed to delete table %s: %w", tableName, err)
	}

	m.logger.InfoContext(ctx, "deleted table", slog.String("table", tableName))
	return nil
}
