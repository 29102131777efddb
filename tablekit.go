// Package tablekit is a client-side adapter for Amazon DynamoDB: batch writes
// that survive partial failure, and expression placeholders that never clash.
//
// Import path:
//
//	import "github.com/theory-cloud/tablekit"
//
// Implementation lives in `internal/adapter` and `pkg/...` so the repo root stays minimal.
package tablekit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"gopkg.in/yaml.v3"

	"github.com/theory-cloud/tablekit/internal/adapter"
	"github.com/theory-cloud/tablekit/pkg/core"
	"github.com/theory-cloud/tablekit/pkg/expr"
	"github.com/theory-cloud/tablekit/pkg/interfaces"
	"github.com/theory-cloud/tablekit/pkg/marshal"
	"github.com/theory-cloud/tablekit/pkg/queue"
	"github.com/theory-cloud/tablekit/pkg/schema"
	"github.com/theory-cloud/tablekit/pkg/session"
	"github.com/theory-cloud/tablekit/stream"
)

type (
	Table       = adapter.Table
	Query       = adapter.Query
	QueryResult = adapter.QueryResult
	WriteOption = adapter.WriteOption
	ReadOption  = adapter.ReadOption

	// Re-export types for convenience.
	Item        = core.Item
	KeySchema   = core.KeySchema
	RetryPolicy = core.RetryPolicy
	TableProps  = schema.TableProps
	Index       = schema.Index
	Attribute   = schema.Attribute
	DrainResult = queue.DrainResult
	Condition   = expr.ConditionBuilder
	Update      = expr.UpdateBuilder
)

var (
	WithCondition      = adapter.WithCondition
	WithConsistentRead = adapter.WithConsistentRead
	WithProjection     = adapter.WithProjection
)

// Config configures a DB.
type Config struct {
	Session session.Config `json:"session" yaml:"session"`
	Marshal marshal.Config `json:"marshal" yaml:"marshal"`
	// RetryPolicy bounds batch drain rounds. Nil uses core.DefaultRetryPolicy.
	RetryPolicy *core.RetryPolicy `json:"retry" yaml:"retry"`
	// MaxBatchSize overrides the 25-request chunk size when positive.
	MaxBatchSize int          `json:"max_batch_size" yaml:"max_batch_size"`
	Logger       *slog.Logger `json:"-" yaml:"-"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Session:     *session.DefaultConfig(),
		RetryPolicy: core.DefaultRetryPolicy(),
	}
}

// LoadConfig reads a YAML configuration on top of DefaultConfig.
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()
	return LoadConfig(f)
}

// DB binds a DynamoDB client to the settings shared by its tables.
type DB struct {
	client  interfaces.DynamoDBClientInterface
	schema  *schema.Manager
	logger  *slog.Logger
	options adapter.Options
}

// New creates a DB with an AWS session built from config.
func New(config Config) (*DB, error) {
	sess, err := session.NewSession(&config.Session)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	client, err := sess.DB()
	if err != nil {
		return nil, err
	}
	return NewWithClient(client, config), nil
}

// NewWithClient creates a DB around an existing client, e.g. a mock.
func NewWithClient(client interfaces.DynamoDBClientInterface, config Config) *DB {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	retry := config.RetryPolicy
	if retry == nil {
		retry = core.DefaultRetryPolicy()
	}
	return &DB{
		client: client,
		schema: schema.NewManager(client, schema.WithManagerLogger(logger)),
		logger: logger,
		options: adapter.Options{
			Marshaler:    marshal.New(config.Marshal),
			RetryPolicy:  retry,
			Logger:       logger,
			MaxBatchSize: config.MaxBatchSize,
		},
	}
}

// Table returns a Table for props after validating the definition.
func (db *DB) Table(props schema.TableProps) (*Table, error) {
	if err := props.Validate(); err != nil {
		return nil, err
	}
	return adapter.New(db.client, props, db.options), nil
}

// Schema returns the table lifecycle manager.
func (db *DB) Schema() *schema.Manager {
	return db.schema
}

// CreateTable creates the table described by props and waits until it is active.
func (db *DB) CreateTable(ctx context.Context, props schema.TableProps, opts ...schema.TableOption) error {
	return db.schema.CreateTable(ctx, props, opts...)
}

// ReplicationHandler returns a stream handler that replays events into table.
func (db *DB) ReplicationHandler(table *Table) *stream.Handler {
	return stream.NewHandler(table, db.logger)
}

// NewTable creates a Table with default options around client.
func NewTable(client interfaces.DynamoDBClientInterface, props schema.TableProps) *Table {
	return adapter.New(client, props, adapter.Options{RetryPolicy: core.DefaultRetryPolicy()})
}

// NewAttributeMap returns an empty expression placeholder map.
func NewAttributeMap() *expr.AttributeMap {
	return expr.NewAttributeMap()
}

func UnmarshalItem(item map[string]types.AttributeValue, dest any) error {
	return marshal.FromStoreItem(item, dest)
}

func UnmarshalItems(items []map[string]types.AttributeValue, dest any) error {
	return marshal.New(marshal.Config{}).FromStoreItems(items, dest)
}
