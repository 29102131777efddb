// Package schema describes tables (keys and secondary indexes) and turns those
// descriptions into DynamoDB table definitions.
package schema

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"gopkg.in/yaml.v3"

	"github.com/theory-cloud/tablekit/pkg/core"
	tkErrors "github.com/theory-cloud/tablekit/pkg/errors"
	"github.com/theory-cloud/tablekit/pkg/validation"
)

// DefaultCapacityUnits is the provisioned read and write capacity used for
// tables and global indexes that do not set their own.
const DefaultCapacityUnits int64 = 10

// IndexType distinguishes global from local secondary indexes
type IndexType string

const (
	GlobalIndex IndexType = "Global"
	LocalIndex  IndexType = "Local"
)

// Attribute is a key attribute. Type defaults to S.
type Attribute struct {
	Name string                     `json:"name" yaml:"name"`
	Type types.ScalarAttributeType `json:"type,omitempty" yaml:"type,omitempty"`
}

func (a Attribute) scalarType() types.ScalarAttributeType {
	if a.Type == "" {
		return types.ScalarAttributeTypeS
	}
	return a.Type
}

// Index is a secondary index. Local indexes share the table's partition key and
// only name a sort key.
type Index struct {
	PartitionKey *Attribute `json:"partitionKey,omitempty" yaml:"partitionKey,omitempty"`
	SortKey      *Attribute `json:"sortKey,omitempty" yaml:"sortKey,omitempty"`
	Type         IndexType  `json:"type" yaml:"type"`
	// Projection defaults to ALL.
	Projection       types.ProjectionType `json:"projection,omitempty" yaml:"projection,omitempty"`
	NonKeyAttributes []string             `json:"nonKeyAttributes,omitempty" yaml:"nonKeyAttributes,omitempty"`
}

// TableProps holds everything needed to create and address a table.
type TableProps struct {
	SortKey      *Attribute       `json:"sortKey,omitempty" yaml:"sortKey,omitempty"`
	Indexes      map[string]Index `json:"indexes,omitempty" yaml:"indexes,omitempty"`
	TableName    string           `json:"tableName" yaml:"tableName"`
	PartitionKey Attribute        `json:"partitionKey" yaml:"partitionKey"`
	// ReadCapacity and WriteCapacity default to DefaultCapacityUnits.
	ReadCapacity  int64 `json:"readCapacity,omitempty" yaml:"readCapacity,omitempty"`
	WriteCapacity int64 `json:"writeCapacity,omitempty" yaml:"writeCapacity,omitempty"`
}

// KeySchema returns the primary key attribute names.
func (p TableProps) KeySchema() core.KeySchema {
	key := core.KeySchema{PartitionKey: p.PartitionKey.Name}
	if p.SortKey != nil {
		key.SortKey = p.SortKey.Name
	}
	return key
}

// IndexKeySchema returns the key attribute names of the named index.
func (p TableProps) IndexKeySchema(name string) (core.KeySchema, bool) {
	index, ok := p.Indexes[name]
	if !ok {
		return core.KeySchema{}, false
	}

	key := core.KeySchema{PartitionKey: p.PartitionKey.Name}
	if index.Type == GlobalIndex && index.PartitionKey != nil {
		key.PartitionKey = index.PartitionKey.Name
	}
	if index.SortKey != nil {
		key.SortKey = index.SortKey.Name
	}
	return key, true
}

// Validate reports the first structural problem in the definition.
func (p TableProps) Validate() error {
	if p.TableName == "" {
		return fmt.Errorf("%w: table name is required", tkErrors.ErrInvalidTableProps)
	}
	if p.PartitionKey.Name == "" {
		return fmt.Errorf("%w: %s: partition key is required", tkErrors.ErrInvalidTableProps, p.TableName)
	}
	if p.SortKey != nil && p.SortKey.Name == "" {
		return fmt.Errorf("%w: %s: sort key has no name", tkErrors.ErrInvalidTableProps, p.TableName)
	}
	if err := validation.ValidateTableName(p.TableName); err != nil {
		return fmt.Errorf("%w: %w", tkErrors.ErrInvalidTableProps, err)
	}
	if err := validateKeyNames(p.TableName, &p.PartitionKey, p.SortKey); err != nil {
		return err
	}

	for name, index := range p.Indexes {
		if err := validation.ValidateIndexName(name); err != nil {
			return fmt.Errorf("%w: %s: %w", tkErrors.ErrInvalidTableProps, p.TableName, err)
		}
		if err := validateKeyNames(p.TableName, index.PartitionKey, index.SortKey); err != nil {
			return err
		}
		switch index.Type {
		case GlobalIndex:
			if index.PartitionKey == nil || index.PartitionKey.Name == "" {
				return fmt.Errorf("%w: %s: global index %s needs a partition key", tkErrors.ErrInvalidTableProps, p.TableName, name)
			}
		case LocalIndex:
			if index.SortKey == nil || index.SortKey.Name == "" {
				return fmt.Errorf("%w: %s: local index %s needs a sort key", tkErrors.ErrInvalidTableProps, p.TableName, name)
			}
		default:
			return fmt.Errorf("%w: %s: index %s has unknown type %q", tkErrors.ErrInvalidTableProps, p.TableName, name, index.Type)
		}
	}
	return nil
}

func validateKeyNames(table string, keys ...*Attribute) error {
	for _, key := range keys {
		if key == nil || key.Name == "" {
			continue
		}
		if err := validation.ValidateKeyAttributeName(key.Name); err != nil {
			return fmt.Errorf("%w: %s: %w", tkErrors.ErrInvalidTableProps, table, err)
		}
	}
	return nil
}

// CreateTableInput builds the CreateTable request for the table. Key schemas list
// the HASH key then the RANGE key; every key attribute is defined once, with the
// type of its first occurrence. Indexes are emitted in name order.
func (p TableProps) CreateTableInput() (*dynamodb.CreateTableInput, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	b := &definitionBuilder{seen: map[string]struct{}{}}
	input := &dynamodb.CreateTableInput{
		TableName:             aws.String(p.TableName),
		BillingMode:           types.BillingModeProvisioned,
		ProvisionedThroughput: p.throughput(),
		KeySchema:             b.keySchema(&p.PartitionKey, p.SortKey),
	}

	names := make([]string, 0, len(p.Indexes))
	for name := range p.Indexes {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		index := p.Indexes[name]
		projection := index.projection()

		switch index.Type {
		case LocalIndex:
			input.LocalSecondaryIndexes = append(input.LocalSecondaryIndexes, types.LocalSecondaryIndex{
				IndexName:  aws.String(name),
				KeySchema:  b.keySchema(&p.PartitionKey, index.SortKey),
				Projection: projection,
			})
		case GlobalIndex:
			input.GlobalSecondaryIndexes = append(input.GlobalSecondaryIndexes, types.GlobalSecondaryIndex{
				IndexName:             aws.String(name),
				KeySchema:             b.keySchema(index.PartitionKey, index.SortKey),
				Projection:            projection,
				ProvisionedThroughput: p.throughput(),
			})
		}
	}

	input.AttributeDefinitions = b.definitions
	return input, nil
}

func (p TableProps) throughput() *types.ProvisionedThroughput {
	rcu, wcu := p.ReadCapacity, p.WriteCapacity
	if rcu <= 0 {
		rcu = DefaultCapacityUnits
	}
	if wcu <= 0 {
		wcu = DefaultCapacityUnits
	}
	return &types.ProvisionedThroughput{
		ReadCapacityUnits:  aws.Int64(rcu),
		WriteCapacityUnits: aws.Int64(wcu),
	}
}

func (i Index) projection() *types.Projection {
	projection := &types.Projection{ProjectionType: types.ProjectionTypeAll}
	if i.Projection != "" {
		projection.ProjectionType = i.Projection
	}
	if projection.ProjectionType == types.ProjectionTypeInclude && len(i.NonKeyAttributes) > 0 {
		projection.NonKeyAttributes = append([]string(nil), i.NonKeyAttributes...)
	}
	return projection
}

type definitionBuilder struct {
	seen        map[string]struct{}
	definitions []types.AttributeDefinition
}

func (b *definitionBuilder) keySchema(hash, rangeKey *Attribute) []types.KeySchemaElement {
	var schema []types.KeySchemaElement
	for _, key := range []struct {
		attr *Attribute
		kind types.KeyType
	}{{hash, types.KeyTypeHash}, {rangeKey, types.KeyTypeRange}} {
		if key.attr == nil || key.attr.Name == "" {
			continue
		}
		schema = append(schema, types.KeySchemaElement{
			AttributeName: aws.String(key.attr.Name),
			KeyType:       key.kind,
		})
		if _, ok := b.seen[key.attr.Name]; ok {
			continue
		}
		b.seen[key.attr.Name] = struct{}{}
		b.definitions = append(b.definitions, types.AttributeDefinition{
			AttributeName: aws.String(key.attr.Name),
			AttributeType: key.attr.scalarType(),
		})
	}
	return schema
}

// LoadTableProps decodes and validates a YAML table definition.
func LoadTableProps(r io.Reader) (TableProps, error) {
	var props TableProps
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&props); err != nil {
		return TableProps{}, fmt.Errorf("%w: decode yaml: %v", tkErrors.ErrInvalidTableProps, err)
	}
	if err := props.Validate(); err != nil {
		return TableProps{}, err
	}
	return props, nil
}

// LoadTablePropsFile reads a YAML table definition from path.
func LoadTablePropsFile(path string) (TableProps, error) {
	f, err := os.Open(path)
	if err != nil {
		return TableProps{}, fmt.Errorf("open table definition: %w", err)
	}
	defer f.Close()
	return LoadTableProps(f)
}
