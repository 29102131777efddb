package schema_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theory-cloud/tablekit/pkg/core"
	tkErrors "github.com/theory-cloud/tablekit/pkg/errors"
	"github.com/theory-cloud/tablekit/pkg/schema"
)

func usersTable() schema.TableProps {
	return schema.TableProps{
		TableName:    "users",
		PartitionKey: schema.Attribute{Name: "id"},
		SortKey:      &schema.Attribute{Name: "created", Type: types.ScalarAttributeTypeN},
		Indexes: map[string]schema.Index{
			"byStatus": {Type: schema.LocalIndex, SortKey: &schema.Attribute{Name: "status"}},
			"byOrg": {
				Type:         schema.GlobalIndex,
				PartitionKey: &schema.Attribute{Name: "org"},
				SortKey:      &schema.Attribute{Name: "created", Type: types.ScalarAttributeTypeN},
			},
			"byEmail": {
				Type:             schema.GlobalIndex,
				PartitionKey:     &schema.Attribute{Name: "email"},
				Projection:       types.ProjectionTypeInclude,
				NonKeyAttributes: []string{"name"},
			},
		},
	}
}

func keyElement(name string, kind types.KeyType) types.KeySchemaElement {
	return types.KeySchemaElement{AttributeName: aws.String(name), KeyType: kind}
}

func definition(name string, kind types.ScalarAttributeType) types.AttributeDefinition {
	return types.AttributeDefinition{AttributeName: aws.String(name), AttributeType: kind}
}

func TestCreateTableInput(t *testing.T) {
	input, err := usersTable().CreateTableInput()
	require.NoError(t, err)

	assert.Equal(t, "users", aws.ToString(input.TableName))
	assert.Equal(t, types.BillingModeProvisioned, input.BillingMode)
	assert.Equal(t, int64(10), aws.ToInt64(input.ProvisionedThroughput.ReadCapacityUnits))
	assert.Equal(t, int64(10), aws.ToInt64(input.ProvisionedThroughput.WriteCapacityUnits))

	assert.Equal(t, []types.KeySchemaElement{
		keyElement("id", types.KeyTypeHash),
		keyElement("created", types.KeyTypeRange),
	}, input.KeySchema)

	assert.Equal(t, []types.AttributeDefinition{
		definition("id", types.ScalarAttributeTypeS),
		definition("created", types.ScalarAttributeTypeN),
		definition("email", types.ScalarAttributeTypeS),
		definition("org", types.ScalarAttributeTypeS),
		definition("status", types.ScalarAttributeTypeS),
	}, input.AttributeDefinitions)

	require.Len(t, input.GlobalSecondaryIndexes, 2)
	email := input.GlobalSecondaryIndexes[0]
	assert.Equal(t, "byEmail", aws.ToString(email.IndexName))
	assert.Equal(t, []types.KeySchemaElement{keyElement("email", types.KeyTypeHash)}, email.KeySchema)
	assert.Equal(t, types.ProjectionTypeInclude, email.Projection.ProjectionType)
	assert.Equal(t, []string{"name"}, email.Projection.NonKeyAttributes)
	assert.Equal(t, int64(10), aws.ToInt64(email.ProvisionedThroughput.ReadCapacityUnits))

	org := input.GlobalSecondaryIndexes[1]
	assert.Equal(t, "byOrg", aws.ToString(org.IndexName))
	assert.Equal(t, []types.KeySchemaElement{
		keyElement("org", types.KeyTypeHash),
		keyElement("created", types.KeyTypeRange),
	}, org.KeySchema)
	assert.Equal(t, types.ProjectionTypeAll, org.Projection.ProjectionType)

	require.Len(t, input.LocalSecondaryIndexes, 1)
	status := input.LocalSecondaryIndexes[0]
	assert.Equal(t, "byStatus", aws.ToString(status.IndexName))
	assert.Equal(t, []types.KeySchemaElement{
		keyElement("id", types.KeyTypeHash),
		keyElement("status", types.KeyTypeRange),
	}, status.KeySchema)
	assert.Equal(t, types.ProjectionTypeAll, status.Projection.ProjectionType)
}

func TestCreateTableInputPartitionKeyOnly(t *testing.T) {
	props := schema.TableProps{
		TableName:     "events",
		PartitionKey:  schema.Attribute{Name: "id", Type: types.ScalarAttributeTypeB},
		ReadCapacity:  3,
		WriteCapacity: 4,
	}

	input, err := props.CreateTableInput()
	require.NoError(t, err)
	assert.Equal(t, []types.KeySchemaElement{keyElement("id", types.KeyTypeHash)}, input.KeySchema)
	assert.Equal(t, []types.AttributeDefinition{definition("id", types.ScalarAttributeTypeB)}, input.AttributeDefinitions)
	assert.Nil(t, input.GlobalSecondaryIndexes)
	assert.Nil(t, input.LocalSecondaryIndexes)
	assert.Equal(t, int64(3), aws.ToInt64(input.ProvisionedThroughput.ReadCapacityUnits))
	assert.Equal(t, int64(4), aws.ToInt64(input.ProvisionedThroughput.WriteCapacityUnits))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		props schema.TableProps
		want  string
	}{
		{"missing table name", schema.TableProps{PartitionKey: schema.Attribute{Name: "id"}}, "table name"},
		{"missing partition key", schema.TableProps{TableName: "tbl"}, "partition key is required"},
		{"unnamed sort key", schema.TableProps{TableName: "tbl", PartitionKey: schema.Attribute{Name: "id"}, SortKey: &schema.Attribute{}}, "sort key has no name"},
		{
			"global without partition key",
			schema.TableProps{TableName: "tbl", PartitionKey: schema.Attribute{Name: "id"}, Indexes: map[string]schema.Index{
				"gsi": {Type: schema.GlobalIndex, SortKey: &schema.Attribute{Name: "s"}},
			}},
			"global index gsi",
		},
		{
			"local without sort key",
			schema.TableProps{TableName: "tbl", PartitionKey: schema.Attribute{Name: "id"}, Indexes: map[string]schema.Index{
				"lsi": {Type: schema.LocalIndex},
			}},
			"local index lsi",
		},
		{"short table name", schema.TableProps{TableName: "t", PartitionKey: schema.Attribute{Name: "id"}}, `invalid table name "t"`},
		{"bad table characters", schema.TableProps{TableName: "my table", PartitionKey: schema.Attribute{Name: "id"}}, `invalid table name "my table"`},
		{
			"bad index name",
			schema.TableProps{TableName: "tbl", PartitionKey: schema.Attribute{Name: "id"}, Indexes: map[string]schema.Index{
				"by org": {Type: schema.GlobalIndex, PartitionKey: &schema.Attribute{Name: "org"}},
			}},
			`invalid index name "by org"`,
		},
		{
			"unknown index type",
			schema.TableProps{TableName: "tbl", PartitionKey: schema.Attribute{Name: "id"}, Indexes: map[string]schema.Index{
				"idx": {Type: "Sparse"},
			}},
			`unknown type "Sparse"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.props.Validate()
			require.ErrorIs(t, err, tkErrors.ErrInvalidTableProps)
			assert.Contains(t, err.Error(), tt.want)

			_, err = tt.props.CreateTableInput()
			assert.ErrorIs(t, err, tkErrors.ErrInvalidTableProps)
		})
	}
}

func TestKeySchemas(t *testing.T) {
	props := usersTable()
	assert.Equal(t, core.KeySchema{PartitionKey: "id", SortKey: "created"}, props.KeySchema())

	key, ok := props.IndexKeySchema("byOrg")
	require.True(t, ok)
	assert.Equal(t, core.KeySchema{PartitionKey: "org", SortKey: "created"}, key)

	key, ok = props.IndexKeySchema("byStatus")
	require.True(t, ok)
	assert.Equal(t, core.KeySchema{PartitionKey: "id", SortKey: "status"}, key)

	_, ok = props.IndexKeySchema("missing")
	assert.False(t, ok)
}

const usersYAML = `
tableName: users
partitionKey:
  name: id
sortKey:
  name: created
  type: N
readCapacity: 5
indexes:
  byOrg:
    type: Global
    partitionKey:
      name: org
  byStatus:
    type: Local
    sortKey:
      name: status
`

func TestLoadTableProps(t *testing.T) {
	props, err := schema.LoadTableProps(strings.NewReader(usersYAML))
	require.NoError(t, err)

	assert.Equal(t, "users", props.TableName)
	assert.Equal(t, schema.Attribute{Name: "id"}, props.PartitionKey)
	assert.Equal(t, &schema.Attribute{Name: "created", Type: types.ScalarAttributeTypeN}, props.SortKey)
	assert.Equal(t, int64(5), props.ReadCapacity)
	require.Len(t, props.Indexes, 2)
	assert.Equal(t, schema.GlobalIndex, props.Indexes["byOrg"].Type)
	assert.Equal(t, "status", props.Indexes["byStatus"].SortKey.Name)
}

func TestLoadTablePropsErrors(t *testing.T) {
	_, err := schema.LoadTableProps(strings.NewReader("tableName: t\nunknownField: 1\n"))
	assert.ErrorIs(t, err, tkErrors.ErrInvalidTableProps)

	_, err = schema.LoadTableProps(strings.NewReader("tableName: t\n"))
	assert.ErrorIs(t, err, tkErrors.ErrInvalidTableProps)
}

func TestLoadTablePropsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.yaml")
	require.NoError(t, os.WriteFile(path, []byte(usersYAML), 0o600))

	props, err := schema.LoadTablePropsFile(path)
	require.NoError(t, err)
	assert.Equal(t, "users", props.TableName)

	_, err = schema.LoadTablePropsFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
