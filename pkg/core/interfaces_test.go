package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeySchemaHasSortKey(t *testing.T) {
	assert.False(t, KeySchema{PartitionKey: "id"}.HasSortKey())
	assert.True(t, KeySchema{PartitionKey: "id", SortKey: "created"}.HasSortKey())
}
