// Package marshal converts caller items to and from the DynamoDB wire representation.
package marshal

import (
	"fmt"
	"maps"
	"reflect"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/theory-cloud/tablekit/pkg/core"
	tkErrors "github.com/theory-cloud/tablekit/pkg/errors"
)

// Marshaler converts items using attributevalue with fixed encoder/decoder options.
type Marshaler struct {
	encode []func(*attributevalue.EncoderOptions)
	decode []func(*attributevalue.DecoderOptions)
}

// Config holds marshaler configuration.
type Config struct {
	// TagKey is the struct tag read for attribute names. Default: "dynamodbav".
	TagKey string `json:"tag_key" yaml:"tag_key"`
	// NullEmptySets encodes empty sets as NULL.
	NullEmptySets bool `json:"null_empty_sets" yaml:"null_empty_sets"`
}

// New creates a Marshaler for cfg.
func New(cfg Config) *Marshaler {
	m := &Marshaler{}
	if cfg.TagKey != "" {
		tagKey := cfg.TagKey
		m.encode = append(m.encode, func(o *attributevalue.EncoderOptions) { o.TagKey = tagKey })
		m.decode = append(m.decode, func(o *attributevalue.DecoderOptions) { o.TagKey = tagKey })
	}
	if cfg.NullEmptySets {
		m.encode = append(m.encode, func(o *attributevalue.EncoderOptions) { o.NullEmptySets = true })
	}
	return m
}

var defaultMarshaler = New(Config{})

// ToStoreItem converts item to a DynamoDB item using the default marshaler.
func ToStoreItem(item any) (core.Item, error) {
	return defaultMarshaler.ToStoreItem(item)
}

// FromStoreItem decodes a DynamoDB item into out using the default marshaler.
func FromStoreItem(item core.Item, out any) error {
	return defaultMarshaler.FromStoreItem(item, out)
}

// ExtractKey returns the key attributes of item using the default marshaler.
func ExtractKey(item any, key core.KeySchema) (core.Item, error) {
	return defaultMarshaler.ExtractKey(item, key)
}

// ToStoreItem converts a struct, map or already-encoded item to a DynamoDB item.
// An encoded item is copied so later changes by the caller do not leak in.
func (m *Marshaler) ToStoreItem(item any) (core.Item, error) {
	if encoded, ok := item.(core.Item); ok {
		if encoded == nil {
			return nil, fmt.Errorf("%w: nil item", tkErrors.ErrUnsupportedType)
		}
		return maps.Clone(encoded), nil
	}
	if !isDocument(item) {
		return nil, fmt.Errorf("%w: %T is not a struct or map", tkErrors.ErrUnsupportedType, item)
	}

	encoded, err := attributevalue.MarshalMapWithOptions(item, m.encode...)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal %T: %v", tkErrors.ErrUnsupportedType, item, err)
	}
	return encoded, nil
}

// FromStoreItem decodes a DynamoDB item into out.
func (m *Marshaler) FromStoreItem(item core.Item, out any) error {
	if err := attributevalue.UnmarshalMapWithOptions(item, out, m.decode...); err != nil {
		return fmt.Errorf("unmarshal item: %w", err)
	}
	return nil
}

// FromStoreItems decodes a list of DynamoDB items into out, which must point to a slice.
func (m *Marshaler) FromStoreItems(items []core.Item, out any) error {
	if err := attributevalue.UnmarshalListOfMapsWithOptions(items, out, m.decode...); err != nil {
		return fmt.Errorf("unmarshal items: %w", err)
	}
	return nil
}

// ExtractKey returns the partition key and, when the schema has one and the item
// carries it, the sort key.
func (m *Marshaler) ExtractKey(item any, key core.KeySchema) (core.Item, error) {
	if key.PartitionKey == "" {
		return nil, fmt.Errorf("%w: key schema has no partition key", tkErrors.ErrMissingPrimaryKey)
	}

	encoded, err := m.ToStoreItem(item)
	if err != nil {
		return nil, err
	}

	pk, ok := encoded[key.PartitionKey]
	if !present(pk, ok) {
		return nil, fmt.Errorf("%w: %s", tkErrors.ErrMissingPrimaryKey, key.PartitionKey)
	}

	out := core.Item{key.PartitionKey: pk}
	if key.HasSortKey() {
		if sk, ok := encoded[key.SortKey]; present(sk, ok) {
			out[key.SortKey] = sk
		}
	}
	return out, nil
}

// isDocument reports whether item encodes to a map; attributevalue silently
// returns an empty item for anything else.
func isDocument(item any) bool {
	v := reflect.ValueOf(item)
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return false
		}
		v = v.Elem()
	}
	return v.Kind() == reflect.Struct || v.Kind() == reflect.Map
}

func present(av types.AttributeValue, ok bool) bool {
	if !ok || av == nil {
		return false
	}
	_, isNull := av.(*types.AttributeValueMemberNULL)
	return !isNull
}
