package expr

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	nameToken  = "#"
	valueToken = ":"
)

type nameEntry struct {
	placeholder string
	attrName    string
}

type valueEntry struct {
	value       types.AttributeValue
	placeholder string
}

// AttributeMap interns attribute names and values into expression placeholders.
// Use one AttributeMap per request; it is not safe for concurrent use.
type AttributeMap struct {
	names        map[string]nameEntry
	valueKeys    map[string]struct{}
	values       []valueEntry
	valueCounter int
}

// NewAttributeMap returns an empty AttributeMap.
func NewAttributeMap() *AttributeMap {
	return &AttributeMap{
		names:     make(map[string]nameEntry),
		valueKeys: make(map[string]struct{}),
	}
}

// AddName returns the placeholder for path. Each segment is interned once, so
// repeated references share a placeholder. Multi-segment paths come back dot-joined.
func (m *AttributeMap) AddName(path AttributePath) string {
	segments := path.Segments()
	tokens := make([]string, len(segments))
	for i, segment := range segments {
		attrName, index := splitIndex(segment)
		tokens[i] = m.addNameEntry(attrName) + index
	}
	return strings.Join(tokens, ".")
}

// AddValue stores value under a placeholder derived from the leaf segment of path.
// The first value gets no suffix (":id"); every later one is suffixed with the
// running counter (":id1", ":status2"). Absent values return "" and add nothing.
func (m *AttributeMap) AddValue(path AttributePath, value any) (string, error) {
	if isAbsent(value) {
		return "", nil
	}

	av, err := toAttributeValue(value)
	if err != nil {
		return "", fmt.Errorf("value for %s: %w", leaf(path), err)
	}

	if m.valueKeys == nil {
		m.valueKeys = make(map[string]struct{})
	}

	base := ValuePlaceholder(leaf(path))
	placeholder := base
	for {
		if m.valueCounter > 0 {
			placeholder = base + strconv.Itoa(m.valueCounter)
		}
		m.valueCounter++
		// a leaf like "a1" can collide with "a" plus the counter
		if _, taken := m.valueKeys[placeholder]; !taken {
			break
		}
	}

	m.valueKeys[placeholder] = struct{}{}
	m.values = append(m.values, valueEntry{placeholder: placeholder, value: av})
	return placeholder, nil
}

// ToExpressionAttributeNames returns placeholder to name, or nil when no names were added.
func (m *AttributeMap) ToExpressionAttributeNames() map[string]string {
	if len(m.names) == 0 {
		return nil
	}

	names := make(map[string]string, len(m.names))
	for _, entry := range m.names {
		names[entry.placeholder] = entry.attrName
	}
	return names
}

// ToExpressionAttributeValues returns placeholder to value, or nil when no values were added.
func (m *AttributeMap) ToExpressionAttributeValues() map[string]types.AttributeValue {
	if len(m.values) == 0 {
		return nil
	}

	values := make(map[string]types.AttributeValue, len(m.values))
	for _, entry := range m.values {
		values[entry.placeholder] = entry.value
	}
	return values
}

func (m *AttributeMap) addNameEntry(attrName string) string {
	if entry, ok := m.names[attrName]; ok {
		return entry.placeholder
	}
	if m.names == nil {
		m.names = make(map[string]nameEntry)
	}

	entry := nameEntry{placeholder: NamePlaceholder(attrName), attrName: attrName}
	m.names[attrName] = entry
	return entry.placeholder
}

// NamePlaceholder formats the name placeholder for an attribute.
func NamePlaceholder(attrName string) string {
	return nameToken + attrName
}

// ValuePlaceholder formats the unsuffixed value placeholder for an attribute.
func ValuePlaceholder(attrName string) string {
	return valueToken + attrName
}

func toAttributeValue(value any) (types.AttributeValue, error) {
	if av, ok := value.(types.AttributeValue); ok {
		return av, nil
	}
	if isSet(value) {
		return ConvertSet(value)
	}
	return attributevalue.Marshal(value)
}

func isAbsent(value any) bool {
	if value == nil {
		return true
	}

	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		return v.IsNil()
	default:
		return false
	}
}
