package expr

import (
	"fmt"
	"reflect"
	"strings"

	tkErrors "github.com/theory-cloud/tablekit/pkg/errors"
)

// Conditional joins a condition to the ones before it.
type Conditional string

const (
	And Conditional = "AND"
	Or  Conditional = "OR"
)

// AttributeValueType names a DynamoDB attribute type for attribute_type checks.
type AttributeValueType string

const (
	TypeString    AttributeValueType = "S"
	TypeStringSet AttributeValueType = "SS"
	TypeNumber    AttributeValueType = "N"
	TypeNumberSet AttributeValueType = "NS"
	TypeBinary    AttributeValueType = "B"
	TypeBinarySet AttributeValueType = "BS"
	TypeBoolean   AttributeValueType = "BOOL"
	TypeNull      AttributeValueType = "NULL"
	TypeList      AttributeValueType = "L"
	TypeMap       AttributeValueType = "M"
)

func (t AttributeValueType) valid() bool {
	switch t {
	case TypeString, TypeStringSet, TypeNumber, TypeNumberSet, TypeBinary,
		TypeBinarySet, TypeBoolean, TypeNull, TypeList, TypeMap:
		return true
	}
	return false
}

// ConditionBuilder assembles a condition, filter or key condition expression.
// Placeholders go into the AttributeMap it was created with, so several builders
// for the same request can share one map.
type ConditionBuilder struct {
	attrs       *AttributeMap
	conditions  []string
	connectives []Conditional
}

// NewConditionBuilder creates a builder writing placeholders into attrs.
func NewConditionBuilder(attrs *AttributeMap) *ConditionBuilder {
	if attrs == nil {
		attrs = NewAttributeMap()
	}
	return &ConditionBuilder{attrs: attrs}
}

// Where adds a condition joined with AND.
func (b *ConditionBuilder) Where(path AttributePath, operator string, value any) error {
	return b.Add(And, path, operator, value)
}

// OrWhere adds a condition joined with OR.
func (b *ConditionBuilder) OrWhere(path AttributePath, operator string, value any) error {
	return b.Add(Or, path, operator, value)
}

// Add adds a condition joined to the previous one with conditional.
// Conditions whose value is absent are skipped, so optional filters need no
// pre-filtering by the caller.
func (b *ConditionBuilder) Add(conditional Conditional, path AttributePath, operator string, value any) error {
	if conditional != And && conditional != Or {
		return fmt.Errorf("%w: conditional %q", tkErrors.ErrInvalidOperator, conditional)
	}

	cond, err := b.buildCondition(path, operator, value)
	if err != nil || cond == "" {
		return err
	}

	if len(b.conditions) > 0 {
		b.connectives = append(b.connectives, conditional)
	}
	b.conditions = append(b.conditions, cond)
	return nil
}

// Exists adds attribute_exists or attribute_not_exists.
func (b *ConditionBuilder) Exists(conditional Conditional, path AttributePath, exists bool) error {
	if exists {
		return b.Add(conditional, path, "EXISTS", nil)
	}
	return b.Add(conditional, path, "NOT_EXISTS", nil)
}

// AttributeType adds an attribute_type check.
func (b *ConditionBuilder) AttributeType(conditional Conditional, path AttributePath, t AttributeValueType) error {
	return b.Add(conditional, path, "ATTRIBUTE_TYPE", t)
}

// Empty reports whether no condition has been added.
func (b *ConditionBuilder) Empty() bool {
	return len(b.conditions) == 0
}

// Expression renders the conditions left to right.
func (b *ConditionBuilder) Expression() string {
	if len(b.conditions) == 0 {
		return ""
	}

	var out strings.Builder
	out.WriteString(b.conditions[0])
	for i := 1; i < len(b.conditions); i++ {
		// The connective at i-1 links condition i-1 and condition i
		out.WriteString(" " + string(b.connectives[i-1]) + " ")
		out.WriteString(b.conditions[i])
	}
	return out.String()
}

// Build returns the expression with the placeholder maps of the shared AttributeMap.
func (b *ConditionBuilder) Build() Expression {
	return Expression{
		Expression: b.Expression(),
		Names:      b.attrs.ToExpressionAttributeNames(),
		Values:     b.attrs.ToExpressionAttributeValues(),
	}
}

func (b *ConditionBuilder) buildCondition(path AttributePath, operator string, value any) (string, error) {
	switch op := strings.ToUpper(strings.TrimSpace(operator)); op {
	case "=", "EQ", "<>", "!=", "NE", "<", "LT", "<=", "LE", ">", "GT", ">=", "GE":
		valueRef, err := b.attrs.AddValue(path, value)
		if err != nil || valueRef == "" {
			return "", err
		}
		return fmt.Sprintf("%s %s %s", b.attrs.AddName(path), comparison(op), valueRef), nil

	case "BETWEEN":
		bounds, err := toSlice(value)
		if err != nil || len(bounds) != 2 {
			return "", fmt.Errorf("%w: BETWEEN requires exactly two values", tkErrors.ErrInvalidOperator)
		}
		if isAbsent(bounds[0]) || isAbsent(bounds[1]) {
			return "", nil
		}
		lower, err := b.attrs.AddValue(path, bounds[0])
		if err != nil {
			return "", err
		}
		upper, err := b.attrs.AddValue(path, bounds[1])
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s BETWEEN %s AND %s", b.attrs.AddName(path), lower, upper), nil

	case "IN":
		if isAbsent(value) {
			return "", nil
		}
		values, err := toSlice(value)
		if err != nil {
			return "", err
		}
		if len(values) > 100 {
			return "", fmt.Errorf("%w: IN supports at most 100 values", tkErrors.ErrInvalidOperator)
		}
		refs := make([]string, 0, len(values))
		for _, v := range values {
			ref, err := b.attrs.AddValue(path, v)
			if err != nil {
				return "", err
			}
			if ref != "" {
				refs = append(refs, ref)
			}
		}
		if len(refs) == 0 {
			return "", nil
		}
		return fmt.Sprintf("%s IN (%s)", b.attrs.AddName(path), strings.Join(refs, ", ")), nil

	case "BEGINS_WITH", "CONTAINS":
		valueRef, err := b.attrs.AddValue(path, value)
		if err != nil || valueRef == "" {
			return "", err
		}
		return fmt.Sprintf("%s(%s, %s)", strings.ToLower(op), b.attrs.AddName(path), valueRef), nil

	case "EXISTS", "ATTRIBUTE_EXISTS":
		return fmt.Sprintf("attribute_exists(%s)", b.attrs.AddName(path)), nil

	case "NOT_EXISTS", "ATTRIBUTE_NOT_EXISTS":
		return fmt.Sprintf("attribute_not_exists(%s)", b.attrs.AddName(path)), nil

	case "ATTRIBUTE_TYPE":
		t, ok := value.(AttributeValueType)
		if !ok {
			if s, isString := value.(string); isString {
				t, ok = AttributeValueType(s), true
			}
		}
		if !ok || !t.valid() {
			return "", fmt.Errorf("%w: unknown attribute type %v", tkErrors.ErrInvalidOperator, value)
		}
		valueRef, err := b.attrs.AddValue(path, string(t))
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("attribute_type(%s, %s)", b.attrs.AddName(path), valueRef), nil

	default:
		return "", fmt.Errorf("%w: unsupported operator %q", tkErrors.ErrInvalidOperator, operator)
	}
}

func comparison(op string) string {
	switch op {
	case "EQ":
		return "="
	case "!=", "NE":
		return "<>"
	case "LT":
		return "<"
	case "LE":
		return "<="
	case "GT":
		return ">"
	case "GE":
		return ">="
	default:
		return op
	}
}

func toSlice(value any) ([]any, error) {
	if values, ok := value.([]any); ok {
		return values, nil
	}

	v := reflect.ValueOf(value)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return nil, fmt.Errorf("%w: expected a slice, got %T", tkErrors.ErrInvalidOperator, value)
	}
	out := make([]any, v.Len())
	for i := range out {
		out[i] = v.Index(i).Interface()
	}
	return out, nil
}
