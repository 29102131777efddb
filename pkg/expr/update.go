package expr

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Expression is a compiled expression together with its placeholder maps.
// Nil maps mean the request should omit the corresponding field.
type Expression struct {
	Names      map[string]string
	Values     map[string]types.AttributeValue
	Expression string
}

var updateActions = []string{"SET", "REMOVE", "ADD", "DELETE"}

// UpdateBuilder assembles an update expression.
type UpdateBuilder struct {
	attrs   *AttributeMap
	clauses map[string][]string
}

// NewUpdateBuilder creates a builder writing placeholders into attrs.
func NewUpdateBuilder(attrs *AttributeMap) *UpdateBuilder {
	if attrs == nil {
		attrs = NewAttributeMap()
	}
	return &UpdateBuilder{
		attrs:   attrs,
		clauses: make(map[string][]string),
	}
}

// Set assigns value to path. An absent value is skipped.
func (b *UpdateBuilder) Set(path AttributePath, value any) error {
	valueRef, err := b.attrs.AddValue(path, value)
	if err != nil || valueRef == "" {
		return err
	}
	b.clauses["SET"] = append(b.clauses["SET"], fmt.Sprintf("%s = %s", b.attrs.AddName(path), valueRef))
	return nil
}

// SetOrRemove assigns value to path, or removes the attribute when value is absent.
func (b *UpdateBuilder) SetOrRemove(path AttributePath, value any) error {
	valueRef, err := b.attrs.AddValue(path, value)
	if err != nil {
		return err
	}
	if valueRef == "" {
		b.Remove(path)
		return nil
	}
	b.clauses["SET"] = append(b.clauses["SET"], fmt.Sprintf("%s = %s", b.attrs.AddName(path), valueRef))
	return nil
}

// SetIfNotExists assigns value only when the attribute is missing.
func (b *UpdateBuilder) SetIfNotExists(path AttributePath, value any) error {
	valueRef, err := b.attrs.AddValue(path, value)
	if err != nil || valueRef == "" {
		return err
	}
	nameRef := b.attrs.AddName(path)
	b.clauses["SET"] = append(b.clauses["SET"], fmt.Sprintf("%s = if_not_exists(%s, %s)", nameRef, nameRef, valueRef))
	return nil
}

// Remove deletes the attribute at path.
func (b *UpdateBuilder) Remove(path AttributePath) {
	b.clauses["REMOVE"] = append(b.clauses["REMOVE"], b.attrs.AddName(path))
}

// Add increments a number or adds members to a set.
func (b *UpdateBuilder) Add(path AttributePath, value any) error {
	valueRef, err := b.attrs.AddValue(path, value)
	if err != nil || valueRef == "" {
		return err
	}
	b.clauses["ADD"] = append(b.clauses["ADD"], fmt.Sprintf("%s %s", b.attrs.AddName(path), valueRef))
	return nil
}

// Delete removes set members. value must be a Go set.
func (b *UpdateBuilder) Delete(path AttributePath, value any) error {
	if isAbsent(value) {
		return nil
	}
	set, err := ConvertSet(value)
	if err != nil {
		return err
	}
	valueRef, err := b.attrs.AddValue(path, set)
	if err != nil {
		return err
	}
	b.clauses["DELETE"] = append(b.clauses["DELETE"], fmt.Sprintf("%s %s", b.attrs.AddName(path), valueRef))
	return nil
}

// Empty reports whether no clause has been added.
func (b *UpdateBuilder) Empty() bool {
	return len(b.clauses) == 0
}

// Expression renders the clauses in SET, REMOVE, ADD, DELETE order.
func (b *UpdateBuilder) Expression() string {
	parts := make([]string, 0, len(updateActions))
	for _, action := range updateActions {
		if exprs := b.clauses[action]; len(exprs) > 0 {
			parts = append(parts, action+" "+strings.Join(exprs, ", "))
		}
	}
	return strings.Join(parts, " ")
}

// Build returns the update expression with the placeholder maps of the shared AttributeMap.
func (b *UpdateBuilder) Build() Expression {
	return Expression{
		Expression: b.Expression(),
		Names:      b.attrs.ToExpressionAttributeNames(),
		Values:     b.attrs.ToExpressionAttributeValues(),
	}
}
