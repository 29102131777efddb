// Package validation checks table, index and attribute names against the
// limits DynamoDB enforces, so bad definitions fail before a request is sent.
package validation

import (
	"fmt"
	"regexp"
)

const (
	minTableNameLength = 3
	maxTableNameLength = 255
	// Key attribute names are limited to 255 bytes.
	maxKeyAttributeLength = 255
)

var namePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

// NameError describes a rejected name.
type NameError struct {
	Kind   string
	Name   string
	Detail string
}

func (e *NameError) Error() string {
	return fmt.Sprintf("invalid %s name %q: %s", e.Kind, e.Name, e.Detail)
}

// ValidateTableName validates a DynamoDB table name
func ValidateTableName(name string) error {
	return validateResourceName("table", name)
}

// ValidateIndexName validates a DynamoDB index name
func ValidateIndexName(name string) error {
	return validateResourceName("index", name)
}

// ValidateKeyAttributeName validates the name of a key attribute.
func ValidateKeyAttributeName(name string) error {
	if name == "" {
		return &NameError{Kind: "key attribute", Name: name, Detail: "name is empty"}
	}
	if len(name) > maxKeyAttributeLength {
		return &NameError{Kind: "key attribute", Name: name, Detail: fmt.Sprintf("longer than %d bytes", maxKeyAttributeLength)}
	}
	return nil
}

func validateResourceName(kind, name string) error {
	if len(name) < minTableNameLength || len(name) > maxTableNameLength {
		return &NameError{
			Kind:   kind,
			Name:   name,
			Detail: fmt.Sprintf("length must be between %d and %d", minTableNameLength, maxTableNameLength),
		}
	}
	if !namePattern.MatchString(name) {
		return &NameError{Kind: kind, Name: name, Detail: "allowed characters are a-z, A-Z, 0-9, '_', '-' and '.'"}
	}
	return nil
}
