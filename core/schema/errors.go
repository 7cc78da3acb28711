package schema

import (
	"fmt"
	"strings"
)

// SchemaError reports a malformed record-type declaration. It is fatal at
// declaration time and never recovered from.
type SchemaError struct {
	// Type is the record type whose declaration failed.
	Type string

	// Message describes what is wrong with the declaration.
	Message string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema %q: %s", e.Type, e.Message)
}

func schemaErrorf(typeName, format string, args ...any) *SchemaError {
	return &SchemaError{Type: typeName, Message: fmt.Sprintf(format, args...)}
}

// BindingError reports that a reference field was exercised while its target
// type was still unresolved. It is recoverable: declare the missing type and
// retry.
type BindingError struct {
	// Field is the reference field that was exercised.
	Field string

	// Target is the symbolic type name that has not been declared yet.
	Target string
}

func (e *BindingError) Error() string {
	return fmt.Sprintf("field %q: target type %q is not declared", e.Field, e.Target)
}

// TypeMismatchError reports a value whose type does not match the field's
// declared type.
type TypeMismatchError struct {
	Actual   string
	Expected string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("got %s, want %s", e.Actual, e.Expected)
}

// ConstraintError represents a single field validation failure.
type ConstraintError struct {
	Field      string `json:"field"`
	Constraint string `json:"constraint"`
	Value      any    `json:"value,omitempty"`
	Message    string `json:"message"`
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Constraint names used by ConstraintError.
const (
	ConstraintRequired   = "required"
	ConstraintChoices    = "choices"
	ConstraintMin        = "min"
	ConstraintMax        = "max"
	ConstraintLength     = "length"
	ConstraintUniqueWith = "unique_with"
	ConstraintFormat     = "format"
	ConstraintElements   = "elements"
)

// AggregateError collects every field-level violation found in one validation
// pass, grouped by field name. It is the only error a caller of Validate ever
// sees for invalid documents.
type AggregateError struct {
	fields map[string][]error
	order  []string
}

// NewAggregateError returns an empty aggregate.
func NewAggregateError() *AggregateError {
	return &AggregateError{fields: make(map[string][]error)}
}

// Add records a violation against a field. Field order is preserved for
// deterministic rendering.
func (e *AggregateError) Add(field string, err error) {
	if err == nil {
		return
	}
	if _, ok := e.fields[field]; !ok {
		e.order = append(e.order, field)
	}
	e.fields[field] = append(e.fields[field], err)
}

// Empty reports whether no violations were recorded.
func (e *AggregateError) Empty() bool {
	return len(e.fields) == 0
}

// Fields returns the violations grouped by field name.
func (e *AggregateError) Fields() map[string][]error {
	return e.fields
}

// Field returns the violations recorded against one field.
func (e *AggregateError) Field(name string) []error {
	return e.fields[name]
}

// ErrOrNil returns the aggregate when it holds violations, nil otherwise.
func (e *AggregateError) ErrOrNil() error {
	if e.Empty() {
		return nil
	}
	return e
}

// Error renders one line per offending field with field name and reason.
func (e *AggregateError) Error() string {
	var b strings.Builder
	b.WriteString("document failed to validate")
	for _, name := range e.order {
		for _, err := range e.fields[name] {
			fmt.Fprintf(&b, "\nfield %q: %s", name, reason(name, err))
		}
	}
	return b.String()
}

// reason strips a leading "field: " produced by ConstraintError so the line
// does not repeat the field name.
func reason(field string, err error) string {
	return strings.TrimPrefix(err.Error(), field+": ")
}
