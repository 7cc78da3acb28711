package schema

import (
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Validate checks a value against the field's declared kind and constraints.
// A nil value is valid for every kind; required-ness is the validation
// engine's concern. For containers, the field is valid iff every element is
// valid. For references, an unresolved pointer placeholder is accepted
// because resolution may still happen.
func (f *FieldSpec) Validate(value any) error {
	if value == nil {
		return nil
	}
	switch f.kind {
	case KindDynamic:
		return nil
	case KindSimple:
		canonical, err := f.coerce(value)
		if err != nil {
			return err
		}
		return f.checkConstraints(canonical)
	case KindContainer:
		return f.validateContainer(value)
	case KindReference:
		return f.validateReference(value)
	default:
		return fmt.Errorf("field %q: unknown kind %q", f.name, f.kind)
	}
}

// coerce converts a value to the canonical in-memory form of the field's
// simple type, or fails with a TypeMismatchError.
func (f *FieldSpec) coerce(value any) (any, error) {
	switch f.typ {
	case TypeString:
		s, ok := value.(string)
		if !ok {
			return nil, mismatch(value, "string")
		}
		return s, nil

	case TypeEmail:
		s, ok := value.(string)
		if !ok {
			return nil, mismatch(value, "string")
		}
		if !emailPattern.MatchString(s) {
			return nil, &ConstraintError{Field: f.name, Constraint: ConstraintFormat, Value: s, Message: "must be a valid email address"}
		}
		return s, nil

	case TypeURL:
		s, ok := value.(string)
		if !ok {
			return nil, mismatch(value, "string")
		}
		u, err := url.Parse(s)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, &ConstraintError{Field: f.name, Constraint: ConstraintFormat, Value: s, Message: "must be an absolute URL"}
		}
		return s, nil

	case TypeInt:
		switch n := value.(type) {
		case int:
			return int64(n), nil
		case int8:
			return int64(n), nil
		case int16:
			return int64(n), nil
		case int32:
			return int64(n), nil
		case int64:
			return n, nil
		case uint:
			return int64(n), nil
		case uint8:
			return int64(n), nil
		case uint16:
			return int64(n), nil
		case uint32:
			return int64(n), nil
		default:
			return nil, mismatch(value, "int")
		}

	case TypeFloat:
		switch n := value.(type) {
		case float64:
			return n, nil
		case float32:
			return float64(n), nil
		case int:
			return float64(n), nil
		case int32:
			return float64(n), nil
		case int64:
			return float64(n), nil
		default:
			return nil, mismatch(value, "float")
		}

	case TypeBool:
		b, ok := value.(bool)
		if !ok {
			return nil, mismatch(value, "bool")
		}
		return b, nil

	case TypeDateTime:
		t, ok := value.(time.Time)
		if !ok {
			return nil, mismatch(value, "time.Time")
		}
		return t, nil

	case TypeBinary:
		b, ok := value.([]byte)
		if !ok {
			return nil, mismatch(value, "[]byte")
		}
		return b, nil

	case TypeUUID:
		switch v := value.(type) {
		case uuid.UUID:
			return v.String(), nil
		case string:
			u, err := uuid.Parse(v)
			if err != nil {
				return nil, &ConstraintError{Field: f.name, Constraint: ConstraintFormat, Value: v, Message: "must be a valid UUID"}
			}
			return u.String(), nil
		default:
			return nil, mismatch(value, "uuid string")
		}

	default:
		return nil, fmt.Errorf("field %q: unknown simple type %q", f.name, f.typ)
	}
}

// checkConstraints applies numeric bounds and length to an already-coerced
// value. Numeric bounds are inclusive on both ends; string length counts
// characters, not bytes.
func (f *FieldSpec) checkConstraints(canonical any) error {
	if num, ok := asFloat(canonical); ok {
		if f.min != nil && num < *f.min {
			return &ConstraintError{Field: f.name, Constraint: ConstraintMin, Value: canonical, Message: fmt.Sprintf("must be at least %v", *f.min)}
		}
		if f.max != nil && num > *f.max {
			return &ConstraintError{Field: f.name, Constraint: ConstraintMax, Value: canonical, Message: fmt.Sprintf("must be at most %v", *f.max)}
		}
	}
	if f.length != nil {
		switch v := canonical.(type) {
		case string:
			if utf8.RuneCountInString(v) > *f.length {
				return &ConstraintError{Field: f.name, Constraint: ConstraintLength, Value: utf8.RuneCountInString(v), Message: fmt.Sprintf("must be at most %d characters", *f.length)}
			}
		case []byte:
			if len(v) > *f.length {
				return &ConstraintError{Field: f.name, Constraint: ConstraintLength, Value: len(v), Message: fmt.Sprintf("must be at most %d bytes", *f.length)}
			}
		}
	}
	return nil
}

// Canonical returns the coerced form of a simple-kind value, so values
// assigned as different Go types (int and int64, say) compare equal. Values
// of other kinds, and values that do not coerce, come back unchanged.
func (f *FieldSpec) Canonical(value any) any {
	if value == nil || f.kind != KindSimple {
		return value
	}
	if c, err := f.coerce(value); err == nil {
		return c
	}
	return value
}

// CheckChoice verifies membership in the declared choices. Comparison uses
// value equality on the already-coerced type.
func (f *FieldSpec) CheckChoice(value any) error {
	if len(f.choices) == 0 || value == nil {
		return nil
	}
	canonical := value
	if f.kind == KindSimple {
		if c, err := f.coerce(value); err == nil {
			canonical = c
		}
	}
	var options []string
	for _, choice := range f.choices {
		want := choice
		if f.kind == KindSimple {
			if c, err := f.coerce(choice); err == nil {
				want = c
			}
		}
		if reflect.DeepEqual(canonical, want) {
			return nil
		}
		options = append(options, fmt.Sprintf("%v", choice))
	}
	return &ConstraintError{
		Field:      f.name,
		Constraint: ConstraintChoices,
		Value:      value,
		Message:    fmt.Sprintf("must be one of: %s", strings.Join(options, ", ")),
	}
}

// validateContainer checks the container shape and every element. A
// container is valid iff all of its elements are valid; element errors are
// aggregated into a single failure attributed to the container field.
func (f *FieldSpec) validateContainer(value any) error {
	var failures []string
	switch f.shape {
	case ShapeList, ShapeSet, ShapeStream:
		elems, ok := value.([]any)
		if !ok {
			return mismatch(value, string(f.shape))
		}
		for i, elem := range elems {
			if err := f.elem.CheckChoice(elem); err != nil {
				failures = append(failures, fmt.Sprintf("element %d: %s", i, err))
			}
			if err := f.elem.Validate(elem); err != nil {
				failures = append(failures, fmt.Sprintf("element %d: %s", i, err))
			}
		}
	case ShapeDict:
		entries, ok := value.(map[string]any)
		if !ok {
			return mismatch(value, "dict")
		}
		keys := make([]string, 0, len(entries))
		for k := range entries {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if err := f.elem.CheckChoice(entries[k]); err != nil {
				failures = append(failures, fmt.Sprintf("key %q: %s", k, err))
			}
			if err := f.elem.Validate(entries[k]); err != nil {
				failures = append(failures, fmt.Sprintf("key %q: %s", k, err))
			}
		}
	default:
		return fmt.Errorf("field %q: unknown container shape %q", f.name, f.shape)
	}
	if len(failures) > 0 {
		return &ConstraintError{
			Field:      f.name,
			Constraint: ConstraintElements,
			Message:    fmt.Sprintf("invalid elements: %s", strings.Join(failures, "; ")),
		}
	}
	return nil
}

// validateReference accepts pointer placeholders as-is and type-checks
// record values against the resolved target.
func (f *FieldSpec) validateReference(value any) error {
	switch v := value.(type) {
	case *Pointer:
		// Not yet dereferenced; resolution may still happen.
		return nil
	case Record:
		target, err := f.target.Target()
		if err != nil {
			return err
		}
		if !v.Schema().AssignableTo(target) {
			return &TypeMismatchError{Actual: v.Schema().Name(), Expected: target.Name()}
		}
		return nil
	default:
		return mismatch(value, "document or pointer")
	}
}

func mismatch(value any, expected string) error {
	return &TypeMismatchError{Actual: fmt.Sprintf("%T", value), Expected: expected}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
