package schema

import (
	"encoding/base64"
	"fmt"
	"time"
)

// ToStorage converts a validated in-memory value to its storage
// representation. Simple kinds coerce to the canonical wire type, containers
// map elements preserving shape, and references produce a pointer record
// unless the field is embedded, in which case the full nested document is
// inlined.
func (f *FieldSpec) ToStorage(value any) (any, error) {
	return f.toStorage(value, make(map[Record]bool))
}

// toStorage threads the records on the current embedding path through
// container and reference conversion so embedded cycles are detected.
func (f *FieldSpec) toStorage(value any, seen map[Record]bool) (any, error) {
	if value == nil {
		return nil, nil
	}
	switch f.kind {
	case KindDynamic:
		return value, nil
	case KindSimple:
		return f.coerce(value)
	case KindContainer:
		return f.containerToStorage(value, seen)
	case KindReference:
		return f.referenceToStorage(value, seen)
	default:
		return nil, fmt.Errorf("field %q: unknown kind %q", f.name, f.kind)
	}
}

func (f *FieldSpec) containerToStorage(value any, seen map[Record]bool) (any, error) {
	switch f.shape {
	case ShapeList, ShapeSet, ShapeStream:
		elems, ok := value.([]any)
		if !ok {
			return nil, mismatch(value, string(f.shape))
		}
		out := make([]any, len(elems))
		for i, elem := range elems {
			sv, err := f.elem.toStorage(elem, seen)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = sv
		}
		return out, nil
	case ShapeDict:
		entries, ok := value.(map[string]any)
		if !ok {
			return nil, mismatch(value, "dict")
		}
		out := make(map[string]any, len(entries))
		for k, elem := range entries {
			sv, err := f.elem.toStorage(elem, seen)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			out[k] = sv
		}
		return out, nil
	default:
		return nil, fmt.Errorf("field %q: unknown container shape %q", f.name, f.shape)
	}
}

func (f *FieldSpec) referenceToStorage(value any, seen map[Record]bool) (any, error) {
	switch v := value.(type) {
	case *Pointer:
		if f.embed {
			return nil, fmt.Errorf("field %q: cannot inline a pointer placeholder; dereference it first", f.name)
		}
		return v.StorageMap(), nil
	case Record:
		target, err := f.target.Target()
		if err != nil {
			return nil, err
		}
		if f.embed {
			return target.encodeRecord(v, seen)
		}
		id := v.PK()
		if id == nil {
			return nil, fmt.Errorf("field %q: referenced document has no primary key", f.name)
		}
		return target.Pointer(id).StorageMap(), nil
	default:
		return nil, mismatch(value, "document or pointer")
	}
}

// FromStorage converts a storage value back to the canonical in-memory
// form. References come back as pointer placeholders (or the raw nested map
// when embedded); the codec engine turns those into documents.
func (f *FieldSpec) FromStorage(value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	switch f.kind {
	case KindDynamic:
		return value, nil
	case KindSimple:
		return f.simpleFromStorage(value)
	case KindContainer:
		return f.containerFromStorage(value)
	case KindReference:
		if m, ok := value.(map[string]any); ok {
			if p, ok := PointerFromMap(m); ok {
				return p, nil
			}
			// Embedded document; left as a map for the codec to rebuild.
			return m, nil
		}
		if p, ok := value.(*Pointer); ok {
			return p, nil
		}
		return nil, mismatch(value, "pointer record")
	default:
		return nil, fmt.Errorf("field %q: unknown kind %q", f.name, f.kind)
	}
}

// simpleFromStorage undoes the storage encoding, tolerating the widening the
// storage layer's JSON round-trip applies (ints as float64, times and binary
// as strings).
func (f *FieldSpec) simpleFromStorage(value any) (any, error) {
	switch f.typ {
	case TypeInt:
		if n, ok := value.(float64); ok {
			if n != float64(int64(n)) {
				return nil, mismatch(value, "int")
			}
			return int64(n), nil
		}
	case TypeDateTime:
		if s, ok := value.(string); ok {
			t, err := time.Parse(time.RFC3339Nano, s)
			if err != nil {
				return nil, mismatch(value, "time.Time")
			}
			return t, nil
		}
	case TypeBinary:
		if s, ok := value.(string); ok {
			b, err := base64.StdEncoding.DecodeString(s)
			if err != nil {
				return nil, mismatch(value, "[]byte")
			}
			return b, nil
		}
	}
	return f.coerce(value)
}

func (f *FieldSpec) containerFromStorage(value any) (any, error) {
	switch f.shape {
	case ShapeList, ShapeSet, ShapeStream:
		elems, ok := value.([]any)
		if !ok {
			return nil, mismatch(value, string(f.shape))
		}
		out := make([]any, len(elems))
		for i, elem := range elems {
			mv, err := f.elem.FromStorage(elem)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = mv
		}
		return out, nil
	case ShapeDict:
		entries, ok := value.(map[string]any)
		if !ok {
			return nil, mismatch(value, "dict")
		}
		out := make(map[string]any, len(entries))
		for k, elem := range entries {
			mv, err := f.elem.FromStorage(elem)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			out[k] = mv
		}
		return out, nil
	default:
		return nil, fmt.Errorf("field %q: unknown container shape %q", f.name, f.shape)
	}
}
