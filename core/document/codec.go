package document

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/okenlabs/docweave/core/schema"
)

// Dereferencer resolves a pointer record to the storage map of the document
// it names, or (nil, nil) when the document is absent.
type Dereferencer interface {
	Dereference(ctx context.Context, p *schema.Pointer) (map[string]any, error)
}

// Codec converts documents to and from storage maps. With a dereferencer
// attached, decoding eagerly resolves pointer records into full documents;
// without one, pointers stay as placeholders for the caller to resolve.
type Codec struct {
	deref  Dereferencer
	logger zerolog.Logger
}

// CodecOption configures a Codec.
type CodecOption func(*Codec)

// WithDereferencer attaches a store capable of resolving pointer records.
func WithDereferencer(dr Dereferencer) CodecOption {
	return func(c *Codec) { c.deref = dr }
}

// WithLogger sets the codec's logger.
func WithLogger(logger zerolog.Logger) CodecOption {
	return func(c *Codec) { c.logger = logger }
}

// NewCodec returns a codec with the given options applied.
func NewCodec(opts ...CodecOption) *Codec {
	c := &Codec{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Encode validates the document and converts it to its storage map, one
// entry per field keyed by storage key. An invalid document fails here,
// before anything reaches the store.
func (c *Codec) Encode(d *Document) (map[string]any, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d.schema.EncodeRecord(d)
}

// Decode rebuilds a document from a storage map. Declared fields absent from
// the map fall back to their declared defaults, so documents stored before a
// field existed decode cleanly. Decoding fails fast on the first malformed
// value; a storage map that does not convert signals a broken store or
// schema drift, not user input.
func (c *Codec) Decode(ctx context.Context, s *schema.ModelSchema, m map[string]any) (*Document, error) {
	return c.decode(ctx, s, m, make(map[string]bool))
}

// decode tracks the identities on the current dereference path so a
// reference back into that path stays a pointer placeholder instead of
// recursing forever.
func (c *Codec) decode(ctx context.Context, s *schema.ModelSchema, m map[string]any, seen map[string]bool) (*Document, error) {
	if key, ok := documentKey(s, m); ok {
		seen[key] = true
		defer delete(seen, key)
	}
	d := New(s)
	for _, f := range s.Fields() {
		raw, ok := m[f.Key()]
		if !ok {
			if f.HasDefault() {
				d.values[f.Name()] = f.DefaultValue()
			}
			continue
		}
		if raw == nil {
			continue
		}
		v, err := f.FromStorage(raw)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name(), err)
		}
		rv, err := c.resolveValue(ctx, f, v, seen)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name(), err)
		}
		d.values[f.Name()] = rv
	}
	return d, nil
}

// resolveValue turns the pointer placeholders and embedded maps left by
// FromStorage into documents, recursing into containers.
func (c *Codec) resolveValue(ctx context.Context, f *schema.FieldSpec, v any, seen map[string]bool) (any, error) {
	switch f.Kind() {
	case schema.KindReference:
		switch rv := v.(type) {
		case *schema.Pointer:
			if c.deref == nil {
				return rv, nil
			}
			target, err := c.pointerTarget(f, rv)
			if err != nil {
				return nil, err
			}
			if rv.ID != nil && seen[refKey(target.Name(), rv.ID)] {
				c.logger.Debug().
					Str("type", rv.Type).
					Interface("id", rv.ID).
					Msg("reference back into the dereference path, keeping placeholder")
				return rv, nil
			}
			sm, err := c.deref.Dereference(ctx, rv)
			if err != nil {
				return nil, err
			}
			if sm == nil {
				c.logger.Debug().
					Str("type", rv.Type).
					Interface("id", rv.ID).
					Msg("pointer target absent, keeping placeholder")
				return rv, nil
			}
			return c.decode(ctx, target, sm, seen)
		case map[string]any:
			target, err := f.Target().Target()
			if err != nil {
				return nil, err
			}
			return c.decode(ctx, target, rv, seen)
		default:
			return rv, nil
		}
	case schema.KindContainer:
		switch cv := v.(type) {
		case []any:
			out := make([]any, len(cv))
			for i, elem := range cv {
				ev, err := c.resolveValue(ctx, f.Elem(), elem, seen)
				if err != nil {
					return nil, fmt.Errorf("element %d: %w", i, err)
				}
				out[i] = ev
			}
			return out, nil
		case map[string]any:
			out := make(map[string]any, len(cv))
			for k, elem := range cv {
				ev, err := c.resolveValue(ctx, f.Elem(), elem, seen)
				if err != nil {
					return nil, fmt.Errorf("key %q: %w", k, err)
				}
				out[k] = ev
			}
			return out, nil
		default:
			return v, nil
		}
	default:
		return v, nil
	}
}

// documentKey identifies a storage map by type name and stored primary key.
func documentKey(s *schema.ModelSchema, m map[string]any) (string, bool) {
	pk := s.PrimaryKeyField()
	if pk == nil {
		return "", false
	}
	id, ok := m[pk.Key()]
	if !ok || id == nil {
		return "", false
	}
	return refKey(s.Name(), id), true
}

func refKey(typeName string, id any) string {
	return typeName + "\x00" + fmt.Sprintf("%v", id)
}

// pointerTarget picks the schema a pointer decodes into: the stored type
// name when it is registered (references can hold subtypes of the declared
// target), otherwise the field's declared target.
func (c *Codec) pointerTarget(f *schema.FieldSpec, p *schema.Pointer) (*schema.ModelSchema, error) {
	if f.Owner() != nil {
		if s, ok := f.Owner().Registry().Lookup(p.Type); ok {
			return s, nil
		}
	}
	return f.Target().Target()
}
