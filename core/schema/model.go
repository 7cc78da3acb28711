package schema

import "fmt"

// ModelSchema is the compiled description of one record type: its fields in
// declaration order, its merged options, and its primary key. A schema is
// built exactly once and immutable afterwards, except for deferred reference
// resolution inside individual field specs.
type ModelSchema struct {
	name     string
	parent   *ModelSchema
	fields   map[string]*FieldSpec
	order    []string
	meta     Meta
	pk       *FieldSpec
	registry *Registry
}

// Record is the runtime view of a document instance the schema layer needs:
// enough to type-check reference values and serialize embedded documents
// without depending on the document package.
type Record interface {
	// Schema returns the record's compiled type.
	Schema() *ModelSchema

	// PK returns the record's primary key value, fixing a generated
	// identity on first read.
	PK() any

	// Get returns the current value of a field, without defaults.
	Get(name string) (any, bool)
}

// Name returns the declared record type name.
func (s *ModelSchema) Name() string { return s.name }

// Collection returns the store collection documents of this type live in.
func (s *ModelSchema) Collection() string { return s.name }

// Parent returns the schema this one inherits from, or nil.
func (s *ModelSchema) Parent() *ModelSchema { return s.parent }

// Meta returns the resolved schema options.
func (s *ModelSchema) Meta() Meta { return s.meta }

// Fields returns every field spec in schema order: inherited fields first,
// then local declarations.
func (s *ModelSchema) Fields() []*FieldSpec {
	out := make([]*FieldSpec, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.fields[name])
	}
	return out
}

// Field returns the spec declared under name, if any.
func (s *ModelSchema) Field(name string) (*FieldSpec, bool) {
	f, ok := s.fields[name]
	return f, ok
}

// PrimaryKeyField returns the schema's single primary key field.
func (s *ModelSchema) PrimaryKeyField() *FieldSpec { return s.pk }

// Registry returns the registry the schema was declared through.
func (s *ModelSchema) Registry() *Registry { return s.registry }

// AssignableTo reports whether a document of this type can be assigned where
// the target type is expected, walking the single-inheritance chain.
func (s *ModelSchema) AssignableTo(target *ModelSchema) bool {
	for cur := s; cur != nil; cur = cur.parent {
		if cur == target {
			return true
		}
	}
	return false
}

// Pointer returns the pointer record addressing a document of this type.
func (s *ModelSchema) Pointer(id any) *Pointer {
	return &Pointer{
		Type:       s.name,
		ID:         id,
		Database:   s.meta.Database,
		Collection: s.Collection(),
	}
}

// EncodeRecord converts a record to its storage map without validating it.
// The codec engine validates the root document before calling in; embedded
// documents are converted through the same walk.
func (s *ModelSchema) EncodeRecord(r Record) (map[string]any, error) {
	return s.encodeRecord(r, make(map[Record]bool))
}

// encodeRecord carries the records on the current embedding path. An
// embedded reference back into that path cannot be inlined, so it fails
// rather than recursing forever.
func (s *ModelSchema) encodeRecord(r Record, seen map[Record]bool) (map[string]any, error) {
	if seen[r] {
		return nil, fmt.Errorf("record %q: embedded documents form a reference cycle", s.name)
	}
	seen[r] = true
	defer delete(seen, r)
	out := make(map[string]any, len(s.order))
	for _, f := range s.Fields() {
		v, ok := r.Get(f.Name())
		if !ok {
			if f.IsPrimaryKey() {
				v = r.PK()
			} else if f.HasDefault() {
				v = f.DefaultValue()
			} else {
				out[f.Key()] = nil
				continue
			}
		}
		sv, err := f.toStorage(v, seen)
		if err != nil {
			return nil, err
		}
		out[f.Key()] = sv
	}
	return out, nil
}
