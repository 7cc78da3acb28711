// Package document implements runtime record instances on top of compiled
// schemas: typed attribute access routed through field specs, whole-document
// validation with aggregated violations, and the codec that moves documents
// to and from their storage maps.
package document

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/okenlabs/docweave/core/schema"
)

// Document is one runtime record instance: a mapping from field name to
// validated value, owned exclusively by the instance. Documents are not safe
// for concurrent mutation; callers serialize access.
type Document struct {
	schema *schema.ModelSchema
	values map[string]any
}

var _ schema.Record = (*Document)(nil)

// New returns an empty document of the given type.
func New(s *schema.ModelSchema) *Document {
	return &Document{schema: s, values: make(map[string]any)}
}

// Build constructs a document and assigns the given values, collecting every
// assignment failure into one aggregate instead of stopping at the first.
func Build(s *schema.ModelSchema, values map[string]any) (*Document, error) {
	d := New(s)
	agg := schema.NewAggregateError()
	for _, f := range s.Fields() {
		v, ok := values[f.Name()]
		if !ok {
			continue
		}
		if err := d.Set(f.Name(), v); err != nil {
			agg.Add(f.Name(), err)
		}
	}
	var unknown []string
	for name := range values {
		if _, ok := s.Field(name); !ok {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	for _, name := range unknown {
		agg.Add(name, fmt.Errorf("no such field on %q", s.Name()))
	}
	return d, agg.ErrOrNil()
}

// Schema returns the document's compiled type.
func (d *Document) Schema() *schema.ModelSchema { return d.schema }

// Get returns the raw stored value of a field, without materializing
// defaults.
func (d *Document) Get(name string) (any, bool) {
	v, ok := d.values[name]
	return v, ok
}

// Value returns the field's current value, materializing the declared
// default when the field is unset. Reading the primary key fixes a generated
// identity for the document's lifetime.
func (d *Document) Value(name string) (any, error) {
	f, ok := d.schema.Field(name)
	if !ok {
		return nil, fmt.Errorf("document %q: no such field %q", d.schema.Name(), name)
	}
	if f.IsPrimaryKey() {
		return d.PK(), nil
	}
	if v, ok := d.values[name]; ok {
		return v, nil
	}
	if f.HasDefault() {
		return f.DefaultValue(), nil
	}
	return nil, nil
}

// Set assigns a value to the named field after validating it against the
// field's spec and declared choices. Assigning nil clears the value without
// touching backrefs; use Delete for that.
func (d *Document) Set(name string, value any) error {
	f, ok := d.schema.Field(name)
	if !ok {
		return fmt.Errorf("document %q: no such field %q", d.schema.Name(), name)
	}
	if value == nil {
		d.values[name] = nil
		return nil
	}
	if err := f.Validate(value); err != nil {
		return err
	}
	if err := f.CheckChoice(value); err != nil {
		return err
	}
	d.values[name] = value
	return nil
}

// Delete removes the field's value. Removing a resolved reference value also
// removes the (owner, field) backref entry; removing an entry that is not
// present is reported, not silently accepted, because it signals a
// consistency bug.
func (d *Document) Delete(name string) error {
	f, ok := d.schema.Field(name)
	if !ok {
		return fmt.Errorf("document %q: no such field %q", d.schema.Name(), name)
	}
	if _, ok := d.values[name]; !ok {
		return fmt.Errorf("document %q: field %q is not set", d.schema.Name(), name)
	}
	delete(d.values, name)
	if f.Kind() == schema.KindReference && f.Target().Resolved() {
		target, err := f.Target().Target()
		if err != nil {
			return err
		}
		return d.schema.Registry().Backrefs().Remove(target.Name(), d.schema, name)
	}
	return nil
}

// PK returns the primary key value, fixing a generated identity the first
// time it is read.
func (d *Document) PK() any {
	f := d.schema.PrimaryKeyField()
	if f == nil {
		return nil
	}
	if v, ok := d.values[f.Name()]; ok && v != nil {
		return v
	}
	if !f.HasDefault() {
		return nil
	}
	v := f.DefaultValue()
	d.values[f.Name()] = v
	return v
}

// Equal reports whether two documents have the same type and the same value
// for every field, declared defaults included. Generated identities are
// compared only when already fixed.
func (d *Document) Equal(other *Document) bool {
	if other == nil || d.schema != other.schema {
		return false
	}
	for _, f := range d.schema.Fields() {
		av, aok := d.values[f.Name()]
		bv, bok := other.values[f.Name()]
		if !aok && !bok {
			continue
		}
		if f.IsPrimaryKey() {
			if aok != bok {
				return false
			}
		} else {
			if !aok && f.HasDefault() {
				av = f.DefaultValue()
				aok = true
			}
			if !bok && f.HasDefault() {
				bv = f.DefaultValue()
				bok = true
			}
		}
		if aok != bok || !valuesEqual(av, bv) {
			return false
		}
	}
	return true
}

func valuesEqual(a, b any) bool {
	if ad, ok := a.(*Document); ok {
		bd, ok := b.(*Document)
		return ok && ad.Equal(bd)
	}
	return reflect.DeepEqual(a, b)
}
