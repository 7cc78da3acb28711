package document

import (
	"fmt"
	"reflect"

	"github.com/okenlabs/docweave/core/schema"
)

// Validate checks every field of the document in schema order and collects
// all violations into a single aggregate instead of stopping at the first.
// Four independent checks run per field: required-but-absent, choice
// membership, unique_with against sibling values on the same document, and
// the field spec's own validation. Validation never mutates the document;
// default materialization happens on attribute read, not here.
func Validate(d *Document) error {
	agg := schema.NewAggregateError()
	for _, f := range d.schema.Fields() {
		name := f.Name()
		value, present := d.values[name]
		if value == nil {
			present = false
		}
		if !present {
			// Primary key presence is an implicit required check; a
			// declared default satisfies it.
			if (f.IsRequired() || f.IsPrimaryKey()) && !f.HasDefault() {
				agg.Add(name, &schema.ConstraintError{
					Field:      name,
					Constraint: schema.ConstraintRequired,
					Message:    "required but not set",
				})
			}
			continue
		}
		if err := f.CheckChoice(value); err != nil {
			agg.Add(name, err)
		}
		for _, sib := range f.UniqueSiblings() {
			sv, ok := d.values[sib]
			if !ok || sv == nil {
				continue
			}
			// Compare coerced forms so int and int64 siblings holding the
			// same number still collide.
			if sf, ok := d.schema.Field(sib); ok {
				sv = sf.Canonical(sv)
			}
			if reflect.DeepEqual(f.Canonical(value), sv) {
				agg.Add(name, &schema.ConstraintError{
					Field:      name,
					Constraint: schema.ConstraintUniqueWith,
					Value:      value,
					Message:    fmt.Sprintf("must differ from field %q", sib),
				})
			}
		}
		if err := f.Validate(value); err != nil {
			agg.Add(name, err)
		}
	}
	return agg.ErrOrNil()
}

// Validate reports every violation on the document, grouped by field.
func (d *Document) Validate() error {
	return Validate(d)
}
