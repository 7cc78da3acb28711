/*
Package schema defines the field and type system for declarative record
types.

A record type is declared once, programmatically or in YAML, and compiled
into a ModelSchema: field specs with validation and serialization rules,
merged inherited options, and a single primary key. Declared schemas live in
a Registry, which also backs symbolic reference resolution and reverse
reference (backref) tracking.

# Declaring a type

Programmatically:

	reg := schema.NewRegistry()
	gardener := reg.Builder("gardener").
		Field("name", schema.String().Required()).
		Field("instructor", schema.Ref("self")).
		MustRegister()

Or in YAML:

	record: gardener

	fields:
	  name:       { type: string, required: true }
	  instructor: { type: ref, to: self }

# Field kinds

  - simple:    string, int, float, bool, datetime, binary, uuid, email, url
  - dynamic:   any value
  - container: list, set, dict, stream of an element spec
  - reference: pointer to (or embedded copy of) another record type

# Reference resolution

A reference target may name a type that is not yet declared. The reference
stays unresolved and every later access retries resolution; exercising an
unresolved reference fails with a BindingError. "self" resolves to the owning
type at build time. Once resolved, a reference never reverts, and the
registry's BackrefRegistry records which (owner, field) pairs point at each
target type.
*/
package schema
