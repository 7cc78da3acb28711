package schema

import "github.com/google/uuid"

// The synthetic identity field installed when a declaration supplies no
// primary key.
const (
	identityFieldName  = "id"
	identityStorageKey = "_id"
)

// reservedNames must not be reused as declared field names. The collision is
// a build-time error, not a runtime one.
var reservedNames = map[string]struct{}{
	"pk":             {},
	"validate":       {},
	"save":           {},
	"delete":         {},
	identityFieldName: {},
}

type declaredField struct {
	name string
	spec *FieldSpec
}

// Builder assembles one ModelSchema from a record type's locally-declared
// fields, its meta options, and at most one parent schema. Registration is
// atomic: either the schema becomes visible as a whole, or no schema is
// registered at all.
type Builder struct {
	reg     *Registry
	name    string
	parents []*ModelSchema
	fields  []declaredField
	meta    MetaDecl
}

// Parent sets the schema to inherit from. Calling it more than once declares
// multiple inheritance, which Register rejects.
func (b *Builder) Parent(p *ModelSchema) *Builder {
	b.parents = append(b.parents, p)
	return b
}

// Field declares a local field. Redeclaring an inherited name replaces the
// inherited spec; redeclaring a local name replaces the earlier declaration.
func (b *Builder) Field(name string, spec *FieldSpec) *Builder {
	for i := range b.fields {
		if b.fields[i].name == name {
			b.fields[i].spec = spec
			return b
		}
	}
	b.fields = append(b.fields, declaredField{name: name, spec: spec})
	return b
}

// Meta sets the locally-declared schema options.
func (b *Builder) Meta(m MetaDecl) *Builder {
	b.meta = m
	return b
}

// Register builds the schema and makes it visible in the registry.
func (b *Builder) Register() (*ModelSchema, error) {
	if b.name == "" {
		return nil, schemaErrorf(b.name, "%s", ErrEmptyName)
	}
	if len(b.parents) > 1 {
		return nil, schemaErrorf(b.name, "multiple inheritance not allowed")
	}

	var parent *ModelSchema
	parentMeta := defaultMeta()
	if len(b.parents) == 1 {
		parent = b.parents[0]
		parentMeta = parent.meta
	}

	for _, df := range b.fields {
		if df.name == "" {
			return nil, schemaErrorf(b.name, "empty field name")
		}
		if _, reserved := reservedNames[df.name]; reserved {
			return nil, schemaErrorf(b.name, "field name %q is reserved", df.name)
		}
		if df.spec == nil {
			return nil, schemaErrorf(b.name, "field %q has no spec", df.name)
		}
		if df.spec.kind == KindReference && df.spec.target.Name() == "" {
			return nil, schemaErrorf(b.name, "field %q references an empty type name", df.name)
		}
	}

	s := &ModelSchema{
		name:     b.name,
		parent:   parent,
		fields:   make(map[string]*FieldSpec),
		meta:     mergeMeta(parentMeta, b.meta),
		registry: b.reg,
	}

	// Inherited fields carry over unless the child redeclares the name;
	// redeclaration replaces in place, it does not stack.
	if parent != nil {
		for _, name := range parent.order {
			s.fields[name] = parent.fields[name].clone()
			s.order = append(s.order, name)
		}
	}
	for _, df := range b.fields {
		if _, inherited := s.fields[df.name]; !inherited {
			s.order = append(s.order, df.name)
		}
		s.fields[df.name] = df.spec
	}

	for _, name := range s.order {
		s.fields[name].bind(name, s)
	}

	var pks []*FieldSpec
	for _, name := range s.order {
		if s.fields[name].primaryKey {
			pks = append(pks, s.fields[name])
		}
	}
	switch len(pks) {
	case 0:
		identity := UUID().PrimaryKey()
		identity.defaultFunc = func() any { return uuid.NewString() }
		identity.bind(identityFieldName, s)
		s.fields[identityFieldName] = identity
		s.order = append(s.order, identityFieldName)
		s.pk = identity
	case 1:
		s.pk = pks[0]
	default:
		return nil, schemaErrorf(b.name, "more than one primary key field: %s", fieldNames(pks))
	}

	// All fallible checks are done; insert, then resolve what can be
	// resolved. Resolution failures are not errors here, they just leave
	// references pending under the retry-on-access policy.
	if err := b.reg.register(s); err != nil {
		return nil, schemaErrorf(b.name, "%s", err)
	}
	for _, name := range s.order {
		resolveRefs(s.fields[name], s)
	}
	return s, nil
}

// MustRegister is Register for declaration-time wiring where a failure is a
// programming error.
func (b *Builder) MustRegister() *ModelSchema {
	s, err := b.Register()
	if err != nil {
		panic(err)
	}
	return s
}

// resolveRefs resolves self references immediately and attempts named
// resolution for everything else, descending into container elements.
func resolveRefs(f *FieldSpec, owner *ModelSchema) {
	if f.elem != nil {
		resolveRefs(f.elem, owner)
	}
	if f.target == nil {
		return
	}
	if f.target.Name() == SelfReference {
		f.target.resolveTo(owner)
		return
	}
	if f.target.Resolved() {
		// Inherited from a parent that already resolved it; the child's
		// own backref entry still needs to exist.
		f.target.ensureBackref()
		return
	}
	// Best effort; stays pending when the target is not yet declared.
	_, _ = f.target.Target()
}

func fieldNames(fields []*FieldSpec) string {
	out := ""
	for i, f := range fields {
		if i > 0 {
			out += ", "
		}
		out += f.name
	}
	return out
}
