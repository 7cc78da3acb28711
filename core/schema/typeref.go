package schema

import "sync"

// SelfReference is the symbolic name a reference field uses to point at its
// own record type.
const SelfReference = "self"

// TypeRef is a symbolic-or-resolved handle to a schema. It is created
// unresolved at field-declaration time and transitions to resolved exactly
// once, the first time the referenced type is known to exist. Resolution is
// monotone: it never reverts.
//
// Resolution follows a retry-on-access policy: every access through Target
// attempts resolution again before giving up. An indefinitely unresolved
// reference is not an error by itself; it fails with a BindingError only
// when exercised.
type TypeRef struct {
	name string

	mu     sync.Mutex
	target *ModelSchema

	// bound at schema-build time
	owner *ModelSchema
	field string
}

// NewTypeRef returns an unresolved reference to the named record type.
func NewTypeRef(name string) *TypeRef {
	return &TypeRef{name: name}
}

// Name returns the symbolic target name.
func (r *TypeRef) Name() string { return r.name }

// Resolved reports whether the reference has been resolved to a schema.
func (r *TypeRef) Resolved() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.target != nil
}

// Target returns the resolved schema, attempting resolution first. It
// returns a BindingError while the named type is not yet declared.
func (r *TypeRef) Target() (*ModelSchema, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.target != nil {
		return r.target, nil
	}
	if r.owner == nil || r.owner.registry == nil {
		return nil, &BindingError{Field: r.field, Target: r.name}
	}
	s, ok := r.owner.registry.Lookup(r.name)
	if !ok {
		return nil, &BindingError{Field: r.field, Target: r.name}
	}
	r.resolveLocked(s)
	return s, nil
}

// bind attaches the reference to the field that owns it.
func (r *TypeRef) bind(owner *ModelSchema, field string) {
	r.owner = owner
	r.field = field
}

// resolveTo transitions the reference to resolved. Idempotent; the first
// resolution wins and registers the backref entry.
func (r *TypeRef) resolveTo(s *ModelSchema) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolveLocked(s)
}

func (r *TypeRef) resolveLocked(s *ModelSchema) {
	if r.target != nil {
		return
	}
	r.target = s
	if r.owner != nil && r.owner.registry != nil {
		r.owner.registry.Backrefs().Add(s.Name(), r.owner, r.field)
	}
}

// clone copies the reference for an inheriting schema. The copy keeps the
// resolved target, if any, but drops the binding. Self references start
// over unresolved so they resolve to the inheriting schema, not the parent.
func (r *TypeRef) clone() *TypeRef {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.name == SelfReference {
		return &TypeRef{name: r.name}
	}
	return &TypeRef{name: r.name, target: r.target}
}

// ensureBackref registers the backref entry for an already-resolved
// reference. Used for inherited fields whose target resolved on the parent.
func (r *TypeRef) ensureBackref() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.target != nil && r.owner != nil && r.owner.registry != nil {
		r.owner.registry.Backrefs().Add(r.target.Name(), r.owner, r.field)
	}
}
