package schema

import (
	"errors"
	"sort"
	"sync"
)

// ErrBackrefMissing is returned when removing a backref entry that is not
// present. Callers should treat it as a consistency bug, not ignore it.
var ErrBackrefMissing = errors.New("docweave(schema): backref entry not present")

// Backref records that an (owner schema, field) pair points at a target
// schema.
type Backref struct {
	Owner *ModelSchema
	Field string
}

type backrefKey struct {
	owner string
	field string
}

// BackrefRegistry tracks, for every schema that is the target of a reference
// field, which (owner schema, field) pairs point at it. Entries are added
// when a reference resolves and removed when a reference field's value is
// deleted from a document or the field is redefined.
type BackrefRegistry struct {
	mu      sync.Mutex
	entries map[string]map[backrefKey]Backref
}

// NewBackrefRegistry returns an empty registry.
func NewBackrefRegistry() *BackrefRegistry {
	return &BackrefRegistry{entries: make(map[string]map[backrefKey]Backref)}
}

// Add records that owner.field points at the target schema. Re-adding an
// existing entry is a no-op.
func (r *BackrefRegistry) Add(target string, owner *ModelSchema, field string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.entries[target]
	if !ok {
		set = make(map[backrefKey]Backref)
		r.entries[target] = set
	}
	set[backrefKey{owner: owner.Name(), field: field}] = Backref{Owner: owner, Field: field}
}

// Remove drops the entry for owner.field pointing at target. Removing an
// entry that is not present returns ErrBackrefMissing; a silent no-op here
// would hide bookkeeping bugs.
func (r *BackrefRegistry) Remove(target string, owner *ModelSchema, field string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := backrefKey{owner: owner.Name(), field: field}
	set, ok := r.entries[target]
	if !ok {
		return ErrBackrefMissing
	}
	if _, ok := set[key]; !ok {
		return ErrBackrefMissing
	}
	delete(set, key)
	if len(set) == 0 {
		delete(r.entries, target)
	}
	return nil
}

// Has reports whether owner.field is recorded as pointing at target.
func (r *BackrefRegistry) Has(target string, owner *ModelSchema, field string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.entries[target]
	if !ok {
		return false
	}
	_, ok = set[backrefKey{owner: owner.Name(), field: field}]
	return ok
}

// Lookup returns every (owner, field) pair pointing at the target schema,
// sorted by owner name then field name for deterministic iteration.
func (r *BackrefRegistry) Lookup(target string) []Backref {
	r.mu.Lock()
	defer r.mu.Unlock()
	set := r.entries[target]
	out := make([]Backref, 0, len(set))
	for _, b := range set {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Owner.Name() != out[j].Owner.Name() {
			return out[i].Owner.Name() < out[j].Owner.Name()
		}
		return out[i].Field < out[j].Field
	})
	return out
}
