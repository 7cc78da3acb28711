package schema

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

var (
	// ErrEmptyName is returned when a record type is declared without a name.
	ErrEmptyName = errors.New("docweave(schema): empty type name")

	// ErrConflictingSchema indicates an attempt to register a second schema
	// under an already-taken name.
	ErrConflictingSchema = errors.New("docweave(schema): conflicting type registration")
)

// Registry holds every declared ModelSchema and backs symbolic type
// resolution. It is safe for concurrent declaration; after the declaration
// phase it is effectively read-only.
type Registry struct {
	mu       sync.RWMutex
	schemas  map[string]*ModelSchema
	order    []string
	backrefs *BackrefRegistry
	logger   zerolog.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger attaches a structured logger to the registry.
func WithLogger(logger zerolog.Logger) RegistryOption {
	return func(r *Registry) { r.logger = logger }
}

// NewRegistry returns an empty schema registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		schemas:  make(map[string]*ModelSchema),
		backrefs: NewBackrefRegistry(),
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Lookup returns the schema registered under name, if any.
func (r *Registry) Lookup(name string) (*ModelSchema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[name]
	return s, ok
}

// Schemas returns every registered schema in declaration order.
func (r *Registry) Schemas() []*ModelSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*ModelSchema, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.schemas[name])
	}
	return out
}

// Backrefs returns the reverse-reference registry shared by all schemas
// declared through this registry.
func (r *Registry) Backrefs() *BackrefRegistry {
	return r.backrefs
}

// Builder starts a declaration for the named record type.
func (r *Registry) Builder(name string) *Builder {
	return &Builder{reg: r, name: name}
}

// register inserts a fully-built schema. All fallible declaration checks run
// before this point, so either the schema becomes visible as a whole or not
// at all.
func (r *Registry) register(s *ModelSchema) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.schemas[s.name]; ok {
		return ErrConflictingSchema
	}
	r.schemas[s.name] = s
	r.order = append(r.order, s.name)
	r.logger.Debug().
		Str("type", s.name).
		Int("fields", len(s.order)).
		Msg("schema registered")
	return nil
}
