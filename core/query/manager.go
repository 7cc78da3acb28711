// Package query implements the per-schema manager that moves documents
// between the runtime and a document store: save, find, and delete, with
// encoding and decoding delegated to the document codec.
package query

import (
	"context"
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/okenlabs/docweave/core/document"
	"github.com/okenlabs/docweave/core/schema"
	"github.com/okenlabs/docweave/core/storage"
)

var (
	// ErrNoMatch is returned by FindOne when nothing matches the filter.
	ErrNoMatch = errors.New("docweave(query): no matching document")

	// ErrMultipleMatch is returned by FindOne when the filter is ambiguous.
	ErrMultipleMatch = errors.New("docweave(query): multiple matching documents")
)

// Manager binds one schema to one store connection. All documents of the
// schema's type flow through its collection on that store.
type Manager struct {
	schema *schema.ModelSchema
	store  storage.Store
	codec  *document.Codec
	logger zerolog.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the manager's logger.
func WithLogger(logger zerolog.Logger) ManagerOption {
	return func(m *Manager) { m.logger = logger }
}

// NewManager returns a manager for the schema backed by the store. Loaded
// documents have their references dereferenced through the same store.
func NewManager(s *schema.ModelSchema, store storage.Store, opts ...ManagerOption) *Manager {
	m := &Manager{
		schema: s,
		store:  store,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.codec = document.NewCodec(
		document.WithDereferencer(store),
		document.WithLogger(m.logger),
	)
	return m
}

// Schema returns the schema the manager serves.
func (m *Manager) Schema() *schema.ModelSchema { return m.schema }

// Codec returns the codec the manager decodes through.
func (m *Manager) Codec() *document.Codec { return m.codec }

// Save validates and persists a document, returning its id. The encoded
// document must fit the schema's declared max size.
func (m *Manager) Save(ctx context.Context, d *document.Document) (string, error) {
	if d.Schema() != m.schema && !d.Schema().AssignableTo(m.schema) {
		return "", fmt.Errorf("cannot save %q through the %q manager", d.Schema().Name(), m.schema.Name())
	}
	sm, err := m.codec.Encode(d)
	if err != nil {
		return "", err
	}
	meta := m.schema.Meta()
	encoded, err := json.Marshal(sm)
	if err != nil {
		return "", fmt.Errorf("encode %q: %w", m.schema.Name(), err)
	}
	if len(encoded) > meta.MaxSize {
		return "", fmt.Errorf("document of %q is %d bytes, max size is %d", m.schema.Name(), len(encoded), meta.MaxSize)
	}
	id, err := m.store.Save(ctx, d.Schema().Collection(), sm, storage.SaveOptions{WriteConcern: meta.WriteConcern})
	if err != nil {
		return "", err
	}
	m.logger.Debug().
		Str("type", d.Schema().Name()).
		Str("id", id).
		Msg("document saved")
	return id, nil
}

// Find loads every document matching the filter. Filter keys are field
// names; the manager translates them to storage keys before querying.
func (m *Manager) Find(ctx context.Context, filter map[string]any) ([]*document.Document, error) {
	sf, err := m.storageFilter(filter)
	if err != nil {
		return nil, err
	}
	rows, err := m.store.Find(ctx, m.schema.Collection(), sf)
	if err != nil {
		return nil, err
	}
	out := make([]*document.Document, 0, len(rows))
	for _, row := range rows {
		d, err := m.codec.Decode(ctx, m.schema, row)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// FindOne loads the single document matching the filter. No match returns
// ErrNoMatch; more than one returns ErrMultipleMatch.
func (m *Manager) FindOne(ctx context.Context, filter map[string]any) (*document.Document, error) {
	docs, err := m.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	switch len(docs) {
	case 0:
		return nil, ErrNoMatch
	case 1:
		return docs[0], nil
	default:
		return nil, ErrMultipleMatch
	}
}

// Delete removes a document from the store by its primary key.
func (m *Manager) Delete(ctx context.Context, d *document.Document) error {
	id := d.PK()
	if id == nil {
		return fmt.Errorf("cannot delete %q document without a primary key", d.Schema().Name())
	}
	if err := m.store.Delete(ctx, d.Schema().Collection(), fmt.Sprintf("%v", id)); err != nil {
		return err
	}
	m.logger.Debug().
		Str("type", d.Schema().Name()).
		Interface("id", id).
		Msg("document deleted")
	return nil
}

// storageFilter maps field names in a filter to their storage keys,
// rejecting names the schema does not declare.
func (m *Manager) storageFilter(filter map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(filter))
	for name, v := range filter {
		f, ok := m.schema.Field(name)
		if !ok {
			return nil, fmt.Errorf("schema %q declares no field %q", m.schema.Name(), name)
		}
		sv, err := f.ToStorage(v)
		if err != nil {
			return nil, fmt.Errorf("filter %q: %w", name, err)
		}
		out[f.Key()] = sv
	}
	return out, nil
}
