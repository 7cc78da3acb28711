// Package storage provides the document store clients the schema core
// persists through. Stores deal exclusively in storage maps: one flat map
// per document, with nested maps and lists for containers and pointer
// records for non-embedded references.
package storage

import (
	"context"
	"fmt"

	"github.com/okenlabs/docweave/core/schema"
)

// SaveOptions carries per-save knobs forwarded from the schema's options.
type SaveOptions struct {
	// WriteConcern is the schema's declared write concern. Stores that
	// cannot honor it record it and write durably.
	WriteConcern int
}

// Store is a connection to one document database. Implementations own all
// blocking I/O; the schema core never opens sockets or files itself.
type Store interface {
	// Save upserts a storage map into a collection and returns the
	// document id, generating one when the map carries none.
	Save(ctx context.Context, collection string, doc map[string]any, opts SaveOptions) (string, error)

	// Dereference loads the storage map a pointer record addresses.
	// A missing document returns (nil, nil).
	Dereference(ctx context.Context, p *schema.Pointer) (map[string]any, error)

	// Find returns every storage map in the collection matching the
	// filter by equality. Filter keys are storage keys.
	Find(ctx context.Context, collection string, filter map[string]any) ([]map[string]any, error)

	// Delete removes a document by id.
	Delete(ctx context.Context, collection string, id string) error

	// Close releases the connection.
	Close() error
}

// IDKey is the storage key every document's identity is stored under.
const IDKey = "_id"

// idString renders a document identity for use as a store key.
func idString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
