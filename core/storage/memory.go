package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/okenlabs/docweave/core/schema"
)

// MemoryStore implements Store with an in-process map. Documents pass
// through a JSON round-trip on save so callers observe the same value
// shapes a persistent store would return.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]map[string]any
}

// NewMemoryStore returns an empty in-memory document store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]map[string]map[string]any)}
}

var _ Store = (*MemoryStore)(nil)

// Save upserts a document. A missing or empty id gets a generated UUID.
func (s *MemoryStore) Save(ctx context.Context, collection string, doc map[string]any, opts SaveOptions) (string, error) {
	id, ok := doc[IDKey].(string)
	if !ok || id == "" {
		if raw, present := doc[IDKey]; present && raw != nil {
			id = idString(raw)
		} else {
			id = uuid.New().String()
			doc[IDKey] = id
		}
	}

	stored, err := roundTrip(doc)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	col, ok := s.collections[collection]
	if !ok {
		col = make(map[string]map[string]any)
		s.collections[collection] = col
	}
	col[id] = stored
	return id, nil
}

// Dereference loads the document a pointer record addresses.
func (s *MemoryStore) Dereference(ctx context.Context, p *schema.Pointer) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.collections[p.Collection][idString(p.ID)]
	if !ok {
		return nil, nil
	}
	return roundTrip(doc)
}

// Find returns every document matching the filter by top-level equality,
// ordered by id for deterministic iteration.
func (s *MemoryStore) Find(ctx context.Context, collection string, filter map[string]any) ([]map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	col := s.collections[collection]
	ids := make([]string, 0, len(col))
	for id := range col {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	want, err := roundTrip(filter)
	if err != nil {
		return nil, err
	}

	var results []map[string]any
	for _, id := range ids {
		doc := col[id]
		if !matches(doc, want) {
			continue
		}
		out, err := roundTrip(doc)
		if err != nil {
			return nil, err
		}
		results = append(results, out)
	}
	return results, nil
}

// Delete removes a document by id.
func (s *MemoryStore) Delete(ctx context.Context, collection string, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	col := s.collections[collection]
	if _, ok := col[id]; !ok {
		return fmt.Errorf("document not found: %s", id)
	}
	delete(col, id)
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }

func matches(doc, filter map[string]any) bool {
	for k, v := range filter {
		got, ok := doc[k]
		if !ok {
			return false
		}
		gb, err1 := json.Marshal(got)
		wb, err2 := json.Marshal(v)
		if err1 != nil || err2 != nil || string(gb) != string(wb) {
			return false
		}
	}
	return true
}

// roundTrip deep-copies a storage map through JSON, normalizing value
// shapes the same way the SQLite store does.
func roundTrip(doc map[string]any) (map[string]any, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return out, nil
}
