package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/okenlabs/docweave/core/schema"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:", zerolog.Nop())
	if err != nil {
		t.Fatalf("NewSQLiteStore = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore_SaveAndDereference(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.Save(ctx, "gardeners", map[string]any{"_id": "g1", "name": "Jim"}, SaveOptions{WriteConcern: 1})
	if err != nil {
		t.Fatalf("Save = %v", err)
	}
	if id != "g1" {
		t.Errorf("Save id = %q, want g1", id)
	}

	got, err := s.Dereference(ctx, &schema.Pointer{Type: "Gardener", ID: "g1", Collection: "gardeners"})
	if err != nil {
		t.Fatalf("Dereference = %v", err)
	}
	if got["name"] != "Jim" {
		t.Errorf("name = %v, want Jim", got["name"])
	}

	t.Run("missing document is (nil, nil)", func(t *testing.T) {
		got, err := s.Dereference(ctx, &schema.Pointer{Type: "Gardener", ID: "nope", Collection: "gardeners"})
		if err != nil {
			t.Fatalf("Dereference = %v", err)
		}
		if got != nil {
			t.Errorf("Dereference = %v, want nil", got)
		}
	})

	t.Run("id generated when absent", func(t *testing.T) {
		id, err := s.Save(ctx, "gardeners", map[string]any{"name": "Anon"}, SaveOptions{})
		if err != nil {
			t.Fatalf("Save = %v", err)
		}
		if id == "" {
			t.Error("Save returned an empty generated id")
		}
	})

	t.Run("save is an upsert", func(t *testing.T) {
		if _, err := s.Save(ctx, "gardeners", map[string]any{"_id": "g1", "name": "Mr. Jones"}, SaveOptions{}); err != nil {
			t.Fatalf("Save = %v", err)
		}
		got, err := s.Dereference(ctx, &schema.Pointer{ID: "g1", Collection: "gardeners"})
		if err != nil {
			t.Fatal(err)
		}
		if got["name"] != "Mr. Jones" {
			t.Errorf("name after upsert = %v, want Mr. Jones", got["name"])
		}
	})
}

func TestSQLiteStore_Find(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	docs := []map[string]any{
		{"_id": "a", "name": "Jim", "years": 3, "active": true},
		{"_id": "b", "name": "Mr. Jones", "years": 30, "active": true},
		{"_id": "c", "name": "Rita", "years": 3, "active": false},
	}
	for _, doc := range docs {
		if _, err := s.Save(ctx, "gardeners", doc, SaveOptions{}); err != nil {
			t.Fatal(err)
		}
	}

	t.Run("equality filter", func(t *testing.T) {
		got, err := s.Find(ctx, "gardeners", map[string]any{"years": 3})
		if err != nil {
			t.Fatalf("Find = %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("Find returned %d docs, want 2", len(got))
		}
		// Ordered by id.
		if got[0]["_id"] != "a" || got[1]["_id"] != "c" {
			t.Errorf("ids = %v, %v, want a, c", got[0]["_id"], got[1]["_id"])
		}
	})

	t.Run("bool filter", func(t *testing.T) {
		got, err := s.Find(ctx, "gardeners", map[string]any{"active": false})
		if err != nil {
			t.Fatalf("Find = %v", err)
		}
		if len(got) != 1 || got[0]["_id"] != "c" {
			t.Errorf("Find(active=false) = %v", got)
		}
	})

	t.Run("id filter", func(t *testing.T) {
		got, err := s.Find(ctx, "gardeners", map[string]any{"_id": "b"})
		if err != nil {
			t.Fatalf("Find = %v", err)
		}
		if len(got) != 1 || got[0]["name"] != "Mr. Jones" {
			t.Errorf("Find(_id=b) = %v", got)
		}
	})

	t.Run("empty filter returns everything", func(t *testing.T) {
		got, err := s.Find(ctx, "gardeners", nil)
		if err != nil {
			t.Fatalf("Find = %v", err)
		}
		if len(got) != 3 {
			t.Errorf("Find(nil) returned %d docs, want 3", len(got))
		}
	})
}

func TestSQLiteStore_Delete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Save(ctx, "gardeners", map[string]any{"_id": "a", "name": "Jim"}, SaveOptions{}); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "gardeners", "a"); err != nil {
		t.Fatalf("Delete = %v", err)
	}
	if err := s.Delete(ctx, "gardeners", "a"); err == nil {
		t.Error("second Delete = nil, want not-found error")
	}
}

func TestSQLiteStore_CollectionNameGuard(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Save(context.Background(), "bad name; DROP TABLE x", map[string]any{}, SaveOptions{})
	if err == nil || !strings.Contains(err.Error(), "invalid collection name") {
		t.Errorf("Save with bad collection = %v, want invalid collection error", err)
	}
}
