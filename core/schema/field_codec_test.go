package schema

import (
	"reflect"
	"testing"
	"time"
)

func TestFieldSpec_StorageRoundTrip(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		field *FieldSpec
		value any
		want  any
	}{
		{"string", String(), "kale", "kale"},
		{"int widens", Int(), 42, int64(42)},
		{"float widens", Float(), float32(1.5), float64(1.5)},
		{"bool", Bool(), true, true},
		{"datetime", DateTime(), now, now},
		{"binary", Binary(), []byte{1, 2, 3}, []byte{1, 2, 3}},
		{"list", List(Int()), []any{1, 2}, []any{int64(1), int64(2)}},
		{"dict", Dict(String()), map[string]any{"a": "x"}, map[string]any{"a": "x"}},
		{"dynamic", Dynamic(), map[string]any{"k": "v"}, map[string]any{"k": "v"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sv, err := tt.field.ToStorage(tt.value)
			if err != nil {
				t.Fatalf("ToStorage = %v", err)
			}
			got, err := tt.field.FromStorage(sv)
			if err != nil {
				t.Fatalf("FromStorage = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("round trip = %#v, want %#v", got, tt.want)
			}
			if err := tt.field.Validate(got); err != nil {
				t.Errorf("Validate(round-tripped) = %v, want nil", err)
			}
		})
	}
}

func TestFieldSpec_FromStorageWidened(t *testing.T) {
	t.Run("int from json float64", func(t *testing.T) {
		got, err := Int().FromStorage(float64(7))
		if err != nil {
			t.Fatalf("FromStorage = %v", err)
		}
		if got != int64(7) {
			t.Errorf("got %#v, want int64(7)", got)
		}
		if _, err := Int().FromStorage(7.5); err == nil {
			t.Error("FromStorage(7.5) = nil, want error")
		}
	})

	t.Run("datetime from rfc3339 string", func(t *testing.T) {
		got, err := DateTime().FromStorage("2026-08-30T12:00:00Z")
		if err != nil {
			t.Fatalf("FromStorage = %v", err)
		}
		want := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
		if !got.(time.Time).Equal(want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("binary from base64 string", func(t *testing.T) {
		got, err := Binary().FromStorage("AQID")
		if err != nil {
			t.Fatalf("FromStorage = %v", err)
		}
		if !reflect.DeepEqual(got, []byte{1, 2, 3}) {
			t.Errorf("got %#v, want [1 2 3]", got)
		}
	})
}

func TestFieldSpec_ReferenceToStorage(t *testing.T) {
	reg := NewRegistry()
	gardener := reg.Builder("Gardener").
		Field("name", String().Required()).
		Field("instructor", Ref(SelfReference)).
		MustRegister()

	f, _ := gardener.Field("instructor")

	t.Run("pointer passes through", func(t *testing.T) {
		p := gardener.Pointer("abc")
		sv, err := f.ToStorage(p)
		if err != nil {
			t.Fatalf("ToStorage = %v", err)
		}
		m, ok := sv.(map[string]any)
		if !ok {
			t.Fatalf("ToStorage returned %T, want map", sv)
		}
		if m["$type"] != "Gardener" || m["$id"] != "abc" {
			t.Errorf("pointer record = %v", m)
		}
	})

	t.Run("pointer survives the map form", func(t *testing.T) {
		p := gardener.Pointer("abc")
		back, ok := PointerFromMap(p.StorageMap())
		if !ok {
			t.Fatal("PointerFromMap = false")
		}
		if back.Type != p.Type || back.ID != p.ID || back.Collection != p.Collection {
			t.Errorf("round-tripped pointer = %+v, want %+v", back, p)
		}
		if back.Database != p.Database {
			t.Errorf("Database = %+v, want %+v", back.Database, p.Database)
		}
	})

	t.Run("non-pointer map is not a pointer", func(t *testing.T) {
		if _, ok := PointerFromMap(map[string]any{"name": "Jim"}); ok {
			t.Error("PointerFromMap on plain map = true, want false")
		}
	})
}
