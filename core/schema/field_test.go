package schema

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestFieldSpec_ValidateSimple(t *testing.T) {
	t.Run("nil is valid for every kind", func(t *testing.T) {
		for _, f := range []*FieldSpec{String(), Int(), Dynamic(), List(Int()), Ref("Other")} {
			if err := f.Validate(nil); err != nil {
				t.Errorf("Validate(nil) = %v, want nil", err)
			}
		}
	})

	t.Run("exact type is required", func(t *testing.T) {
		if err := String().Validate(42); err == nil {
			t.Error("String().Validate(42) = nil, want TypeMismatchError")
		}
		var tm *TypeMismatchError
		err := Bool().Validate("yes")
		if !errors.As(err, &tm) {
			t.Fatalf("Bool().Validate(%q) = %v, want TypeMismatchError", "yes", err)
		}
		if tm.Expected != "bool" {
			t.Errorf("Expected = %q, want %q", tm.Expected, "bool")
		}
	})

	t.Run("int accepts any machine integer", func(t *testing.T) {
		f := Int()
		for _, v := range []any{int(1), int8(1), int16(1), int32(1), int64(1), uint8(1)} {
			if err := f.Validate(v); err != nil {
				t.Errorf("Validate(%T) = %v, want nil", v, err)
			}
		}
		if err := f.Validate(1.5); err == nil {
			t.Error("Validate(1.5) = nil, want error")
		}
	})

	t.Run("numeric bounds are inclusive", func(t *testing.T) {
		f := Int().Min(0).Max(10)
		if err := f.Validate(0); err != nil {
			t.Errorf("Validate(0) = %v, want nil", err)
		}
		if err := f.Validate(10); err != nil {
			t.Errorf("Validate(10) = %v, want nil", err)
		}
		if err := f.Validate(11); err == nil {
			t.Error("Validate(11) = nil, want error")
		}
		if err := f.Validate(-1); err == nil {
			t.Error("Validate(-1) = nil, want error")
		}
	})

	t.Run("length counts characters not bytes", func(t *testing.T) {
		f := String().Length(3)
		if err := f.Validate("héé"); err != nil {
			t.Errorf("Validate(3 runes) = %v, want nil", err)
		}
		if err := f.Validate("hééé"); err == nil {
			t.Error("Validate(4 runes) = nil, want error")
		}
	})

	t.Run("datetime wants time.Time", func(t *testing.T) {
		f := DateTime()
		if err := f.Validate(time.Now()); err != nil {
			t.Errorf("Validate(time.Now()) = %v, want nil", err)
		}
		if err := f.Validate("2026-01-01"); err == nil {
			t.Error("Validate(string) = nil, want error")
		}
	})

	t.Run("email format", func(t *testing.T) {
		f := Email()
		if err := f.Validate("jim@example.com"); err != nil {
			t.Errorf("Validate(valid email) = %v, want nil", err)
		}
		if err := f.Validate("not-an-email"); err == nil {
			t.Error("Validate(invalid email) = nil, want error")
		}
	})

	t.Run("uuid canonicalizes", func(t *testing.T) {
		f := UUID()
		if err := f.Validate("b9cbb0fc-d1f1-4c9c-81bc-7d0f8b0a3e20"); err != nil {
			t.Errorf("Validate(valid uuid) = %v, want nil", err)
		}
		if err := f.Validate("nope"); err == nil {
			t.Error("Validate(invalid uuid) = nil, want error")
		}
	})

	t.Run("dynamic accepts anything", func(t *testing.T) {
		f := Dynamic()
		for _, v := range []any{1, "x", true, map[string]any{"k": 1}} {
			if err := f.Validate(v); err != nil {
				t.Errorf("Validate(%v) = %v, want nil", v, err)
			}
		}
	})
}

func TestFieldSpec_CheckChoice(t *testing.T) {
	f := String().Choices("tomato", "kale", "squash")

	for _, v := range []string{"tomato", "kale", "squash"} {
		if err := f.CheckChoice(v); err != nil {
			t.Errorf("CheckChoice(%q) = %v, want nil", v, err)
		}
	}

	err := f.CheckChoice("corn")
	var ce *ConstraintError
	if !errors.As(err, &ce) {
		t.Fatalf("CheckChoice(%q) = %v, want ConstraintError", "corn", err)
	}
	if ce.Constraint != ConstraintChoices {
		t.Errorf("Constraint = %q, want %q", ce.Constraint, ConstraintChoices)
	}

	t.Run("membership compares coerced values", func(t *testing.T) {
		// An int32 value against int choices still matches after widening.
		n := Int().Choices(1, 2, 3)
		if err := n.CheckChoice(int32(2)); err != nil {
			t.Errorf("CheckChoice(int32(2)) = %v, want nil", err)
		}
		if err := n.CheckChoice(4); err == nil {
			t.Error("CheckChoice(4) = nil, want error")
		}
	})
}

func TestFieldSpec_ValidateContainer(t *testing.T) {
	t.Run("all elements valid", func(t *testing.T) {
		f := List(Int())
		if err := f.Validate([]any{1, 2, 3}); err != nil {
			t.Errorf("Validate = %v, want nil", err)
		}
	})

	t.Run("one bad element fails the container", func(t *testing.T) {
		f := List(Int())
		err := f.Validate([]any{1, "two", 3})
		var ce *ConstraintError
		if !errors.As(err, &ce) {
			t.Fatalf("Validate = %v, want ConstraintError", err)
		}
		if ce.Constraint != ConstraintElements {
			t.Errorf("Constraint = %q, want %q", ce.Constraint, ConstraintElements)
		}
		if !strings.Contains(ce.Message, "element 1") {
			t.Errorf("Message = %q, want mention of element 1", ce.Message)
		}
	})

	t.Run("element choices are enforced", func(t *testing.T) {
		f := List(String().Choices("corn", "rye"))
		if err := f.Validate([]any{"corn", "rye"}); err != nil {
			t.Errorf("Validate = %v, want nil", err)
		}
		err := f.Validate([]any{"corn", "quinoa"})
		var ce *ConstraintError
		if !errors.As(err, &ce) {
			t.Fatalf("Validate = %v, want ConstraintError", err)
		}
		if ce.Constraint != ConstraintElements {
			t.Errorf("Constraint = %q, want %q", ce.Constraint, ConstraintElements)
		}
		if !strings.Contains(ce.Message, "element 1") || !strings.Contains(ce.Message, "must be one of") {
			t.Errorf("Message = %q, want element 1 choice violation", ce.Message)
		}

		d := Dict(Int().Choices(1, 2))
		if err := d.Validate(map[string]any{"a": 3}); err == nil {
			t.Error("Validate(dict with out-of-choice value) = nil, want error")
		}
	})

	t.Run("dict validates values under sorted keys", func(t *testing.T) {
		f := Dict(Int())
		err := f.Validate(map[string]any{"b": "no", "a": "no"})
		var ce *ConstraintError
		if !errors.As(err, &ce) {
			t.Fatalf("Validate = %v, want ConstraintError", err)
		}
		if !strings.Contains(ce.Message, `key "a"`) || !strings.Contains(ce.Message, `key "b"`) {
			t.Errorf("Message = %q, want both keys reported", ce.Message)
		}
	})

	t.Run("wrong container shape", func(t *testing.T) {
		if err := List(Int()).Validate(map[string]any{}); err == nil {
			t.Error("Validate(map) = nil, want error")
		}
		if err := Dict(Int()).Validate([]any{}); err == nil {
			t.Error("Validate(slice) = nil, want error")
		}
	})
}

func TestFieldSpec_Key(t *testing.T) {
	reg := NewRegistry()
	s := reg.Builder("Plant").
		Field("name", String()).
		Field("label", String().StorageKey("display_name")).
		MustRegister()

	tests := []struct {
		field string
		want  string
	}{
		{"name", "name"},
		{"label", "display_name"},
		{"id", "_id"},
	}
	for _, tt := range tests {
		f, ok := s.Field(tt.field)
		if !ok {
			t.Fatalf("Field(%q) missing", tt.field)
		}
		if got := f.Key(); got != tt.want {
			t.Errorf("Key(%q) = %q, want %q", tt.field, got, tt.want)
		}
	}
}
