package schema

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParse(t *testing.T) {
	data := []byte(`
record: Gardener
meta:
  max_size: 4096
  write_concern: 2
fields:
  name:
    type: string
    required: true
  email:
    type: email
  years:
    type: int
    min: 0
  instructor:
    type: ref
    to: self
  tools:
    type: list
    elem:
      type: string
`)

	decl, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse = %v", err)
	}
	if decl.Record != "Gardener" {
		t.Errorf("Record = %q, want %q", decl.Record, "Gardener")
	}
	if decl.Meta.MaxSize == nil || *decl.Meta.MaxSize != 4096 {
		t.Errorf("Meta.MaxSize = %v, want 4096", decl.Meta.MaxSize)
	}

	// Declaration order survives YAML decoding.
	want := []string{"name", "email", "years", "instructor", "tools"}
	if len(decl.Fields) != len(want) {
		t.Fatalf("field count = %d, want %d", len(decl.Fields), len(want))
	}
	for i, nf := range decl.Fields {
		if nf.Name != want[i] {
			t.Errorf("field[%d] = %q, want %q", i, nf.Name, want[i])
		}
	}
}

func TestParse_MissingRecordName(t *testing.T) {
	if _, err := Parse([]byte("fields:\n  name:\n    type: string\n")); err == nil {
		t.Error("Parse without record name = nil, want error")
	}
}

func TestRecordDecl_Build(t *testing.T) {
	data := []byte(`
record: Gardener
fields:
  name:
    type: string
    required: true
  status:
    type: string
    choices: [active, retired]
  instructor:
    type: ref
    to: self
`)
	decl, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse = %v", err)
	}

	reg := NewRegistry()
	s, err := decl.Build(reg)
	if err != nil {
		t.Fatalf("Build = %v", err)
	}

	name, _ := s.Field("name")
	if !name.IsRequired() {
		t.Error("name.IsRequired() = false, want true")
	}
	status, _ := s.Field("status")
	if got := len(status.ChoiceValues()); got != 2 {
		t.Errorf("len(status choices) = %d, want 2", got)
	}
	instructor, _ := s.Field("instructor")
	if !instructor.Target().Resolved() {
		t.Error("self reference unresolved after Build")
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	// The child's file sorts before the parent's, so loading must retry.
	writeDecl(t, dir, "a_derived.yaml", `
record: MasterGardener
parent: Gardener
fields:
  certification:
    type: string
    required: true
`)
	writeDecl(t, dir, "b_base.yaml", `
record: Gardener
fields:
  name:
    type: string
    required: true
`)

	reg := NewRegistry()
	schemas, err := LoadDir(reg, dir)
	if err != nil {
		t.Fatalf("LoadDir = %v", err)
	}
	if len(schemas) != 2 {
		t.Fatalf("LoadDir returned %d schemas, want 2", len(schemas))
	}

	child, ok := reg.Lookup("MasterGardener")
	if !ok {
		t.Fatal("MasterGardener not registered")
	}
	if child.Parent() == nil || child.Parent().Name() != "Gardener" {
		t.Error("MasterGardener did not inherit from Gardener")
	}
	if _, ok := child.Field("name"); !ok {
		t.Error("inherited field missing on child")
	}
}

func TestLoadDir_UndeclaredParent(t *testing.T) {
	dir := t.TempDir()
	writeDecl(t, dir, "orphan.yaml", `
record: Orphan
parent: Missing
fields:
  name:
    type: string
`)

	reg := NewRegistry()
	if _, err := LoadDir(reg, dir); err == nil {
		t.Error("LoadDir with undeclared parent = nil, want error")
	}
}

func writeDecl(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
