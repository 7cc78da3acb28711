package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// RecordDecl is a record-type declaration parsed from YAML.
type RecordDecl struct {
	// Record is the record type name.
	Record string `yaml:"record"`

	// Parent names the single record type this one inherits from.
	Parent string `yaml:"parent,omitempty"`

	// Meta holds the locally-declared schema options.
	Meta MetaDecl `yaml:"meta,omitempty"`

	// Fields are the locally-declared fields, in declaration order.
	Fields FieldDecls `yaml:"fields"`
}

// FieldDecls preserves the declaration order of a YAML fields mapping.
type FieldDecls []NamedFieldDecl

// NamedFieldDecl is one ordered entry of a fields mapping.
type NamedFieldDecl struct {
	Name string
	Decl FieldDecl
}

// UnmarshalYAML decodes a mapping node while keeping key order, which plain
// map decoding would lose.
func (d *FieldDecls) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("fields must be a mapping")
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		var name string
		if err := node.Content[i].Decode(&name); err != nil {
			return err
		}
		var decl FieldDecl
		if err := node.Content[i+1].Decode(&decl); err != nil {
			return fmt.Errorf("field %q: %w", name, err)
		}
		*d = append(*d, NamedFieldDecl{Name: name, Decl: decl})
	}
	return nil
}

// FieldDecl is the YAML form of a FieldSpec.
type FieldDecl struct {
	// Type is the field type: a simple type (string, int, float, bool,
	// datetime, binary, uuid, email, url), "dynamic", a container shape
	// (list, set, dict, stream), or "ref".
	Type string `yaml:"type"`

	// Elem defines the element type for container fields.
	Elem *FieldDecl `yaml:"elem,omitempty"`

	// To names the target record type for ref fields ("self" allowed).
	To string `yaml:"to,omitempty"`

	// Embed inlines the referenced document instead of a pointer record.
	Embed bool `yaml:"embed,omitempty"`

	// Key overrides the storage key.
	Key string `yaml:"key,omitempty"`

	Required   bool     `yaml:"required,omitempty"`
	Default    any      `yaml:"default,omitempty"`
	PrimaryKey bool     `yaml:"primary_key,omitempty"`
	Unique     bool     `yaml:"unique,omitempty"`
	UniqueWith []string `yaml:"unique_with,omitempty"`
	Choices    []any    `yaml:"choices,omitempty"`
	Min        *float64 `yaml:"min,omitempty"`
	Max        *float64 `yaml:"max,omitempty"`
	Length     *int     `yaml:"length,omitempty"`
}

// Parse parses a record declaration from YAML bytes.
func Parse(data []byte) (RecordDecl, error) {
	var decl RecordDecl
	if err := yaml.Unmarshal(data, &decl); err != nil {
		return RecordDecl{}, fmt.Errorf("parse yaml: %w", err)
	}
	if decl.Record == "" {
		return RecordDecl{}, fmt.Errorf("record name is required")
	}
	return decl, nil
}

// ParseFile parses a record declaration from a YAML file.
func ParseFile(path string) (RecordDecl, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RecordDecl{}, fmt.Errorf("read file %s: %w", path, err)
	}
	decl, err := Parse(data)
	if err != nil {
		return RecordDecl{}, fmt.Errorf("%s: %w", path, err)
	}
	return decl, nil
}

// ParseDir parses every .yaml/.yml declaration in a directory, including
// subdirectories.
func ParseDir(dir string) ([]RecordDecl, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	var decls []RecordDecl
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		if entry.IsDir() {
			sub, err := ParseDir(path)
			if err != nil {
				return nil, err
			}
			decls = append(decls, sub...)
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
			continue
		}
		decl, err := ParseFile(path)
		if err != nil {
			return nil, err
		}
		decls = append(decls, decl)
	}
	return decls, nil
}

// Build turns a parsed declaration into a registered schema. A named parent
// must already be registered.
func (d RecordDecl) Build(reg *Registry) (*ModelSchema, error) {
	b := reg.Builder(d.Record)
	if d.Parent != "" {
		parent, ok := reg.Lookup(d.Parent)
		if !ok {
			return nil, schemaErrorf(d.Record, "parent type %q is not declared", d.Parent)
		}
		b.Parent(parent)
	}
	b.Meta(d.Meta)
	for _, nf := range d.Fields {
		spec, err := specFromDecl(d.Record, nf.Name, nf.Decl)
		if err != nil {
			return nil, err
		}
		b.Field(nf.Name, spec)
	}
	return b.Register()
}

// LoadDir parses and registers every declaration under dir. Declarations may
// name parents declared in later files; registration retries until no
// progress is made.
func LoadDir(reg *Registry, dir string) ([]*ModelSchema, error) {
	decls, err := ParseDir(dir)
	if err != nil {
		return nil, err
	}

	var schemas []*ModelSchema
	pending := decls
	for len(pending) > 0 {
		var stuck []RecordDecl
		for _, decl := range pending {
			if decl.Parent != "" {
				if _, ok := reg.Lookup(decl.Parent); !ok {
					stuck = append(stuck, decl)
					continue
				}
			}
			s, err := decl.Build(reg)
			if err != nil {
				return nil, err
			}
			schemas = append(schemas, s)
		}
		if len(stuck) == len(pending) {
			return nil, schemaErrorf(stuck[0].Record, "parent type %q is not declared", stuck[0].Parent)
		}
		pending = stuck
	}
	return schemas, nil
}

func specFromDecl(typeName, fieldName string, d FieldDecl) (*FieldSpec, error) {
	var spec *FieldSpec
	switch d.Type {
	case "string":
		spec = String()
	case "int":
		spec = Int()
	case "float":
		spec = Float()
	case "bool":
		spec = Bool()
	case "datetime":
		spec = DateTime()
	case "binary":
		spec = Binary()
	case "uuid":
		spec = UUID()
	case "email":
		spec = Email()
	case "url":
		spec = URL()
	case "dynamic", "":
		spec = Dynamic()
	case "list", "set", "dict", "stream":
		var elem *FieldSpec
		if d.Elem != nil {
			var err error
			elem, err = specFromDecl(typeName, fieldName, *d.Elem)
			if err != nil {
				return nil, err
			}
		}
		spec = container(Shape(d.Type), elem)
	case "ref":
		if d.To == "" {
			return nil, schemaErrorf(typeName, "field %q: ref requires a target type", fieldName)
		}
		spec = Ref(d.To)
		if d.Embed {
			spec.Embedded()
		}
	default:
		return nil, schemaErrorf(typeName, "field %q: unknown type %q", fieldName, d.Type)
	}

	if d.Key != "" {
		spec.StorageKey(d.Key)
	}
	if d.Required {
		spec.Required()
	}
	if d.Default != nil {
		spec.Default(d.Default)
	}
	if d.PrimaryKey {
		spec.PrimaryKey()
	}
	if d.Unique {
		spec.Unique()
	}
	if len(d.UniqueWith) > 0 {
		spec.UniqueWith(d.UniqueWith...)
	}
	if len(d.Choices) > 0 {
		spec.Choices(d.Choices...)
	}
	if d.Min != nil {
		spec.Min(*d.Min)
	}
	if d.Max != nil {
		spec.Max(*d.Max)
	}
	if d.Length != nil {
		spec.Length(*d.Length)
	}
	return spec, nil
}
