package schema

// Kind classifies a field spec.
type Kind string

const (
	// KindSimple is a scalar field with a declared simple type.
	KindSimple Kind = "simple"

	// KindDynamic accepts data of any type.
	KindDynamic Kind = "dynamic"

	// KindContainer holds elements validated against an element spec.
	KindContainer Kind = "container"

	// KindReference points at (or embeds) a document of another type.
	KindReference Kind = "reference"
)

// SimpleType is the declared type of a simple field.
type SimpleType string

const (
	TypeString   SimpleType = "string"
	TypeInt      SimpleType = "int"
	TypeFloat    SimpleType = "float"
	TypeBool     SimpleType = "bool"
	TypeDateTime SimpleType = "datetime"
	TypeBinary   SimpleType = "binary"
	TypeUUID     SimpleType = "uuid"

	// Semantic types (string with format validation)
	TypeEmail SimpleType = "email"
	TypeURL   SimpleType = "url"
)

// Shape is the container layout of a container field.
type Shape string

const (
	ShapeList   Shape = "list"   // ordered, order preserved through storage
	ShapeSet    Shape = "set"    // unordered collection, stored as a list
	ShapeDict   Shape = "dict"   // string-keyed mapping, keys preserved
	ShapeStream Shape = "stream" // ordered, unbounded sequence
)

// FieldSpec owns the validation and serialization rules for one declared
// attribute. Specs are assembled with the chaining constructors below and
// bound to their owning schema by the Builder; a bound spec is immutable
// except for deferred reference resolution.
type FieldSpec struct {
	kind    Kind
	typ     SimpleType
	min     *float64
	max     *float64
	length  *int
	choices []any
	elem    *FieldSpec
	shape   Shape
	target  *TypeRef
	embed   bool

	storageKey   string
	required     bool
	defaultValue any
	defaultFunc  func() any
	primaryKey   bool
	unique       bool
	uniqueWith   []string

	// bound at schema-build time
	name  string
	owner *ModelSchema
}

// String declares a string field.
func String() *FieldSpec { return &FieldSpec{kind: KindSimple, typ: TypeString} }

// Int declares an integer field. Values are widened to int64.
func Int() *FieldSpec { return &FieldSpec{kind: KindSimple, typ: TypeInt} }

// Float declares a floating point field. Values are widened to float64.
func Float() *FieldSpec { return &FieldSpec{kind: KindSimple, typ: TypeFloat} }

// Bool declares a boolean field.
func Bool() *FieldSpec { return &FieldSpec{kind: KindSimple, typ: TypeBool} }

// DateTime declares a time.Time field.
func DateTime() *FieldSpec { return &FieldSpec{kind: KindSimple, typ: TypeDateTime} }

// Binary declares a []byte field.
func Binary() *FieldSpec { return &FieldSpec{kind: KindSimple, typ: TypeBinary} }

// UUID declares a canonical-form UUID string field.
func UUID() *FieldSpec { return &FieldSpec{kind: KindSimple, typ: TypeUUID} }

// Email declares a string field validated as an email address.
func Email() *FieldSpec { return &FieldSpec{kind: KindSimple, typ: TypeEmail} }

// URL declares a string field validated as an absolute URL.
func URL() *FieldSpec { return &FieldSpec{kind: KindSimple, typ: TypeURL} }

// Dynamic declares a field that accepts data of any type.
func Dynamic() *FieldSpec { return &FieldSpec{kind: KindDynamic} }

// List declares an ordered container. A nil element spec means dynamic
// elements.
func List(elem *FieldSpec) *FieldSpec { return container(ShapeList, elem) }

// Set declares an unordered container, stored as a list.
func Set(elem *FieldSpec) *FieldSpec { return container(ShapeSet, elem) }

// Dict declares a string-keyed mapping container.
func Dict(elem *FieldSpec) *FieldSpec { return container(ShapeDict, elem) }

// Stream declares an ordered, unbounded container.
func Stream(elem *FieldSpec) *FieldSpec { return container(ShapeStream, elem) }

func container(shape Shape, elem *FieldSpec) *FieldSpec {
	if elem == nil {
		elem = Dynamic()
	}
	return &FieldSpec{kind: KindContainer, shape: shape, elem: elem}
}

// Ref declares a reference to another record type by name. The special name
// "self" refers to the owning type. The target may stay unresolved until the
// named type is declared.
func Ref(target string) *FieldSpec {
	return &FieldSpec{kind: KindReference, target: NewTypeRef(target)}
}

// ---- chaining options ----

// Required marks the field as required.
func (f *FieldSpec) Required() *FieldSpec { f.required = true; return f }

// Default sets the value used when the field is absent.
func (f *FieldSpec) Default(v any) *FieldSpec { f.defaultValue = v; return f }

// StorageKey overrides the key used in the storage map (defaults to the
// field name).
func (f *FieldSpec) StorageKey(k string) *FieldSpec { f.storageKey = k; return f }

// PrimaryKey marks the field as the schema's primary key.
func (f *FieldSpec) PrimaryKey() *FieldSpec { f.primaryKey = true; return f }

// Unique marks the field as unique.
func (f *FieldSpec) Unique() *FieldSpec { f.unique = true; return f }

// UniqueWith requires the field's value to differ from the named sibling
// fields on the same document. The check is intra-document only.
func (f *FieldSpec) UniqueWith(names ...string) *FieldSpec {
	f.uniqueWith = append(f.uniqueWith, names...)
	f.unique = true
	return f
}

// Choices restricts the field to the given values. Membership is compared on
// the already-coerced value.
func (f *FieldSpec) Choices(vs ...any) *FieldSpec { f.choices = vs; return f }

// Min sets the inclusive lower numeric bound.
func (f *FieldSpec) Min(v float64) *FieldSpec { f.min = &v; return f }

// Max sets the inclusive upper numeric bound.
func (f *FieldSpec) Max(v float64) *FieldSpec { f.max = &v; return f }

// Length caps the value length: characters for strings, bytes for binary.
func (f *FieldSpec) Length(n int) *FieldSpec { f.length = &n; return f }

// Embedded makes a reference field inline the full nested document instead
// of a pointer record.
func (f *FieldSpec) Embedded() *FieldSpec { f.embed = true; return f }

// ---- accessors ----

// Name returns the field name bound at schema-build time.
func (f *FieldSpec) Name() string { return f.name }

// Key returns the storage key: the declared override, "_id" for primary
// keys, otherwise the field name.
func (f *FieldSpec) Key() string {
	if f.primaryKey {
		return identityStorageKey
	}
	if f.storageKey != "" {
		return f.storageKey
	}
	return f.name
}

// Kind returns the field kind.
func (f *FieldSpec) Kind() Kind { return f.kind }

// Type returns the simple type for simple fields.
func (f *FieldSpec) Type() SimpleType { return f.typ }

// Shape returns the container shape for container fields.
func (f *FieldSpec) Shape() Shape { return f.shape }

// Elem returns the element spec for container fields.
func (f *FieldSpec) Elem() *FieldSpec { return f.elem }

// Target returns the type reference for reference fields.
func (f *FieldSpec) Target() *TypeRef { return f.target }

// IsEmbedded reports whether a reference field inlines its document.
func (f *FieldSpec) IsEmbedded() bool { return f.embed }

// IsRequired reports whether the field must carry a value.
func (f *FieldSpec) IsRequired() bool { return f.required }

// IsPrimaryKey reports whether the field is the schema's primary key.
func (f *FieldSpec) IsPrimaryKey() bool { return f.primaryKey }

// IsUnique reports whether the field was marked unique.
func (f *FieldSpec) IsUnique() bool { return f.unique }

// UniqueSiblings returns the sibling field names named by UniqueWith.
func (f *FieldSpec) UniqueSiblings() []string { return f.uniqueWith }

// ChoiceValues returns the declared choice values.
func (f *FieldSpec) ChoiceValues() []any { return f.choices }

// Owner returns the schema the field is bound to.
func (f *FieldSpec) Owner() *ModelSchema { return f.owner }

// HasDefault reports whether the field carries a declared or generated
// default.
func (f *FieldSpec) HasDefault() bool {
	return f.defaultValue != nil || f.defaultFunc != nil
}

// DefaultValue materializes the field's default. Generated defaults (the
// synthetic identity) produce a fresh value per call; the document fixes it
// on first read.
func (f *FieldSpec) DefaultValue() any {
	if f.defaultFunc != nil {
		return f.defaultFunc()
	}
	return f.defaultValue
}

// bind attaches the spec to its owner under the given name. Container
// elements and reference targets are bound along with the spec.
func (f *FieldSpec) bind(name string, owner *ModelSchema) {
	f.name = name
	f.owner = owner
	if f.elem != nil {
		f.elem.bind(name, owner)
	}
	if f.target != nil {
		f.target.bind(owner, name)
	}
}

// clone deep-copies the spec so a child schema can inherit it without
// sharing bound state with the parent. Resolved reference targets stay
// resolved; unresolved ones stay symbolic.
func (f *FieldSpec) clone() *FieldSpec {
	c := *f
	c.name = ""
	c.owner = nil
	if f.min != nil {
		v := *f.min
		c.min = &v
	}
	if f.max != nil {
		v := *f.max
		c.max = &v
	}
	if f.length != nil {
		v := *f.length
		c.length = &v
	}
	c.choices = append([]any(nil), f.choices...)
	c.uniqueWith = append([]string(nil), f.uniqueWith...)
	if f.elem != nil {
		c.elem = f.elem.clone()
	}
	if f.target != nil {
		c.target = f.target.clone()
	}
	return &c
}
