package schema

// DB is an opaque connection descriptor. It only selects which store
// connection a schema's documents flow through; the core never opens sockets
// itself.
type DB struct {
	Name string `yaml:"name"`
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DefaultDB returns the descriptor used when a declaration names none.
func DefaultDB() DB {
	return DB{Name: "", Host: "localhost", Port: 27017}
}

// Meta holds the resolved schema options after inheritance merging.
type Meta struct {
	// Index lists field names the store should index.
	Index []string

	// MaxSize caps the storage size of a single document, in bytes.
	MaxSize int

	// Database selects the store connection for this schema's documents.
	Database DB

	// WriteConcern is forwarded to the store on save.
	WriteConcern int
}

// Defaults applied when neither the declaration nor any parent sets a key.
const (
	DefaultMaxSize      = 10_000_000
	DefaultWriteConcern = 1
)

func defaultMeta() Meta {
	return Meta{
		Index:        nil,
		MaxSize:      DefaultMaxSize,
		Database:     DefaultDB(),
		WriteConcern: DefaultWriteConcern,
	}
}

// MetaDecl is the declared form of Meta. Nil entries inherit from the parent
// schema, or from system defaults at the root.
type MetaDecl struct {
	Index        []string `yaml:"index,omitempty"`
	MaxSize      *int     `yaml:"max_size,omitempty"`
	Database     *DB      `yaml:"database,omitempty"`
	WriteConcern *int     `yaml:"write_concern,omitempty"`
}

// mergeMeta resolves a declaration against the parent's already-resolved
// options. The child overrides per key, otherwise inherits.
func mergeMeta(parent Meta, decl MetaDecl) Meta {
	merged := parent
	if decl.Index != nil {
		merged.Index = append([]string(nil), decl.Index...)
	}
	if decl.MaxSize != nil {
		merged.MaxSize = *decl.MaxSize
	}
	if decl.Database != nil {
		merged.Database = *decl.Database
	}
	if decl.WriteConcern != nil {
		merged.WriteConcern = *decl.WriteConcern
	}
	return merged
}
