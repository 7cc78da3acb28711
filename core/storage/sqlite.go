package storage

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/okenlabs/docweave/core/schema"
)

// collectionPattern guards collection names interpolated into SQL.
var collectionPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLiteStore implements Store with SQLite. Each collection is a table of
// (id, data) rows, with the full storage map JSON-encoded in the data
// column; filters use json_extract.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.Mutex
	tables map[string]bool
	logger zerolog.Logger
}

// NewSQLiteStore opens (or creates) a SQLite-backed document store at path.
// Use ":memory:" for an ephemeral store.
func NewSQLiteStore(path string, logger zerolog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -64000",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	return &SQLiteStore{
		db:     db,
		tables: make(map[string]bool),
		logger: logger,
	}, nil
}

// ensureTable creates the collection table on first use.
func (s *SQLiteStore) ensureTable(ctx context.Context, collection string) error {
	if !collectionPattern.MatchString(collection) {
		return fmt.Errorf("invalid collection name %q", collection)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tables[collection] {
		return nil
	}

	createSQL := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (id TEXT PRIMARY KEY, data TEXT NOT NULL)",
		collection,
	)
	if _, err := s.db.ExecContext(ctx, createSQL); err != nil {
		return fmt.Errorf("create collection %s: %w", collection, err)
	}
	s.tables[collection] = true
	return nil
}

// Save upserts a document. A missing or empty id gets a generated UUID.
func (s *SQLiteStore) Save(ctx context.Context, collection string, doc map[string]any, opts SaveOptions) (string, error) {
	if err := s.ensureTable(ctx, collection); err != nil {
		return "", err
	}

	id, ok := doc[IDKey].(string)
	if !ok || id == "" {
		if raw, present := doc[IDKey]; present && raw != nil {
			id = idString(raw)
		} else {
			id = uuid.New().String()
			doc[IDKey] = id
		}
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}

	insertSQL := fmt.Sprintf(
		"INSERT INTO %s (id, data) VALUES (?, ?) ON CONFLICT(id) DO UPDATE SET data = excluded.data",
		collection,
	)
	if _, err := s.db.ExecContext(ctx, insertSQL, id, string(data)); err != nil {
		return "", fmt.Errorf("save: %w", err)
	}

	s.logger.Debug().
		Str("collection", collection).
		Str("id", id).
		Int("write_concern", opts.WriteConcern).
		Msg("document saved")
	return id, nil
}

// Dereference loads the document a pointer record addresses.
func (s *SQLiteStore) Dereference(ctx context.Context, p *schema.Pointer) (map[string]any, error) {
	if err := s.ensureTable(ctx, p.Collection); err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT data FROM %s WHERE id = ?", p.Collection)
	var data string
	err := s.db.QueryRowContext(ctx, query, idString(p.ID)).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dereference %s/%v: %w", p.Collection, p.ID, err)
	}
	return decodeRow(data)
}

// Find returns every document matching the filter by equality.
func (s *SQLiteStore) Find(ctx context.Context, collection string, filter map[string]any) ([]map[string]any, error) {
	if err := s.ensureTable(ctx, collection); err != nil {
		return nil, err
	}

	var conditions []string
	var args []any
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if k == IDKey {
			conditions = append(conditions, "id = ?")
			args = append(args, idString(filter[k]))
			continue
		}
		conditions = append(conditions, fmt.Sprintf(`json_extract(data, '$."%s"') = ?`, strings.ReplaceAll(k, `"`, "")))
		args = append(args, filterArg(filter[k]))
	}

	querySQL := fmt.Sprintf("SELECT data FROM %s", collection)
	if len(conditions) > 0 {
		querySQL += " WHERE " + strings.Join(conditions, " AND ")
	}
	querySQL += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, querySQL, args...)
	if err != nil {
		return nil, fmt.Errorf("find: %w", err)
	}
	defer rows.Close()

	var results []map[string]any
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		doc, err := decodeRow(data)
		if err != nil {
			return nil, err
		}
		results = append(results, doc)
	}
	return results, rows.Err()
}

// Delete removes a document by id.
func (s *SQLiteStore) Delete(ctx context.Context, collection string, id string) error {
	if err := s.ensureTable(ctx, collection); err != nil {
		return err
	}

	deleteSQL := fmt.Sprintf("DELETE FROM %s WHERE id = ?", collection)
	result, err := s.db.ExecContext(ctx, deleteSQL, id)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("document not found: %s", id)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

func decodeRow(data string) (map[string]any, error) {
	var doc map[string]any
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}

// filterArg converts a filter value to what json_extract yields for it.
func filterArg(v any) any {
	switch b := v.(type) {
	case bool:
		if b {
			return 1
		}
		return 0
	default:
		return v
	}
}
