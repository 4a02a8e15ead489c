// Package sqlite provides the default resource store backed by a local
// SQLite file. Payloads are stored as JSON text and predicate reads use
// json_extract, so no per-entity schema is needed.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/ukcensus-tools/census-client/pkg/store"
)

// Compile-time contract assertion.
var _ store.Store = (*Store)(nil)

// Store is a SQLite-backed resource store.
type Store struct {
	db   *sql.DB
	path string
}

// New opens (or creates) a SQLite resource store at the given path.
func New(path string) (*Store, error) {
	if path == "" {
		path = "census-cache.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// EnsureTable creates a resource table if absent.
func (s *Store) EnsureTable(ctx context.Context, table string) error {
	if err := store.ValidateTableName(table); err != nil {
		return err
	}

	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %q (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		hash TEXT NOT NULL UNIQUE,
		data TEXT NOT NULL
	)`, table)

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create table %q: %w", table, err)
	}
	return nil
}

// Exists reports whether any row matches the predicate. A missing table is
// an empty table, not an error.
func (s *Store) Exists(ctx context.Context, table string, predicate store.Predicate) (bool, error) {
	if err := store.ValidateTableName(table); err != nil {
		return false, err
	}

	present, err := s.tableExists(ctx, table)
	if err != nil || !present {
		return false, err
	}

	where, args, err := buildWhere(predicate)
	if err != nil {
		return false, err
	}

	query := fmt.Sprintf(`SELECT 1 FROM %q%s LIMIT 1`, table, where)
	var one int
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query %q: %w", table, err)
	}
	return true, nil
}

// Read returns all rows matching the predicate in insertion order.
func (s *Store) Read(ctx context.Context, table string, predicate store.Predicate) ([]store.Row, error) {
	if err := store.ValidateTableName(table); err != nil {
		return nil, err
	}

	present, err := s.tableExists(ctx, table)
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, nil
	}

	where, args, err := buildWhere(predicate)
	if err != nil {
		return nil, err
	}

	store.Reads.WithLabelValues(table).Inc()

	query := fmt.Sprintf(`SELECT id, data FROM %q%s ORDER BY id`, table, where)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", table, err)
	}
	defer rows.Close()

	var result []store.Row
	for rows.Next() {
		var row store.Row
		if err := rows.Scan(&row.ID, &row.Payload); err != nil {
			return nil, fmt.Errorf("scan %q: %w", table, err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %q: %w", table, err)
	}
	return result, nil
}

// Write appends one payload, deduplicated on its content hash.
func (s *Store) Write(ctx context.Context, table string, payload []byte) error {
	if err := store.ValidateTableName(table); err != nil {
		return err
	}

	query := fmt.Sprintf(`INSERT INTO %q (hash, data) VALUES (?, ?) ON CONFLICT(hash) DO NOTHING`, table)
	result, err := s.db.ExecContext(ctx, query, store.PayloadHash(payload), string(payload))
	if err != nil {
		return fmt.Errorf("insert into %q: %w", table, err)
	}

	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		store.DuplicateWrites.WithLabelValues(table).Inc()
		return nil
	}
	store.Writes.WithLabelValues(table).Inc()
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// tableExists checks the catalog instead of provoking a query error, so a
// cache miss never surfaces as an exception.
func (s *Store) tableExists(ctx context.Context, table string) (bool, error) {
	var name string
	err := s.db.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check table %q: %w", table, err)
	}
	return true, nil
}

// buildWhere renders an equality predicate as a parameterized WHERE clause.
// Field names are validated and embedded in quoted JSON paths; values are
// always bound parameters.
func buildWhere(predicate store.Predicate) (string, []any, error) {
	if len(predicate) == 0 {
		return "", nil, nil
	}

	fields := make([]string, 0, len(predicate))
	for field := range predicate {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	clause := " WHERE "
	var args []any
	for i, field := range fields {
		if err := store.ValidateFieldName(field); err != nil {
			return "", nil, err
		}
		if i > 0 {
			clause += " AND "
		}
		clause += `json_extract(data, ?) = ?`
		args = append(args, fmt.Sprintf(`$."%s"`, field), predicate[field])
	}
	return clause, args, nil
}
