// Package store defines the durable resource-table abstraction that backs
// the fetch cache. Every fetched item is persisted as one opaque JSON
// payload in a named resource table; later runs read from here instead of
// re-querying the network.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
)

// Row is one persisted cache record: a surrogate identifier plus the raw
// payload written at fetch time. Records are append-only and never mutated.
type Row struct {
	ID      int64
	Payload []byte
}

// Predicate is a simple equality filter over top-level payload fields.
// An empty predicate matches every row of a table.
type Predicate map[string]string

// Store is the persistent resource table interface. Implementations must
// treat a missing table as an empty one: Exists and Read signal a cache
// miss through their return values, never through an error.
type Store interface {
	// EnsureTable creates a resource table if absent. Idempotent.
	EnsureTable(ctx context.Context, table string) error

	// Exists reports whether any row matches the predicate.
	Exists(ctx context.Context, table string, predicate Predicate) (bool, error)

	// Read returns all rows matching the predicate, in insertion order.
	Read(ctx context.Context, table string, predicate Predicate) ([]Row, error)

	// Write appends one payload. Writes are deduplicated on a
	// content-derived hash: re-inserting an identical payload is a no-op.
	Write(ctx context.Context, table string, payload []byte) error

	// Close releases the underlying connection.
	Close() error
}

var (
	tableNamePattern = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)
	fieldNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)
)

// ValidateTableName rejects table names that cannot be safely quoted as SQL
// identifiers. Table names come from a fixed internal set, so a violation is
// a programming error surfaced early.
func ValidateTableName(table string) error {
	if !tableNamePattern.MatchString(table) {
		return fmt.Errorf("invalid resource table name %q", table)
	}
	return nil
}

// ValidateFieldName rejects payload field names that cannot be safely used
// in a JSON path expression.
func ValidateFieldName(field string) error {
	if !fieldNamePattern.MatchString(field) {
		return fmt.Errorf("invalid payload field name %q", field)
	}
	return nil
}

// PayloadHash derives the dedup key for a payload.
func PayloadHash(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
