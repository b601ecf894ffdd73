// Package docstore exposes a schemaless collection/document store with the
// small query surface the POS needs: equality, "in" and range predicates over
// single fields, server-assigned ids and timestamps, and atomic sequences.
//
// Two backends are provided: a Postgres JSONB store for production and an
// in-memory store for tests and local runs.
package docstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a document id does not exist in a collection.
var ErrNotFound = errors.New("document not found")

// Document is a stored record: a server-assigned id plus its fields.
type Document struct {
	ID   string
	Data map[string]any
}

// serverTimestamp is the sentinel type behind ServerTimestamp.
type serverTimestamp struct{}

// ServerTimestamp is a field value that backends replace with the write-time
// clock. Use it for createdAt/updatedAt/completedAt so timestamps are assigned
// by the store, never trusted from callers.
var ServerTimestamp = serverTimestamp{}

// Supported Where operators.
const (
	OpEqual = "=="
	OpIn    = "in"
	OpGTE   = ">="
	OpLTE   = "<="
)

// Store is the process-wide document store handle, built once at startup and
// injected into every component.
type Store interface {
	Collection(name string) Collection

	// NextSeq atomically increments and returns the named sequence,
	// starting at 1.
	NextSeq(ctx context.Context, name string) (int64, error)

	// EnsureSeq raises the named sequence to at least min. Used at startup to
	// reconcile the order-number sequence with pre-existing data.
	EnsureSeq(ctx context.Context, name string, min int64) error

	Close()
}

// Collection is a named set of documents.
type Collection interface {
	// Add inserts a new document and returns its server-assigned id.
	Add(ctx context.Context, data map[string]any) (string, error)

	// Get returns the document with the given id, or ErrNotFound.
	Get(ctx context.Context, id string) (Document, error)

	// Set writes the document with the given id. With merge, fields in data
	// are overlaid on the existing document and ErrNotFound is reported when
	// the id does not exist; without merge the document is replaced (upsert).
	Set(ctx context.Context, id string, data map[string]any, merge bool) error

	// Delete removes the document. Deleting an absent id is not an error.
	Delete(ctx context.Context, id string) error

	// GetAll returns every document in the collection.
	GetAll(ctx context.Context) ([]Document, error)

	// Count returns the number of documents in the collection.
	Count(ctx context.Context) (int64, error)

	// Where starts a filtered query.
	Where(field, op string, value any) Query
}

// Query is a chainable filtered read; predicates combine with AND.
type Query interface {
	Where(field, op string, value any) Query
	GetAll(ctx context.Context) ([]Document, error)
}

// condition is a single predicate shared by both backends.
type condition struct {
	field string
	op    string
	value any
}

// resolveTimestamps replaces ServerTimestamp sentinels with now, returning a
// shallow copy so callers' maps are never mutated.
func resolveTimestamps(data map[string]any, now time.Time) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		if _, ok := v.(serverTimestamp); ok {
			out[k] = now
			continue
		}
		out[k] = v
	}
	return out
}
