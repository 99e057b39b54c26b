// Package docstore is the gateway to the realtime document store. Records are
// JSON documents addressed by "collection/key" paths; readers subscribe to a
// whole collection and receive a full snapshot on every change.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
)

var (
	ErrNotFound    = errors.New("document not found")
	ErrInvalidPath = errors.New("invalid document path")
	ErrClosed      = errors.New("document store is closed")
	ErrConflict    = errors.New("transaction retries exhausted")
	ErrFeedFailed  = errors.New("change feed failed")
)

// Entry is one record of a collection snapshot.
type Entry struct {
	Key   string
	Value json.RawMessage
}

// Snapshot is the full value of a collection at one point in time. Entries are
// ordered by key, which for pushed records is creation order.
type Snapshot struct {
	Collection string
	Entries    []Entry
}

// TxFunc receives the current value of a record (nil when it does not exist)
// and returns the value to write. Returning a nil value with a nil error leaves
// the record untouched; returning an error aborts the transaction and the error
// is handed back to the caller unchanged. A TxFunc may run more than once when
// the backend retries on contention.
type TxFunc func(current json.RawMessage, exists bool) (json.RawMessage, error)

// NotifyFunc is called by a backend with the name of a collection that changed.
type NotifyFunc func(collection string)

// Backend is a concrete store driver.
type Backend interface {
	Get(ctx context.Context, collection, key string) (json.RawMessage, error)
	List(ctx context.Context, collection string) ([]Entry, error)
	// Put replaces a record.
	Put(ctx context.Context, collection, key string, value json.RawMessage) error
	// Merge updates the named fields of a record, creating it when missing.
	// A JSON null removes the field.
	Merge(ctx context.Context, collection, key string, fields map[string]json.RawMessage) error
	Delete(ctx context.Context, collection, key string) error
	Transact(ctx context.Context, collection, key string, fn TxFunc) error
	// Watch starts delivering change notifications. It returns once the
	// backend is listening; the returned channel yields a terminal error, or
	// is closed when ctx ends.
	Watch(ctx context.Context, notify NotifyFunc) (<-chan error, error)
	Close() error
}

// HealthReporter is implemented by backends that can report connection stats.
type HealthReporter interface {
	Health(ctx context.Context) map[string]string
}

// Connector opens a backend. The client invokes it at most once.
type Connector func(ctx context.Context) (Backend, error)
