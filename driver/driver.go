// Package driver defines the store contract the document layer runs on.
// A driver adapts one concrete document store; the jsonstore subpackage
// ships a file-backed implementation used by the tests and the CLI.
//
// Drivers move plain map documents. Typing, validation, and update
// rewriting all happen above this interface.
package driver

import (
	"context"
	"errors"
)

// ErrNotFound reports that a filter matched no document.
var ErrNotFound = errors.New("driver: document not found")

// ErrIndexNotFound reports an index name the collection does not carry.
var ErrIndexNotFound = errors.New("driver: index not found")

// Driver is a connection to one logical database.
type Driver interface {
	// Collection returns a handle on the named collection. Collections come
	// into being lazily on first write.
	Collection(name string) Collection
	// Close flushes pending state and releases the connection. The driver
	// is unusable afterwards.
	Close(ctx context.Context) error
}

// Collection is one named set of documents.
type Collection interface {
	// Name returns the collection name.
	Name() string
	// Insert stores a new document and returns its primary key. A document
	// without an _id gets one assigned by the driver.
	Insert(ctx context.Context, doc map[string]any) (id any, err error)
	// Replace overwrites one document matching filter with doc, keeping its
	// primary key. It returns how many documents matched: zero or one.
	Replace(ctx context.Context, filter, doc map[string]any) (matched int64, err error)
	// Update applies an update document to one matching document, or to all
	// of them with multi set. It returns how many documents matched.
	Update(ctx context.Context, filter map[string]any, update any, multi bool) (matched int64, err error)
	// Delete removes one matching document, or all of them with multi set,
	// and returns how many documents went away.
	Delete(ctx context.Context, filter map[string]any, multi bool) (deleted int64, err error)
	// Find returns the documents matching filter. The order is the driver's
	// natural order.
	Find(ctx context.Context, filter map[string]any) ([]map[string]any, error)
	// ListIndexes returns one descriptor per index, each carrying at least
	// "key" (ordered single-entry maps) and "name".
	ListIndexes(ctx context.Context) ([]map[string]any, error)
	// CreateIndex builds an index over keys, ordered single-entry maps of
	// field to direction, and returns its name.
	CreateIndex(ctx context.Context, keys []map[string]any, options map[string]any) (name string, err error)
	// DropIndex removes the named index. Dropping an unknown name returns
	// ErrIndexNotFound.
	DropIndex(ctx context.Context, name string) error
	// ModifyIndexOption changes options on an existing index in place,
	// without rebuilding it.
	ModifyIndexOption(ctx context.Context, name string, option map[string]any) error
}
