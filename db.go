package godm

import (
	"context"

	"go.uber.org/zap"

	"github.com/godm-io/godm/driver"
)

// DB is a handle on one database through a driver. It hands out typed
// collections; index reconciliation stays explicit so deployments decide
// when index changes run.
type DB struct {
	drv    driver.Driver
	logger *zap.Logger
}

// DBOption adjusts a database handle.
type DBOption func(*DB)

// WithDBLogger sets the logger collections inherit for their index and
// lifecycle logs.
func WithDBLogger(l *zap.Logger) DBOption {
	return func(db *DB) { db.logger = l }
}

// Open wraps a driver connection.
func Open(drv driver.Driver, opts ...DBOption) *DB {
	db := &DB{drv: drv}
	for _, opt := range opts {
		opt(db)
	}
	if db.logger == nil {
		db.logger = Logger()
	}
	return db
}

// Collection binds a schema to its collection, named by the schema's
// lowercased plural unless the schema declares otherwise.
func (db *DB) Collection(s *Schema) *Collection {
	return db.CollectionNamed(s, s.CollectionName())
}

// CollectionNamed binds a schema to an explicitly named collection.
func (db *DB) CollectionNamed(s *Schema, name string) *Collection {
	return &Collection{schema: s, col: db.drv.Collection(name), logger: db.logger}
}

// Driver returns the underlying driver.
func (db *DB) Driver() driver.Driver { return db.drv }

// Close releases the underlying driver connection.
func (db *DB) Close(ctx context.Context) error {
	return db.drv.Close(ctx)
}
