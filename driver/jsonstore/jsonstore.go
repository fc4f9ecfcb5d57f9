// Package jsonstore is a file-backed document store implementing the driver
// contract. The whole store lives in memory and is written back to a single
// JSON file on every mutation, guarded by a file lock so concurrent
// processes do not tear the file. An empty path opens a purely in-memory
// store.
//
// Documents take their JSON shape on insert: numbers become float64,
// timestamps RFC3339 strings, byte strings base64. Index descriptors are
// reconciliation metadata; queries do not consult them.
package jsonstore

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/godm-io/godm/codec"
	"github.com/godm-io/godm/driver"
)

const (
	storeVersion    = "1"
	lockTimeout     = 3 * time.Second
	lockRetryPeriod = 100 * time.Millisecond
)

// Store implements driver.Driver over one JSON file.
type Store struct {
	path string
	lock *flock.Flock

	cols *xsync.MapOf[string, *collection]

	// persistMu orders whole-file writes; collection mutexes order the
	// in-memory state.
	persistMu sync.Mutex
	createdAt time.Time

	closedMu sync.RWMutex
	closed   bool
}

type storeFile struct {
	Collections map[string]collectionData `json:"collections"`
	Metadata    metadata                  `json:"metadata"`
}

type collectionData struct {
	Documents []map[string]any `json:"documents"`
	Indexes   []map[string]any `json:"indexes"`
}

type metadata struct {
	Version   string    `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Open loads the store at path, creating it on first write if the file does
// not exist yet. An empty path keeps everything in memory.
func Open(path string) (*Store, error) {
	s := &Store{
		path:      path,
		cols:      xsync.NewMapOf[string, *collection](),
		createdAt: time.Now().UTC(),
	}
	if path == "" {
		return s, nil
	}
	s.lock = flock.New(path + ".lock")

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return s, nil
	}
	if err := s.withFileLock(context.Background(), func() error {
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("jsonstore: read %s: %w", path, err)
		}
		if len(raw) == 0 {
			return nil
		}
		var file storeFile
		if err := codec.JSON.Unmarshal(raw, &file); err != nil {
			return fmt.Errorf("jsonstore: parse %s: %w", path, err)
		}
		if file.Metadata.CreatedAt.IsZero() {
			file.Metadata.CreatedAt = s.createdAt
		}
		s.createdAt = file.Metadata.CreatedAt
		for name, data := range file.Collections {
			s.cols.Store(name, newCollection(s, name, data))
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return s, nil
}

// Collection returns the named collection, creating it lazily.
func (s *Store) Collection(name string) driver.Collection {
	col, _ := s.cols.LoadOrCompute(name, func() *collection {
		return newCollection(s, name, collectionData{})
	})
	return col
}

// Close writes pending state out and marks the store unusable.
func (s *Store) Close(ctx context.Context) error {
	s.closedMu.Lock()
	if s.closed {
		s.closedMu.Unlock()
		return nil
	}
	s.closed = true
	s.closedMu.Unlock()
	return s.persist(ctx)
}

func (s *Store) isClosed() bool {
	s.closedMu.RLock()
	defer s.closedMu.RUnlock()
	return s.closed
}

// persist writes the whole store to disk. In-memory stores skip it.
func (s *Store) persist(ctx context.Context) error {
	if s.path == "" {
		return nil
	}
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	file := storeFile{
		Collections: map[string]collectionData{},
		Metadata: metadata{
			Version:   storeVersion,
			CreatedAt: s.createdAt,
			UpdatedAt: time.Now().UTC(),
		},
	}
	var names []string
	s.cols.Range(func(name string, _ *collection) bool {
		names = append(names, name)
		return true
	})
	sort.Strings(names)
	for _, name := range names {
		col, ok := s.cols.Load(name)
		if !ok {
			continue
		}
		file.Collections[name] = col.snapshot()
	}
	raw, err := codec.JSON.MarshalIndent(file)
	if err != nil {
		return fmt.Errorf("jsonstore: encode store: %w", err)
	}
	return s.withFileLock(ctx, func() error {
		tmp := s.path + ".tmp"
		if err := os.WriteFile(tmp, raw, 0o644); err != nil {
			return fmt.Errorf("jsonstore: write %s: %w", tmp, err)
		}
		if err := os.Rename(tmp, s.path); err != nil {
			return fmt.Errorf("jsonstore: replace %s: %w", s.path, err)
		}
		return nil
	})
}

func (s *Store) withFileLock(ctx context.Context, fn func() error) error {
	ctx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()
	locked, err := s.lock.TryLockContext(ctx, lockRetryPeriod)
	if err != nil {
		return fmt.Errorf("jsonstore: acquire lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("jsonstore: store file is locked")
	}
	defer func() { _ = s.lock.Unlock() }()
	return fn()
}
