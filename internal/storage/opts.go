package storage

import (
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"
)

// inMemoryOptions keep nothing on disk; used by tests and when the cache
// directory cannot be opened.
func inMemoryOptions() badger.Options {
	return badger.DefaultOptions("").
		WithInMemory(true).
		WithNumVersionsToKeep(1).
		WithNumGoroutines(1).
		WithLogger(nil)
}

// Open opens the badger database at path, or an in-memory one when inMemory
// is set.
func Open(path string, inMemory bool) (*badger.DB, error) {
	if inMemory {
		db, err := badger.Open(inMemoryOptions())
		if err != nil {
			return nil, fmt.Errorf("opening in-memory database: %w", err)
		}
		return db, nil
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	opts := badger.DefaultOptions(path).
		WithNumVersionsToKeep(1).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	return db, nil
}
