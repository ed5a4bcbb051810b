package storage

import (
	"errors"
	"io/fs"
	"time"

	"github.com/dgraph-io/badger/v4"

	"gyat/internal/hash"
)

const fileStatePrefix = "file_state"

// DefaultRacyWindow is how much older than its recording a file's mtime must
// be before its cached hash is trusted. Writes within the window can keep
// the same size and mtime.
const DefaultRacyWindow = 2 * time.Second

// FileState is what was known about a working file when it was last hashed.
type FileState struct {
	Hash      hash.Hash `json:"hash"`
	Size      int64     `json:"size"`
	ModTime   time.Time `json:"mod_time"`
	CheckedAt time.Time `json:"checked_at"`
}

// FileStateCache remembers file hashes by repository-relative path so
// unchanged files are not rehashed.
type FileStateCache struct {
	store  *BadgerStore
	window time.Duration
	now    func() time.Time
}

type CacheOption func(*FileStateCache)

func WithRacyWindow(d time.Duration) CacheOption {
	return func(c *FileStateCache) {
		c.window = d
	}
}

func WithClock(now func() time.Time) CacheOption {
	return func(c *FileStateCache) {
		c.now = now
	}
}

func NewFileStateCache(db *badger.DB, opts ...CacheOption) *FileStateCache {
	c := &FileStateCache{
		store:  NewBadgerStore(db, fileStatePrefix),
		window: DefaultRacyWindow,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup returns the cached hash for rel if info still matches what was
// recorded and the recording was not racy.
func (c *FileStateCache) Lookup(rel string, info fs.FileInfo) (hash.Hash, bool) {
	var state FileState
	if err := c.store.Get(rel, &state); err != nil {
		return hash.Zero, false
	}
	if state.Size != info.Size() || !state.ModTime.Equal(info.ModTime()) {
		return hash.Zero, false
	}
	if !state.ModTime.Before(state.CheckedAt.Add(-c.window)) {
		return hash.Zero, false
	}
	return state.Hash, true
}

func (c *FileStateCache) Record(rel string, h hash.Hash, info fs.FileInfo) error {
	return c.store.Put(rel, FileState{
		Hash:      h,
		Size:      info.Size(),
		ModTime:   info.ModTime(),
		CheckedAt: c.now(),
	})
}

func (c *FileStateCache) Forget(rel string) error {
	err := c.store.Delete(rel)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

// Paths lists every recorded path.
func (c *FileStateCache) Paths() ([]string, error) {
	return c.store.Keys()
}
