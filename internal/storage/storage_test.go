package storage

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gyat/internal/hash"
)

func setupTestDB(t *testing.T) (*badger.DB, func()) {
	db, err := Open("", true)
	require.NoError(t, err)

	cleanup := func() {
		db.Close()
	}
	return db, cleanup
}

type record struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestBadgerStore(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewBadgerStore(db, "records")
	other := NewBadgerStore(db, "other")

	t.Run("Put and Get", func(t *testing.T) {
		require.NoError(t, store.Put("a", record{Name: "a", Count: 1}))
		require.NoError(t, store.Put("a", record{Name: "a", Count: 2}))

		var got record
		require.NoError(t, store.Get("a", &got))
		assert.Equal(t, record{Name: "a", Count: 2}, got)

		assert.ErrorIs(t, other.Get("a", &got), ErrNotFound)
		assert.Error(t, store.Put("", record{}))
	})

	t.Run("Keys", func(t *testing.T) {
		require.NoError(t, store.Put("b/c", record{Name: "c"}))
		require.NoError(t, other.Put("z", record{}))

		keys, err := store.Keys()
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"a", "b/c"}, keys)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Delete("a"))
		require.NoError(t, store.Delete("never-stored"))

		var got record
		assert.ErrorIs(t, store.Get("a", &got), ErrNotFound)
	})
}

func TestOpenOnDisk(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	db, err := Open(dir, false)
	require.NoError(t, err)
	require.NoError(t, NewBadgerStore(db, "p").Put("k", 1))
	require.NoError(t, db.Close())

	db, err = Open(dir, false)
	require.NoError(t, err)
	defer db.Close()

	var v int
	require.NoError(t, NewBadgerStore(db, "p").Get("k", &v))
	assert.Equal(t, 1, v)
}

func statFile(t *testing.T, data string, mtime time.Time) fs.FileInfo {
	t.Helper()
	p := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(p, []byte(data), 0o644))
	require.NoError(t, os.Chtimes(p, mtime, mtime))
	info, err := os.Stat(p)
	require.NoError(t, err)
	return info
}

func TestFileStateCache(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	mtime := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	now := mtime.Add(time.Minute)
	cache := NewFileStateCache(db, WithClock(func() time.Time { return now }))
	h := hash.Sum([]byte("data"))

	t.Run("hit when unchanged", func(t *testing.T) {
		info := statFile(t, "data", mtime)
		require.NoError(t, cache.Record("x.txt", h, info))

		got, ok := cache.Lookup("x.txt", info)
		assert.True(t, ok)
		assert.Equal(t, h, got)
	})

	t.Run("miss on size or mtime change", func(t *testing.T) {
		_, ok := cache.Lookup("x.txt", statFile(t, "longer data", mtime))
		assert.False(t, ok)

		_, ok = cache.Lookup("x.txt", statFile(t, "data", mtime.Add(time.Second)))
		assert.False(t, ok)

		_, ok = cache.Lookup("unknown.txt", statFile(t, "data", mtime))
		assert.False(t, ok)
	})

	t.Run("racy recording is not trusted", func(t *testing.T) {
		racy := NewFileStateCache(db, WithClock(func() time.Time { return mtime.Add(time.Second) }))
		info := statFile(t, "data", mtime)
		require.NoError(t, racy.Record("racy.txt", h, info))

		_, ok := racy.Lookup("racy.txt", info)
		assert.False(t, ok)

		relaxed := NewFileStateCache(db, WithRacyWindow(0))
		_, ok = relaxed.Lookup("racy.txt", info)
		assert.True(t, ok)
	})

	t.Run("forget", func(t *testing.T) {
		require.NoError(t, cache.Forget("x.txt"))
		_, ok := cache.Lookup("x.txt", statFile(t, "data", mtime))
		assert.False(t, ok)

		paths, err := cache.Paths()
		require.NoError(t, err)
		assert.NotContains(t, paths, "x.txt")
	})
}
