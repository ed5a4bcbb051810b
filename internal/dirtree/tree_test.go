package dirtree

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gyat/internal/content"
	"gyat/internal/hash"
	"gyat/internal/workspace"
)

func setupRepo(t *testing.T, files map[string]string) string {
	t.Helper()
	root, err := workspace.Canonical(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.Mkdir(filepath.Join(root, workspace.DirName), 0o755))
	for rel, data := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(data), 0o644))
	}
	return root
}

func setupStore(t *testing.T, root string) *content.Store {
	t.Helper()
	s, err := content.NewStore(filepath.Join(root, workspace.DirName), nil, content.DefaultOptions())
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestNew(t *testing.T) {
	root := setupRepo(t, nil)

	tree, err := New(filepath.Join(root))
	require.NoError(t, err)
	assert.Equal(t, root, tree.root)
	assert.Empty(t, tree.Leaves())
	assert.False(t, tree.ContainsPath("anything"))

	_, err = New(t.TempDir())
	assert.Error(t, err)
}

func TestAddPath(t *testing.T) {
	root := setupRepo(t, map[string]string{
		"x.txt":       "x",
		"a/b.txt":     "b",
		"a/c/d.txt":   "d",
		"other/e.txt": "e",
	})

	t.Run("files and conflicts", func(t *testing.T) {
		tree, err := New(root)
		require.NoError(t, err)

		assert.True(t, tree.AddPath("x.txt"))
		assert.False(t, tree.AddPath("x.txt"), "already a leaf")
		assert.True(t, tree.AddPath(filepath.Join(root, "a", "b.txt")))
		assert.False(t, tree.AddPath("missing.txt"))
		assert.False(t, tree.AddPath(filepath.Join(t.TempDir())))
		assert.False(t, tree.AddBlob("x.txt/inner", hash.Sum([]byte("i"))), "runs through a file")

		assert.Equal(t, []string{"a/b.txt", "x.txt"}, tree.Leaves())
	})

	t.Run("directory subsumes children", func(t *testing.T) {
		tree, err := New(root)
		require.NoError(t, err)

		require.True(t, tree.AddPath("a/b.txt"))
		require.True(t, tree.AddPath("a/c/d.txt"))
		require.True(t, tree.AddPath("a"))

		assert.Equal(t, []string{"a"}, tree.Leaves())
		assert.True(t, tree.ContainsPath("a/c/d.txt"))
		assert.True(t, tree.ContainsPath("a"))
		assert.False(t, tree.ContainsPath("x.txt"))
		assert.False(t, tree.AddPath("a/b.txt"), "covered by a")
	})

	t.Run("whole root", func(t *testing.T) {
		tree, err := New(root)
		require.NoError(t, err)

		require.True(t, tree.AddPath("x.txt"))
		assert.True(t, tree.AddPath("."))
		assert.True(t, tree.WholeRoot())
		assert.False(t, tree.AddPath("a"))
		assert.False(t, tree.AddBlob("z.txt", hash.Zero))
		assert.True(t, tree.ContainsPath("other/e.txt"))
		assert.Equal(t, []string{"."}, tree.Leaves())
	})

	t.Run("nested repository", func(t *testing.T) {
		require.NoError(t, os.MkdirAll(filepath.Join(root, "nested", workspace.DirName), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(root, "nested", "f.txt"), []byte("f"), 0o644))

		tree, err := New(root)
		require.NoError(t, err)
		assert.False(t, tree.AddPath("nested/f.txt"))
		assert.False(t, tree.AddPath("nested"))
	})
}

func TestArenaReuse(t *testing.T) {
	root := setupRepo(t, map[string]string{
		"a/b":         "b",
		"c":           "c",
		"p/q/r/s.txt": "s",
		"u":           "u",
		"v":           "v",
	})

	t.Run("freed child slot is reused first", func(t *testing.T) {
		tree, err := New(root)
		require.NoError(t, err)

		require.True(t, tree.AddPath("a/b"))
		bSlot, ok := tree.lookup([]string{"a", "b"})
		require.True(t, ok)

		require.True(t, tree.AddPath("a"))
		assert.Equal(t, "", tree.nodes[bSlot].name)

		require.True(t, tree.AddPath("c"))
		cSlot, ok := tree.lookup([]string{"c"})
		require.True(t, ok)
		assert.Equal(t, bSlot, cSlot)
		assert.Len(t, tree.nodes, 3)
	})

	t.Run("whole subtree is freed lowest first", func(t *testing.T) {
		tree, err := New(root)
		require.NoError(t, err)

		require.True(t, tree.AddPath("p/q/r/s.txt")) // p=1 q=2 r=3 s=4
		require.True(t, tree.AddPath("p"))
		assert.Equal(t, 2, tree.size)

		require.True(t, tree.AddPath("u"))
		require.True(t, tree.AddPath("v"))
		u, _ := tree.lookup([]string{"u"})
		v, _ := tree.lookup([]string{"v"})
		assert.Equal(t, 2, u)
		assert.Equal(t, 3, v)
		assert.Len(t, tree.nodes, 5)
		assert.Equal(t, []string{"p", "u", "v"}, tree.Leaves())
	})
}

func TestSerialize(t *testing.T) {
	files := map[string]string{
		"x.txt":     "hello",
		"a/b.txt":   "b",
		"a/c/d.txt": "d",
		"z/y.txt":   "y",
		"debug.log": "noise",
	}
	root := setupRepo(t, files)
	require.NoError(t, os.WriteFile(filepath.Join(root, workspace.IgnoreFile), []byte(`\.log$`+"\n"), 0o644))
	store := setupStore(t, root)
	ignore, err := workspace.LoadIgnore(root)
	require.NoError(t, err)

	build := func(paths ...string) *Tree {
		tree, err := New(root, WithIgnore(ignore))
		require.NoError(t, err)
		for _, p := range paths {
			require.True(t, tree.AddPath(p), p)
		}
		return tree
	}

	individual, err := build("x.txt", "a/b.txt", "a/c/d.txt", "z/y.txt", ".gyatignore").Serialize(store)
	require.NoError(t, err)

	t.Run("independent construction order", func(t *testing.T) {
		h, err := build("z/y.txt", ".gyatignore", "a/c/d.txt", "x.txt", "a/b.txt").Serialize(store)
		require.NoError(t, err)
		assert.Equal(t, individual, h)
	})

	t.Run("directory leaves expand", func(t *testing.T) {
		h, err := build("x.txt", "a", "z", ".gyatignore").Serialize(store)
		require.NoError(t, err)
		assert.Equal(t, individual, h)
	})

	t.Run("whole root skips ignored files", func(t *testing.T) {
		h, err := build(".").Serialize(store)
		require.NoError(t, err)
		assert.Equal(t, individual, h)
	})

	t.Run("flattens to the added files", func(t *testing.T) {
		blobs, err := store.Flatten(individual)
		require.NoError(t, err)
		assert.Equal(t, map[string]hash.Hash{
			"x.txt":       hash.Sum([]byte("hello")),
			"a/b.txt":     hash.Sum([]byte("b")),
			"a/c/d.txt":   hash.Sum([]byte("d")),
			"z/y.txt":     hash.Sum([]byte("y")),
			".gyatignore": hash.Sum([]byte(`\.log$` + "\n")),
		}, blobs)
	})

	t.Run("pinned blobs need no file", func(t *testing.T) {
		gone := hash.Sum([]byte("gone"))
		tree := build("x.txt")
		require.True(t, tree.AddBlob("old/gone.txt", gone))
		assert.False(t, tree.AddBlob("old/gone.txt", gone))

		h, err := tree.Serialize(store)
		require.NoError(t, err)
		blobs, err := store.Flatten(h)
		require.NoError(t, err)
		assert.Equal(t, map[string]hash.Hash{
			"x.txt":        hash.Sum([]byte("hello")),
			"old/gone.txt": gone,
		}, blobs)
	})

	t.Run("empty tree", func(t *testing.T) {
		h, err := build().Serialize(store)
		require.NoError(t, err)
		blobs, err := store.Flatten(h)
		require.NoError(t, err)
		assert.Empty(t, blobs)
	})

	t.Run("file removed after adding", func(t *testing.T) {
		p := filepath.Join(root, "tmp.txt")
		require.NoError(t, os.WriteFile(p, []byte("t"), 0o644))
		tree := build("tmp.txt")
		require.NoError(t, os.Remove(p))

		_, err := tree.Serialize(store)
		assert.Error(t, err)
	})
}
