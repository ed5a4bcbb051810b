package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gyat/internal/errors"
)

func setupRepo(t *testing.T) string {
	t.Helper()
	root, err := Canonical(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.Mkdir(filepath.Join(root, DirName), 0o755))
	return root
}

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
}

func TestFindRoot(t *testing.T) {
	root := setupRepo(t)
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	t.Run("from root", func(t *testing.T) {
		got, err := FindRoot(root)
		require.NoError(t, err)
		assert.Equal(t, root, got)
	})

	t.Run("from nested directory", func(t *testing.T) {
		got, err := FindRoot(nested)
		require.NoError(t, err)
		assert.Equal(t, root, got)
		assert.True(t, IsRepo(nested))
	})

	t.Run("from missing path inside repo", func(t *testing.T) {
		got, err := FindRoot(filepath.Join(nested, "not-yet"))
		require.NoError(t, err)
		assert.Equal(t, root, got)
	})

	t.Run("outside", func(t *testing.T) {
		_, err := FindRoot(t.TempDir())
		assert.True(t, errors.Is(err, errors.ErrorTypeNotARepository))

		_, err = FindRoot("")
		assert.True(t, errors.Is(err, errors.ErrorTypeNotARepository))
	})
}

func TestRel(t *testing.T) {
	root := "/repo"

	rel, err := Rel(root, "/repo/a/b.txt")
	require.NoError(t, err)
	assert.Equal(t, "a/b.txt", rel)

	rel, err = Rel(root, "/repo")
	require.NoError(t, err)
	assert.Equal(t, ".", rel)

	_, err = Rel(root, "/other/x")
	assert.True(t, errors.Is(err, errors.ErrorTypeInvalidArgument))

	assert.Equal(t, filepath.Join("/repo", "a", "b.txt"), Abs(root, "a/b.txt"))
}

func TestWithin(t *testing.T) {
	tests := []struct {
		rel, scope string
		want       bool
	}{
		{"a/b.txt", ".", true},
		{"a/b.txt", "a", true},
		{"a/b.txt", "a/b.txt", true},
		{"ab/c.txt", "a", false},
		{"x.txt", "a", false},
	}
	for _, tt := range tests {
		t.Run(tt.rel+" in "+tt.scope, func(t *testing.T) {
			assert.Equal(t, tt.want, Within(tt.rel, tt.scope))
		})
	}
}

func TestFiles(t *testing.T) {
	root := setupRepo(t)
	writeFile(t, filepath.Join(root, "x.txt"), "x")
	writeFile(t, filepath.Join(root, "a", "b", "y.txt"), "y")
	writeFile(t, filepath.Join(root, DirName, "HEAD"), "")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0o755))
	require.NoError(t, os.Symlink(filepath.Join(root, "x.txt"), filepath.Join(root, "link.txt")))
	require.NoError(t, os.Symlink(filepath.Join(root, "a"), filepath.Join(root, "dirlink")))
	writeFile(t, filepath.Join(root, "nested", "n.txt"), "n")
	require.NoError(t, os.Mkdir(filepath.Join(root, "nested", DirName), 0o755))

	files, err := Files(root)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "a", "b", "y.txt"),
		filepath.Join(root, "link.txt"),
		filepath.Join(root, "x.txt"),
	}, files)

	files, err = Files(filepath.Join(root, "x.txt"))
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "x.txt")}, files)

	files, err = Files(filepath.Join(root, "nested"))
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "nested", "n.txt")}, files, "a walk rooted at a repository lists it")

	files, err = Files(filepath.Join(root, "missing"))
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestIgnore(t *testing.T) {
	root := setupRepo(t)

	t.Run("builtin only", func(t *testing.T) {
		m, err := LoadIgnore(root)
		require.NoError(t, err)
		assert.True(t, m.Match(".gyat/HEAD"))
		assert.True(t, m.Match(".gyat"))
		assert.False(t, m.Match(".gyatignore"))
		assert.False(t, m.Match("src/main.go"))
	})

	t.Run("patterns", func(t *testing.T) {
		writeFile(t, filepath.Join(root, IgnoreFile), "# build output\n\n\\.log$\n^build/\n")
		m, err := LoadIgnore(root)
		require.NoError(t, err)
		assert.True(t, m.Match("debug.log"))
		assert.True(t, m.Match("a/trace.log"))
		assert.True(t, m.Match("build/out.bin"))
		assert.False(t, m.Match("src/build/x.go"))
		assert.False(t, m.Match("logs.txt"))
	})

	t.Run("invalid pattern", func(t *testing.T) {
		writeFile(t, filepath.Join(root, IgnoreFile), "([unclosed\n")
		_, err := LoadIgnore(root)
		assert.True(t, errors.Is(err, errors.ErrorTypeFormat))
	})
}
