// internal/workspace/local.go
package workspace

import (
	"os"
	"path/filepath"
	"strings"

	"gyat/internal/errors"
)

// DirName is the repository metadata directory.
const DirName = ".gyat"

const (
	IgnoreFile = ".gyatignore"
	HeadFile   = "HEAD"
	IndexFile  = "index"
	ConfigFile = "config"
	CacheDir   = "cache"
)

// Paths lists every location inside a repository.
type Paths struct {
	Root    string
	Gyat    string
	Head    string
	Index   string
	Config  string
	Cache   string
	Commits string
	Dirs    string
	Files   string
}

func NewPaths(root string) Paths {
	gyat := filepath.Join(root, DirName)
	return Paths{
		Root:    root,
		Gyat:    gyat,
		Head:    filepath.Join(gyat, HeadFile),
		Index:   filepath.Join(gyat, IndexFile),
		Config:  filepath.Join(gyat, ConfigFile),
		Cache:   filepath.Join(gyat, CacheDir),
		Commits: filepath.Join(gyat, "commits"),
		Dirs:    filepath.Join(gyat, "dirs"),
		Files:   filepath.Join(gyat, "files"),
	}
}

// Canonical returns the absolute path of p with symlinks resolved. A path that
// does not exist yet has its deepest existing ancestor resolved instead.
func Canonical(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", errors.IO(p, err)
	}

	var missing []string
	dir := abs
	for {
		resolved, err := filepath.EvalSymlinks(dir)
		if err == nil {
			parts := append([]string{resolved}, missing...)
			return filepath.Join(parts...), nil
		}
		if !os.IsNotExist(err) {
			return "", errors.IO(p, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return abs, nil
		}
		missing = append([]string{filepath.Base(dir)}, missing...)
		dir = parent
	}
}

// Resolve makes p absolute and resolves symlinks in its parent directories,
// keeping the final element as named so a symlinked file stays itself.
func Resolve(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", errors.IO(p, err)
	}
	parent := filepath.Dir(abs)
	if parent == abs {
		return abs, nil
	}
	dir, err := Canonical(parent)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, filepath.Base(abs)), nil
}

// FindRoot searches upward from startDir for the directory holding .gyat.
func FindRoot(startDir string) (string, error) {
	if startDir == "" {
		return "", errors.NotARepository(startDir)
	}
	dir, err := Canonical(startDir)
	if err != nil {
		return "", err
	}

	for {
		if info, err := os.Stat(filepath.Join(dir, DirName)); err == nil && info.IsDir() {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", errors.NotARepository(startDir)
}

// HasRepo reports whether dir is itself a repository root.
func HasRepo(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, DirName))
	return err == nil && info.IsDir()
}

func IsRepo(path string) bool {
	_, err := FindRoot(path)
	return err == nil
}

// Rel returns p relative to root as a slash-separated path ("." for root
// itself). Both must already be canonical.
func Rel(root, p string) (string, error) {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return "", errors.InvalidArgument("%s is not inside %s", p, root)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.InvalidArgument("%s is outside the repository at %s", p, root)
	}
	return filepath.ToSlash(rel), nil
}

// Abs joins a slash-separated repository path onto root.
func Abs(root, rel string) string {
	return filepath.Join(root, filepath.FromSlash(rel))
}

// Within reports whether the slash path rel equals scope or lies beneath it.
// The scope "." covers everything.
func Within(rel, scope string) bool {
	if scope == "." || scope == "" {
		return true
	}
	return rel == scope || strings.HasPrefix(rel, scope+"/")
}
