package repo

import (
	"os"
	"path/filepath"

	"gyat/internal/config"
	"gyat/internal/errors"
	"gyat/internal/index"
	"gyat/internal/workspace"
)

// Create makes a repository in the directory name under cwd, creating the
// directory if needed.
func Create(cwd, name string) (string, error) {
	if name == "" || name == "." || name == ".." {
		return "", errors.InvalidArgument("invalid repository name %q", name)
	}

	dir := name
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(cwd, name)
	}
	if _, err := os.Lstat(dir); os.IsNotExist(err) {
		if err := os.Mkdir(dir, 0o755); err != nil {
			return "", errors.IO(dir, err)
		}
	}
	return Init(dir)
}

// Init writes an empty repository layout into the existing directory dir.
func Init(dir string) (string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return "", errors.IO(dir, err)
	}
	if !info.IsDir() {
		return "", errors.InvalidArgument("%s exists but is not a directory", dir)
	}
	if workspace.IsRepo(dir) {
		return "", errors.InvalidArgument("%s is already inside a gyat repository", dir)
	}

	root, err := workspace.Canonical(dir)
	if err != nil {
		return "", err
	}
	paths := workspace.NewPaths(root)

	for _, d := range []string{paths.Gyat, paths.Commits, paths.Dirs, paths.Files} {
		if err := os.Mkdir(d, 0o755); err != nil {
			return "", errors.IO(d, err)
		}
	}
	if err := index.Clear(paths.Index); err != nil {
		return "", err
	}
	if err := os.WriteFile(paths.Head, nil, 0o644); err != nil {
		return "", errors.IO(paths.Head, err)
	}
	if err := config.Save(paths.Config, config.Default()); err != nil {
		return "", err
	}
	return root, nil
}
