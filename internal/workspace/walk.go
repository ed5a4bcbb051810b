package workspace

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"gyat/internal/errors"
)

// Files lists the regular files and file symlinks under path, or path itself when
// it is not a directory. .gyat directories and nested repositories below path
// are skipped. A missing path yields nothing.
func Files(path string) ([]string, error) {
	info, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.IO(path, err)
	}
	if !info.IsDir() {
		if isTrackable(path, info.Mode()) {
			return []string{path}, nil
		}
		return nil, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable directories are skipped, not fatal.
			if d != nil && d.IsDir() && p != path {
				return fs.SkipDir
			}
			return err
		}
		if d.IsDir() {
			if d.Name() == DirName || (p != path && HasRepo(p)) {
				return fs.SkipDir
			}
			return nil
		}
		if isTrackable(p, d.Type()) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, errors.IO(path, err)
	}

	sort.Strings(files)
	return files, nil
}

// isTrackable accepts regular files and symlinks that resolve to one. Links
// are stored by the content they point at.
func isTrackable(path string, mode fs.FileMode) bool {
	if mode.IsRegular() {
		return true
	}
	if mode&fs.ModeSymlink == 0 {
		return false
	}
	target, err := os.Stat(path)
	return err == nil && target.Mode().IsRegular()
}
