package repo

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"gyat/internal/content"
	"gyat/internal/errors"
	"gyat/internal/hash"
	"gyat/internal/index"
	"gyat/internal/workspace"
)

type observed struct {
	rel      string
	hash     hash.Hash
	writable bool
}

// scan is the result of comparing the working tree under some paths with
// HEAD. prev holds HEAD's blobs restricted to the scanned paths.
type scan struct {
	entries []index.Entry
	prev    map[string]hash.Hash
}

// Observe classifies the files under paths against HEAD and replaces the
// staging index with the result. Paths are relative to the working
// directory; none means the working directory itself.
func (r *Repository) Observe(paths []string) ([]index.Entry, error) {
	s, err := r.scan(paths)
	if err != nil {
		return nil, err
	}
	if err := index.Write(r.Paths.Index, s.entries); err != nil {
		return nil, err
	}

	r.Logger.Info("observed changes", zap.Int("changes", len(s.entries)))
	return s.entries, nil
}

func (r *Repository) scan(paths []string) (*scan, error) {
	if len(paths) == 0 {
		paths = []string{"."}
	}

	ignore, err := workspace.LoadIgnore(r.Root)
	if err != nil {
		return nil, err
	}

	scopes, err := r.scopes(paths)
	if err != nil {
		return nil, err
	}

	files, err := r.observeFiles(scopes, ignore)
	if err != nil {
		return nil, err
	}

	prev, hasHead, err := r.headBlobs()
	if err != nil {
		return nil, err
	}

	s := &scan{prev: make(map[string]hash.Hash)}
	if !hasHead {
		for _, f := range files {
			s.entries = append(s.entries, index.Entry{Writable: f.writable, Hash: f.hash, Path: f.rel, Kind: content.ChangeNew})
		}
		r.logEntries(s.entries)
		return s, nil
	}

	remaining := make(map[string]hash.Hash)
	for p, h := range prev {
		for _, scope := range scopes {
			if workspace.Within(p, scope) {
				remaining[p] = h
				s.prev[p] = h
				break
			}
		}
	}

	for _, f := range files {
		old, tracked := remaining[f.rel]
		switch {
		case !tracked:
			s.entries = append(s.entries, index.Entry{Writable: f.writable, Hash: f.hash, Path: f.rel, Kind: content.ChangeNew})
		case old != f.hash:
			s.entries = append(s.entries, index.Entry{Writable: f.writable, Hash: f.hash, Path: f.rel, Kind: content.ChangeModified})
		}
		delete(remaining, f.rel)
	}

	deleted := make([]string, 0, len(remaining))
	for p := range remaining {
		deleted = append(deleted, p)
	}
	sort.Strings(deleted)
	for _, p := range deleted {
		s.entries = append(s.entries, index.Entry{Writable: true, Hash: remaining[p], Path: p, Kind: content.ChangeDeleted})
		if r.StatCache != nil {
			if err := r.StatCache.Forget(p); err != nil {
				r.Logger.Warn("forgetting file state", zap.String("path", p), zap.Error(err))
			}
		}
	}

	r.logEntries(s.entries)
	return s, nil
}

// scopes turns the given paths into repository-relative paths, dropping
// any that are covered by another.
func (r *Repository) scopes(paths []string) ([]string, error) {
	var scopes []string
	for _, p := range paths {
		if !filepath.IsAbs(p) {
			p = filepath.Join(r.Cwd, p)
		}
		abs, err := workspace.Resolve(p)
		if err != nil {
			return nil, err
		}
		rel, err := workspace.Rel(r.Root, abs)
		if err != nil {
			return nil, err
		}
		scopes = append(scopes, rel)
	}

	sort.Strings(scopes)
	var out []string
	for _, s := range scopes {
		covered := false
		for _, kept := range out {
			if workspace.Within(s, kept) {
				covered = true
				break
			}
		}
		if !covered {
			out = append(out, s)
		}
	}
	return out, nil
}

// observeFiles hashes every non-ignored file under scopes, sorted by path.
func (r *Repository) observeFiles(scopes []string, ignore *workspace.Matcher) ([]observed, error) {
	var files []observed
	for _, scope := range scopes {
		if r.inNestedRepo(scope) {
			r.Logger.Debug("skipping nested repository", zap.String("path", scope))
			continue
		}
		found, err := workspace.Files(workspace.Abs(r.Root, scope))
		if err != nil {
			return nil, err
		}
		for _, abs := range found {
			rel, err := workspace.Rel(r.Root, abs)
			if err != nil {
				return nil, err
			}
			if ignore.Match(rel) {
				continue
			}
			f, err := r.observeFile(abs, rel)
			if err != nil {
				return nil, err
			}
			files = append(files, f)
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].rel < files[j].rel })
	return files, nil
}

// inNestedRepo reports whether rel lies inside another repository below the
// root.
func (r *Repository) inNestedRepo(rel string) bool {
	for dir := rel; dir != "." && dir != "/"; dir = path.Dir(dir) {
		if workspace.HasRepo(workspace.Abs(r.Root, dir)) {
			return true
		}
	}
	return false
}

func (r *Repository) observeFile(abs, rel string) (observed, error) {
	info, err := os.Stat(abs)
	if err != nil {
		return observed{}, errors.IO(abs, err)
	}
	f := observed{rel: rel, writable: info.Mode().Perm()&0o200 != 0}

	if r.StatCache != nil {
		if h, ok := r.StatCache.Lookup(rel, info); ok {
			f.hash = h
			return f, nil
		}
	}

	h, err := hash.SumFile(abs)
	if err != nil {
		return observed{}, fmt.Errorf("hashing %s: %w", rel, err)
	}
	f.hash = h

	if r.StatCache != nil {
		if err := r.StatCache.Record(rel, h, info); err != nil {
			r.Logger.Warn("recording file state", zap.String("path", rel), zap.Error(err))
		}
	}
	return f, nil
}

func (r *Repository) logEntries(entries []index.Entry) {
	for _, e := range entries {
		r.Logger.Debug("classified",
			zap.String("path", e.Path),
			zap.String("change", string(e.Kind)),
			zap.Stringer("hash", e.Hash))
	}
}
