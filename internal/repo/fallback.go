package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"gyat/internal/content"
	"gyat/internal/errors"
	"gyat/internal/hash"
	"gyat/internal/workspace"
)

// FallbackMessage is the message of the commit that records a fallback.
const FallbackMessage = "Fallback to the commit with commit_id %s"

type PathHash struct {
	Path string
	Hash hash.Hash
}

// Delta is what a fallback changes in the working tree.
type Delta struct {
	Target   hash.Hash
	Added    []PathHash
	Modified []PathHash
	Deleted  []string

	// Commit records the fallback; nil when the working tree already matched.
	Commit *content.Commit
}

func (d *Delta) Empty() bool {
	return len(d.Added) == 0 && len(d.Modified) == 0 && len(d.Deleted) == 0
}

// Compare computes how to turn the head file set into the target one. Every
// list is sorted by path.
func Compare(head, target map[string]hash.Hash) Delta {
	var d Delta
	for p, h := range target {
		old, ok := head[p]
		switch {
		case !ok:
			d.Added = append(d.Added, PathHash{Path: p, Hash: h})
		case old != h:
			d.Modified = append(d.Modified, PathHash{Path: p, Hash: h})
		}
	}
	for p := range head {
		if _, ok := target[p]; !ok {
			d.Deleted = append(d.Deleted, p)
		}
	}

	sort.Slice(d.Added, func(i, j int) bool { return d.Added[i].Path < d.Added[j].Path })
	sort.Slice(d.Modified, func(i, j int) bool { return d.Modified[i].Path < d.Modified[j].Path })
	sort.Strings(d.Deleted)
	return d
}

// Fallback restores the working tree to the files of commit target and
// records that as a new commit on top of HEAD. Without any commit, or when
// target does not name a commit, it does nothing and returns a nil delta.
func (r *Repository) Fallback(target string) (*Delta, error) {
	if target == "" {
		r.Logger.Warn("fallback without a target commit, nothing to do")
		return nil, nil
	}

	head, ok, err := r.Head()
	if err != nil {
		return nil, err
	}
	if !ok {
		r.Logger.Warn("fallback before the first commit, nothing to do")
		return nil, nil
	}

	targetHash, err := hash.FromHex(target)
	if err != nil {
		r.Logger.Warn("fallback target is not a commit hash", zap.String("target", target), zap.Error(err))
		return nil, nil
	}
	targetCommit, err := r.Store.ReadCommit(targetHash)
	if errors.Is(err, errors.ErrorTypeNotFound) {
		r.Logger.Warn("fallback target does not exist", zap.String("target", target))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	headCommit, err := r.Store.ReadCommit(head)
	if err != nil {
		return nil, fmt.Errorf("reading HEAD commit: %w", err)
	}
	headBlobs, err := r.Store.Flatten(headCommit.Tree)
	if err != nil {
		return nil, fmt.Errorf("flattening HEAD tree: %w", err)
	}
	targetBlobs, err := r.Store.Flatten(targetCommit.Tree)
	if err != nil {
		return nil, fmt.Errorf("flattening target tree: %w", err)
	}

	delta := Compare(headBlobs, targetBlobs)
	delta.Target = targetHash
	if err := r.apply(&delta); err != nil {
		return nil, err
	}

	if _, err := r.Observe([]string{r.Root}); err != nil {
		return nil, err
	}
	commit, err := r.Track(fmt.Sprintf(FallbackMessage, targetHash), false)
	if err != nil {
		return nil, err
	}
	delta.Commit = commit

	r.Logger.Info("fell back",
		zap.Stringer("target", targetHash),
		zap.Int("added", len(delta.Added)),
		zap.Int("modified", len(delta.Modified)),
		zap.Int("deleted", len(delta.Deleted)))
	return &delta, nil
}

// apply removes deleted files first, so a file can replace a directory of
// the same name, then writes added and modified ones.
func (r *Repository) apply(d *Delta) error {
	for _, p := range d.Deleted {
		abs := workspace.Abs(r.Root, p)
		if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
			return errors.IO(abs, err)
		}
		r.pruneEmptyDirs(filepath.Dir(abs))
	}

	for _, set := range [][]PathHash{d.Added, d.Modified} {
		for _, ph := range set {
			if err := r.restore(ph); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Repository) restore(ph PathHash) error {
	data, err := r.Store.ReadBlob(ph.Hash)
	if err != nil {
		return fmt.Errorf("restoring %s: %w", ph.Path, err)
	}

	abs := workspace.Abs(r.Root, ph.Path)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return errors.IO(filepath.Dir(abs), err)
	}
	// Replace symlinks instead of writing through them.
	if info, err := os.Lstat(abs); err == nil && info.Mode()&os.ModeSymlink != 0 {
		if err := os.Remove(abs); err != nil {
			return errors.IO(abs, err)
		}
	}
	if err := os.WriteFile(abs, data, 0o644); err != nil {
		return errors.IO(abs, err)
	}

	r.Logger.Debug("restored file", zap.String("path", ph.Path), zap.Stringer("hash", ph.Hash))
	return nil
}

// pruneEmptyDirs removes dir and its parents while they are empty, stopping
// below the repository root.
func (r *Repository) pruneEmptyDirs(dir string) {
	for dir != r.Root && len(dir) > len(r.Root) {
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}
