// Package watch reports working-tree changes as batches of repository paths.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"gyat/internal/workspace"
)

const DefaultDebounce = 300 * time.Millisecond

// Watcher follows every non-ignored directory under a repository root.
type Watcher struct {
	root     string
	ignore   *workspace.Matcher
	watcher  *fsnotify.Watcher
	logger   *zap.Logger
	debounce time.Duration
}

func New(root string, ignore *workspace.Matcher, logger *zap.Logger, debounce time.Duration) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}

	w := &Watcher{
		root:     root,
		ignore:   ignore,
		watcher:  fw,
		logger:   logger,
		debounce: debounce,
	}
	if err := w.addTree(root); err != nil {
		fw.Close()
		return nil, err
	}
	return w, nil
}

// addTree watches dir and every directory beneath it that is not ignored.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != w.root {
			rel, err := workspace.Rel(w.root, p)
			if err != nil || d.Name() == workspace.DirName || workspace.HasRepo(p) || w.ignore.Match(rel) {
				return filepath.SkipDir
			}
		}
		if err := w.watcher.Add(p); err != nil {
			return fmt.Errorf("adding directory to watcher: %w", err)
		}
		return nil
	})
}

// Run delivers changed paths to onChange once events have been quiet for the
// debounce interval. It returns when ctx is done or onChange fails.
func (w *Watcher) Run(ctx context.Context, onChange func(paths []string) error) error {
	pending := make(map[string]struct{})
	timer := time.NewTimer(w.debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			rel, ok := w.relevant(event)
			if !ok {
				continue
			}
			pending[rel] = struct{}{}
			timer.Reset(w.debounce)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", zap.Error(err))

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			clear(pending)

			w.logger.Debug("working tree changed", zap.Strings("paths", paths))
			if err := onChange(paths); err != nil {
				return err
			}
		}
	}
}

// relevant maps an event to its repository path, dropping ignored paths and
// pure permission changes. New directories are watched as they appear.
func (w *Watcher) relevant(event fsnotify.Event) (string, bool) {
	rel, err := workspace.Rel(w.root, event.Name)
	if err != nil || rel == "." || w.ignore.Match(rel) {
		return "", false
	}
	if event.Op == fsnotify.Chmod {
		return "", false
	}

	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				w.logger.Error("adding new directory to watcher", zap.Error(err))
			}
		}
	}
	return rel, true
}

// Close cleans up resources
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
