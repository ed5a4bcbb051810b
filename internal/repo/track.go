package repo

import (
	"fmt"

	"go.uber.org/zap"

	"gyat/internal/content"
	"gyat/internal/dirtree"
	"gyat/internal/index"
	"gyat/internal/workspace"
)

// Track commits the staged changes with message. With all set the whole
// repository is observed first. It returns nil when nothing is staged.
func (r *Repository) Track(message string, all bool) (*content.Commit, error) {
	if all {
		if _, err := r.Observe([]string{r.Root}); err != nil {
			return nil, err
		}
	}

	entries, err := index.Read(r.Paths.Index)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		r.Logger.Info("no changes to track")
		return nil, nil
	}

	ignore, err := workspace.LoadIgnore(r.Root)
	if err != nil {
		return nil, err
	}
	tree, err := dirtree.New(r.Root, dirtree.WithIgnore(ignore))
	if err != nil {
		return nil, err
	}

	staged := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		staged[e.Path] = struct{}{}
		if e.Kind == content.ChangeDeleted {
			continue
		}
		if !tree.AddPath(e.Path) {
			r.Logger.Warn("staged file could not be added, it will be left out",
				zap.String("path", e.Path), zap.String("change", string(e.Kind)))
		}
	}

	head, hasHead, err := r.Head()
	if err != nil {
		return nil, err
	}

	// Files from the last commit that were not staged carry over unchanged.
	if hasHead {
		prev, _, err := r.headBlobs()
		if err != nil {
			return nil, err
		}
		for p, h := range prev {
			if _, ok := staged[p]; ok {
				continue
			}
			tree.AddBlob(p, h)
		}
	}

	root, err := tree.Serialize(r.Store)
	if err != nil {
		return nil, fmt.Errorf("writing tree: %w", err)
	}

	commit := &content.Commit{
		Tree:    root,
		Message: message,
		Date:    r.now(),
		Changes: index.Changes(entries),
	}
	if hasHead {
		commit.Parent = head
	}

	h, err := r.Store.WriteCommit(commit)
	if err != nil {
		return nil, fmt.Errorf("writing commit: %w", err)
	}
	if err := r.setHead(h); err != nil {
		return nil, err
	}
	if err := index.Clear(r.Paths.Index); err != nil {
		return nil, err
	}

	r.Logger.Info("created commit",
		zap.Stringer("commit", h),
		zap.Stringer("tree", root),
		zap.Int("changes", len(entries)))
	return commit, nil
}
