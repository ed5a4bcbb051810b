package repo

import (
	"os"
	"sort"

	"gyat/internal/content"
	"gyat/internal/diff"
	"gyat/internal/errors"
	"gyat/internal/workspace"
)

const diffContext = 3

// Diff shows how the working files under paths differ from HEAD without
// touching the staging index. Results are sorted by path.
func (r *Repository) Diff(paths []string) ([]*diff.DiffResult, error) {
	s, err := r.scan(paths)
	if err != nil {
		return nil, err
	}

	engine := diff.NewEngine(diffContext)
	results := make([]*diff.DiffResult, 0, len(s.entries))
	for _, e := range s.entries {
		var oldContent, newContent []byte

		if e.Kind != content.ChangeNew {
			if oldContent, err = r.Store.ReadBlob(s.prev[e.Path]); err != nil {
				return nil, err
			}
		}
		if e.Kind != content.ChangeDeleted {
			abs := workspace.Abs(r.Root, e.Path)
			if newContent, err = os.ReadFile(abs); err != nil {
				return nil, errors.IO(abs, err)
			}
			if newContent == nil {
				newContent = []byte{}
			}
		}

		result, err := engine.Diff(e.Path, oldContent, newContent)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Path < results[j].Path })
	return results, nil
}
