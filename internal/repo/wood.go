package repo

import (
	"gyat/internal/content"
)

// Wood returns up to n commits from HEAD back through their parents, newest
// first. n <= 0 means the whole history.
func (r *Repository) Wood(n int) ([]*content.Commit, error) {
	h, ok, err := r.Head()
	if err != nil || !ok {
		return nil, err
	}

	var commits []*content.Commit
	for n <= 0 || len(commits) < n {
		c, err := r.Store.ReadCommit(h)
		if err != nil {
			return nil, err
		}
		commits = append(commits, c)
		if !c.HasParent() {
			break
		}
		h = c.Parent
	}
	return commits, nil
}
