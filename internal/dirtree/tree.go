// Package dirtree collects the paths going into a commit as an index-linked
// tree and serializes it into tree and blob objects.
package dirtree

import (
	"container/heap"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"gyat/internal/content"
	"gyat/internal/errors"
	"gyat/internal/hash"
	"gyat/internal/workspace"
)

const rootIndex = 0

// ObjectWriter persists serialized nodes. *content.Store implements it.
type ObjectWriter interface {
	WriteBlob(path string) (hash.Hash, error)
	WriteTree(entries []content.Entry) (hash.Hash, error)
}

// TreeNode is one path component. An empty name marks a recycled slot.
type TreeNode struct {
	children map[string]int
	name     string
	parent   int // -1 for the root
	blob     *hash.Hash
}

func (n *TreeNode) isLeaf() bool  { return len(n.children) == 0 }
func (n *TreeNode) isValid() bool { return n.name != "" }

// Tree owns every node in a single slice. Links are indices into it.
type Tree struct {
	root   string
	nodes  []TreeNode
	size   int // live nodes; 0 means the whole repository root was added
	free   freeSlots
	ignore *workspace.Matcher
}

type Option func(*Tree)

// WithIgnore excludes matching files when a directory is expanded during
// serialization.
func WithIgnore(m *workspace.Matcher) Option {
	return func(t *Tree) {
		t.ignore = m
	}
}

// New creates a tree holding only the root node of the repository that
// contains start.
func New(start string, opts ...Option) (*Tree, error) {
	root, err := workspace.FindRoot(start)
	if err != nil {
		return nil, err
	}

	t := &Tree{
		root:  root,
		nodes: []TreeNode{{children: map[string]int{}, name: ".", parent: -1}},
		size:  1,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// WholeRoot reports whether the repository root itself was added.
func (t *Tree) WholeRoot() bool {
	return t.size == 0
}

// AddPath adds a file or directory that exists on disk. Relative paths are
// taken from the repository root. It returns false without changing the tree
// when the path is missing, lives in another repository, runs through an
// already added file, or the whole root was added before. Adding a directory
// drops anything previously added beneath it.
func (t *Tree) AddPath(p string) bool {
	if t.WholeRoot() {
		return false
	}

	abs, rel, ok := t.locate(p)
	if !ok {
		return false
	}
	info, err := os.Lstat(abs)
	if err != nil {
		return false
	}
	dir := abs
	if !info.IsDir() {
		dir = filepath.Dir(abs)
	}
	// A nested repository has its own root.
	if r, err := workspace.FindRoot(dir); err != nil || r != t.root {
		return false
	}

	if rel == "." {
		t.size = 0
		return true
	}

	idx, ok := t.insert(strings.Split(rel, "/"))
	if !ok {
		return false
	}
	t.evictChildren(idx)
	return true
}

// AddBlob adds a file already stored under h without touching the disk. It
// returns false when rel is already present or cannot be added.
func (t *Tree) AddBlob(rel string, h hash.Hash) bool {
	if t.WholeRoot() {
		return false
	}
	rel = path.Clean(rel)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") || path.IsAbs(rel) {
		return false
	}

	comps := strings.Split(rel, "/")
	if _, exists := t.lookup(comps); exists {
		return false
	}
	idx, ok := t.insert(comps)
	if !ok {
		return false
	}
	pinned := h
	t.nodes[idx].blob = &pinned
	return true
}

// ContainsPath reports whether p is covered by the tree: the walk ends on a
// node or passes through a leaf.
func (t *Tree) ContainsPath(p string) bool {
	if t.WholeRoot() {
		return true
	}
	_, rel, ok := t.locate(p)
	if !ok {
		return false
	}
	if rel == "." {
		return true
	}

	idx := rootIndex
	for _, comp := range strings.Split(rel, "/") {
		if idx != rootIndex && t.nodes[idx].isLeaf() {
			return true
		}
		child, ok := t.nodes[idx].children[comp]
		if !ok {
			return false
		}
		idx = child
	}
	return true
}

// Leaves returns the slash-separated relative path of every leaf, sorted.
// In whole-root mode the only leaf is ".".
func (t *Tree) Leaves() []string {
	if t.WholeRoot() {
		return []string{"."}
	}

	var leaves []string
	for i := range t.nodes {
		n := &t.nodes[i]
		if i == rootIndex || !n.isValid() || !n.isLeaf() {
			continue
		}
		leaves = append(leaves, t.relativePath(i))
	}
	sort.Strings(leaves)
	return leaves
}

// Serialize writes blobs and trees bottom-up and returns the root tree hash.
// Leaves are read from disk unless they were added with AddBlob; a leaf that
// is a directory is expanded to the files beneath it.
func (t *Tree) Serialize(w ObjectWriter) (hash.Hash, error) {
	if t.WholeRoot() {
		sub, err := t.expand(".")
		if err != nil {
			return hash.Zero, err
		}
		return sub.writeTree(w, rootIndex)
	}
	return t.writeTree(w, rootIndex)
}

func (t *Tree) writeTree(w ObjectWriter, idx int) (hash.Hash, error) {
	entries := make([]content.Entry, 0, len(t.nodes[idx].children))
	for name, child := range t.nodes[idx].children {
		entry, ok, err := t.serializeNode(w, child)
		if err != nil {
			return hash.Zero, err
		}
		if !ok {
			continue
		}
		entry.Name = name
		entries = append(entries, entry)
	}
	return w.WriteTree(entries)
}

// serializeNode returns ok=false for a directory leaf with nothing to track.
func (t *Tree) serializeNode(w ObjectWriter, idx int) (content.Entry, bool, error) {
	n := &t.nodes[idx]
	if n.blob != nil {
		return content.Entry{Kind: content.KindBlob, Hash: *n.blob}, true, nil
	}
	if !n.isLeaf() {
		h, err := t.writeTree(w, idx)
		if err != nil {
			return content.Entry{}, false, err
		}
		return content.Entry{Kind: content.KindTree, Hash: h}, true, nil
	}

	rel := t.relativePath(idx)
	abs := workspace.Abs(t.root, rel)
	info, err := os.Stat(abs)
	if err != nil {
		return content.Entry{}, false, errors.IO(abs, err)
	}
	if !info.IsDir() {
		h, err := w.WriteBlob(abs)
		if err != nil {
			return content.Entry{}, false, err
		}
		return content.Entry{Kind: content.KindBlob, Hash: h}, true, nil
	}

	sub, err := t.expand(rel)
	if err != nil {
		return content.Entry{}, false, err
	}
	subIdx, ok := sub.lookup(strings.Split(rel, "/"))
	if !ok {
		return content.Entry{}, false, nil
	}
	h, err := sub.writeTree(w, subIdx)
	if err != nil {
		return content.Entry{}, false, err
	}
	return content.Entry{Kind: content.KindTree, Hash: h}, true, nil
}

// expand builds a scratch tree of the non-ignored files under rel.
func (t *Tree) expand(rel string) (*Tree, error) {
	files, err := workspace.Files(workspace.Abs(t.root, rel))
	if err != nil {
		return nil, err
	}

	sub := &Tree{
		root:   t.root,
		nodes:  []TreeNode{{children: map[string]int{}, name: ".", parent: -1}},
		size:   1,
		ignore: t.ignore,
	}
	for _, f := range files {
		fileRel, err := workspace.Rel(t.root, f)
		if err != nil {
			return nil, err
		}
		if t.ignore.Match(fileRel) {
			continue
		}
		sub.insert(strings.Split(fileRel, "/"))
	}
	return sub, nil
}

// locate turns p into an absolute path and its repository-relative form.
func (t *Tree) locate(p string) (string, string, bool) {
	if !filepath.IsAbs(p) {
		p = filepath.Join(t.root, p)
	}
	abs, err := workspace.Resolve(p)
	if err != nil {
		return "", "", false
	}
	rel, err := workspace.Rel(t.root, abs)
	if err != nil {
		return "", "", false
	}
	return abs, rel, true
}

func (t *Tree) lookup(comps []string) (int, bool) {
	idx := rootIndex
	for _, comp := range comps {
		child, ok := t.nodes[idx].children[comp]
		if !ok {
			return 0, false
		}
		idx = child
	}
	return idx, true
}

// insert links comps below the root, allocating missing nodes. It fails
// without mutating when an existing component below the root is a leaf.
func (t *Tree) insert(comps []string) (int, bool) {
	idx := rootIndex
	depth := 0
	for ; depth < len(comps); depth++ {
		child, ok := t.nodes[idx].children[comps[depth]]
		if !ok {
			break
		}
		if t.nodes[child].isLeaf() {
			return 0, false
		}
		idx = child
	}

	for ; depth < len(comps); depth++ {
		child := t.alloc(comps[depth], idx)
		t.nodes[idx].children[comps[depth]] = child
		idx = child
	}
	return idx, true
}

func (t *Tree) alloc(name string, parent int) int {
	node := TreeNode{children: map[string]int{}, name: name, parent: parent}
	t.size++
	if t.free.Len() > 0 {
		slot := heap.Pop(&t.free).(int)
		t.nodes[slot] = node
		return slot
	}
	t.nodes = append(t.nodes, node)
	return len(t.nodes) - 1
}

// evictChildren frees every descendant of idx and leaves idx a leaf.
func (t *Tree) evictChildren(idx int) {
	stack := make([]int, 0, len(t.nodes[idx].children))
	for _, child := range t.nodes[idx].children {
		stack = append(stack, child)
	}
	t.nodes[idx].children = map[string]int{}
	t.nodes[idx].blob = nil

	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, child := range t.nodes[n].children {
			stack = append(stack, child)
		}
		t.nodes[n] = TreeNode{}
		heap.Push(&t.free, n)
		t.size--
	}
}

func (t *Tree) relativePath(idx int) string {
	var parts []string
	for i := idx; i != rootIndex && i >= 0; i = t.nodes[i].parent {
		parts = append(parts, t.nodes[i].name)
	}
	for l, r := 0, len(parts)-1; l < r; l, r = l+1, r-1 {
		parts[l], parts[r] = parts[r], parts[l]
	}
	return strings.Join(parts, "/")
}
