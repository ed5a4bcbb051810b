// internal/content/store.go
package content

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"gyat/internal/errors"
	"gyat/internal/hash"
)

const (
	FilesDir   = "files"
	DirsDir    = "dirs"
	CommitsDir = "commits"
)

type Options struct {
	CompressionLevel int
	TreeCacheSize    int
}

func DefaultOptions() Options {
	return Options{
		CompressionLevel: 3,
		TreeCacheSize:    256,
	}
}

// Store is the content-addressed object store under a .gyat directory:
// compressed blobs in files/, tree records in dirs/, commit records in commits/.
type Store struct {
	files   string
	dirs    string
	commits string

	cm     *compressionManager
	trees  *lru.Cache[hash.Hash, []Entry]
	logger *zap.Logger
}

func NewStore(gyatDir string, logger *zap.Logger, opts Options) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.CompressionLevel == 0 {
		opts.CompressionLevel = DefaultOptions().CompressionLevel
	}
	if opts.TreeCacheSize <= 0 {
		opts.TreeCacheSize = DefaultOptions().TreeCacheSize
	}

	s := &Store{
		files:   filepath.Join(gyatDir, FilesDir),
		dirs:    filepath.Join(gyatDir, DirsDir),
		commits: filepath.Join(gyatDir, CommitsDir),
		logger:  logger,
	}
	for _, dir := range []string{s.files, s.dirs, s.commits} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.IO(dir, err)
		}
	}

	cm, err := newCompressionManager(opts.CompressionLevel)
	if err != nil {
		return nil, fmt.Errorf("initializing compression: %w", err)
	}
	s.cm = cm

	trees, err := lru.New[hash.Hash, []Entry](opts.TreeCacheSize)
	if err != nil {
		cm.close()
		return nil, fmt.Errorf("creating tree cache: %w", err)
	}
	s.trees = trees

	return s, nil
}

func (s *Store) Close() {
	s.cm.close()
}

// WriteBlob stores the content of the file at p and returns its hash.
func (s *Store) WriteBlob(p string) (hash.Hash, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return hash.Zero, errors.IO(p, err)
	}
	return s.WriteBlobBytes(data)
}

// WriteBlobBytes stores data unless a blob with the same hash already exists.
func (s *Store) WriteBlobBytes(data []byte) (hash.Hash, error) {
	h := hash.Sum(data)
	p := filepath.Join(s.files, h.String())

	if exists(p) {
		return h, nil
	}
	if err := writeObject(p, s.cm.compress(data)); err != nil {
		return hash.Zero, err
	}
	s.logger.Debug("wrote blob", zap.Stringer("hash", h), zap.Int("size", len(data)))
	return h, nil
}

func (s *Store) HasBlob(h hash.Hash) bool {
	return exists(filepath.Join(s.files, h.String()))
}

func (s *Store) ReadBlob(h hash.Hash) ([]byte, error) {
	p := filepath.Join(s.files, h.String())
	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFound("blob %s does not exist", h)
		}
		return nil, errors.IO(p, err)
	}
	return s.cm.decompress(p, data)
}

// HashTree computes the hash a tree with these children would be stored under.
func (s *Store) HashTree(entries []Entry) hash.Hash {
	return hash.Sum(EncodeTree(entries))
}

func (s *Store) WriteTree(entries []Entry) (hash.Hash, error) {
	data := EncodeTree(entries)
	h := hash.Sum(data)
	p := filepath.Join(s.dirs, h.String())

	if exists(p) {
		return h, nil
	}
	if err := writeObject(p, data); err != nil {
		return hash.Zero, err
	}
	s.logger.Debug("wrote tree", zap.Stringer("hash", h), zap.Int("children", len(entries)))
	return h, nil
}

// ReadTree returns the children of tree h in canonical order. The returned
// slice is owned by the caller.
func (s *Store) ReadTree(h hash.Hash) ([]Entry, error) {
	if entries, ok := s.trees.Get(h); ok {
		return slices.Clone(entries), nil
	}

	p := filepath.Join(s.dirs, h.String())
	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFound("tree %s does not exist", h)
		}
		return nil, errors.IO(p, err)
	}

	entries, err := ParseTree(p, data)
	if err != nil {
		return nil, err
	}
	s.trees.Add(h, entries)
	return slices.Clone(entries), nil
}

// Flatten expands the tree rooted at root into slash-separated relative paths
// mapped to their blob hashes.
func (s *Store) Flatten(root hash.Hash) (map[string]hash.Hash, error) {
	type frame struct {
		prefix string
		tree   hash.Hash
	}

	blobs := make(map[string]hash.Hash)
	stack := []frame{{tree: root}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := s.ReadTree(top.tree)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			p := path.Join(top.prefix, e.Name)
			switch e.Kind {
			case KindBlob:
				blobs[p] = e.Hash
			case KindTree:
				stack = append(stack, frame{prefix: p, tree: e.Hash})
			}
		}
	}
	return blobs, nil
}

// WriteCommit always writes the record; its hash is returned and stored in c.Hash.
func (s *Store) WriteCommit(c *Commit) (hash.Hash, error) {
	data := EncodeCommit(c)
	h := hash.Sum(data)
	p := filepath.Join(s.commits, h.String())

	if err := writeObject(p, data); err != nil {
		return hash.Zero, err
	}
	c.Hash = h
	s.logger.Debug("wrote commit", zap.Stringer("hash", h), zap.Stringer("tree", c.Tree))
	return h, nil
}

func (s *Store) ReadCommit(h hash.Hash) (*Commit, error) {
	p := filepath.Join(s.commits, h.String())
	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFound("commit %s does not exist", h)
		}
		return nil, errors.IO(p, err)
	}
	if len(data) == 0 {
		return nil, errors.FormatError(p, "commit file is empty")
	}

	c, err := ParseCommit(p, data)
	if err != nil {
		return nil, err
	}
	c.Hash = h
	return c, nil
}

func exists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

// writeObject writes through a temporary file so a crash never leaves a
// truncated object under its final name.
func writeObject(p string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(p), ".tmp-*")
	if err != nil {
		return errors.IO(p, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.IO(p, err)
	}
	if err := tmp.Close(); err != nil {
		return errors.IO(p, err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return errors.IO(p, err)
	}
	return nil
}
