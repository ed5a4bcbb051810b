// Package repo ties the object store, staging index and working tree together
// into the repository operations.
package repo

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"gyat/internal/config"
	"gyat/internal/content"
	"gyat/internal/errors"
	"gyat/internal/hash"
	"gyat/internal/storage"
	"gyat/internal/workspace"
)

// Repository is an opened repository. Cwd is where relative paths given to
// Observe and Diff start from.
type Repository struct {
	Root      string
	Cwd       string
	Paths     workspace.Paths
	Config    *config.Config
	Store     *content.Store
	StatCache *storage.FileStateCache
	Logger    *zap.Logger

	db  *badger.DB
	now func() time.Time
}

type openOptions struct {
	config        *config.Config
	now           func() time.Time
	inMemoryCache bool
	cacheOpts     []storage.CacheOption
}

type Option func(*openOptions)

func WithConfig(cfg *config.Config) Option {
	return func(o *openOptions) {
		o.config = cfg
	}
}

// WithClock replaces time.Now for commit dates and stat cache recordings.
func WithClock(now func() time.Time) Option {
	return func(o *openOptions) {
		o.now = now
		o.cacheOpts = append(o.cacheOpts, storage.WithClock(now))
	}
}

// WithInMemoryCache keeps the stat cache out of .gyat/cache.
func WithInMemoryCache() Option {
	return func(o *openOptions) {
		o.inMemoryCache = true
	}
}

// Open finds the repository containing start and opens its stores.
func Open(start string, logger *zap.Logger, opts ...Option) (*Repository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := &openOptions{now: time.Now}
	for _, opt := range opts {
		opt(o)
	}

	root, err := workspace.FindRoot(start)
	if err != nil {
		return nil, err
	}
	cwd, err := workspace.Canonical(start)
	if err != nil {
		return nil, err
	}
	paths := workspace.NewPaths(root)

	cfg := o.config
	if cfg == nil {
		if cfg, err = config.Load(paths.Config); err != nil {
			return nil, err
		}
	}

	store, err := content.NewStore(paths.Gyat, logger, content.Options{
		CompressionLevel: cfg.Core.CompressionLevel,
		TreeCacheSize:    cfg.Core.TreeCacheSize,
	})
	if err != nil {
		return nil, fmt.Errorf("opening object store: %w", err)
	}

	r := &Repository{
		Root:   root,
		Cwd:    cwd,
		Paths:  paths,
		Config: cfg,
		Store:  store,
		Logger: logger,
		now:    o.now,
	}

	if cfg.Core.StatCache {
		db, err := storage.Open(paths.Cache, o.inMemoryCache)
		if err != nil {
			// Another process (observe --watch) may hold the cache.
			logger.Warn("stat cache unavailable, hashing every file", zap.Error(err))
		} else {
			r.db = db
			r.StatCache = storage.NewFileStateCache(db, o.cacheOpts...)
		}
	}

	logger.Debug("opened repository", zap.String("root", root), zap.String("cwd", cwd))
	return r, nil
}

func (r *Repository) Close() error {
	r.Store.Close()
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Head returns the current commit, with ok=false before the first commit.
func (r *Repository) Head() (hash.Hash, bool, error) {
	data, err := os.ReadFile(r.Paths.Head)
	if err != nil {
		if os.IsNotExist(err) {
			return hash.Zero, false, nil
		}
		return hash.Zero, false, errors.IO(r.Paths.Head, err)
	}

	s := strings.TrimSpace(string(data))
	if s == "" {
		return hash.Zero, false, nil
	}
	h, err := hash.FromHex(s)
	if err != nil {
		return hash.Zero, false, fmt.Errorf("reading HEAD: %w", err)
	}
	return h, true, nil
}

func (r *Repository) setHead(h hash.Hash) error {
	if err := os.WriteFile(r.Paths.Head, []byte(h.String()), 0o644); err != nil {
		return errors.IO(r.Paths.Head, err)
	}
	return nil
}

// headBlobs flattens the HEAD commit; nil when there is no commit yet.
func (r *Repository) headBlobs() (map[string]hash.Hash, bool, error) {
	head, ok, err := r.Head()
	if err != nil || !ok {
		return nil, false, err
	}
	commit, err := r.Store.ReadCommit(head)
	if err != nil {
		return nil, false, fmt.Errorf("reading HEAD commit: %w", err)
	}
	blobs, err := r.Store.Flatten(commit.Tree)
	if err != nil {
		return nil, false, fmt.Errorf("flattening HEAD tree: %w", err)
	}
	return blobs, true, nil
}
