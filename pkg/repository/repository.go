// Package repository is the top-level handle on a syncust working tree: it
// owns the data directory and orchestrates the object store, the index,
// ingestion and status.
//
// Data Directory Layout
// =====================
//
//	<root>/.syncust/
//	  settings.json      sublayers, version, algorithm
//	  index.badger/      path -> FileRecord
//	  objects/aa/bb/..   content addressed objects, Sublayers levels deep
//
// The existence of the data directory is the only "is initialized" test.
package repository

import (
	"context"
	"os"
	"path/filepath"

	"github.com/marmos91/syncust/internal/logger"
	"github.com/marmos91/syncust/pkg/ingest"
	"github.com/marmos91/syncust/pkg/metadata"
	"github.com/marmos91/syncust/pkg/status"
	"github.com/marmos91/syncust/pkg/store/index"
	"github.com/marmos91/syncust/pkg/store/object"
	"github.com/pkg/errors"
)

const (
	// DataDirName is the private directory at the repository root.
	DataDirName = ".syncust"

	settingsFile = "settings.json"
	indexDir     = "index.badger"
	objectsDir   = "objects"
)

// Options carries process-level tuning. None of it is persisted except
// Sublayers and Algorithm, which seed the settings of new repositories.
type Options struct {
	// Sublayers is the shard depth written by Init (default: 4)
	Sublayers uint

	// Algorithm is the digest written by Init (default: sha256)
	Algorithm metadata.Algorithm

	// Index tunes the index engine
	Index index.Options

	// Workers is the ingestion worker count (0: one less than the CPU count)
	Workers int

	// QueueSize bounds the ingestion path queue
	QueueSize int
}

// Repository is an open repository. It is not safe for concurrent use by
// multiple goroutines except through the pipelines it starts itself.
type Repository struct {
	root     string
	dataDir  string
	settings *Settings
	idx      *index.Index
	objects  *object.Store
	opts     Options
}

// Init creates the data directory under root, writes default settings and
// an empty index. root is created if missing. Nothing is ingested.
func Init(ctx context.Context, root string, opts Options) (*Repository, error) {
	root, err := absRoot(root)
	if err != nil {
		return nil, err
	}
	dataDir := filepath.Join(root, DataDirName)

	if _, err := os.Lstat(dataDir); err == nil {
		return nil, errors.Wrap(ErrAlreadyInitialized, root)
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "can not stat %s", dataDir)
	}

	settings := DefaultSettings()
	if opts.Sublayers != 0 {
		settings.Sublayers = opts.Sublayers
	}
	if opts.Algorithm != "" {
		settings.Algorithm = opts.Algorithm
	}
	if err := settings.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid repository settings")
	}

	if err := os.MkdirAll(filepath.Join(dataDir, objectsDir), 0755); err != nil {
		return nil, errors.Wrap(err, "can not create data dir")
	}
	if err := settings.Write(filepath.Join(dataDir, settingsFile)); err != nil {
		return nil, err
	}

	logger.Info("initialized empty repository in %s", dataDir)

	return open(ctx, root, dataDir, settings, opts)
}

// Open opens an initialized repository.
func Open(ctx context.Context, root string, opts Options) (*Repository, error) {
	root, err := absRoot(root)
	if err != nil {
		return nil, err
	}
	dataDir := filepath.Join(root, DataDirName)

	info, err := os.Stat(dataDir)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(ErrNotInitialized, root)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "can not stat %s", dataDir)
	}
	if !info.IsDir() {
		return nil, errors.Wrapf(ErrNotInitialized, "%s is not a directory", dataDir)
	}

	settings, err := LoadSettings(filepath.Join(dataDir, settingsFile))
	if err != nil {
		return nil, err
	}

	return open(ctx, root, dataDir, settings, opts)
}

func open(ctx context.Context, root, dataDir string, settings *Settings, opts Options) (*Repository, error) {
	idx, err := index.Open(ctx, filepath.Join(dataDir, indexDir), opts.Index)
	if err != nil {
		return nil, errors.Wrap(err, "can not open index")
	}

	return &Repository{
		root:     root,
		dataDir:  dataDir,
		settings: settings,
		idx:      idx,
		objects:  object.New(filepath.Join(dataDir, objectsDir), int(settings.Sublayers)),
		opts:     opts,
	}, nil
}

// Close releases the index.
func (r *Repository) Close() error {
	return r.idx.Close()
}

// Root returns the absolute repository root.
func (r *Repository) Root() string { return r.root }

// DataDir returns the absolute path of the data directory.
func (r *Repository) DataDir() string { return r.dataDir }

// Settings returns the loaded settings.
func (r *Repository) Settings() Settings { return *r.settings }

// Count returns the number of tracked paths.
func (r *Repository) Count(ctx context.Context) (uint64, error) {
	return r.idx.Count(ctx)
}

// Record returns the record for a repository-relative path.
func (r *Repository) Record(ctx context.Context, rel string) (*metadata.FileRecord, error) {
	return r.idx.Get(ctx, rel)
}

// Add records every path under the given paths that is not tracked yet.
// Relative paths are resolved against the working directory; no paths means
// the whole repository.
//
// Add only updates the index. Use Intern to move content into the object
// store.
func (r *Repository) Add(ctx context.Context, paths []string) (*ingest.Report, error) {
	targets, err := r.resolve(paths)
	if err != nil {
		return nil, err
	}

	p := ingest.New(r.root, r.dataDir, index.NewLocked(r.idx), ingest.Options{
		Workers:   r.opts.Workers,
		QueueSize: r.opts.QueueSize,
		Algorithm: r.settings.Algorithm,
	})
	return p.Run(ctx, targets)
}

// Status diffs the given paths (the whole repository when empty) against
// the index.
func (r *Repository) Status(ctx context.Context, paths []string) (*status.RepoStatus, error) {
	targets, err := r.resolve(paths)
	if err != nil {
		return nil, err
	}
	for _, t := range targets {
		if t != r.root && within(r.dataDir, t) {
			return nil, errors.Wrap(ErrDataDirPath, t)
		}
	}

	return status.New(r.root, r.dataDir, r.idx, r.settings.Algorithm).Scan(ctx, targets)
}

// resolve turns user paths into absolute, clean paths under the root.
func (r *Repository) resolve(paths []string) ([]string, error) {
	if len(paths) == 0 {
		return []string{r.root}, nil
	}

	out := make([]string, 0, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, errors.Wrapf(err, "can not resolve %s", p)
		}
		if !within(r.root, abs) {
			return nil, errors.Wrap(ErrOutsideRepository, abs)
		}
		out = append(out, abs)
	}
	return out, nil
}

func absRoot(root string) (string, error) {
	if root == "" {
		root = "."
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", errors.Wrapf(err, "can not resolve %s", root)
	}
	return abs, nil
}

// within reports whether path equals root or lies below it.
func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !filepath.IsAbs(rel) && !hasParentPrefix(rel))
}

func hasParentPrefix(rel string) bool {
	return len(rel) >= 3 && rel[:2] == ".." && os.IsPathSeparator(rel[2])
}
