// Package watch feeds newly created or written paths of a working tree into
// the ingestion pipeline as they appear.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/marmos91/syncust/internal/logger"
	"github.com/marmos91/syncust/pkg/ingest"
	"github.com/pkg/errors"
)

// DefaultQuiet is how long the tree must stay quiet before a batch is added.
const DefaultQuiet = 500 * time.Millisecond

// Adder records paths in a repository.
type Adder interface {
	Add(ctx context.Context, paths []string) (*ingest.Report, error)
}

// Watcher watches every directory under a root except the data directory.
type Watcher struct {
	root    string
	dataDir string
	adder   Adder
	quiet   time.Duration
	fsw     *fsnotify.Watcher
	pending map[string]struct{}
}

// New creates a Watcher and registers every existing directory under root.
// A zero quiet period means DefaultQuiet.
func New(root, dataDir string, adder Adder, quiet time.Duration) (*Watcher, error) {
	if quiet <= 0 {
		quiet = DefaultQuiet
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "can not create watcher")
	}

	w := &Watcher{
		root:    root,
		dataDir: dataDir,
		adder:   adder,
		quiet:   quiet,
		fsw:     fsw,
		pending: make(map[string]struct{}),
	}

	if err := w.watchTree(root); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// watchTree adds dir and every directory below it, skipping the data dir.
func (w *Watcher) watchTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return errors.Wrapf(err, "can not watch %s", dir)
			}
			logger.Warn("can not read %s: %v", path, err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path == w.dataDir {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return errors.Wrapf(err, "can not watch %s", path)
		}
		logger.Debug("watching %s", path)
		return nil
	})
}

// Run processes events until ctx is cancelled, then flushes the pending
// batch and closes the underlying watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	timer := time.NewTimer(w.quiet)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			// Flush with a fresh context so the last batch is not lost
			w.flush(context.WithoutCancel(ctx))
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if w.handle(event) {
				timer.Reset(w.quiet)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch: %v", err)

		case <-timer.C:
			w.flush(ctx)
		}
	}
}

// handle records a Create or Write event and reports whether anything was
// queued.
func (w *Watcher) handle(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return false
	}
	if event.Name == w.dataDir || isBelow(w.dataDir, event.Name) {
		return false
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Lstat(event.Name); err == nil && info.IsDir() {
			if err := w.watchTree(event.Name); err != nil {
				logger.Warn("%v", err)
			}
		}
	}

	w.pending[event.Name] = struct{}{}
	return true
}

// flush adds the pending paths that still exist.
func (w *Watcher) flush(ctx context.Context) {
	if len(w.pending) == 0 {
		return
	}

	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		if _, err := os.Lstat(p); err == nil {
			paths = append(paths, p)
		}
	}
	w.pending = make(map[string]struct{})

	if len(paths) == 0 {
		return
	}
	sort.Strings(paths)

	logger.Debug("watch: adding %d paths", len(paths))
	if _, err := w.adder.Add(ctx, paths); err != nil {
		logger.Warn("watch: add failed: %v", err)
	}
}

func isBelow(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !filepath.IsAbs(rel) &&
		!(len(rel) > 2 && rel[:2] == ".." && os.IsPathSeparator(rel[2]))
}
