package repository

import (
	"context"
	"os"
	"path/filepath"

	"github.com/marmos91/syncust/internal/logger"
	"github.com/marmos91/syncust/pkg/pathclass"
	"github.com/marmos91/syncust/pkg/store/index"
	"github.com/marmos91/syncust/pkg/store/object"
	"github.com/pkg/errors"
)

// Clone creates a new repository at destination from the one at source.
//
// In order, it refuses an existing destination directory, creates and
// initializes the destination, classifies source, copies every index
// record, then populates the working tree: tracked directories are created,
// regular files become links into the destination object store, and every
// object present in the source store is copied over. Symlink records are
// not recreated.
//
// On failure the destination directory is removed, so a clone can be
// retried with the same arguments.
//
// Parameters:
//   - ctx: Controls cancellation
//   - source: Repository root to clone from; only local paths are supported
//   - destination: Directory to create
//   - opts: Options for the destination handle
//
// Returns:
//   - *Repository: The open destination repository
//   - error: ErrDestinationExists, ErrUnsupportedTransport, ErrNotInitialized
//     for a source that is not a repository, or a wrapped I/O error
func Clone(ctx context.Context, source, destination string, opts Options) (*Repository, error) {
	dest, err := absRoot(destination)
	if err != nil {
		return nil, err
	}

	// ========================================================================
	// Step 1: Prepare the destination
	// ========================================================================

	if info, err := os.Stat(dest); err == nil && info.IsDir() {
		return nil, errors.Wrap(ErrDestinationExists, dest)
	}
	if err := os.MkdirAll(dest, 0755); err != nil {
		return nil, errors.Wrap(err, "can not create destination dir")
	}

	dst, err := Init(ctx, dest, opts)
	if err != nil {
		discard(dest)
		return nil, errors.Wrap(err, "can not initialize destination dir")
	}

	if err := dst.cloneFrom(ctx, source, opts); err != nil {
		_ = dst.Close()
		discard(dest)
		return nil, err
	}

	return dst, nil
}

// discard removes a destination created by a failed clone.
func discard(dest string) {
	if err := os.RemoveAll(dest); err != nil {
		logger.Warn("can not remove partial clone %s: %v", dest, err)
	}
}

func (r *Repository) cloneFrom(ctx context.Context, source string, opts Options) error {
	// ========================================================================
	// Step 2: Classify the source
	// ========================================================================

	kind := pathclass.Classify(source)
	if kind != pathclass.Local {
		return errors.Wrapf(ErrUnsupportedTransport, "%s (%s)", source, kind)
	}

	src, err := Open(ctx, pathclass.LocalPath(source), opts)
	if err != nil {
		return errors.Wrap(err, "can not open source repository")
	}
	defer src.Close()

	if err := r.adopt(src.settings); err != nil {
		return err
	}

	// ========================================================================
	// Step 3: Copy index records
	// ========================================================================

	entries, err := src.idx.Entries(ctx)
	if err != nil {
		return errors.Wrap(err, "can not read source index")
	}
	for _, e := range entries {
		if err := r.idx.Set(ctx, e.Path, e.Record); err != nil {
			return errors.Wrapf(err, "can not copy record %s", e.Path)
		}
	}
	logger.Info("copied %d records from %s", len(entries), src.root)

	// ========================================================================
	// Step 4: Populate the working tree
	// ========================================================================

	if err := r.populateDirectories(entries); err != nil {
		return err
	}
	return r.populateFiles(ctx, src.objects, entries)
}

// adopt rewrites the destination settings to match the source, since
// copied records carry the source's digests and shard layout.
func (r *Repository) adopt(s *Settings) error {
	if *s == *r.settings {
		return nil
	}
	if err := s.Write(filepath.Join(r.dataDir, settingsFile)); err != nil {
		return err
	}
	copied := *s
	r.settings = &copied
	r.objects = object.New(filepath.Join(r.dataDir, objectsDir), int(s.Sublayers))
	return nil
}

func (r *Repository) populateDirectories(entries []index.Entry) error {
	failed := 0
	for _, e := range entries {
		if !e.Record.IsDir {
			continue
		}
		path := filepath.Join(r.root, e.Path)
		if err := os.MkdirAll(path, e.Record.FileMode()|0700); err != nil {
			logger.Error("can not create directory %s: %v", path, err)
			failed++
		}
	}
	if failed > 0 {
		return errors.Errorf("can not populate directories: %d failed", failed)
	}
	return nil
}

func (r *Repository) populateFiles(ctx context.Context, from *object.Store, entries []index.Entry) error {
	failed := 0
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}

		rec := e.Record
		if rec.IsSymlink {
			logger.Debug("not recreating symlink %s", e.Path)
			continue
		}
		if !rec.IsRegular() {
			continue
		}

		if _, err := r.objects.CopyFrom(ctx, from, rec); err != nil {
			if errors.Is(err, object.ErrObjectMissing) {
				logger.Warn("%s: object not in source store, link will dangle", e.Path)
			} else {
				logger.Error("%s: %v", e.Path, err)
				failed++
				continue
			}
		}

		if err := r.objects.Link(filepath.Join(r.root, e.Path), rec); err != nil {
			logger.Error("%s: %v", e.Path, err)
			failed++
		}
	}
	if failed > 0 {
		return errors.Errorf("can not populate files: %d failed", failed)
	}
	return nil
}
