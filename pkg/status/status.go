// Package status diffs the working tree against the index.
package status

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/marmos91/syncust/internal/logger"
	"github.com/marmos91/syncust/pkg/metadata"
	"github.com/marmos91/syncust/pkg/store/index"
	"github.com/pkg/errors"
)

// RepoStatus is the result of one scan. It is not persisted.
type RepoStatus struct {
	// TrackedCount is the number of records in the whole index, independent
	// of which subtree was scanned
	TrackedCount uint64 `json:"tracked_count" yaml:"tracked_count"`

	// Untracked lists paths on disk with no record, sorted
	Untracked []string `json:"untracked_paths" yaml:"untracked_paths"`

	// Changed lists tracked paths whose content or type differs, sorted
	Changed []string `json:"changed_paths" yaml:"changed_paths"`
}

// Clean reports whether nothing is untracked or changed.
func (s *RepoStatus) Clean() bool {
	return len(s.Untracked) == 0 && len(s.Changed) == 0
}

// Engine classifies working tree paths against an index.
type Engine struct {
	root    string
	dataDir string
	idx     *index.Index
	algo    metadata.Algorithm
}

// New creates an Engine for the repository at root. root and dataDir must
// be absolute and clean; algo is the digest the index was built with.
func New(root, dataDir string, idx *index.Index, algo metadata.Algorithm) *Engine {
	return &Engine{root: root, dataDir: dataDir, idx: idx, algo: algo}
}

// Scan walks targets (the whole root when empty) and classifies every path
// except the root itself and the data directory.
//
// A path absent from the index is untracked. A tracked path whose
// modification time is unchanged is clean without being read. A differing
// modification time only triggers a re-hash: the path is changed when the
// digest or the directory/file/symlink kind differs from the record.
func (e *Engine) Scan(ctx context.Context, targets []string) (*RepoStatus, error) {
	if len(targets) == 0 {
		targets = []string{e.root}
	}

	st := &RepoStatus{}

	for _, target := range targets {
		err := filepath.WalkDir(target, func(path string, d fs.DirEntry, err error) error {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if err != nil {
				if path == target {
					return errors.Wrapf(err, "can not scan %s", target)
				}
				logger.Warn("can not read %s: %v", path, err)
				return nil
			}
			if path == e.dataDir {
				return filepath.SkipDir
			}
			if path == e.root {
				return nil
			}

			rel, err := filepath.Rel(e.root, path)
			if err != nil {
				return errors.Wrapf(err, "can not relativize %s", path)
			}

			e.classify(ctx, st, path, rel)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	count, err := e.idx.Count(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "can not count tracked paths")
	}
	st.TrackedCount = count

	slices.Sort(st.Untracked)
	st.Untracked = slices.Compact(st.Untracked)
	slices.Sort(st.Changed)
	st.Changed = slices.Compact(st.Changed)

	return st, nil
}

func (e *Engine) classify(ctx context.Context, st *RepoStatus, path, rel string) {
	rec, err := e.idx.Get(ctx, rel)
	if index.IsNotFound(err) {
		st.Untracked = append(st.Untracked, rel)
		return
	}
	if err != nil {
		logger.Warn("can not look up %s: %v", rel, err)
		return
	}

	info, err := metadata.Lstat(path)
	if err != nil {
		logger.Warn("%v", err)
		st.Changed = append(st.Changed, rel)
		return
	}
	if rec.SameModified(info.ModTime()) {
		return
	}

	changed, err := e.differs(path, rec, info)
	if err != nil {
		logger.Warn("treating %s as changed: %v", rel, err)
	}
	if changed {
		logger.Debug("%s changed", rel)
		st.Changed = append(st.Changed, rel)
	}
}

// differs compares live state to a record after the modification time
// moved. Regular files are re-hashed through symlinks, so a file replaced
// by a link into the object store compares by content.
func (e *Engine) differs(path string, rec *metadata.FileRecord, info os.FileInfo) (bool, error) {
	isLink := info.Mode()&os.ModeSymlink != 0

	switch {
	case rec.IsSymlink:
		return !isLink, nil
	case rec.IsDir:
		return !info.IsDir(), nil
	}

	isDir, sum, err := metadata.Live(path, e.algo)
	if err != nil {
		return true, err
	}
	return isDir || sum != rec.Hash, nil
}
