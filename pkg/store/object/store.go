// Package object implements the content-addressed object store.
//
// Objects live under a root directory, nested in shard directories named
// after successive two-character groups of their digest:
//
//	objects/8f/43/43/46/8f434346648f6b96df89dda901c5176b10a6d83961dd3c1ac88b59b2dc327aa4
//
// The number of shard levels is fixed when the repository is created.
// Interning a file is a two-step operation: its bytes are relocated into the
// store (Store), then its original path is replaced by a relative symlink to
// the object (Link). Link is idempotent and can be retried on its own.
package object

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/marmos91/syncust/internal/logger"
	"github.com/marmos91/syncust/pkg/chunker"
	"github.com/marmos91/syncust/pkg/metadata"
	"github.com/pkg/errors"
)

// ShardWidth is the length of one shard directory name.
const ShardWidth = 2

// objectMode is the permission of every stored object. Objects are shared
// by all links to them and must not be written through a link.
const objectMode = 0444

var (
	// ErrNoDigest is returned for records that are not content-addressed:
	// directories, symlinks and records without a hash.
	ErrNoDigest = errors.New("record has no content digest")

	// ErrInsufficientDigestLength is returned when the digest is too short
	// to provide the configured number of shard levels.
	ErrInsufficientDigestLength = errors.New("digest too short for shard depth")

	// ErrPathOccupied is returned by Link when the path exists and is not
	// already a link to the expected object.
	ErrPathOccupied = errors.New("path exists and is not a link to the object")

	// ErrEscapesStore is returned when a computed link target would resolve
	// outside the object store.
	ErrEscapesStore = errors.New("link target escapes object store")
)

// Result describes what Store did with a file.
type Result int

const (
	// Skipped means the record is not content-addressed (directory, symlink)
	Skipped Result = iota

	// Stored means the bytes were relocated into a new object
	Stored

	// Deduplicated means an identical object already existed and the
	// source copy was discarded
	Deduplicated
)

func (r Result) String() string {
	switch r {
	case Stored:
		return "stored"
	case Deduplicated:
		return "deduplicated"
	default:
		return "skipped"
	}
}

// Store is a sharded content-addressed object store rooted at a directory.
//
// Thread Safety:
// Distinct digests may be stored concurrently. Storing the same digest from
// two goroutines at once is not coordinated; callers intern sequentially.
type Store struct {
	root  string
	depth int
}

// New returns a store rooted at root using depth shard levels. The root is
// created lazily by the first Store call.
func New(root string, depth int) *Store {
	return &Store{root: filepath.Clean(root), depth: depth}
}

// Root returns the store's root directory.
func (s *Store) Root() string {
	return s.root
}

// Locate returns the absolute storage location for rec's content.
//
// The path is the store root followed by depth shard directories taken from
// the digest two characters at a time, then the full digest as the file name.
func (s *Store) Locate(rec *metadata.FileRecord) (string, error) {
	if rec == nil || !rec.IsRegular() || !rec.HasDigest() {
		return "", ErrNoDigest
	}
	return s.locateDigest(rec.Hash)
}

func (s *Store) locateDigest(hash string) (string, error) {
	if len(hash) < s.depth*ShardWidth {
		return "", errors.Wrapf(ErrInsufficientDigestLength,
			"digest %q has %d characters, need %d", hash, len(hash), s.depth*ShardWidth)
	}

	parts := make([]string, 0, s.depth+2)
	parts = append(parts, s.root)

	c := chunker.New(hash, ShardWidth)
	for level := 0; level < s.depth; level++ {
		shard, ok := c.Next()
		if !ok {
			return "", errors.Wrapf(ErrInsufficientDigestLength, "digest %q", hash)
		}
		parts = append(parts, shard)
	}

	return filepath.Join(append(parts, hash)...), nil
}

// Has reports whether the object for rec exists in the store.
func (s *Store) Has(rec *metadata.FileRecord) bool {
	target, err := s.Locate(rec)
	if err != nil {
		return false
	}
	_, err = os.Lstat(target)
	return err == nil
}

// Store moves the file at source into the store and replaces source with a
// relative symlink to the object.
//
// Directories and symlinks are left untouched (Skipped). When an object
// with the same digest already exists the source bytes are discarded and
// only the link is created (Deduplicated). The caller is responsible for
// rec describing the current content of source.
func (s *Store) Store(ctx context.Context, source string, rec *metadata.FileRecord) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Skipped, err
	}
	if rec == nil || !rec.IsRegular() {
		return Skipped, nil
	}

	target, err := s.Locate(rec)
	if err != nil {
		return Skipped, err
	}
	if _, err := s.relativeTarget(source, target); err != nil {
		return Skipped, err
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return Skipped, errors.Wrapf(err, "can not create shard directory for %s", rec.Hash)
	}

	result := Stored
	if _, err := os.Lstat(target); err == nil {
		logger.Debug("object %s already present, deduplicating %s", rec.Hash, source)
		if err := os.Remove(source); err != nil {
			return Skipped, errors.Wrapf(err, "can not remove duplicate %s", source)
		}
		result = Deduplicated
	} else {
		if err := relocate(source, target); err != nil {
			return Skipped, errors.Wrapf(err, "can not move %s to %s", source, target)
		}
		if err := os.Chmod(target, objectMode); err != nil {
			logger.Warn("can not make object %s read-only: %v", target, err)
		}
	}

	if err := s.Link(source, rec); err != nil {
		return result, err
	}

	return result, nil
}

// Link creates a relative symlink at path pointing at rec's object.
//
// Link succeeds without changes when path already links to the object. The
// object itself need not exist yet; a clone may create links before the
// bytes arrive.
func (s *Store) Link(path string, rec *metadata.FileRecord) error {
	target, err := s.Locate(rec)
	if err != nil {
		return err
	}

	rel, err := s.relativeTarget(path, target)
	if err != nil {
		return err
	}

	if existing, err := os.Readlink(path); err == nil {
		if existing == rel {
			return nil
		}
		return errors.Wrapf(ErrPathOccupied, "%s -> %s", path, existing)
	} else if _, statErr := os.Lstat(path); statErr == nil {
		return errors.Wrap(ErrPathOccupied, path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(err, "can not create parent of %s", path)
	}

	if err := os.Symlink(rel, path); err != nil {
		return errors.Wrapf(err, "can not create symlink %s -> %s", path, rel)
	}
	return nil
}

// relativeTarget computes the link text for path so that it resolves to
// target, and refuses results that land outside the store root.
func (s *Store) relativeTarget(path, target string) (string, error) {
	dir := filepath.Dir(path)
	rel, err := filepath.Rel(dir, target)
	if err != nil {
		return "", errors.Wrapf(err, "can not get relative path for %s", path)
	}

	if !within(s.root, filepath.Join(dir, rel)) {
		return "", errors.Wrapf(ErrEscapesStore, "%s -> %s", path, rel)
	}
	return rel, nil
}

// within reports whether path is root or lies below it.
func within(root, path string) bool {
	rel, err := filepath.Rel(root, filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Linked reports whether path is a symlink resolving to rec's object.
func (s *Store) Linked(path string, rec *metadata.FileRecord) bool {
	target, err := s.Locate(rec)
	if err != nil {
		return false
	}
	existing, err := os.Readlink(path)
	if err != nil {
		return false
	}
	if !filepath.IsAbs(existing) {
		existing = filepath.Join(filepath.Dir(path), existing)
	}
	return filepath.Clean(existing) == target
}
