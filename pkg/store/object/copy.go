package object

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"syscall"

	"github.com/google/renameio"
	"github.com/marmos91/syncust/pkg/metadata"
	"github.com/pkg/errors"
)

// ErrObjectMissing is returned by CopyFrom when the source store does not
// hold the requested object.
var ErrObjectMissing = errors.New("object missing from source store")

// relocate moves source to target, falling back to copy and delete when the
// two paths are on different devices.
func relocate(source, target string) error {
	err := os.Rename(source, target)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return err
	}

	if err := copyFile(source, target); err != nil {
		return err
	}
	return os.Remove(source)
}

// copyFile writes a copy of source at target through a temporary file in
// the target directory, so a partially written object is never visible.
func copyFile(source, target string) error {
	in, err := os.Open(source)
	if err != nil {
		return err
	}
	defer in.Close()

	pending, err := renameio.TempFile(filepath.Dir(target), target)
	if err != nil {
		return err
	}
	defer func() { _ = pending.Cleanup() }()

	if _, err := io.Copy(pending, in); err != nil {
		return err
	}
	return pending.CloseAtomicallyReplace()
}

// CopyFrom copies rec's object from src into s. It reports false without
// error when s already holds the object.
func (s *Store) CopyFrom(ctx context.Context, src *Store, rec *metadata.FileRecord) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	from, err := src.Locate(rec)
	if err != nil {
		return false, err
	}
	to, err := s.Locate(rec)
	if err != nil {
		return false, err
	}

	if _, err := os.Lstat(to); err == nil {
		return false, nil
	}
	if _, err := os.Stat(from); err != nil {
		if os.IsNotExist(err) {
			return false, errors.Wrap(ErrObjectMissing, rec.Hash)
		}
		return false, errors.Wrapf(err, "can not stat %s", from)
	}

	if err := os.MkdirAll(filepath.Dir(to), 0755); err != nil {
		return false, errors.Wrapf(err, "can not create shard directory for %s", rec.Hash)
	}
	if err := copyFile(from, to); err != nil {
		return false, errors.Wrapf(err, "can not copy object %s", rec.Hash)
	}
	if err := os.Chmod(to, objectMode); err != nil {
		return true, errors.Wrapf(err, "can not make object %s read-only", to)
	}
	return true, nil
}
