package metadata

import (
	"os"

	"github.com/pkg/errors"
)

// ErrUnsupportedType is returned for devices, sockets and named pipes.
var ErrUnsupportedType = errors.New("unsupported file type")

// Extract builds the FileRecord for path. Metadata is read with lstat, so a
// symlink is described by the link itself and is never hashed.
func Extract(path string, algo Algorithm) (*FileRecord, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return nil, errors.Wrapf(err, "can not stat %s", path)
	}

	rec := &FileRecord{
		IsDir:       info.IsDir(),
		IsSymlink:   info.Mode()&os.ModeSymlink != 0,
		Length:      uint64(info.Size()),
		Modified:    info.ModTime(),
		Permissions: modeBits(path, info),
	}

	switch {
	case rec.IsDir, rec.IsSymlink:
		return rec, nil
	case info.Mode().IsRegular():
		sum, err := DigestFile(path, algo)
		if err != nil {
			return nil, err
		}
		rec.Hash = sum
		return rec, nil
	default:
		return nil, errors.Wrapf(ErrUnsupportedType, "%s (%s)", path, info.Mode().Type())
	}
}

// Live describes the current content of path for change detection: whether
// it resolves to a directory, and its digest when it does not. Symlinks are
// followed so a path replaced by a link into the object store still hashes
// to the stored content.
func Live(path string, algo Algorithm) (isDir bool, sum string, err error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, "", errors.Wrapf(err, "can not stat %s", path)
	}
	if info.IsDir() {
		return true, "", nil
	}
	sum, err = DigestFile(path, algo)
	return false, sum, err
}

// Lstat returns the metadata of path without following symlinks.
func Lstat(path string) (os.FileInfo, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return nil, errors.Wrapf(err, "can not stat %s", path)
	}
	return info, nil
}
