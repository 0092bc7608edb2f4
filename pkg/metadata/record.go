// Package metadata extracts the per-path state tracked by a repository: OS
// metadata read without following symlinks, plus a content digest for
// regular files.
package metadata

import (
	"os"
	"time"
)

// FileRecord is the metadata stored in the index for one tracked path.
//
// Hash is set if and only if the entry is a regular file. Directories and
// symlinks are tracked but never content-addressed.
type FileRecord struct {
	// Hash is the lowercase hex content digest, empty when absent
	Hash string

	// IsDir reports a directory entry
	IsDir bool

	// IsSymlink reports a symbolic link (the link itself, not its target)
	IsSymlink bool

	// Length is the size in bytes as reported by lstat
	Length uint64

	// Modified is the modification time of the entry itself
	Modified time.Time

	// Permissions holds the platform mode bits (st_mode on unix)
	Permissions uint32
}

// HasDigest reports whether the record carries a content digest.
func (r *FileRecord) HasDigest() bool {
	return r.Hash != ""
}

// IsRegular reports whether the record describes a regular file.
func (r *FileRecord) IsRegular() bool {
	return !r.IsDir && !r.IsSymlink
}

// SameModified compares modification times at nanosecond precision,
// ignoring location and monotonic readings.
func (r *FileRecord) SameModified(t time.Time) bool {
	return r.Modified.Equal(t)
}

// FileMode returns the Go permission bits carried in Permissions.
func (r *FileRecord) FileMode() os.FileMode {
	return os.FileMode(r.Permissions & 0o7777).Perm()
}
