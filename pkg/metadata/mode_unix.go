//go:build unix

package metadata

import (
	"os"

	"golang.org/x/sys/unix"
)

// modeBits returns the raw st_mode of path, file type bits included.
func modeBits(path string, info os.FileInfo) uint32 {
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return uint32(info.Mode().Perm())
	}
	return uint32(st.Mode)
}
