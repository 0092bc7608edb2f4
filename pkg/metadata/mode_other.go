//go:build !unix

package metadata

import "os"

func modeBits(_ string, info os.FileInfo) uint32 {
	return uint32(info.Mode().Perm())
}
