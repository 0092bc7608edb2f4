package index

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Key Namespace
// =============
//
// Records are stored under a prefixed key so other data types can share the
// database later without colliding:
//
// Data Type      Prefix   Key Format              Value Type
// ============================================================
// Path Record    "p:"     p:<slash-separated rel>  FileRecord (CBOR)
//
// Paths are stored with forward slashes regardless of platform so the byte
// order of keys, and therefore the order of Entries, is the same everywhere.

const prefixPath = "p:"

// keyPath builds the key for a repository-relative path.
func keyPath(rel string) ([]byte, error) {
	if rel == "" {
		return nil, errors.New("empty path")
	}
	if filepath.IsAbs(rel) {
		return nil, errors.Errorf("path %q is absolute, want repository-relative", rel)
	}
	clean := filepath.ToSlash(filepath.Clean(rel))
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return nil, errors.Errorf("path %q escapes the repository", rel)
	}
	return []byte(prefixPath + clean), nil
}

// pathFromKey is the inverse of keyPath.
func pathFromKey(key []byte) (string, error) {
	s := string(key)
	if !strings.HasPrefix(s, prefixPath) || len(s) == len(prefixPath) {
		return "", errors.Errorf("malformed key %q", s)
	}
	return filepath.FromSlash(s[len(prefixPath):]), nil
}
