package metadata

import (
	_ "crypto/sha256" // registers sha256 for go-digest
	"encoding/hex"
	"io"
	"os"

	"github.com/opencontainers/go-digest"
	"github.com/pkg/errors"
	"github.com/zeebo/blake3"
)

// Algorithm names a content digest function.
type Algorithm string

const (
	SHA256 Algorithm = "sha256"
	BLAKE3 Algorithm = "blake3"

	// DefaultAlgorithm is used when a repository does not name one
	DefaultAlgorithm = SHA256
)

// HexLength is the encoded digest length of every supported algorithm.
const HexLength = 64

// ErrUnknownAlgorithm is returned for digest names we cannot compute.
var ErrUnknownAlgorithm = errors.New("unknown digest algorithm")

// Validate reports whether a is a supported algorithm.
func (a Algorithm) Validate() error {
	switch a {
	case SHA256, BLAKE3:
		return nil
	}
	return errors.Wrapf(ErrUnknownAlgorithm, "%q", string(a))
}

// Sum reads r to EOF and returns its lowercase hex digest.
func (a Algorithm) Sum(r io.Reader) (string, error) {
	switch a {
	case SHA256:
		d, err := digest.SHA256.FromReader(r)
		if err != nil {
			return "", errors.Wrap(err, "sha256")
		}
		return d.Encoded(), nil
	case BLAKE3:
		h := blake3.New()
		if _, err := io.Copy(h, r); err != nil {
			return "", errors.Wrap(err, "blake3")
		}
		return hex.EncodeToString(h.Sum(nil)), nil
	}
	return "", errors.Wrapf(ErrUnknownAlgorithm, "%q", string(a))
}

// ValidateEncoded checks that s looks like a digest produced by a.
func (a Algorithm) ValidateEncoded(s string) error {
	if a == SHA256 {
		return digest.SHA256.Validate(s)
	}
	if len(s) != HexLength {
		return errors.Errorf("invalid %s digest length %d", a, len(s))
	}
	if _, err := hex.DecodeString(s); err != nil {
		return errors.Wrapf(err, "invalid %s digest", a)
	}
	return nil
}

// DigestFile hashes the content at path, following symlinks.
func DigestFile(path string, algo Algorithm) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrapf(err, "can not open %s", path)
	}
	defer f.Close()

	sum, err := algo.Sum(f)
	if err != nil {
		return "", errors.Wrapf(err, "can not hash %s", path)
	}
	return sum, nil
}
