// Package pathclass decides which transport a repository location needs.
package pathclass

import (
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
)

// Kind is the transport a location is reached through.
type Kind int

const (
	// Local is a path on a mounted filesystem
	Local Kind = iota

	// SSH is an scp-style location: [user@]host:path
	SSH

	// URL is a location with an explicit scheme: scheme://...
	URL
)

func (k Kind) String() string {
	switch k {
	case Local:
		return "local"
	case SSH:
		return "ssh"
	case URL:
		return "url"
	default:
		return "unknown"
	}
}

// scp-style host part: optional user@, then a hostname made of the
// characters DNS allows. A single letter before the colon is not matched
// so Windows drive letters stay local.
var scpLike = regexp.MustCompile(`^(?:[A-Za-z0-9._-]+@)?[A-Za-z0-9.-]{2,}:`)

// Classify returns the Kind of location.
//
// Anything that is neither a URL nor scp-style is local, including relative
// paths and paths whose first segment contains a colon after a slash.
func Classify(location string) Kind {
	if strings.Contains(location, "://") {
		if u, err := url.Parse(location); err == nil && u.Scheme != "" {
			if u.Scheme == "file" {
				return Local
			}
			return URL
		}
	}

	if filepath.IsAbs(location) || strings.HasPrefix(location, ".") {
		return Local
	}

	// A slash before the first colon means the colon belongs to a path segment
	colon := strings.IndexByte(location, ':')
	if colon < 0 {
		return Local
	}
	if slash := strings.IndexByte(location, '/'); slash >= 0 && slash < colon {
		return Local
	}
	if scpLike.MatchString(location) {
		return SSH
	}
	return Local
}

// LocalPath returns the filesystem path for a Local location, stripping a
// file:// scheme if present.
func LocalPath(location string) string {
	if strings.HasPrefix(location, "file://") {
		if u, err := url.Parse(location); err == nil {
			return filepath.FromSlash(u.Path)
		}
	}
	return location
}
