package repository

import (
	"github.com/marmos91/syncust/pkg/ingest"
	"github.com/pkg/errors"
)

var (
	// ErrAlreadyInitialized is returned by Init when the data directory exists.
	ErrAlreadyInitialized = errors.New("repository is already initialized")

	// ErrNotInitialized is returned by Open when the data directory is missing.
	ErrNotInitialized = errors.New("repository is not initialized")

	// ErrDestinationExists is returned by Clone when the destination directory exists.
	ErrDestinationExists = errors.New("destination directory already exists")

	// ErrOutsideRepository is returned for a path not under the repository root.
	ErrOutsideRepository = ingest.ErrOutsideRoot

	// ErrDataDirPath is returned when a path inside the data directory is
	// explicitly requested.
	ErrDataDirPath = ingest.ErrDataDirPath

	// ErrNotSupported is returned by commands that have no implementation.
	ErrNotSupported = errors.New("not yet supported")

	// ErrUnsupportedTransport is returned by Clone for non-local sources.
	ErrUnsupportedTransport = errors.New("unsupported transport")
)
