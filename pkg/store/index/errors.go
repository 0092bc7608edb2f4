package index

import (
	"github.com/pkg/errors"
)

// StoreError is returned by index operations.
//
// Code classifies the failure so callers can react without matching on
// messages; Err carries the underlying engine or codec error, if any.
type StoreError struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable description
	Message string

	// Path is the repository-relative path involved, if any
	Path string

	// Err is the wrapped cause
	Err error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	msg := e.Message
	if e.Path != "" {
		msg += ": " + e.Path
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the cause to errors.Is and errors.As.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// ErrorCode represents the category of an index error.
type ErrorCode int

const (
	// ErrNotFound indicates no record exists for the key
	ErrNotFound ErrorCode = iota

	// ErrStoreUnavailable indicates the engine could not be opened
	// (I/O failure, directory locked by another process)
	ErrStoreUnavailable

	// ErrSerialization indicates a key or record could not be encoded
	ErrSerialization

	// ErrDeserialization indicates a stored key or value could not be decoded
	ErrDeserialization

	// ErrStoreWrite indicates the engine rejected a write
	ErrStoreWrite

	// ErrStoreRead indicates the engine failed during a read
	ErrStoreRead
)

func (c ErrorCode) String() string {
	switch c {
	case ErrNotFound:
		return "not found"
	case ErrStoreUnavailable:
		return "store unavailable"
	case ErrSerialization:
		return "serialization error"
	case ErrDeserialization:
		return "deserialization error"
	case ErrStoreWrite:
		return "store write error"
	case ErrStoreRead:
		return "store read error"
	default:
		return "unknown"
	}
}

// CodeOf returns the ErrorCode carried by err and whether one was found.
func CodeOf(err error) (ErrorCode, bool) {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Code, true
	}
	return 0, false
}

// IsNotFound reports whether err means the key has no record.
func IsNotFound(err error) bool {
	code, ok := CodeOf(err)
	return ok && code == ErrNotFound
}
