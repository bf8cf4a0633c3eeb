// Package apperr defines the sentinel errors shared by the service, API,
// and MCP layers.
package apperr

import "errors"

var (
	// ErrNotFound means the requested document or resource does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict means an optimistic-concurrency checksum did not match.
	ErrConflict = errors.New("conflict")
	// ErrAlreadyExists means a create targeted an existing document path.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidPath means a corpus path failed validation (escapes the
	// corpus root, wrong extension, empty).
	ErrInvalidPath = errors.New("invalid path")
)
