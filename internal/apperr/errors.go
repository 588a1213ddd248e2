// Package apperr defines the sentinel errors shared across the service and
// HTTP layers.
package apperr

import "errors"

var (
	// ErrNotFound means the entity is absent or owned by a different user key.
	ErrNotFound = errors.New("not found")
	// ErrConflict means a storage uniqueness constraint was violated.
	ErrConflict = errors.New("conflict")
	// ErrInvalidReference means a referenced id does not belong to the caller.
	ErrInvalidReference = errors.New("invalid reference")
	// ErrSelfLink means a link's source and target are the same note.
	ErrSelfLink = errors.New("self link not allowed")
)
