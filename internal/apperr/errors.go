// Package apperr holds the sentinel errors shared across lexdesk packages.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	ErrValidation    = errors.New("validation failed")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")

	// ErrNotConfigured is returned by remote operations when the backend
	// credentials are absent. Callers must keep it distinct from transport errors.
	ErrNotConfigured = errors.New("remote store not configured")
)
