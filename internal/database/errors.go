package database

import "errors"

var (
	// ErrRedirectExists is returned when an attempt is made to create a
	// redirect whose source path hash and host collide with an existing rule.
	ErrRedirectExists = errors.New("redirect exists")
	// ErrRedirectNotFound is returned when an attempt is made to retrieve
	// a redirect that doesn't exist.
	ErrRedirectNotFound = errors.New("redirect not found")
	// ErrVersionMismatch is returned when an update is based on a stale
	// version of the redirect. The caller should re-read and retry.
	ErrVersionMismatch = errors.New("redirect version mismatch")
)
