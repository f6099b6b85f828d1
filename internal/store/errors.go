// Package store holds what every storage adapter shares: the signals an
// adapter returns so the service can tell a duplicate from a missing record
// from a plain backend failure.
package store

import "errors"

var (
	// ErrDuplicate reports that another theme already has the same content.
	ErrDuplicate = errors.New("store: duplicate content")

	// ErrNotFound reports that no theme has the requested id.
	ErrNotFound = errors.New("store: theme not found")
)
