// Package storage manages the directory that recorded takes are written to.
// It hands out fresh take paths and removes takes that were dropped.
package storage

import "context"

// Storage defines take file management.
type Storage interface {
	// Dir returns the directory takes are written to.
	Dir() string

	// NewTakePath returns an unused path for a new take. ext includes the
	// leading dot, e.g. ".wav". The file itself is not created.
	NewTakePath(ext string) (string, error)

	// Discard removes the given takes.
	// It continues even if some files fail to delete.
	Discard(ctx context.Context, paths ...string) error
}
