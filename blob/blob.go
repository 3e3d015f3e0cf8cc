// Package blob abstracts artifact object storage. Certificate documents are
// persisted here after issuance and re-fetched on download.
package blob

import (
	"context"
	"errors"
)

// ErrNotFound is returned when the requested object does not exist.
var ErrNotFound = errors.New("blob: object not found")

// Store is a flat key to object mapping.
type Store interface {
	// Available reports whether the backing service is reachable. Callers
	// use it to decide between persisted and inline-only artifacts.
	Available(ctx context.Context) bool
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	// Exists is a metadata probe; it never transfers object bodies.
	Exists(ctx context.Context, key string) (bool, error)
	Download(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}
