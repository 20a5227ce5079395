package store

import "context"

// Entry is one name in a store directory listing.
type Entry struct {
	Name  string
	IsDir bool
}

// ContentStore is the version-controlled blob store the archive lives in.
// Read returns the current content together with an opaque version token;
// Update rejects a stale token. Implementations map their native not-found
// and conflict signals onto domain.ErrNotFound and domain.ErrConflict so
// callers can classify with errors.Is.
type ContentStore interface {
	Read(ctx context.Context, path string) (content []byte, version string, err error)
	List(ctx context.Context, dir string) ([]Entry, error)
	Create(ctx context.Context, path, message string, content []byte) error
	Update(ctx context.Context, path, message string, content []byte, version string) error
}
