package ports

import "context"

// ResultStore caches compiled, exported graphs keyed by a content hash.
type ResultStore interface {
	// Save stores data under key, replacing any previous value.
	Save(ctx context.Context, key string, data []byte) error

	// Load retrieves data for key.
	// Returns domain.ErrNotFound if the key does not exist.
	Load(ctx context.Context, key string) ([]byte, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
