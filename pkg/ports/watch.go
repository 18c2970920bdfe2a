package ports

import "context"

// Watchable is implemented by element map loaders that can report changes.
type Watchable interface {
	// Watch returns a channel that receives the ID of each changed record
	// until ctx is done.
	Watch(ctx context.Context) (<-chan string, error)
}
