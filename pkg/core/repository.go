package core

import "context"

// Repository defines the contract for enumerating and persisting note files.
// Adhering to this interface keeps the pipeline independent of where the
// corpus lives.
type Repository interface {
	// List returns the paths of every note file, sorted.
	List(ctx context.Context) ([]string, error)

	// Read parses one note file as written, without canonicalizing it.
	Read(ctx context.Context, path string) (*Note, error)

	// Write persists a note at its Path.
	Write(ctx context.Context, n Note) error

	// Index maps note_id to path.
	Index(ctx context.Context) (map[string]string, error)
}

// Watchable is implemented by repositories that can report file changes.
type Watchable interface {
	// Watch calls handler for every change until ctx is cancelled.
	Watch(ctx context.Context, handler func(Event)) error
}
