package agreement

import "context"

// Indexer is implemented by the components that follow a chain's committed
// event log and persist it (see state.State).
type Indexer interface {
	// Start blocks and keeps indexing until ctx is cancelled.
	Start(ctx context.Context) error

	// Sync indexes whatever has been committed since the last call and
	// returns the number of logs processed.
	Sync() (int, error)
}
