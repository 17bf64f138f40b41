package ports

import (
	"context"
)

// CacheStore is the key-value interface the engine memoizes node outputs
// behind. Keys are content-addressed (hash of node type, resolved config and
// resolved inputs); values are the JSON encoding of the node output.
// Implementations may be in-memory, on-disk or remote; the engine treats a
// Get error as a miss and a Put error as non-fatal.
type CacheStore interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Put(ctx context.Context, key string, value []byte) error
}
