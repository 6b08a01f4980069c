package store

import (
	"context"
	"time"
)

// Store is the keyed state backend injected into every engine service.
// A single in-memory instance serves one node; the Redis implementation
// gives global per-identity visibility across instances. All values are
// strings (records are JSON-encoded by the services).
type Store interface {
	// Get returns the value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set writes the value. ttl <= 0 means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Delete removes the key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// GetDel atomically reads and removes the key.
	GetDel(ctx context.Context, key string) (string, bool, error)

	// Incr increments the integer counter at key and returns the new value.
	// The ttl is applied only when the call creates the key, so a counter's
	// window is anchored at its first increment.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// Keys returns all live keys with the given prefix. Used by admin and
	// sweep paths only; never on a per-request hot path.
	Keys(ctx context.Context, prefix string) ([]string, error)
}
