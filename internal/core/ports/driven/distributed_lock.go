package driven

import (
	"context"
	"time"
)

// DistributedLock coordinates work across instances. Used by the janitor so
// only one replica runs cleanup at a time.
type DistributedLock interface {
	// Acquire attempts to take a named lock with the given TTL.
	// Returns true if acquired, false if held elsewhere.
	Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error)

	// Release releases a named lock if held by this instance. Safe to call
	// when the lock is not held or has expired.
	Release(ctx context.Context, name string) error
}
