package postgres

import (
	"context"
	"database/sql"
	"hash/fnv"
	"time"

	"github.com/storesight-labs/storesight-core/internal/core/ports/driven"
)

// Ensure interface compliance.
var _ driven.DistributedLock = (*AdvisoryLock)(nil)

// AdvisoryLock implements DistributedLock using PostgreSQL advisory locks.
//
// IMPORTANT LIMITATIONS:
// - Advisory locks are connection-scoped, not TTL-based
// - If the connection is lost, the lock is automatically released
// - The TTL parameter is ignored (locks don't expire automatically)
//
// For multi-replica deployments, the Redis lock is recommended. This is a
// fallback for deployments without Redis.
type AdvisoryLock struct {
	db *sql.DB
}

// NewAdvisoryLock creates a new PostgreSQL advisory lock adapter.
func NewAdvisoryLock(db *sql.DB) *AdvisoryLock {
	return &AdvisoryLock{db: db}
}

// hashLockName converts a string lock name to a 64-bit integer for
// PostgreSQL advisory locks. Uses FNV-1a for stable, well-distributed keys.
func hashLockName(name string) int64 {
	h := fnv.New64a()
	h.Write([]byte("storesight:lock:" + name))
	return int64(h.Sum64())
}

// Acquire attempts to take the named lock without blocking.
// The TTL parameter is ignored; the lock is held until Release or until the
// session ends.
func (l *AdvisoryLock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	var acquired bool
	err := l.db.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", hashLockName(name)).Scan(&acquired)
	if err != nil {
		return false, err
	}
	return acquired, nil
}

// Release releases the named lock. Safe to call when the lock is not held
// (pg_advisory_unlock returns false but no error).
func (l *AdvisoryLock) Release(ctx context.Context, name string) error {
	var released bool
	return l.db.QueryRowContext(ctx, "SELECT pg_advisory_unlock($1)", hashLockName(name)).Scan(&released)
}
