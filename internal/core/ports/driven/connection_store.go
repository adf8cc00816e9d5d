package driven

import (
	"context"
	"time"

	"github.com/storesight-labs/storesight-core/internal/core/domain"
)

// ConnectionUpsert carries the fields written on a successful token exchange
// or refresh. Token fields hold ciphertext; encryption happens in the
// services layer before the store is touched.
type ConnectionUpsert struct {
	AccessToken    string
	RefreshToken   string
	ShopDomain     string
	TokenExpiresAt *time.Time
	// Metadata replaces the stored bag wholesale. Callers wanting to keep
	// old keys must read-then-write.
	Metadata domain.Metadata
}

// ConnectionStore persists tool connections, one row per (user, provider).
type ConnectionStore interface {
	// GetActive returns the connection only if is_active is true.
	// A soft-deleted row is indistinguishable from never-connected:
	// both return domain.ErrNotFound.
	GetActive(ctx context.Context, userID string, provider domain.Provider) (*domain.Connection, error)

	// ListActive returns all active connections for a user.
	ListActive(ctx context.Context, userID string) ([]*domain.Connection, error)

	// Upsert inserts or updates the (user, provider) row. It always sets
	// is_active true and bumps last_synced_at. Concurrent upserts resolve
	// last-write-wins on the conflict target.
	Upsert(ctx context.Context, userID string, provider domain.Provider, fields ConnectionUpsert) (*domain.Connection, error)

	// Disconnect clears is_active. Idempotent: disconnecting an inactive or
	// nonexistent connection is not an error.
	Disconnect(ctx context.Context, userID string, provider domain.Provider) error
}
