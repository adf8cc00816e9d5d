package driven

import (
	"context"

	"github.com/storesight-labs/storesight-core/internal/core/domain"
)

// OAuthStateStore manages short-lived CSRF states for pending authorization
// attempts. States are single-use and expire after domain.StateTTL.
type OAuthStateStore interface {
	// Save stores a freshly issued state.
	Save(ctx context.Context, state *domain.OAuthState) error

	// Consume atomically looks up and deletes the state scoped to the user.
	// Exactly one of two concurrent callers observes the state; the other
	// gets domain.ErrNotFound. Missing, expired, and cross-user states all
	// return domain.ErrNotFound; expired states are deleted on the way out,
	// never resurrected.
	Consume(ctx context.Context, state, userID string) (*domain.OAuthState, error)

	// Cleanup purges expired states and returns how many were removed.
	Cleanup(ctx context.Context) (int64, error)
}
