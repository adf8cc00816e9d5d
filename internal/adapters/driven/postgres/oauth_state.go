package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/storesight-labs/storesight-core/internal/core/domain"
	"github.com/storesight-labs/storesight-core/internal/core/ports/driven"
)

// Ensure OAuthStateStore implements the interface.
var _ driven.OAuthStateStore = (*OAuthStateStore)(nil)

// OAuthStateStore implements driven.OAuthStateStore using PostgreSQL.
type OAuthStateStore struct {
	db *sql.DB
}

// NewOAuthStateStore creates a new PostgreSQL-backed OAuth state store.
func NewOAuthStateStore(db *sql.DB) *OAuthStateStore {
	return &OAuthStateStore{db: db}
}

// Save stores a new OAuth state.
func (s *OAuthStateStore) Save(ctx context.Context, state *domain.OAuthState) error {
	now := time.Now()
	if state.CreatedAt.IsZero() {
		state.CreatedAt = now
	}
	if state.ExpiresAt.IsZero() {
		state.ExpiresAt = now.Add(domain.StateTTL)
	}

	query := `
		INSERT INTO oauth_states (user_id, provider, state, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := s.db.ExecContext(ctx, query,
		state.UserID,
		string(state.Provider),
		state.State,
		state.CreatedAt,
		state.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("save oauth state: %w", err)
	}

	return nil
}

// Consume atomically retrieves and deletes the state scoped to the user.
// DELETE ... RETURNING guarantees exactly one of two racing callers wins.
// The delete deliberately ignores expires_at so expired states are removed
// on first touch; the expiry check happens on the returned row.
func (s *OAuthStateStore) Consume(ctx context.Context, state, userID string) (*domain.OAuthState, error) {
	query := `
		DELETE FROM oauth_states
		WHERE state = $1 AND user_id = $2
		RETURNING user_id, provider, state, created_at, expires_at
	`

	var st domain.OAuthState
	var provider string
	err := s.db.QueryRowContext(ctx, query, state, userID).Scan(
		&st.UserID,
		&provider,
		&st.State,
		&st.CreatedAt,
		&st.ExpiresAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("consume oauth state: %w", err)
	}

	st.Provider = domain.Provider(provider)
	if st.Expired() {
		return nil, domain.ErrNotFound
	}

	return &st, nil
}

// Cleanup removes expired states and reports how many were deleted.
func (s *OAuthStateStore) Cleanup(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM oauth_states WHERE expires_at < NOW()`)
	if err != nil {
		return 0, fmt.Errorf("cleanup oauth states: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("cleanup oauth states: %w", err)
	}

	return deleted, nil
}
