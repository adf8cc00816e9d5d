// Package redis provides the Redis-backed driven adapters. Redis is the
// preferred backend for ephemeral data (CSRF states, locks): TTLs are
// native and consume is a single GETDEL round trip.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/storesight-labs/storesight-core/internal/core/domain"
	"github.com/storesight-labs/storesight-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.OAuthStateStore = (*OAuthStateStore)(nil)

const statePrefix = "oauth_state:"

// OAuthStateStore implements driven.OAuthStateStore using Redis.
// States expire via Redis TTL; consumption is atomic via GETDEL, so two
// racing callbacks can never both redeem the same state.
type OAuthStateStore struct {
	client *redis.Client
}

// NewOAuthStateStore creates a new Redis-backed OAuth state store.
func NewOAuthStateStore(client *redis.Client) *OAuthStateStore {
	return &OAuthStateStore{client: client}
}

// stateKey scopes the key by user so a state issued to one user can never
// be redeemed by another.
func stateKey(userID, state string) string {
	return statePrefix + userID + ":" + state
}

// Save stores a state with TTL derived from its expiry.
func (s *OAuthStateStore) Save(ctx context.Context, state *domain.OAuthState) error {
	now := time.Now()
	if state.CreatedAt.IsZero() {
		state.CreatedAt = now
	}
	if state.ExpiresAt.IsZero() {
		state.ExpiresAt = now.Add(domain.StateTTL)
	}

	ttl := time.Until(state.ExpiresAt)
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(stateRecord{
		UserID:    state.UserID,
		Provider:  string(state.Provider),
		State:     state.State,
		CreatedAt: state.CreatedAt,
		ExpiresAt: state.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("marshal oauth state: %w", err)
	}

	if err := s.client.Set(ctx, stateKey(state.UserID, state.State), data, ttl).Err(); err != nil {
		return fmt.Errorf("save oauth state: %w", err)
	}

	return nil
}

// Consume atomically retrieves and deletes the state. GETDEL returns the
// value to exactly one caller; everyone else sees redis.Nil. Expired states
// are gone already because the key TTL matches the state window.
func (s *OAuthStateStore) Consume(ctx context.Context, state, userID string) (*domain.OAuthState, error) {
	data, err := s.client.GetDel(ctx, stateKey(userID, state)).Bytes()
	if err == redis.Nil {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("consume oauth state: %w", err)
	}

	var rec stateRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal oauth state: %w", err)
	}

	st := &domain.OAuthState{
		UserID:    rec.UserID,
		Provider:  domain.Provider(rec.Provider),
		State:     rec.State,
		CreatedAt: rec.CreatedAt,
		ExpiresAt: rec.ExpiresAt,
	}
	if st.Expired() {
		return nil, domain.ErrNotFound
	}

	return st, nil
}

// Cleanup is a no-op: Redis evicts expired keys itself.
func (s *OAuthStateStore) Cleanup(ctx context.Context) (int64, error) {
	return 0, nil
}

// stateRecord is the JSON layout stored in Redis.
type stateRecord struct {
	UserID    string    `json:"user_id"`
	Provider  string    `json:"provider"`
	State     string    `json:"state"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
