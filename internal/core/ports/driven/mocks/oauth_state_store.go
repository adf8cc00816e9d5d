package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/storesight-labs/storesight-core/internal/core/domain"
)

// MockOAuthStateStore is an in-memory OAuthStateStore with single-use
// consume semantics.
type MockOAuthStateStore struct {
	mu     sync.Mutex
	states map[string]*domain.OAuthState // key: userID:state

	// SaveErr forces Save to fail when set.
	SaveErr error
}

// NewMockOAuthStateStore creates a new MockOAuthStateStore.
func NewMockOAuthStateStore() *MockOAuthStateStore {
	return &MockOAuthStateStore{
		states: make(map[string]*domain.OAuthState),
	}
}

func stateKey(userID, state string) string {
	return userID + ":" + state
}

func (m *MockOAuthStateStore) Save(ctx context.Context, state *domain.OAuthState) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if state.CreatedAt.IsZero() {
		state.CreatedAt = now
	}
	if state.ExpiresAt.IsZero() {
		state.ExpiresAt = now.Add(domain.StateTTL)
	}

	copied := *state
	m.states[stateKey(state.UserID, state.State)] = &copied
	return nil
}

func (m *MockOAuthStateStore) Consume(ctx context.Context, state, userID string) (*domain.OAuthState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := stateKey(userID, state)
	st, ok := m.states[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	delete(m.states, key)

	if st.Expired() {
		return nil, domain.ErrNotFound
	}
	return st, nil
}

func (m *MockOAuthStateStore) Cleanup(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var deleted int64
	for key, st := range m.states {
		if st.Expired() {
			delete(m.states, key)
			deleted++
		}
	}
	return deleted, nil
}

// Pending returns the number of stored states.
func (m *MockOAuthStateStore) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.states)
}
