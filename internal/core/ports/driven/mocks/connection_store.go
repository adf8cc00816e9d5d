// Package mocks provides in-memory implementations of the driven ports for
// testing services without a database or Redis.
package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/storesight-labs/storesight-core/internal/core/domain"
	"github.com/storesight-labs/storesight-core/internal/core/ports/driven"
)

// MockConnectionStore is an in-memory ConnectionStore.
type MockConnectionStore struct {
	mu          sync.RWMutex
	connections map[string]*domain.Connection // key: userID:provider
	nextID      int

	// UpsertErr forces Upsert to fail when set.
	UpsertErr error
}

// NewMockConnectionStore creates a new MockConnectionStore.
func NewMockConnectionStore() *MockConnectionStore {
	return &MockConnectionStore{
		connections: make(map[string]*domain.Connection),
	}
}

func connKey(userID string, provider domain.Provider) string {
	return userID + ":" + string(provider)
}

func (m *MockConnectionStore) GetActive(ctx context.Context, userID string, provider domain.Provider) (*domain.Connection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	conn, ok := m.connections[connKey(userID, provider)]
	if !ok || !conn.IsActive {
		return nil, domain.ErrNotFound
	}
	copied := *conn
	return &copied, nil
}

func (m *MockConnectionStore) ListActive(ctx context.Context, userID string) ([]*domain.Connection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var conns []*domain.Connection
	for _, conn := range m.connections {
		if conn.UserID == userID && conn.IsActive {
			copied := *conn
			conns = append(conns, &copied)
		}
	}
	return conns, nil
}

func (m *MockConnectionStore) Upsert(ctx context.Context, userID string, provider domain.Provider, fields driven.ConnectionUpsert) (*domain.Connection, error) {
	if m.UpsertErr != nil {
		return nil, m.UpsertErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	key := connKey(userID, provider)

	conn, ok := m.connections[key]
	if !ok {
		m.nextID++
		conn = &domain.Connection{
			ID:          fmt.Sprintf("conn-%d", m.nextID),
			UserID:      userID,
			Provider:    provider,
			ConnectedAt: now,
		}
		m.connections[key] = conn
	}

	conn.AccessToken = fields.AccessToken
	conn.RefreshToken = fields.RefreshToken
	conn.ShopDomain = fields.ShopDomain
	conn.TokenExpiresAt = fields.TokenExpiresAt
	conn.Metadata = fields.Metadata
	conn.LastSyncedAt = now
	conn.IsActive = true

	copied := *conn
	return &copied, nil
}

func (m *MockConnectionStore) Disconnect(ctx context.Context, userID string, provider domain.Provider) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if conn, ok := m.connections[connKey(userID, provider)]; ok {
		conn.IsActive = false
	}
	return nil
}

// Seed installs a connection directly, bypassing Upsert bookkeeping.
func (m *MockConnectionStore) Seed(conn *domain.Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connections[connKey(conn.UserID, conn.Provider)] = conn
}
