package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/storesight-labs/storesight-core/internal/core/domain"
)

// MockUsageStore is an in-memory UsageStore counting requests without
// window bucketing.
type MockUsageStore struct {
	mu     sync.Mutex
	counts map[string]int // key: userID:provider

	// Denied forces Allow to report the limit as exhausted.
	Denied bool
}

// NewMockUsageStore creates a new MockUsageStore.
func NewMockUsageStore() *MockUsageStore {
	return &MockUsageStore{counts: make(map[string]int)}
}

func usageKey(userID string, provider domain.Provider) string {
	return userID + ":" + string(provider)
}

func (m *MockUsageStore) Allow(ctx context.Context, userID string, provider domain.Provider, limit int) (bool, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Denied {
		return false, 0, nil
	}

	used := m.counts[usageKey(userID, provider)]
	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}
	return used < limit, remaining, nil
}

func (m *MockUsageStore) Record(ctx context.Context, userID string, provider domain.Provider, endpoint string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.counts[usageKey(userID, provider)]++
	return nil
}

func (m *MockUsageStore) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	return 0, nil
}

// Recorded returns how many requests were recorded for (user, provider).
func (m *MockUsageStore) Recorded(userID string, provider domain.Provider) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[usageKey(userID, provider)]
}
