package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/storesight-labs/storesight-core/internal/core/domain"
	"github.com/storesight-labs/storesight-core/internal/core/ports/driven"
)

// Ensure UsageStore implements the interface.
var _ driven.UsageStore = (*UsageStore)(nil)

// UsageStore implements driven.UsageStore using PostgreSQL. Usage is
// bucketed into hour windows aligned to the wall clock, one row per
// (user, provider, endpoint, window).
type UsageStore struct {
	db *sql.DB
	// now is swappable in tests.
	now func() time.Time
}

// NewUsageStore creates a new PostgreSQL-backed usage store.
func NewUsageStore(db *sql.DB) *UsageStore {
	return &UsageStore{db: db, now: time.Now}
}

// windowStart truncates t to the containing hour window.
func windowStart(t time.Time) time.Time {
	return t.UTC().Truncate(time.Hour)
}

// Allow reports whether the user is under the hourly limit for the provider.
func (s *UsageStore) Allow(ctx context.Context, userID string, provider domain.Provider, limit int) (bool, int, error) {
	query := `
		SELECT COALESCE(SUM(request_count), 0)
		FROM api_usage
		WHERE user_id = $1 AND provider = $2 AND window_start = $3
	`

	var used int
	err := s.db.QueryRowContext(ctx, query, userID, string(provider), windowStart(s.now())).Scan(&used)
	if err != nil {
		return false, 0, fmt.Errorf("count usage: %w", err)
	}

	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}
	return used < limit, remaining, nil
}

// Record increments the request counter for the current hour window.
func (s *UsageStore) Record(ctx context.Context, userID string, provider domain.Provider, endpoint string) error {
	start := windowStart(s.now())

	query := `
		INSERT INTO api_usage (user_id, provider, endpoint, request_count, window_start, window_end)
		VALUES ($1, $2, $3, 1, $4, $5)
		ON CONFLICT (user_id, provider, endpoint, window_start) DO UPDATE SET
			request_count = api_usage.request_count + 1
	`

	_, err := s.db.ExecContext(ctx, query,
		userID,
		string(provider),
		endpoint,
		start,
		start.Add(time.Hour),
	)
	if err != nil {
		return fmt.Errorf("record usage: %w", err)
	}

	return nil
}

// Cleanup deletes windows that ended before the retention cutoff.
func (s *UsageStore) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := s.now().Add(-olderThan)

	result, err := s.db.ExecContext(ctx, `DELETE FROM api_usage WHERE window_end < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup usage: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("cleanup usage: %w", err)
	}

	return deleted, nil
}
