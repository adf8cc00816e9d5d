package driven

import (
	"context"
	"time"

	"github.com/storesight-labs/storesight-core/internal/core/domain"
)

// UsageStore tracks per-user vendor API usage in hour windows. It guards
// vendor token-endpoint calls (exchange and refresh).
type UsageStore interface {
	// Allow reports whether the user is under the hourly limit for the
	// provider, and how many requests remain in the current window.
	Allow(ctx context.Context, userID string, provider domain.Provider, limit int) (allowed bool, remaining int, err error)

	// Record increments the request counter for the current hour window.
	Record(ctx context.Context, userID string, provider domain.Provider, endpoint string) error

	// Cleanup deletes windows older than the retention period.
	Cleanup(ctx context.Context, olderThan time.Duration) (int64, error)
}
