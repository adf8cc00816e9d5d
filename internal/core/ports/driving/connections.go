package driving

import (
	"context"
	"time"

	"github.com/storesight-labs/storesight-core/internal/core/domain"
)

// ConnectionService serves read-only connection projections to the UI.
// It never triggers side effects such as implicit refresh.
type ConnectionService interface {
	// Status reports the connection state for one provider. A missing
	// connection yields Connected=false, not an error.
	Status(ctx context.Context, userID, provider string) (*domain.ConnectionStatus, error)

	// List returns summaries of every active connection for the user.
	List(ctx context.Context, userID string) ([]*ConnectionSummary, error)
}

// ConnectionSummary is a sanitized connection listing entry; it never
// carries token material.
type ConnectionSummary struct {
	Provider     domain.Provider `json:"provider"`
	DisplayName  string          `json:"displayName"`
	ShopDomain   string          `json:"shopDomain,omitempty"`
	ConnectedAt  time.Time       `json:"connectedAt"`
	LastSyncedAt time.Time       `json:"lastSyncedAt"`
	IsExpired    bool            `json:"isExpired"`
}

// ProviderInfo describes a supported provider for the UI connect dialog.
type ProviderInfo struct {
	Name               domain.Provider `json:"name"`
	DisplayName        string          `json:"displayName"`
	RequiresShopDomain bool            `json:"requiresShopDomain"`
	TokensExpire       bool            `json:"tokensExpire"`
}
