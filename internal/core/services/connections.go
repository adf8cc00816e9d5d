package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/storesight-labs/storesight-core/internal/core/domain"
	"github.com/storesight-labs/storesight-core/internal/core/ports/driven"
	"github.com/storesight-labs/storesight-core/internal/core/ports/driving"
)

// Ensure connectionService implements ConnectionService
var _ driving.ConnectionService = (*connectionService)(nil)

// connectionService serves read-only connection projections. No refresh,
// no decryption: status reads must never mutate anything.
type connectionService struct {
	connections driven.ConnectionStore
}

// NewConnectionService creates a new connection service.
func NewConnectionService(connections driven.ConnectionStore) driving.ConnectionService {
	return &connectionService{connections: connections}
}

// Status reports the connection state for one provider. Missing and
// soft-deleted connections both come back as Connected=false.
func (s *connectionService) Status(ctx context.Context, userID, providerName string) (*domain.ConnectionStatus, error) {
	provider, err := domain.ParseProvider(providerName)
	if err != nil {
		return nil, err
	}

	conn, err := s.connections.GetActive(ctx, userID, provider)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return &domain.ConnectionStatus{
				Connected: false,
				Provider:  provider,
			}, nil
		}
		return nil, fmt.Errorf("get connection: %w", err)
	}

	status := conn.Status()
	return &status, nil
}

// List returns sanitized summaries of every active connection.
func (s *connectionService) List(ctx context.Context, userID string) ([]*driving.ConnectionSummary, error) {
	conns, err := s.connections.ListActive(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}

	summaries := make([]*driving.ConnectionSummary, 0, len(conns))
	for _, conn := range conns {
		summaries = append(summaries, &driving.ConnectionSummary{
			Provider:     conn.Provider,
			DisplayName:  conn.Provider.DisplayName(),
			ShopDomain:   conn.ShopDomain,
			ConnectedAt:  conn.ConnectedAt,
			LastSyncedAt: conn.LastSyncedAt,
			IsExpired:    conn.IsExpired(),
		})
	}
	return summaries, nil
}

// SupportedProviders describes the closed provider set for the UI.
func SupportedProviders() []driving.ProviderInfo {
	all := domain.AllProviders()
	infos := make([]driving.ProviderInfo, 0, len(all))
	for _, p := range all {
		infos = append(infos, driving.ProviderInfo{
			Name:               p,
			DisplayName:        p.DisplayName(),
			RequiresShopDomain: p.RequiresShopDomain(),
			TokensExpire:       p.TokensExpire(),
		})
	}
	return infos
}
