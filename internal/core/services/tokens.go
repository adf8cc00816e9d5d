package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/storesight-labs/storesight-core/internal/core/domain"
	"github.com/storesight-labs/storesight-core/internal/core/ports/driven"
	"github.com/storesight-labs/storesight-core/internal/core/ports/driving"
)

// Ensure tokenService implements TokenService
var _ driving.TokenService = (*tokenService)(nil)

// TokenServiceConfig holds configuration for the token service.
type TokenServiceConfig struct {
	Connections driven.ConnectionStore
	Usage       driven.UsageStore
	Cipher      driven.SecretCipher
	Factory     StrategyFactory

	// HourlyLimit overrides DefaultHourlyLimit when positive.
	HourlyLimit int

	Logger *slog.Logger
}

// tokenService hands out plaintext access tokens, refreshing through the
// provider strategy when a stored token nears expiry.
type tokenService struct {
	connections driven.ConnectionStore
	usage       driven.UsageStore
	cipher      driven.SecretCipher
	factory     StrategyFactory
	hourlyLimit int
	logger      *slog.Logger
}

// NewTokenService creates a new token service.
func NewTokenService(cfg TokenServiceConfig) driving.TokenService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	limit := cfg.HourlyLimit
	if limit <= 0 {
		limit = DefaultHourlyLimit
	}

	return &tokenService{
		connections: cfg.Connections,
		usage:       cfg.Usage,
		cipher:      cfg.Cipher,
		factory:     cfg.Factory,
		hourlyLimit: limit,
		logger:      logger,
	}
}

// GetValidAccessToken returns a decrypted access token, refreshing first
// when the stored one is inside the expiry buffer. A failed refresh
// deactivates the connection: serving a token known to be dying soon would
// just move the failure to the caller's next vendor call.
func (s *tokenService) GetValidAccessToken(ctx context.Context, userID, providerName string) (string, error) {
	provider, err := domain.ParseProvider(providerName)
	if err != nil {
		return "", err
	}

	conn, err := s.connections.GetActive(ctx, userID, provider)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", domain.ErrNotConnected
		}
		return "", fmt.Errorf("get connection: %w", err)
	}

	if !conn.ExpiringSoon() {
		return s.cipher.DecryptString(conn.AccessToken)
	}

	return s.refresh(ctx, conn)
}

// refresh runs the provider's refresh grant and persists the new tokens.
func (s *tokenService) refresh(ctx context.Context, conn *domain.Connection) (string, error) {
	provider := conn.Provider

	if conn.RefreshToken == "" {
		s.logger.Warn("token refresh: no refresh token stored", "provider", provider, "user_id", conn.UserID)
		return "", s.deactivate(ctx, conn, domain.ErrNoRefreshToken)
	}

	strategy, err := s.factory.Create(provider)
	if err != nil {
		return "", fmt.Errorf("create strategy: %w", err)
	}

	refreshToken, err := s.cipher.DecryptString(conn.RefreshToken)
	if err != nil {
		s.logger.Error("token refresh: decrypt refresh token", "provider", provider, "error", err)
		return "", s.deactivate(ctx, conn, err)
	}

	// Refresh spends the same hourly vendor budget as the exchange.
	allowed, _, err := s.usage.Allow(ctx, conn.UserID, provider, s.hourlyLimit)
	if err != nil {
		s.logger.Error("token refresh: usage check", "provider", provider, "error", err)
	} else if !allowed {
		// Transient: the connection stays active, the caller retries later.
		return "", domain.ErrRateLimited
	}

	tokens, err := strategy.Refresh(ctx, refreshToken)
	if recErr := s.usage.Record(ctx, conn.UserID, provider, "token_refresh"); recErr != nil {
		s.logger.Error("token refresh: record usage", "provider", provider, "error", recErr)
	}
	if err != nil {
		// ErrRefreshUnsupported lands here too: a non-expiring provider
		// with an expiry on file cannot be refreshed, so the connection
		// is treated like any other failed refresh and the user reconnects.
		s.logger.Error("token refresh failed", "provider", provider, "user_id", conn.UserID, "error", err)
		return "", s.deactivate(ctx, conn, err)
	}

	encryptedAccess, err := s.cipher.EncryptString(tokens.AccessToken)
	if err != nil {
		return "", fmt.Errorf("encrypt access token: %w", err)
	}

	// Vendors may omit the refresh token on rotation; keep the old one.
	encryptedRefresh := conn.RefreshToken
	if tokens.RefreshToken != "" {
		encryptedRefresh, err = s.cipher.EncryptString(tokens.RefreshToken)
		if err != nil {
			return "", fmt.Errorf("encrypt refresh token: %w", err)
		}
	}

	metadata := domain.Metadata{}
	for k, v := range conn.Metadata {
		metadata[k] = v
	}
	for k, v := range tokens.Metadata {
		metadata[k] = v
	}
	metadata["last_refreshed"] = time.Now().UTC().Format(time.RFC3339)

	_, err = s.connections.Upsert(ctx, conn.UserID, provider, driven.ConnectionUpsert{
		AccessToken:    encryptedAccess,
		RefreshToken:   encryptedRefresh,
		ShopDomain:     conn.ShopDomain,
		TokenExpiresAt: tokens.ExpiresAt(time.Now()),
		Metadata:       metadata,
	})
	if err != nil {
		return "", fmt.Errorf("store refreshed tokens: %w", err)
	}

	s.logger.Info("token refreshed", "provider", provider, "user_id", conn.UserID)
	return tokens.AccessToken, nil
}

// deactivate soft-deletes the connection and returns ErrRefreshFailed
// wrapping the cause. Terminal: the user must reconnect.
func (s *tokenService) deactivate(ctx context.Context, conn *domain.Connection, cause error) error {
	if err := s.connections.Disconnect(ctx, conn.UserID, conn.Provider); err != nil {
		s.logger.Error("token refresh: deactivate connection",
			"provider", conn.Provider, "user_id", conn.UserID, "error", err)
	}
	return fmt.Errorf("%w: %v", domain.ErrRefreshFailed, cause)
}

// Validate best-effort checks the stored token against the vendor.
func (s *tokenService) Validate(ctx context.Context, userID, providerName string) bool {
	provider, err := domain.ParseProvider(providerName)
	if err != nil {
		return false
	}

	conn, err := s.connections.GetActive(ctx, userID, provider)
	if err != nil {
		return false
	}

	accessToken, err := s.cipher.DecryptString(conn.AccessToken)
	if err != nil {
		return false
	}

	strategy, err := s.factory.Create(provider)
	if err != nil {
		return false
	}

	return strategy.Validate(ctx, accessToken, conn.ShopDomain)
}
