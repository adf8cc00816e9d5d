package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/storesight-labs/storesight-core/internal/adapters/driven/providers"
	"github.com/storesight-labs/storesight-core/internal/core/domain"
	"github.com/storesight-labs/storesight-core/internal/core/ports/driven"
	"github.com/storesight-labs/storesight-core/internal/core/ports/driving"
)

// Ensure oauthService implements OAuthService
var _ driving.OAuthService = (*oauthService)(nil)

// DefaultHourlyLimit caps vendor token-endpoint calls per user, provider
// and hour window.
const DefaultHourlyLimit = 100

// StrategyFactory builds provider strategies. Satisfied by
// *providers.Factory; narrowed to an interface for testing.
type StrategyFactory interface {
	Create(p domain.Provider) (providers.Strategy, error)
}

// OAuthServiceConfig holds configuration for the OAuth service.
type OAuthServiceConfig struct {
	// Connections persists tool connections.
	Connections driven.ConnectionStore

	// States manages CSRF states for pending flows.
	States driven.OAuthStateStore

	// Usage rate-limits vendor token-endpoint calls.
	Usage driven.UsageStore

	// Cipher encrypts tokens before they reach the store.
	Cipher driven.SecretCipher

	// Factory provides provider strategies.
	Factory StrategyFactory

	// AppURL is the dashboard base URL all redirects point back to.
	// Example: "https://app.example.com" or "http://localhost:3000"
	AppURL string

	// HourlyLimit overrides DefaultHourlyLimit when positive.
	HourlyLimit int

	Logger *slog.Logger
}

// oauthService implements the OAuthService interface.
type oauthService struct {
	connections driven.ConnectionStore
	states      driven.OAuthStateStore
	usage       driven.UsageStore
	cipher      driven.SecretCipher
	factory     StrategyFactory
	appURL      string
	hourlyLimit int
	logger      *slog.Logger
}

// NewOAuthService creates a new OAuth service.
func NewOAuthService(cfg OAuthServiceConfig) driving.OAuthService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	limit := cfg.HourlyLimit
	if limit <= 0 {
		limit = DefaultHourlyLimit
	}

	return &oauthService{
		connections: cfg.Connections,
		states:      cfg.States,
		usage:       cfg.Usage,
		cipher:      cfg.Cipher,
		factory:     cfg.Factory,
		appURL:      cfg.AppURL,
		hourlyLimit: limit,
		logger:      logger,
	}
}

// Initiate starts an authorization flow. The result is always a redirect
// URL: the vendor authorize endpoint on success, a dashboard error redirect
// on any failure.
func (s *oauthService) Initiate(ctx context.Context, req driving.InitiateRequest) string {
	provider, err := domain.ParseProvider(req.Provider)
	if err != nil {
		s.logger.Warn("oauth initiate: unsupported provider", "provider", req.Provider, "user_id", req.UserID)
		return s.errorRedirect(driving.ReasonInvalidProvider, "")
	}

	// Providers embedding a merchant domain in their authorize URL need it
	// up front; the error redirect targets the provider's own dashboard
	// page so the UI can prompt for the store.
	if provider.RequiresShopDomain() && req.Extra["shop"] == "" {
		return s.providerPageRedirect(provider, driving.ReasonMissingShop)
	}

	strategy, err := s.factory.Create(provider)
	if err != nil {
		s.logger.Error("oauth initiate: strategy unavailable", "provider", provider, "error", err)
		if errors.Is(err, domain.ErrMissingCredentials) {
			return s.errorRedirect(driving.ReasonMissingConfig, "")
		}
		return s.errorRedirect(driving.ReasonInvalidProvider, "")
	}

	state, err := generateState()
	if err != nil {
		s.logger.Error("oauth initiate: generate state", "error", err)
		return s.errorRedirect(driving.ReasonInitFailed, "")
	}

	now := time.Now()
	oauthState := &domain.OAuthState{
		UserID:    req.UserID,
		Provider:  provider,
		State:     state,
		CreatedAt: now,
		ExpiresAt: now.Add(domain.StateTTL),
	}
	if err := s.states.Save(ctx, oauthState); err != nil {
		s.logger.Error("oauth initiate: save state", "provider", provider, "error", err)
		return s.errorRedirect(driving.ReasonInitFailed, "")
	}

	authURL, err := strategy.AuthorizationURL(state, req.Extra)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrMissingShopDomain):
			return s.providerPageRedirect(provider, driving.ReasonMissingShop)
		case errors.Is(err, domain.ErrInvalidShopDomain):
			s.logger.Warn("oauth initiate: invalid shop domain", "provider", provider, "error", err)
			return s.providerPageRedirect(provider, driving.ReasonInvalidShop)
		default:
			s.logger.Error("oauth initiate: build authorize url", "provider", provider, "error", err)
			return s.errorRedirect(driving.ReasonInitFailed, "")
		}
	}

	s.logger.Info("oauth flow initiated", "provider", provider, "user_id", req.UserID)
	return authURL
}

// Callback completes the flow: consume the CSRF state, exchange the code,
// encrypt and store the tokens. Always returns a redirect URL.
func (s *oauthService) Callback(ctx context.Context, req driving.CallbackRequest) string {
	provider, err := domain.ParseProvider(req.Provider)
	if err != nil {
		s.logger.Warn("oauth callback: unsupported provider", "provider", req.Provider)
		return s.errorRedirect(driving.ReasonInvalidProvider, "")
	}

	// Vendor-reported failures (e.g. the merchant clicked deny) skip state
	// consumption: the flow may be retried and the state is still fresh.
	if req.Error != "" {
		s.logger.Warn("oauth callback: vendor error", "provider", provider, "error", req.Error)
		return s.errorRedirect("oauth_"+req.Error, "")
	}

	if req.Code == "" || req.State == "" {
		return s.errorRedirect(driving.ReasonMissingParams, "")
	}

	storedState, err := s.states.Consume(ctx, req.State, req.UserID)
	if err != nil {
		// Replayed, expired, forged or cross-user state. ErrNotFound covers
		// them all deliberately; the redirect reveals nothing more.
		s.logger.Warn("oauth callback: state rejected", "provider", provider, "user_id", req.UserID)
		return s.errorRedirect(driving.ReasonInvalidState, "")
	}

	if storedState.Provider != provider {
		s.logger.Warn("oauth callback: provider mismatch",
			"expected", storedState.Provider, "got", provider, "user_id", req.UserID)
		return s.errorRedirect(driving.ReasonProviderMismatch, "")
	}

	strategy, err := s.factory.Create(provider)
	if err != nil {
		s.logger.Error("oauth callback: strategy unavailable", "provider", provider, "error", err)
		if errors.Is(err, domain.ErrMissingCredentials) {
			return s.errorRedirect(driving.ReasonMissingConfig, "")
		}
		return s.errorRedirect(driving.ReasonInvalidProvider, "")
	}

	allowed, _, err := s.usage.Allow(ctx, req.UserID, provider, s.hourlyLimit)
	if err != nil {
		s.logger.Error("oauth callback: usage check", "provider", provider, "error", err)
	} else if !allowed {
		s.logger.Warn("oauth callback: rate limited", "provider", provider, "user_id", req.UserID)
		return s.errorRedirect(driving.ReasonRateLimited, string(provider))
	}

	tokens, err := strategy.ExchangeCode(ctx, req.Code, req.Extra)
	if recErr := s.usage.Record(ctx, req.UserID, provider, "token_exchange"); recErr != nil {
		s.logger.Error("oauth callback: record usage", "provider", provider, "error", recErr)
	}
	if err != nil {
		// The vendor error body stays in the logs; the redirect carries
		// only the generic reason.
		s.logger.Error("oauth callback: token exchange failed", "provider", provider, "error", err)
		return s.errorRedirect(driving.ReasonConnectionFailed, string(provider))
	}

	if tokens.AccessToken == "" {
		s.logger.Error("oauth callback: empty access token", "provider", provider)
		return s.errorRedirect(driving.ReasonNoAccessToken, "")
	}

	encryptedAccess, err := s.cipher.EncryptString(tokens.AccessToken)
	if err != nil {
		s.logger.Error("oauth callback: encrypt access token", "provider", provider, "error", err)
		return s.errorRedirect(driving.ReasonConnectionFailed, string(provider))
	}

	var encryptedRefresh string
	if tokens.RefreshToken != "" {
		encryptedRefresh, err = s.cipher.EncryptString(tokens.RefreshToken)
		if err != nil {
			s.logger.Error("oauth callback: encrypt refresh token", "provider", provider, "error", err)
			return s.errorRedirect(driving.ReasonConnectionFailed, string(provider))
		}
	}

	metadata := domain.Metadata{}
	for k, v := range tokens.Metadata {
		metadata[k] = v
	}
	if tokens.TokenType != "" {
		metadata["token_type"] = tokens.TokenType
	} else {
		metadata["token_type"] = "Bearer"
	}
	metadata["connected_at"] = time.Now().UTC().Format(time.RFC3339)

	shop := req.Extra["shop"]
	_, err = s.connections.Upsert(ctx, req.UserID, provider, driven.ConnectionUpsert{
		AccessToken:    encryptedAccess,
		RefreshToken:   encryptedRefresh,
		ShopDomain:     shop,
		TokenExpiresAt: tokens.ExpiresAt(time.Now()),
		Metadata:       metadata,
	})
	if err != nil {
		s.logger.Error("oauth callback: store connection", "provider", provider, "error", err)
		return s.errorRedirect(driving.ReasonConnectionFailed, string(provider))
	}

	s.logger.Info("provider connected", "provider", provider, "user_id", req.UserID)
	return s.successRedirect(provider, shop)
}

// Disconnect soft-deletes the connection, telling the vendor first on a
// best-effort basis. Idempotent: disconnecting a missing connection is fine.
func (s *oauthService) Disconnect(ctx context.Context, userID, providerName string) error {
	provider, err := domain.ParseProvider(providerName)
	if err != nil {
		return err
	}

	conn, err := s.connections.GetActive(ctx, userID, provider)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("get connection: %w", err)
	}

	// Revocation is courtesy, not correctness: the row is deactivated even
	// when the vendor call fails.
	if strategy, err := s.factory.Create(provider); err == nil {
		if accessToken, err := s.cipher.DecryptString(conn.AccessToken); err == nil {
			if err := strategy.Revoke(ctx, accessToken); err != nil {
				s.logger.Warn("disconnect: revoke failed", "provider", provider, "error", err)
			}
		}
	}

	if err := s.connections.Disconnect(ctx, userID, provider); err != nil {
		return fmt.Errorf("disconnect: %w", err)
	}

	s.logger.Info("provider disconnected", "provider", provider, "user_id", userID)
	return nil
}

// generateState returns a 64-char hex CSRF token (32 random bytes).
func generateState() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// errorRedirect builds {appURL}/dashboard?error={reason}[&provider={p}].
func (s *oauthService) errorRedirect(reason, provider string) string {
	params := url.Values{"error": {reason}}
	if provider != "" {
		params.Set("provider", provider)
	}
	return s.appURL + "/dashboard?" + params.Encode()
}

// providerPageRedirect builds {appURL}/dashboard/{provider}?error={reason}.
func (s *oauthService) providerPageRedirect(provider domain.Provider, reason string) string {
	return fmt.Sprintf("%s/dashboard/%s?error=%s", s.appURL, provider, reason)
}

// successRedirect builds {appURL}/dashboard/{provider}?connected=true[&shop=].
func (s *oauthService) successRedirect(provider domain.Provider, shop string) string {
	params := url.Values{"connected": {"true"}}
	if shop != "" {
		params.Set("shop", shop)
	}
	return fmt.Sprintf("%s/dashboard/%s?%s", s.appURL, provider, params.Encode())
}
