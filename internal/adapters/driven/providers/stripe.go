package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/storesight-labs/storesight-core/internal/core/domain"
)

// Ensure Stripe implements the interface.
var _ Strategy = (*Stripe)(nil)

// Stripe implements Stripe Connect OAuth for Standard accounts. The exchange
// yields stripe_user_id, the connected account id, which is stored in the
// access token slot: every later Stripe call combines it with the platform
// secret key via the Stripe-Account header. There is no refresh flow.
type Stripe struct {
	cfg        Config
	httpClient *http.Client

	// Endpoint overrides for tests.
	authorizeURL   string
	tokenURL       string
	deauthorizeURL string
	accountURL     string
}

// NewStripe creates the Stripe strategy.
func NewStripe(cfg Config) *Stripe {
	return &Stripe{
		cfg:            cfg,
		httpClient:     newHTTPClient(),
		authorizeURL:   "https://connect.stripe.com/oauth/authorize",
		tokenURL:       "https://connect.stripe.com/oauth/token",
		deauthorizeURL: "https://connect.stripe.com/oauth/deauthorize",
		accountURL:     "https://api.stripe.com/v1/account",
	}
}

// Provider returns domain.ProviderStripe.
func (s *Stripe) Provider() domain.Provider {
	return domain.ProviderStripe
}

// AuthorizationURL builds the Connect authorize URL. stripe_landing=login
// sends returning merchants to the login form instead of signup.
func (s *Stripe) AuthorizationURL(state string, extra map[string]string) (string, error) {
	params := url.Values{
		"client_id":      {s.cfg.ClientID},
		"scope":          {strings.Join(s.cfg.Scopes, " ")},
		"redirect_uri":   {s.cfg.RedirectURI},
		"state":          {state},
		"response_type":  {"code"},
		"stripe_landing": {"login"},
	}
	return s.authorizeURL + "?" + params.Encode(), nil
}

// ExchangeCode posts the authorization code to the Connect token endpoint,
// authenticated with the platform secret key.
func (s *Stripe) ExchangeCode(ctx context.Context, code string, extra map[string]string) (*domain.TokenSet, error) {
	params := url.Values{
		"grant_type": {"authorization_code"},
		"code":       {code},
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.tokenURL, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(s.cfg.ClientSecret, "")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &domain.TokenExchangeError{
			Provider:   domain.ProviderStripe,
			StatusCode: resp.StatusCode,
			Body:       drainBody(resp.Body),
		}
	}

	var tokenResp struct {
		StripeUserID string `json:"stripe_user_id"`
		TokenType    string `json:"token_type"`
		Scope        string `json:"scope"`
		Livemode     bool   `json:"livemode"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if tokenResp.StripeUserID == "" {
		return nil, fmt.Errorf("missing stripe_user_id in token response")
	}

	tokenType := tokenResp.TokenType
	if tokenType == "" {
		tokenType = "bearer"
	}

	return &domain.TokenSet{
		AccessToken: tokenResp.StripeUserID,
		TokenType:   tokenType,
		Scope:       tokenResp.Scope,
		Metadata: domain.Metadata{
			"stripe_user_id": tokenResp.StripeUserID,
			"scope":          tokenResp.Scope,
			"livemode":       tokenResp.Livemode,
		},
	}, nil
}

// Refresh is unsupported: Standard account grants don't expire.
func (s *Stripe) Refresh(ctx context.Context, refreshToken string) (*domain.TokenSet, error) {
	return nil, domain.ErrRefreshUnsupported
}

// Validate retrieves the connected account with the Stripe-Account header.
// A deauthorized account comes back 401/403.
func (s *Stripe) Validate(ctx context.Context, accessToken, shopDomain string) bool {
	req, err := http.NewRequestWithContext(ctx, "GET", s.accountURL, nil)
	if err != nil {
		return false
	}
	req.SetBasicAuth(s.cfg.ClientSecret, "")
	req.Header.Set("Stripe-Account", accessToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// Revoke deauthorizes the connected account from the platform.
func (s *Stripe) Revoke(ctx context.Context, accessToken string) error {
	params := url.Values{
		"client_id":      {s.cfg.ClientID},
		"stripe_user_id": {accessToken},
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.deauthorizeURL, strings.NewReader(params.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(s.cfg.ClientSecret, "")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("deauthorize failed: status %d: %s", resp.StatusCode, drainBody(resp.Body))
	}

	return nil
}
