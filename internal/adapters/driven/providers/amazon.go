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

// Ensure Amazon implements the interface.
var _ Strategy = (*Amazon)(nil)

// Amazon implements Login with Amazon. The only strategy with expiring
// tokens: exchanges return expires_in plus a refresh token, and Refresh
// runs the standard refresh_token grant.
type Amazon struct {
	cfg        Config
	httpClient *http.Client

	// Endpoint overrides for tests.
	authorizeURL string
	tokenURL     string
	profileURL   string
}

// NewAmazon creates the Amazon strategy.
func NewAmazon(cfg Config) *Amazon {
	return &Amazon{
		cfg:          cfg,
		httpClient:   newHTTPClient(),
		authorizeURL: "https://www.amazon.com/ap/oa",
		tokenURL:     "https://api.amazon.com/auth/o2/token",
		profileURL:   "https://api.amazon.com/user/profile",
	}
}

// Provider returns domain.ProviderAmazon.
func (a *Amazon) Provider() domain.Provider {
	return domain.ProviderAmazon
}

// AuthorizationURL builds the LWA authorize URL.
func (a *Amazon) AuthorizationURL(state string, extra map[string]string) (string, error) {
	params := url.Values{
		"client_id":     {a.cfg.ClientID},
		"scope":         {strings.Join(a.cfg.Scopes, " ")},
		"redirect_uri":  {a.cfg.RedirectURI},
		"state":         {state},
		"response_type": {"code"},
	}
	return a.authorizeURL + "?" + params.Encode(), nil
}

// tokenRequest runs one form-encoded grant against the LWA token endpoint.
func (a *Amazon) tokenRequest(ctx context.Context, params url.Values) (*domain.TokenSet, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", a.tokenURL, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &domain.TokenExchangeError{
			Provider:   domain.ProviderAmazon,
			StatusCode: resp.StatusCode,
			Body:       drainBody(resp.Body),
		}
	}

	var tokenResp struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		TokenType    string `json:"token_type"`
		ExpiresIn    int    `json:"expires_in"`
		Scope        string `json:"scope"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	scope := tokenResp.Scope
	if scope == "" {
		scope = strings.Join(a.cfg.Scopes, " ")
	}

	return &domain.TokenSet{
		AccessToken:  tokenResp.AccessToken,
		RefreshToken: tokenResp.RefreshToken,
		TokenType:    tokenResp.TokenType,
		ExpiresIn:    tokenResp.ExpiresIn,
		Scope:        scope,
		Metadata: domain.Metadata{
			"scope": scope,
		},
	}, nil
}

// ExchangeCode runs the authorization_code grant.
func (a *Amazon) ExchangeCode(ctx context.Context, code string, extra map[string]string) (*domain.TokenSet, error) {
	return a.tokenRequest(ctx, url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"client_id":     {a.cfg.ClientID},
		"client_secret": {a.cfg.ClientSecret},
		"redirect_uri":  {a.cfg.RedirectURI},
	})
}

// Refresh runs the refresh_token grant.
func (a *Amazon) Refresh(ctx context.Context, refreshToken string) (*domain.TokenSet, error) {
	return a.tokenRequest(ctx, url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"client_id":     {a.cfg.ClientID},
		"client_secret": {a.cfg.ClientSecret},
	})
}

// Validate fetches the LWA profile with the token.
func (a *Amazon) Validate(ctx context.Context, accessToken, shopDomain string) bool {
	req, err := http.NewRequestWithContext(ctx, "GET", a.profileURL, nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// Revoke is a no-op: LWA has no token revocation endpoint; grants are
// managed from the user's Amazon account page.
func (a *Amazon) Revoke(ctx context.Context, accessToken string) error {
	return nil
}
