package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/storesight-labs/storesight-core/internal/core/domain"
)

// Ensure Shopify implements the interface.
var _ Strategy = (*Shopify)(nil)

// shopDomainPattern matches well-formed myshopify.com store domains. The
// shop value lands in a URL host, so anything else is rejected outright.
var shopDomainPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9-]*\.myshopify\.com$`)

// Shopify implements the Shopify OAuth dialect. Authorize and token URLs
// live on the merchant's own shop domain; the exchange is JSON, not form
// encoded; tokens never expire.
type Shopify struct {
	cfg        Config
	httpClient *http.Client

	// shopBaseURL overrides the per-shop scheme+host in tests.
	shopBaseURL func(shop string) string
}

// NewShopify creates the Shopify strategy.
func NewShopify(cfg Config) *Shopify {
	return &Shopify{
		cfg:        cfg,
		httpClient: newHTTPClient(),
		shopBaseURL: func(shop string) string {
			return "https://" + shop
		},
	}
}

// Provider returns domain.ProviderShopify.
func (s *Shopify) Provider() domain.Provider {
	return domain.ProviderShopify
}

// shopFrom extracts and validates the shop domain from extra params.
func shopFrom(extra map[string]string) (string, error) {
	shop := strings.TrimSpace(extra["shop"])
	if shop == "" {
		return "", domain.ErrMissingShopDomain
	}
	if !shopDomainPattern.MatchString(shop) {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidShopDomain, shop)
	}
	return shop, nil
}

// AuthorizationURL builds https://{shop}/admin/oauth/authorize with the
// client id, comma-joined scopes, redirect URI and state.
func (s *Shopify) AuthorizationURL(state string, extra map[string]string) (string, error) {
	shop, err := shopFrom(extra)
	if err != nil {
		return "", err
	}

	params := url.Values{
		"client_id":     {s.cfg.ClientID},
		"scope":         {strings.Join(s.cfg.Scopes, ",")},
		"redirect_uri":  {s.cfg.RedirectURI},
		"state":         {state},
		"response_type": {"code"},
	}
	return s.shopBaseURL(shop) + "/admin/oauth/authorize?" + params.Encode(), nil
}

// ExchangeCode posts JSON to https://{shop}/admin/oauth/access_token.
func (s *Shopify) ExchangeCode(ctx context.Context, code string, extra map[string]string) (*domain.TokenSet, error) {
	shop, err := shopFrom(extra)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(map[string]string{
		"client_id":     s.cfg.ClientID,
		"client_secret": s.cfg.ClientSecret,
		"code":          code,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST",
		s.shopBaseURL(shop)+"/admin/oauth/access_token",
		bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &domain.TokenExchangeError{
			Provider:   domain.ProviderShopify,
			StatusCode: resp.StatusCode,
			Body:       drainBody(resp.Body),
		}
	}

	var tokenResp struct {
		AccessToken         string `json:"access_token"`
		Scope               string `json:"scope"`
		AssociatedUser      any    `json:"associated_user"`
		AssociatedUserScope string `json:"associated_user_scope"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	metadata := domain.Metadata{
		"scope": tokenResp.Scope,
		"shop":  shop,
	}
	if tokenResp.AssociatedUser != nil {
		metadata["associated_user"] = tokenResp.AssociatedUser
	}
	if tokenResp.AssociatedUserScope != "" {
		metadata["associated_user_scope"] = tokenResp.AssociatedUserScope
	}

	return &domain.TokenSet{
		AccessToken: tokenResp.AccessToken,
		TokenType:   "Bearer",
		Scope:       tokenResp.Scope,
		Metadata:    metadata,
	}, nil
}

// Refresh is unsupported: Shopify admin tokens never expire.
func (s *Shopify) Refresh(ctx context.Context, refreshToken string) (*domain.TokenSet, error) {
	return nil, domain.ErrRefreshUnsupported
}

// Validate calls the shop.json endpoint with the token. Requires the shop
// domain; without it the token cannot be checked.
func (s *Shopify) Validate(ctx context.Context, accessToken, shopDomain string) bool {
	if shopDomain == "" {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, "GET",
		s.shopBaseURL(shopDomain)+"/admin/api/2024-01/shop.json", nil)
	if err != nil {
		return false
	}
	req.Header.Set("X-Shopify-Access-Token", accessToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// Revoke is a no-op: Shopify has no revocation endpoint. The grant dies
// when the merchant uninstalls the app from their admin.
func (s *Shopify) Revoke(ctx context.Context, accessToken string) error {
	return nil
}
