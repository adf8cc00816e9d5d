package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/storesight-labs/storesight-core/internal/core/domain"
)

// Ensure WooCommerce implements the interface.
var _ Strategy = (*WooCommerce)(nil)

// wooShopPattern matches a bare store hostname, optionally with a port.
// WooCommerce stores live on arbitrary domains, so this only guards against
// values that could not be a hostname at all.
var wooShopPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9.-]*[a-zA-Z0-9](:[0-9]+)?$`)

// WooCommerce implements the WooCommerce OAuth dialect. Like Shopify the
// endpoints live on the merchant's own store, and tokens never expire.
type WooCommerce struct {
	cfg        Config
	httpClient *http.Client

	// shopBaseURL overrides the per-store scheme+host in tests.
	shopBaseURL func(shop string) string
}

// NewWooCommerce creates the WooCommerce strategy.
func NewWooCommerce(cfg Config) *WooCommerce {
	return &WooCommerce{
		cfg:        cfg,
		httpClient: newHTTPClient(),
		shopBaseURL: func(shop string) string {
			return "https://" + shop
		},
	}
}

// Provider returns domain.ProviderWooCommerce.
func (w *WooCommerce) Provider() domain.Provider {
	return domain.ProviderWooCommerce
}

func wooShopFrom(extra map[string]string) (string, error) {
	shop := strings.TrimSpace(extra["shop"])
	if shop == "" {
		return "", domain.ErrMissingShopDomain
	}
	if strings.Contains(shop, "/") || !wooShopPattern.MatchString(shop) {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidShopDomain, shop)
	}
	return shop, nil
}

// AuthorizationURL builds the store's authorize URL.
func (w *WooCommerce) AuthorizationURL(state string, extra map[string]string) (string, error) {
	shop, err := wooShopFrom(extra)
	if err != nil {
		return "", err
	}

	params := url.Values{
		"client_id":     {w.cfg.ClientID},
		"scope":         {strings.Join(w.cfg.Scopes, " ")},
		"redirect_uri":  {w.cfg.RedirectURI},
		"state":         {state},
		"response_type": {"code"},
	}
	return w.shopBaseURL(shop) + "/wc-auth/v1/authorize?" + params.Encode(), nil
}

// ExchangeCode posts the form-encoded grant to the store's token endpoint.
func (w *WooCommerce) ExchangeCode(ctx context.Context, code string, extra map[string]string) (*domain.TokenSet, error) {
	shop, err := wooShopFrom(extra)
	if err != nil {
		return nil, err
	}

	params := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"client_id":     {w.cfg.ClientID},
		"client_secret": {w.cfg.ClientSecret},
		"redirect_uri":  {w.cfg.RedirectURI},
	}

	req, err := http.NewRequestWithContext(ctx, "POST",
		w.shopBaseURL(shop)+"/wc-auth/v1/access_token",
		strings.NewReader(params.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &domain.TokenExchangeError{
			Provider:   domain.ProviderWooCommerce,
			StatusCode: resp.StatusCode,
			Body:       drainBody(resp.Body),
		}
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		Scope       string `json:"scope"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	scope := tokenResp.Scope
	if scope == "" {
		scope = strings.Join(w.cfg.Scopes, " ")
	}

	return &domain.TokenSet{
		AccessToken: tokenResp.AccessToken,
		TokenType:   "Bearer",
		Scope:       scope,
		Metadata: domain.Metadata{
			"scope": scope,
			"shop":  shop,
		},
	}, nil
}

// Refresh is unsupported: WooCommerce API keys don't expire.
func (w *WooCommerce) Refresh(ctx context.Context, refreshToken string) (*domain.TokenSet, error) {
	return nil, domain.ErrRefreshUnsupported
}

// Validate pings the store's REST root with the token.
func (w *WooCommerce) Validate(ctx context.Context, accessToken, shopDomain string) bool {
	if shopDomain == "" {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, "GET",
		w.shopBaseURL(shopDomain)+"/wp-json/wc/v3", nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// Revoke is a no-op: the merchant revokes API access from their store admin.
func (w *WooCommerce) Revoke(ctx context.Context, accessToken string) error {
	return nil
}
