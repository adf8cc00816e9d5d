// Package providers implements the per-platform OAuth dialects. Each
// strategy translates one vendor's quirks into the shared TokenSet shape:
// Shopify's per-shop URLs and JSON exchange, Stripe Connect's account-id
// tokens, Amazon LWA's refresh flow, WooCommerce's per-store endpoints.
package providers

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/storesight-labs/storesight-core/internal/core/domain"
)

// Strategy is one provider's OAuth dialect. All strategies are stateless
// and safe for concurrent use.
type Strategy interface {
	// Provider returns the platform this strategy serves.
	Provider() domain.Provider

	// AuthorizationURL builds the vendor authorize URL embedding the CSRF
	// state. Extra carries provider-specific inputs; strategies that need a
	// shop domain return domain.ErrMissingShopDomain or
	// domain.ErrInvalidShopDomain when it is absent or malformed.
	AuthorizationURL(state string, extra map[string]string) (string, error)

	// ExchangeCode trades the authorization code for tokens. A non-2xx
	// vendor response surfaces as *domain.TokenExchangeError.
	ExchangeCode(ctx context.Context, code string, extra map[string]string) (*domain.TokenSet, error)

	// Refresh obtains a new token set from a refresh token. Strategies for
	// non-expiring tokens return domain.ErrRefreshUnsupported.
	Refresh(ctx context.Context, refreshToken string) (*domain.TokenSet, error)

	// Validate best-effort checks a plaintext access token against the
	// vendor. Never returns an error; unknown means false.
	Validate(ctx context.Context, accessToken, shopDomain string) bool

	// Revoke tells the vendor to forget the grant. Providers without a
	// revocation endpoint treat this as a no-op.
	Revoke(ctx context.Context, accessToken string) error
}

// Config carries one provider's OAuth application settings.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scopes       []string
}

// configured reports whether the OAuth application credentials are present.
func (c Config) configured() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// newHTTPClient returns the client used for vendor token endpoints.
func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}

// drainBody reads at most 4KB of a vendor error body for diagnostics.
func drainBody(r io.Reader) string {
	body, _ := io.ReadAll(io.LimitReader(r, 4096))
	return string(body)
}
