package providers

import (
	"fmt"

	"github.com/storesight-labs/storesight-core/internal/core/domain"
)

// FactoryConfig carries the OAuth application settings for every provider.
// Missing credentials are tolerated at construction and rejected at
// strategy creation time, so one unconfigured platform doesn't take the
// whole service down.
type FactoryConfig struct {
	// AppURL is the public base URL of the dashboard; callback URIs are
	// derived from it as {AppURL}/api/v1/oauth/callback/{provider}.
	AppURL string

	Shopify     Credentials
	Stripe      Credentials
	Amazon      Credentials
	WooCommerce Credentials
}

// Credentials is one provider's OAuth application id and secret.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

// Factory builds provider strategies from configuration. The provider set
// is closed: the switch in Create is exhaustive over domain.AllProviders.
type Factory struct {
	cfg FactoryConfig
}

// NewFactory creates a strategy factory.
func NewFactory(cfg FactoryConfig) *Factory {
	return &Factory{cfg: cfg}
}

// redirectURI derives the provider's callback URI from the app URL.
func (f *Factory) redirectURI(p domain.Provider) string {
	return fmt.Sprintf("%s/api/v1/oauth/callback/%s", f.cfg.AppURL, p)
}

// config assembles the full strategy config for a provider.
func (f *Factory) config(p domain.Provider, creds Credentials, scopes []string) Config {
	return Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURI:  f.redirectURI(p),
		Scopes:       scopes,
	}
}

// Create returns the strategy for a provider, or ErrUnsupportedProvider for
// a name outside the closed set, or ErrMissingCredentials when the
// provider's OAuth application is not configured.
func (f *Factory) Create(p domain.Provider) (Strategy, error) {
	var cfg Config
	var strategy Strategy

	switch p {
	case domain.ProviderShopify:
		cfg = f.config(p, f.cfg.Shopify, []string{"read_products", "read_orders", "read_customers", "read_analytics"})
		strategy = NewShopify(cfg)
	case domain.ProviderStripe:
		cfg = f.config(p, f.cfg.Stripe, []string{"read_write"})
		strategy = NewStripe(cfg)
	case domain.ProviderAmazon:
		cfg = f.config(p, f.cfg.Amazon, []string{"profile", "postal_code"})
		strategy = NewAmazon(cfg)
	case domain.ProviderWooCommerce:
		cfg = f.config(p, f.cfg.WooCommerce, []string{"read", "write"})
		strategy = NewWooCommerce(cfg)
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedProvider, p)
	}

	if !cfg.configured() {
		return nil, fmt.Errorf("%w: %s", domain.ErrMissingCredentials, p)
	}

	return strategy, nil
}
