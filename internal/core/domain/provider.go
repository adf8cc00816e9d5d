package domain

import (
	"fmt"
	"strings"
)

// Provider identifies an external commerce platform a user can connect.
// The set is closed: adding a platform means adding a constant here and
// extending the provider factory's switch.
type Provider string

const (
	ProviderShopify     Provider = "shopify"
	ProviderStripe      Provider = "stripe"
	ProviderAmazon      Provider = "amazon"
	ProviderWooCommerce Provider = "woocommerce"
)

// AllProviders returns every supported provider in a stable order.
func AllProviders() []Provider {
	return []Provider{ProviderShopify, ProviderStripe, ProviderAmazon, ProviderWooCommerce}
}

// ParseProvider normalizes a provider name (case-insensitive) and rejects
// unknown values with ErrUnsupportedProvider.
func ParseProvider(name string) (Provider, error) {
	switch Provider(strings.ToLower(strings.TrimSpace(name))) {
	case ProviderShopify:
		return ProviderShopify, nil
	case ProviderStripe:
		return ProviderStripe, nil
	case ProviderAmazon:
		return ProviderAmazon, nil
	case ProviderWooCommerce:
		return ProviderWooCommerce, nil
	default:
		return "", fmt.Errorf("%w: %q (supported: %s)", ErrUnsupportedProvider, name, supportedProviderNames())
	}
}

func supportedProviderNames() string {
	all := AllProviders()
	names := make([]string, len(all))
	for i, p := range all {
		names[i] = string(p)
	}
	return strings.Join(names, ", ")
}

// DisplayName returns a human-readable name for the provider.
func (p Provider) DisplayName() string {
	switch p {
	case ProviderShopify:
		return "Shopify"
	case ProviderStripe:
		return "Stripe"
	case ProviderAmazon:
		return "Amazon"
	case ProviderWooCommerce:
		return "WooCommerce"
	default:
		return string(p)
	}
}

// RequiresShopDomain reports whether the provider needs a per-merchant store
// domain in both the authorization URL and the token exchange.
func (p Provider) RequiresShopDomain() bool {
	return p == ProviderShopify || p == ProviderWooCommerce
}

// TokensExpire reports whether the provider issues expiring access tokens.
// Providers returning false never have a refresh path; their strategies
// return ErrRefreshUnsupported.
func (p Provider) TokensExpire() bool {
	return p == ProviderAmazon
}
