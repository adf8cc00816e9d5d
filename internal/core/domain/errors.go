package domain

import (
	"errors"
	"fmt"
)

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized indicates authentication failed or missing
	ErrUnauthorized = errors.New("unauthorized")

	// ErrUnsupportedProvider indicates the provider name is not in the closed set
	ErrUnsupportedProvider = errors.New("unsupported provider")

	// ErrMissingCredentials indicates a provider's client id or secret is not configured
	ErrMissingCredentials = errors.New("missing provider credentials")

	// ErrMissingShopDomain indicates a provider required a shop domain and none was given
	ErrMissingShopDomain = errors.New("missing shop domain")

	// ErrInvalidShopDomain indicates the shop domain has an unexpected format
	ErrInvalidShopDomain = errors.New("invalid shop domain")

	// ErrNotConnected indicates the user has no active connection for the provider
	ErrNotConnected = errors.New("not connected")

	// ErrNoRefreshToken indicates the stored connection has no refresh token
	ErrNoRefreshToken = errors.New("no refresh token stored")

	// ErrRefreshUnsupported indicates the provider's tokens never expire and
	// cannot be refreshed. Terminal and non-retryable, distinct from a
	// transient refresh failure.
	ErrRefreshUnsupported = errors.New("token refresh not supported by provider")

	// ErrRefreshFailed indicates a refresh attempt failed and the connection
	// was deactivated; the user must reconnect.
	ErrRefreshFailed = errors.New("token refresh failed")

	// ErrRateLimited indicates the per-user hourly request budget is exhausted
	ErrRateLimited = errors.New("rate limit exceeded")
)

// TokenExchangeError reports a non-2xx response from a vendor token endpoint.
// Body holds the raw vendor error for server-side logs; it must never be
// echoed into a user-facing redirect.
type TokenExchangeError struct {
	Provider   Provider
	StatusCode int
	Body       string
}

func (e *TokenExchangeError) Error() string {
	return fmt.Sprintf("%s token exchange failed: status %d: %s", e.Provider, e.StatusCode, e.Body)
}
