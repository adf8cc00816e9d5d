package driving

import (
	"context"
)

// OAuthService drives the connect flow for external commerce platforms:
// initiate -> vendor redirect -> callback -> stored connection.
//
// Initiate and Callback always produce a redirect URL, never an error: both
// run inline in browser requests that must end in some redirect. Failures are
// encoded as dashboard error redirects with a reason query parameter.
type OAuthService interface {
	// Initiate starts an authorization attempt. On success the returned URL
	// points at the vendor's authorize endpoint with a freshly issued CSRF
	// state; on failure it points at the dashboard with an error reason.
	Initiate(ctx context.Context, req InitiateRequest) string

	// Callback processes the vendor's redirect back: consumes the CSRF
	// state, exchanges the code, encrypts and stores the tokens. The
	// returned URL is the dashboard success page or an error redirect.
	Callback(ctx context.Context, req CallbackRequest) string

	// Disconnect soft-deletes the connection. Idempotent.
	Disconnect(ctx context.Context, userID, provider string) error
}

// InitiateRequest starts an OAuth authorization flow.
type InitiateRequest struct {
	// UserID is the authenticated user starting the flow.
	UserID string

	// Provider is the platform name (shopify, stripe, amazon, woocommerce).
	Provider string

	// Extra carries provider-specific parameters, e.g. "shop" for
	// platforms that embed a merchant domain in their authorize URL.
	Extra map[string]string
}

// CallbackRequest carries the vendor's redirect-back parameters.
type CallbackRequest struct {
	UserID   string
	Provider string

	// Code is the authorization code; State the echoed CSRF token.
	Code  string
	State string

	// Error is set when the vendor reported a failure (e.g. access_denied).
	Error string

	// Extra holds provider-specific callback params such as "shop".
	Extra map[string]string
}

// Redirect reasons used in dashboard error redirects.
const (
	ReasonInvalidProvider  = "invalid_provider"
	ReasonMissingShop      = "missing_shop"
	ReasonInvalidShop      = "invalid_shop"
	ReasonMissingConfig    = "missing_config"
	ReasonMissingParams    = "missing_params"
	ReasonInvalidState     = "invalid_state"
	ReasonProviderMismatch = "provider_mismatch"
	ReasonNoAccessToken    = "no_access_token"
	ReasonRateLimited      = "rate_limited"
	ReasonInitFailed       = "oauth_init_failed"
	ReasonConnectionFailed = "connection_failed"
)
