package driving

import "context"

// TokenService hands out usable plaintext access tokens, transparently
// refreshing through the provider strategy when a token nears expiry.
type TokenService interface {
	// GetValidAccessToken returns a decrypted access token for the user's
	// active connection. Returns domain.ErrNotConnected if none exists.
	// If the token is inside the expiry buffer, it is refreshed first; a
	// failed refresh deactivates the connection and returns
	// domain.ErrRefreshFailed (terminal - the user must reconnect).
	GetValidAccessToken(ctx context.Context, userID, provider string) (string, error)

	// Validate best-effort checks the stored access token against the
	// vendor. Returns false, never an error, when no connection exists.
	// A true result is not a strong guarantee.
	Validate(ctx context.Context, userID, provider string) bool
}
