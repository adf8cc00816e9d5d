package domain

import "time"

// ExpiryBuffer is how long before the stored token expiry a connection is
// treated as expiring. Refreshing inside this window avoids racing the
// vendor's clock on the next API call.
const ExpiryBuffer = 5 * time.Minute

// Metadata is the loosely-typed per-provider extras bag stored alongside a
// connection. Known keys by provider:
//
//	shopify:     "scope", "shop", "associated_user", "associated_user_scope"
//	stripe:      "scope", "stripe_user_id", "livemode"
//	amazon:      "scope"
//	woocommerce: "scope", "shop"
//
// All variants may additionally carry "token_type", "connected_at" and
// "last_refreshed".
type Metadata map[string]any

// Connection is the durable link between one user and one provider.
// AccessToken and RefreshToken hold ciphertext; plaintext tokens never
// touch the store.
type Connection struct {
	ID             string
	UserID         string
	Provider       Provider
	AccessToken    string
	RefreshToken   string
	ShopDomain     string
	TokenExpiresAt *time.Time
	ConnectedAt    time.Time
	LastSyncedAt   time.Time
	IsActive       bool
	Metadata       Metadata
}

// IsExpired reports whether the stored token expiry has passed.
// Connections without an expiry never expire.
func (c *Connection) IsExpired() bool {
	if c.TokenExpiresAt == nil {
		return false
	}
	return time.Now().After(*c.TokenExpiresAt)
}

// ExpiringSoon reports whether the connection has entered the refresh
// window: an expiry is set and now >= expiry - ExpiryBuffer.
func (c *Connection) ExpiringSoon() bool {
	if c.TokenExpiresAt == nil {
		return false
	}
	return !time.Now().Before(c.TokenExpiresAt.Add(-ExpiryBuffer))
}

// ConnectionStatus is the read-only projection served to the UI.
type ConnectionStatus struct {
	Connected    bool       `json:"isConnected"`
	Provider     Provider   `json:"provider"`
	ConnectedAt  *time.Time `json:"connectedAt,omitempty"`
	ShopDomain   string     `json:"shopDomain,omitempty"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
	IsExpired    bool       `json:"isExpired"`
	NeedsRefresh bool       `json:"needsRefresh"`
	Metadata     Metadata   `json:"metadata,omitempty"`
}

// Status builds the UI projection for an active connection.
func (c *Connection) Status() ConnectionStatus {
	connectedAt := c.ConnectedAt
	return ConnectionStatus{
		Connected:    c.IsActive && !c.IsExpired(),
		Provider:     c.Provider,
		ConnectedAt:  &connectedAt,
		ShopDomain:   c.ShopDomain,
		ExpiresAt:    c.TokenExpiresAt,
		IsExpired:    c.IsExpired(),
		NeedsRefresh: c.ExpiringSoon(),
		Metadata:     c.Metadata,
	}
}
