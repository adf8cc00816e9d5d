package domain

import "time"

// TokenSet is the normalized result of a token exchange or refresh.
// Every provider strategy maps its vendor-specific response into this shape.
type TokenSet struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	// ExpiresIn is the vendor-reported lifetime in seconds; 0 means the
	// token does not expire.
	ExpiresIn int
	Scope     string
	Metadata  Metadata
}

// ExpiresAt converts ExpiresIn into an absolute expiry relative to now.
// Returns nil for non-expiring tokens.
func (t *TokenSet) ExpiresAt(now time.Time) *time.Time {
	if t.ExpiresIn <= 0 {
		return nil
	}
	at := now.Add(time.Duration(t.ExpiresIn) * time.Second)
	return &at
}
