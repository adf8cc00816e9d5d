package domain

import "time"

// StateTTL is how long an issued CSRF state stays valid.
const StateTTL = 5 * time.Minute

// OAuthState represents one pending authorization attempt. The state token
// is single-use: it is destroyed on first consumption, successful or not.
type OAuthState struct {
	UserID    string
	Provider  Provider
	State     string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the state's window has passed. Expired states are
// inert even before the janitor purges them.
func (s *OAuthState) Expired() bool {
	return time.Now().After(s.ExpiresAt)
}
