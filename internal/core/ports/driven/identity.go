package driven

// Identity is the resolved authenticated caller.
type Identity struct {
	UserID string
	Email  string
}

// IdentityVerifier resolves a bearer credential to an authenticated user.
// This subsystem treats user identity as an external collaborator; it only
// needs an opaque user id back.
type IdentityVerifier interface {
	// Verify validates the credential and returns the identity, or
	// domain.ErrUnauthorized.
	Verify(token string) (*Identity, error)
}
