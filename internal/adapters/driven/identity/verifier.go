// Package identity verifies bearer credentials issued by the dashboard's
// auth service. This service never mints tokens; it only checks them.
package identity

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/storesight-labs/storesight-core/internal/core/domain"
	"github.com/storesight-labs/storesight-core/internal/core/ports/driven"
)

// Ensure Verifier implements IdentityVerifier
var _ driven.IdentityVerifier = (*Verifier)(nil)

// jwtClaims is the claim set the auth service puts in its tokens.
type jwtClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Verifier validates HS256 JWTs against a shared secret.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a verifier with the shared JWT secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify validates the token signature and expiry and returns the caller's
// identity. Any failure collapses to domain.ErrUnauthorized; callers get no
// detail about why a credential was rejected.
func (v *Verifier) Verify(tokenString string) (*driven.Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwtClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, domain.ErrUnauthorized
	}

	claims, ok := token.Claims.(*jwtClaims)
	if !ok || !token.Valid {
		return nil, domain.ErrUnauthorized
	}

	userID := claims.UserID
	if userID == "" {
		// Some issuers put the user id in the standard subject claim.
		userID = claims.Subject
	}
	if userID == "" {
		return nil, domain.ErrUnauthorized
	}

	return &driven.Identity{
		UserID: userID,
		Email:  claims.Email,
	}, nil
}
