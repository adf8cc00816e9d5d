package identity

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/storesight-labs/storesight-core/internal/core/domain"
)

const testSecret = "test-jwt-secret"

func signToken(t *testing.T, secret string, claims jwt.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestVerifier_Valid(t *testing.T) {
	v := NewVerifier(testSecret)

	token := signToken(t, testSecret, jwtClaims{
		UserID: "user-42",
		Email:  "merchant@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	ident, err := v.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ident.UserID != "user-42" {
		t.Errorf("UserID = %q", ident.UserID)
	}
	if ident.Email != "merchant@example.com" {
		t.Errorf("Email = %q", ident.Email)
	}
}

func TestVerifier_SubjectFallback(t *testing.T) {
	v := NewVerifier(testSecret)

	token := signToken(t, testSecret, jwt.RegisteredClaims{
		Subject:   "user-42",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})

	ident, err := v.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ident.UserID != "user-42" {
		t.Errorf("UserID = %q", ident.UserID)
	}
}

func TestVerifier_Rejections(t *testing.T) {
	v := NewVerifier(testSecret)

	expired := signToken(t, testSecret, jwtClaims{
		UserID: "user-42",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	wrongKey := signToken(t, "other-secret", jwtClaims{
		UserID: "user-42",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	noUser := signToken(t, testSecret, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})

	tests := []struct {
		name  string
		token string
	}{
		{"expired", expired},
		{"wrong key", wrongKey},
		{"no user id", noUser},
		{"garbage", "not.a.jwt"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := v.Verify(tt.token); !errors.Is(err, domain.ErrUnauthorized) {
				t.Errorf("Verify error = %v, want ErrUnauthorized", err)
			}
		})
	}
}
