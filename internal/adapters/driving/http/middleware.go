package http

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/storesight-labs/storesight-core/internal/core/ports/driven"
)

// Context keys
type contextKey string

const identityContextKey contextKey = "identity"

// sessionCookie is the dashboard session cookie carrying the same JWT as
// the Authorization header. Browser-initiated OAuth redirects cannot set
// headers, so both transports are accepted.
const sessionCookie = "storesight_session"

// AuthMiddleware resolves the authenticated user on each request.
type AuthMiddleware struct {
	verifier driven.IdentityVerifier

	// signInURL is where unauthenticated browser requests are sent.
	signInURL string
}

// NewAuthMiddleware creates a new AuthMiddleware.
func NewAuthMiddleware(verifier driven.IdentityVerifier, signInURL string) *AuthMiddleware {
	return &AuthMiddleware{
		verifier:  verifier,
		signInURL: signInURL,
	}
}

// Authenticate validates the request credential and adds the identity to
// the context. API variant: failures get a 401 JSON body.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ident, ok := m.resolve(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), ident)))
	})
}

// AuthenticateBrowser is the variant for endpoints the user reaches by
// link or vendor redirect: failures redirect to the sign-in page instead
// of returning JSON nobody will see.
func (m *AuthMiddleware) AuthenticateBrowser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ident, ok := m.resolve(r)
		if !ok {
			http.Redirect(w, r, m.signInURL, http.StatusFound)
			return
		}
		next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), ident)))
	})
}

// resolve tries the Authorization header first, then the session cookie.
func (m *AuthMiddleware) resolve(r *http.Request) (*driven.Identity, bool) {
	token := extractBearerToken(r)
	if token == "" {
		if cookie, err := r.Cookie(sessionCookie); err == nil {
			token = cookie.Value
		}
	}
	if token == "" {
		return nil, false
	}

	ident, err := m.verifier.Verify(token)
	if err != nil {
		return nil, false
	}
	return ident, true
}

func withIdentity(ctx context.Context, ident *driven.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, ident)
}

// GetIdentity retrieves the authenticated identity from request context.
func GetIdentity(ctx context.Context) *driven.Identity {
	if ctx == nil {
		return nil
	}
	ident, ok := ctx.Value(identityContextKey).(*driven.Identity)
	if !ok {
		return nil
	}
	return ident
}

// extractBearerToken extracts the Bearer token from Authorization header
func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}

	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

// Logging middleware

// LoggingMiddleware logs HTTP requests
type LoggingMiddleware struct{}

// NewLoggingMiddleware creates a new LoggingMiddleware
func NewLoggingMiddleware() *LoggingMiddleware {
	return &LoggingMiddleware{}
}

// Handler wraps an http.Handler with request logging
func (m *LoggingMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		log.Printf("%s %s %d %v", r.Method, r.URL.Path, rw.statusCode, duration)
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Recovery middleware

// RecoveryMiddleware recovers from panics
type RecoveryMiddleware struct{}

// NewRecoveryMiddleware creates a new RecoveryMiddleware
func NewRecoveryMiddleware() *RecoveryMiddleware {
	return &RecoveryMiddleware{}
}

// Handler wraps an http.Handler with panic recovery
func (m *RecoveryMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("panic recovered: %v", err)
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// CORS middleware

// CORSMiddleware handles CORS
type CORSMiddleware struct {
	allowedOrigins []string
}

// NewCORSMiddleware creates a new CORSMiddleware
func NewCORSMiddleware(allowedOrigins []string) *CORSMiddleware {
	return &CORSMiddleware{
		allowedOrigins: allowedOrigins,
	}
}

// Handler wraps an http.Handler with CORS headers
func (m *CORSMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		allowed := false
		for _, o := range m.allowedOrigins {
			if o == "*" || o == origin {
				allowed = true
				break
			}
		}

		if allowed {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Max-Age", "86400")
		}

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
