package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/storesight-labs/storesight-core/internal/core/domain"
	"github.com/storesight-labs/storesight-core/internal/core/ports/driving"
	"github.com/storesight-labs/storesight-core/internal/core/services"
)

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse represents a simple status response
type StatusResponse struct {
	Status string `json:"status"`
}

// Health endpoints

// handleHealth reports process liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady reports readiness: the server can only do useful work when
// its backing stores answer.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if s.db != nil {
		if err := s.db.Ping(ctx); err != nil {
			writeError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	if s.redisClient != nil {
		if err := s.redisClient.Ping(ctx); err != nil {
			writeError(w, http.StatusServiceUnavailable, "redis unavailable")
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleVersion returns the running build version.
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

// Provider catalog

// handleListProviders returns the closed set of supported providers with
// the flags the connect dialog needs (shop domain prompt, expiry).
func (s *Server) handleListProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"providers": services.SupportedProviders(),
	})
}

// OAuth flow endpoints

// handleOAuthConnect starts the authorization flow. The response is
// always a redirect: to the vendor's consent screen on success, to the
// dashboard with an error reason otherwise.
func (s *Server) handleOAuthConnect(w http.ResponseWriter, r *http.Request) {
	ident := GetIdentity(r.Context())
	if ident == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	extra := map[string]string{}
	if shop := r.URL.Query().Get("shop"); shop != "" {
		extra["shop"] = shop
	}

	redirect := s.oauthService.Initiate(r.Context(), driving.InitiateRequest{
		UserID:   ident.UserID,
		Provider: r.PathValue("provider"),
		Extra:    extra,
	})
	http.Redirect(w, r, redirect, http.StatusFound)
}

// handleOAuthCallback receives the vendor's redirect back and finishes
// the flow. Like connect, the outcome is always a dashboard redirect.
func (s *Server) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	ident := GetIdentity(r.Context())
	if ident == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	// Forward every vendor-specific query param (shop, hmac, timestamp,
	// host, ...); only the protocol params are consumed here.
	q := r.URL.Query()
	extra := map[string]string{}
	for key, values := range q {
		switch key {
		case "code", "state", "error":
			continue
		}
		if len(values) > 0 && values[0] != "" {
			extra[key] = values[0]
		}
	}

	redirect := s.oauthService.Callback(r.Context(), driving.CallbackRequest{
		UserID:   ident.UserID,
		Provider: r.PathValue("provider"),
		Code:     q.Get("code"),
		State:    q.Get("state"),
		Error:    q.Get("error"),
		Extra:    extra,
	})
	http.Redirect(w, r, redirect, http.StatusFound)
}

// Connection endpoints

// handleListConnections lists the user's active connections.
func (s *Server) handleListConnections(w http.ResponseWriter, r *http.Request) {
	ident := GetIdentity(r.Context())
	if ident == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	summaries, err := s.connectionService.List(r.Context(), ident.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list connections")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"connections": summaries,
	})
}

// handleConnectionStatus reports the connection state for one provider.
// A missing connection is 200 with connected=false, not 404. The dashboard
// polls this endpoint, so backend failures degrade to a disconnected
// projection with an error field instead of a 500.
func (s *Server) handleConnectionStatus(w http.ResponseWriter, r *http.Request) {
	ident := GetIdentity(r.Context())
	if ident == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	provider := r.PathValue("provider")
	status, err := s.connectionService.Status(r.Context(), ident.UserID, provider)
	if err != nil {
		if errors.Is(err, domain.ErrUnsupportedProvider) {
			writeError(w, http.StatusBadRequest, "unsupported provider")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"isConnected": false,
			"provider":    provider,
			"error":       "failed to get connection status",
		})
		return
	}

	writeJSON(w, http.StatusOK, status)
}

// handleDisconnect soft-deletes the connection. Idempotent: disconnecting
// an absent connection still succeeds.
func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	ident := GetIdentity(r.Context())
	if ident == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := s.oauthService.Disconnect(r.Context(), ident.UserID, r.PathValue("provider")); err != nil {
		if errors.Is(err, domain.ErrUnsupportedProvider) {
			writeError(w, http.StatusBadRequest, "unsupported provider")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to disconnect")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "disconnected"})
}

// Token endpoints

// handleGetToken vends a valid plaintext access token to the analytics
// services, refreshing behind the scenes when needed.
func (s *Server) handleGetToken(w http.ResponseWriter, r *http.Request) {
	ident := GetIdentity(r.Context())
	if ident == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	provider := r.PathValue("provider")
	token, err := s.tokenService.GetValidAccessToken(r.Context(), ident.UserID, provider)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUnsupportedProvider):
			writeError(w, http.StatusBadRequest, "unsupported provider")
		case errors.Is(err, domain.ErrNotConnected):
			writeError(w, http.StatusNotFound, "not connected")
		case errors.Is(err, domain.ErrRateLimited):
			writeError(w, http.StatusTooManyRequests, "rate limited")
		case errors.Is(err, domain.ErrRefreshFailed):
			// Terminal: the connection was deactivated, the user has to
			// go through the connect flow again.
			writeError(w, http.StatusConflict, "reconnect required")
		default:
			writeError(w, http.StatusInternalServerError, "failed to get access token")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"provider":    provider,
		"accessToken": token,
	})
}

// handleValidateConnection checks the stored token against the vendor.
func (s *Server) handleValidateConnection(w http.ResponseWriter, r *http.Request) {
	ident := GetIdentity(r.Context())
	if ident == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	valid := s.tokenService.Validate(r.Context(), ident.UserID, r.PathValue("provider"))
	writeJSON(w, http.StatusOK, map[string]bool{"valid": valid})
}

// Helper functions

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
