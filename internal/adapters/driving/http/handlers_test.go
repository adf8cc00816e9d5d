package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/storesight-labs/storesight-core/internal/core/domain"
	"github.com/storesight-labs/storesight-core/internal/core/ports/driven"
	"github.com/storesight-labs/storesight-core/internal/core/ports/driving"
)

// Mock services for testing

type mockOAuthService struct {
	initiateFn   func(ctx context.Context, req driving.InitiateRequest) string
	callbackFn   func(ctx context.Context, req driving.CallbackRequest) string
	disconnectFn func(ctx context.Context, userID, provider string) error
}

func (m *mockOAuthService) Initiate(ctx context.Context, req driving.InitiateRequest) string {
	if m.initiateFn != nil {
		return m.initiateFn(ctx, req)
	}
	return "https://app.example.com/dashboard?error=not_implemented"
}

func (m *mockOAuthService) Callback(ctx context.Context, req driving.CallbackRequest) string {
	if m.callbackFn != nil {
		return m.callbackFn(ctx, req)
	}
	return "https://app.example.com/dashboard?error=not_implemented"
}

func (m *mockOAuthService) Disconnect(ctx context.Context, userID, provider string) error {
	if m.disconnectFn != nil {
		return m.disconnectFn(ctx, userID, provider)
	}
	return nil
}

type mockTokenService struct {
	getTokenFn func(ctx context.Context, userID, provider string) (string, error)
	validateFn func(ctx context.Context, userID, provider string) bool
}

func (m *mockTokenService) GetValidAccessToken(ctx context.Context, userID, provider string) (string, error) {
	if m.getTokenFn != nil {
		return m.getTokenFn(ctx, userID, provider)
	}
	return "", errors.New("not implemented")
}

func (m *mockTokenService) Validate(ctx context.Context, userID, provider string) bool {
	if m.validateFn != nil {
		return m.validateFn(ctx, userID, provider)
	}
	return false
}

type mockConnectionService struct {
	statusFn func(ctx context.Context, userID, provider string) (*domain.ConnectionStatus, error)
	listFn   func(ctx context.Context, userID string) ([]*driving.ConnectionSummary, error)
}

func (m *mockConnectionService) Status(ctx context.Context, userID, provider string) (*domain.ConnectionStatus, error) {
	if m.statusFn != nil {
		return m.statusFn(ctx, userID, provider)
	}
	return nil, errors.New("not implemented")
}

func (m *mockConnectionService) List(ctx context.Context, userID string) ([]*driving.ConnectionSummary, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID)
	}
	return nil, errors.New("not implemented")
}

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(ctx context.Context) error {
	return m.err
}

// authedRequest builds a request with a resolved identity already in
// context, bypassing the middleware.
func authedRequest(method, target, userID string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	ctx := withIdentity(req.Context(), &driven.Identity{
		UserID: userID,
		Email:  userID + "@example.com",
	})
	return req.WithContext(ctx)
}

func TestHealthHandler(t *testing.T) {
	server := &Server{version: "test"}

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()

	server.handleHealth(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("status = %q, want ok", resp["status"])
	}
}

func TestReadyHandler(t *testing.T) {
	server := &Server{db: &mockPinger{}, redisClient: &mockPinger{}}

	req := httptest.NewRequest("GET", "/ready", nil)
	rec := httptest.NewRecorder()

	server.handleReady(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestReadyHandler_DatabaseDown(t *testing.T) {
	server := &Server{db: &mockPinger{err: errors.New("connection refused")}}

	req := httptest.NewRequest("GET", "/ready", nil)
	rec := httptest.NewRecorder()

	server.handleReady(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestReadyHandler_NoRedis(t *testing.T) {
	// Redis is optional; a nil client must not panic readiness.
	server := &Server{db: &mockPinger{}}

	req := httptest.NewRequest("GET", "/ready", nil)
	rec := httptest.NewRecorder()

	server.handleReady(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestVersionHandler(t *testing.T) {
	server := &Server{version: "1.2.3"}

	req := httptest.NewRequest("GET", "/version", nil)
	rec := httptest.NewRecorder()

	server.handleVersion(rec, req)

	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["version"] != "1.2.3" {
		t.Errorf("version = %q", resp["version"])
	}
}

func TestHandleListProviders(t *testing.T) {
	server := &Server{}

	req := authedRequest("GET", "/api/v1/providers", "user-1")
	rec := httptest.NewRecorder()

	server.handleListProviders(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		Providers []driving.ProviderInfo `json:"providers"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Providers) != 4 {
		t.Errorf("providers = %d, want 4", len(resp.Providers))
	}
}

func TestHandleOAuthConnect(t *testing.T) {
	var captured driving.InitiateRequest
	server := &Server{
		oauthService: &mockOAuthService{
			initiateFn: func(ctx context.Context, req driving.InitiateRequest) string {
				captured = req
				return "https://mystore.myshopify.com/admin/oauth/authorize?state=abc"
			},
		},
	}

	req := authedRequest("GET", "/api/v1/oauth/shopify/connect?shop=mystore.myshopify.com", "user-1")
	req.SetPathValue("provider", "shopify")
	rec := httptest.NewRecorder()

	server.handleOAuthConnect(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "https://mystore.myshopify.com/admin/oauth/authorize?state=abc" {
		t.Errorf("Location = %q", loc)
	}
	if captured.UserID != "user-1" || captured.Provider != "shopify" {
		t.Errorf("request = %+v", captured)
	}
	if captured.Extra["shop"] != "mystore.myshopify.com" {
		t.Errorf("shop not forwarded: %v", captured.Extra)
	}
}

func TestHandleOAuthCallback(t *testing.T) {
	var captured driving.CallbackRequest
	server := &Server{
		oauthService: &mockOAuthService{
			callbackFn: func(ctx context.Context, req driving.CallbackRequest) string {
				captured = req
				return "https://app.example.com/dashboard/shopify?connected=true"
			},
		},
	}

	target := "/api/v1/oauth/callback/shopify?code=c0de&state=st4te&shop=mystore.myshopify.com"
	req := authedRequest("GET", target, "user-1")
	req.SetPathValue("provider", "shopify")
	rec := httptest.NewRecorder()

	server.handleOAuthCallback(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
	if captured.Code != "c0de" || captured.State != "st4te" {
		t.Errorf("request = %+v", captured)
	}
	if captured.Extra["shop"] != "mystore.myshopify.com" {
		t.Errorf("shop not forwarded: %v", captured.Extra)
	}
}

func TestHandleOAuthCallback_ForwardsVendorParams(t *testing.T) {
	var captured driving.CallbackRequest
	server := &Server{
		oauthService: &mockOAuthService{
			callbackFn: func(ctx context.Context, req driving.CallbackRequest) string {
				captured = req
				return "https://app.example.com/dashboard/shopify?connected=true"
			},
		},
	}

	target := "/api/v1/oauth/callback/shopify?code=c0de&state=st4te" +
		"&shop=mystore.myshopify.com&hmac=abc123&timestamp=1700000000&host=aG9zdA"
	req := authedRequest("GET", target, "user-1")
	req.SetPathValue("provider", "shopify")
	rec := httptest.NewRecorder()

	server.handleOAuthCallback(rec, req)

	for _, key := range []string{"shop", "hmac", "timestamp", "host"} {
		if captured.Extra[key] == "" {
			t.Errorf("vendor param %q not forwarded: %v", key, captured.Extra)
		}
	}
	// The protocol params travel in their own fields, never in Extra.
	for _, key := range []string{"code", "state", "error"} {
		if _, ok := captured.Extra[key]; ok {
			t.Errorf("protocol param %q leaked into Extra", key)
		}
	}
}

func TestHandleOAuthCallback_VendorError(t *testing.T) {
	var captured driving.CallbackRequest
	server := &Server{
		oauthService: &mockOAuthService{
			callbackFn: func(ctx context.Context, req driving.CallbackRequest) string {
				captured = req
				return "https://app.example.com/dashboard?error=oauth_access_denied"
			},
		},
	}

	req := authedRequest("GET", "/api/v1/oauth/callback/stripe?error=access_denied", "user-1")
	req.SetPathValue("provider", "stripe")
	rec := httptest.NewRecorder()

	server.handleOAuthCallback(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302 even on vendor error", rec.Code)
	}
	if captured.Error != "access_denied" {
		t.Errorf("Error = %q", captured.Error)
	}
}

func TestHandleListConnections(t *testing.T) {
	now := time.Now()
	server := &Server{
		connectionService: &mockConnectionService{
			listFn: func(ctx context.Context, userID string) ([]*driving.ConnectionSummary, error) {
				if userID != "user-1" {
					t.Errorf("userID = %q", userID)
				}
				return []*driving.ConnectionSummary{
					{Provider: domain.ProviderShopify, DisplayName: "Shopify", ConnectedAt: now},
				}, nil
			},
		},
	}

	req := authedRequest("GET", "/api/v1/connections", "user-1")
	rec := httptest.NewRecorder()

	server.handleListConnections(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		Connections []*driving.ConnectionSummary `json:"connections"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Connections) != 1 {
		t.Errorf("connections = %d, want 1", len(resp.Connections))
	}
}

func TestHandleListConnections_Error(t *testing.T) {
	server := &Server{
		connectionService: &mockConnectionService{
			listFn: func(ctx context.Context, userID string) ([]*driving.ConnectionSummary, error) {
				return nil, errors.New("db down")
			},
		},
	}

	req := authedRequest("GET", "/api/v1/connections", "user-1")
	rec := httptest.NewRecorder()

	server.handleListConnections(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestHandleConnectionStatus(t *testing.T) {
	server := &Server{
		connectionService: &mockConnectionService{
			statusFn: func(ctx context.Context, userID, provider string) (*domain.ConnectionStatus, error) {
				return &domain.ConnectionStatus{Connected: false, Provider: domain.ProviderStripe}, nil
			},
		},
	}

	req := authedRequest("GET", "/api/v1/connections/stripe", "user-1")
	req.SetPathValue("provider", "stripe")
	rec := httptest.NewRecorder()

	server.handleConnectionStatus(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for a missing connection", rec.Code)
	}

	var status domain.ConnectionStatus
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status.Connected {
		t.Error("connected = true")
	}
}

func TestHandleConnectionStatus_StoreFailureDegrades(t *testing.T) {
	server := &Server{
		connectionService: &mockConnectionService{
			statusFn: func(ctx context.Context, userID, provider string) (*domain.ConnectionStatus, error) {
				return nil, errors.New("store down")
			},
		},
	}

	req := authedRequest("GET", "/api/v1/connections/shopify", "user-1")
	req.SetPathValue("provider", "shopify")
	rec := httptest.NewRecorder()

	server.handleConnectionStatus(rec, req)

	// The dashboard polls this endpoint; backend trouble must not become
	// a hard failure.
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want degraded 200", rec.Code)
	}

	var resp struct {
		IsConnected bool   `json:"isConnected"`
		Provider    string `json:"provider"`
		Error       string `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.IsConnected {
		t.Error("isConnected = true while the store is down")
	}
	if resp.Provider != "shopify" {
		t.Errorf("provider = %q", resp.Provider)
	}
	if resp.Error == "" {
		t.Error("error field missing from degraded projection")
	}
}

func TestHandleConnectionStatus_UnsupportedProvider(t *testing.T) {
	server := &Server{
		connectionService: &mockConnectionService{
			statusFn: func(ctx context.Context, userID, provider string) (*domain.ConnectionStatus, error) {
				return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedProvider, provider)
			},
		},
	}

	req := authedRequest("GET", "/api/v1/connections/ebay", "user-1")
	req.SetPathValue("provider", "ebay")
	rec := httptest.NewRecorder()

	server.handleConnectionStatus(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleDisconnect(t *testing.T) {
	called := false
	server := &Server{
		oauthService: &mockOAuthService{
			disconnectFn: func(ctx context.Context, userID, provider string) error {
				called = true
				if userID != "user-1" || provider != "shopify" {
					t.Errorf("args = %q %q", userID, provider)
				}
				return nil
			},
		},
	}

	req := authedRequest("DELETE", "/api/v1/connections/shopify", "user-1")
	req.SetPathValue("provider", "shopify")
	rec := httptest.NewRecorder()

	server.handleDisconnect(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if !called {
		t.Error("disconnect not called")
	}
}

func TestHandleGetToken(t *testing.T) {
	server := &Server{
		tokenService: &mockTokenService{
			getTokenFn: func(ctx context.Context, userID, provider string) (string, error) {
				return "plain-access", nil
			},
		},
	}

	req := authedRequest("GET", "/api/v1/connections/shopify/token", "user-1")
	req.SetPathValue("provider", "shopify")
	rec := httptest.NewRecorder()

	server.handleGetToken(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["accessToken"] != "plain-access" {
		t.Errorf("accessToken = %q", resp["accessToken"])
	}
}

func TestHandleGetToken_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"not connected", domain.ErrNotConnected, http.StatusNotFound},
		{"unsupported provider", domain.ErrUnsupportedProvider, http.StatusBadRequest},
		{"rate limited", domain.ErrRateLimited, http.StatusTooManyRequests},
		{"refresh failed", fmt.Errorf("%w: invalid_grant", domain.ErrRefreshFailed), http.StatusConflict},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := &Server{
				tokenService: &mockTokenService{
					getTokenFn: func(ctx context.Context, userID, provider string) (string, error) {
						return "", tt.err
					},
				},
			}

			req := authedRequest("GET", "/api/v1/connections/amazon/token", "user-1")
			req.SetPathValue("provider", "amazon")
			rec := httptest.NewRecorder()

			server.handleGetToken(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestHandleValidateConnection(t *testing.T) {
	server := &Server{
		tokenService: &mockTokenService{
			validateFn: func(ctx context.Context, userID, provider string) bool {
				return true
			},
		},
	}

	req := authedRequest("GET", "/api/v1/connections/shopify/validate", "user-1")
	req.SetPathValue("provider", "shopify")
	rec := httptest.NewRecorder()

	server.handleValidateConnection(rec, req)

	var resp map[string]bool
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp["valid"] {
		t.Error("valid = false")
	}
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusTeapot, map[string]string{"a": "b"})

	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, http.StatusBadRequest, "bad input")

	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["error"] != "bad input" {
		t.Errorf("error = %q", resp["error"])
	}
}
