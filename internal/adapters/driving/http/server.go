package http

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/storesight-labs/storesight-core/internal/core/ports/driven"
	"github.com/storesight-labs/storesight-core/internal/core/ports/driving"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	version    string
	appURL     string

	// Services
	oauthService      driving.OAuthService
	tokenService      driving.TokenService
	connectionService driving.ConnectionService

	// Infrastructure
	verifier    driven.IdentityVerifier
	db          Pinger // PostgreSQL health check
	redisClient Pinger // Redis health check (optional)
}

// Config holds server configuration
type Config struct {
	Host    string
	Port    int
	Version string

	// AppURL is the dashboard origin; used for CORS and the sign-in
	// redirect target for unauthenticated browser requests.
	AppURL string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:    "0.0.0.0",
		Port:    8080,
		Version: "dev",
		AppURL:  "http://localhost:3000",
	}
}

// NewServer creates a new HTTP server
func NewServer(
	cfg Config,
	oauthService driving.OAuthService,
	tokenService driving.TokenService,
	connectionService driving.ConnectionService,
	verifier driven.IdentityVerifier,
	db Pinger,
	redisClient Pinger, // can be nil
) *Server {
	s := &Server{
		router:            http.NewServeMux(),
		version:           cfg.Version,
		appURL:            cfg.AppURL,
		oauthService:      oauthService,
		tokenService:      tokenService,
		connectionService: connectionService,
		verifier:          verifier,
		db:                db,
		redisClient:       redisClient,
	}

	logging := NewLoggingMiddleware()
	recovery := NewRecoveryMiddleware()
	cors := NewCORSMiddleware([]string{cfg.AppURL})

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      recovery.Handler(logging.Handler(cors.Handler(s.router))),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	authMiddleware := NewAuthMiddleware(s.verifier, s.appURL+"/sign-in")

	// Health endpoints (no auth)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)

	// Provider catalog
	s.router.Handle("GET /api/v1/providers",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleListProviders)))

	// OAuth flow endpoints. These are browser navigations (the connect
	// link and the vendor's redirect back), so auth failures redirect to
	// sign-in and handler outcomes are always 302s to the dashboard.
	s.router.Handle("GET /api/v1/oauth/{provider}/connect",
		authMiddleware.AuthenticateBrowser(http.HandlerFunc(s.handleOAuthConnect)))
	s.router.Handle("GET /api/v1/oauth/callback/{provider}",
		authMiddleware.AuthenticateBrowser(http.HandlerFunc(s.handleOAuthCallback)))

	// Connection endpoints
	s.router.Handle("GET /api/v1/connections",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleListConnections)))
	s.router.Handle("GET /api/v1/connections/{provider}",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleConnectionStatus)))
	s.router.Handle("DELETE /api/v1/connections/{provider}",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleDisconnect)))

	// Internal token vending for the analytics services
	s.router.Handle("GET /api/v1/connections/{provider}/token",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleGetToken)))
	s.router.Handle("GET /api/v1/connections/{provider}/validate",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleValidateConnection)))
}

// Start starts the HTTP server with graceful shutdown
func (s *Server) Start() error {
	// Channel to listen for OS signals
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		log.Printf("Starting server on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-stop
	log.Println("Shutting down server...")

	// Create shutdown context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Attempt graceful shutdown
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Println("Server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
