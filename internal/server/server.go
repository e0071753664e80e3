// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer — it connects handlers, middleware, and
// routes. It decides:
// - Which URL patterns map to which handler functions
// - What middleware runs on which routes
// - How the server starts and stops gracefully
//
// WHY SEPARATE FROM main.go?
// Keeping server setup in its own package makes it:
// - Testable (we can create a test server without running main)
// - Reusable (multiple entry points could use the same server config)
// - Clean (main.go stays minimal — just "read config, start the server")
//
// DEPENDENCY INJECTION FLOW:
// main.go reads the environment into a Config and calls New. New assembles
// the whole chain in one place:
//
//	sqlite.DB → SnippetService → SnippetHandler
//	          ↘ AuthService    → AuthHandler
//
// This is the "composition root" pattern — all dependencies are wired here,
// rather than scattered across the codebase.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/code-share/internal/auth"
	"github.com/sakif/code-share/internal/handler"
	"github.com/sakif/code-share/internal/middleware"
	sqliteRepo "github.com/sakif/code-share/internal/repository/sqlite"
	"github.com/sakif/code-share/internal/service"
)

// Config holds server configuration.
// A struct (instead of individual parameters) makes it easy to add options
// without changing function signatures and to load everything from the
// environment in one place (cmd/server/main.go).
type Config struct {
	Port      int
	DBPath    string // path to the SQLite database file
	JWTSecret string // signing secret for access tokens (required)

	// GitHub OAuth app credentials. Optional: when ClientID is empty the
	// /auth/github/* routes are not registered and only email+password
	// login is available.
	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string
}

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database connection. When the server shuts down, the
// connection must be closed to flush pending WAL writes and release the file
// lock — handled in Start() during graceful shutdown.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New creates a new Server with the given config.
//
// Each layer only receives what it needs: the service gets the repository
// interface (not the concrete sqlite.DB), the handler gets the service (not
// the repository). The import alias `sqliteRepo` avoids confusion with the
// sqlite driver package.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT secret must be configured")
	}

	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close() // clean up DB if route setup fails
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	GET    /api/shared/{sharedId}     → read a shared snippet (public)
//	POST   /api/codes                 → create snippet         (auth)
//	GET    /api/codes                 → list own snippets      (auth)
//	PUT    /api/codes/{id}            → partial update         (auth)
//	DELETE /api/codes/{id}            → delete                 (auth)
//	POST   /api/codes/share/{id}      → share, returns token   (auth)
//	GET    /api/codes/download/{id}   → download as a file     (auth)
//	GET    /api/me                    → current user profile   (auth)
//	POST   /auth/register             → email+password signup
//	POST   /auth/login                → email+password login
//	POST   /auth/logout               → clear session cookie
//	GET    /auth/github/login         → redirect to GitHub (if configured)
//	GET    /auth/github/callback      → OAuth callback     (if configured)
//
// MIDDLEWARE ORDER MATTERS:
// Middleware executes in the order it's added:
// 1. RequestID — assigns a unique ID to each request (for tracing)
// 2. RealIP — extracts the real client IP from proxy headers
// 3. Recoverer — catches panics and returns 500 instead of crashing
// 4. Logger — logs each request with timing info
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	// s.db implements both repository.SnippetRepository and
	// repository.UserRepository; each service receives it as the interface.
	snippetService := service.NewSnippetService(s.db, s.logger)
	authService := service.NewAuthService(s.db, tokens, auth.NewPasswordService(), s.logger)

	var github *auth.GitHubProvider
	if s.config.GitHubClientID != "" {
		github = auth.NewGitHubProvider(
			s.config.GitHubClientID,
			s.config.GitHubClientSecret,
			s.config.GitHubCallbackURL,
		)
	}

	snippetHandler := handler.NewSnippetHandler(snippetService, s.logger)
	authHandler := handler.NewAuthHandler(authService, github, s.logger)

	s.router.Route("/api", func(r chi.Router) {
		// Public: anyone holding a sharing token can read the snippet.
		r.Get("/shared/{sharedId}", snippetHandler.HandleGetShared)

		// Everything else requires a verified caller.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))

			r.Get("/me", authHandler.HandleMe)

			r.Post("/codes", snippetHandler.HandleCreate)
			r.Get("/codes", snippetHandler.HandleList)
			r.Put("/codes/{id}", snippetHandler.HandleUpdate)
			r.Delete("/codes/{id}", snippetHandler.HandleDelete)
			r.Post("/codes/share/{id}", snippetHandler.HandleShare)
			r.Get("/codes/download/{id}", snippetHandler.HandleDownload)
		})
	})

	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/logout", authHandler.HandleLogout)

		if github != nil {
			r.Get("/github/login", authHandler.HandleGitHubLogin)
			r.Get("/github/callback", authHandler.HandleGitHubCallback)
		} else {
			s.logger.Warn("GitHub OAuth not configured — /auth/github routes disabled")
		}
	})

	return nil
}

// Handler returns the server's root handler. Exposed so tests can drive the
// full router (middleware included) through httptest without opening a port.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Close the database connection (flushes WAL, releases the file lock)
//
// Skipping step 3 can leave the database file in an inconsistent state; the
// defer ensures it happens even if something panics.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		// Give in-flight requests 30 seconds to complete
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
