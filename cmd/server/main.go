// Package main is the entry point for the code-share server.
//
// MAIN PACKAGE IN GO:
// Every Go program starts execution in the main() function of the "main"
// package. This package is kept minimal — its job is to:
// 1. Read configuration (env vars, optionally from a .env file)
// 2. Create the root dependencies (logger)
// 3. Start the application
//
// All actual logic lives in imported packages (internal/server and below).
//
// WHY cmd/server/?
// The cmd/ directory is a Go convention for executable entry points. A
// project might have multiple executables (cmd/server, cmd/migrate, ...);
// each gets its own directory with its own main.go.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/sakif/code-share/internal/server"
)

func main() {
	// Load .env if present. Real environment variables win over file values,
	// so production deployments can ignore the file entirely. A missing file
	// is not an error — it's a local-dev convenience.
	_ = godotenv.Load()

	// slog.NewTextHandler outputs human-readable logs to the terminal.
	// Log levels (least to most severe): Debug → Info → Warn → Error.
	// LOG_LEVEL=debug enables debug output; the default Info keeps noise down.
	level := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))

	port := 8080
	if portStr := os.Getenv("PORT"); portStr != "" {
		var err error
		port, err = strconv.Atoi(portStr)
		if err != nil {
			logger.Error("invalid PORT value", slog.String("value", portStr))
			os.Exit(1)
		}
	}

	// Default to "data/codeshare.db" in the project root; DB_PATH overrides
	// for production deployments (e.g. DB_PATH=/var/lib/codeshare/prod.db).
	dbPath := "data/codeshare.db"
	if envDB := os.Getenv("DB_PATH"); envDB != "" {
		dbPath = envDB
	}

	// os.MkdirAll creates all parent directories if needed (like `mkdir -p`).
	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		logger.Error("failed to create database directory",
			slog.String("dir", dbDir),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	// JWT_SECRET must be a long random string:
	//   JWT_SECRET=$(openssl rand -hex 32)
	// The server refuses to start without it — silently running with auth
	// broken would be worse than failing loudly here.
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Error("JWT_SECRET not set — refusing to start")
		os.Exit(1)
	}

	// GitHub OAuth is optional; without credentials only email+password
	// login is available.
	githubCallbackURL := os.Getenv("GITHUB_CALLBACK_URL")
	if githubCallbackURL == "" {
		githubCallbackURL = fmt.Sprintf("http://localhost:%d/auth/github/callback", port)
	}

	cfg := server.Config{
		Port:               port,
		DBPath:             dbPath,
		JWTSecret:          jwtSecret,
		GitHubClientID:     os.Getenv("GITHUB_CLIENT_ID"),
		GitHubClientSecret: os.Getenv("GITHUB_CLIENT_SECRET"),
		GitHubCallbackURL:  githubCallbackURL,
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start() blocks until the server is shut down (Ctrl+C or SIGTERM)
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
