// Package service — authentication business logic.
//
// AuthService sits between the HTTP handlers and the repository/auth
// utilities:
//
//	AuthHandler (HTTP) → AuthService (business rules) → UserRepository (DB)
//	                   ↘ TokenService (JWT)
//	                   ↘ PasswordService (bcrypt)
//
// TWO IDENTITY PATHS:
// Users can register with email+password or sign in via GitHub OAuth. Both
// paths converge on the same users table and the same JWT, so everything
// downstream (snippet ownership, the /api/me handler) only ever sees an
// internal user ID.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/code-share/internal/apperror"
	"github.com/sakif/code-share/internal/auth"
	"github.com/sakif/code-share/internal/model"
	"github.com/sakif/code-share/internal/repository"
)

// MinPasswordLength is the minimum accepted password length for
// email+password registration.
const MinPasswordLength = 8

// AuthService handles the authentication business logic.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
// Call this in server.go when wiring the dependency graph.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult is returned by authentication operations. It bundles the user
// record and the issued JWT together so the HTTP handler can set the cookie
// and respond in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// Register creates an email+password account and signs the user in.
//
// VALIDATION:
//   - email must be non-empty and contain an "@" (a full RFC-5322 check buys
//     little — the real verification is the user being able to log in)
//   - password must be at least MinPasswordLength characters
//
// A duplicate email surfaces as apperror.ErrConflict from the repository and
// is passed through untouched so the handler maps it to HTTP 409.
func (s *AuthService) Register(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperror.ValidationFailed("email", "a valid email address is required")
	}
	if len(password) < MinPasswordLength {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.User{
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.users.CreateWithPassword(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: creating user %s: %w", email, err)
	}

	s.logger.Info("user registered", slog.String("userID", user.ID))

	return s.issueResult(user)
}

// Login authenticates an email+password account.
//
// WHY ONE ERROR FOR BOTH FAILURE MODES?
// "Unknown email" and "wrong password" both return the same
// apperror.ErrUnauthorized, so the response does not reveal which emails
// have accounts.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperror.Unauthorized("invalid email or password")
	}
	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		return nil, apperror.Unauthorized("invalid email or password")
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))

	return s.issueResult(user)
}

// LoginOrRegisterGitHub handles the GitHub OAuth callback.
//
// After the handler exchanges the GitHub code for a profile, this method:
//  1. Upserts the user (INSERT on first login, refresh profile fields after)
//  2. Issues a JWT for the authenticated user
//
// GitHub's numeric ID is stable and unique, so the upsert keys on it — a
// user who changes their email or avatar on GitHub gets the fields
// refreshed on the next login without losing their snippets.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*AuthResult, error) {
	if ghUser == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}

	user := &model.User{
		GitHubID:  ghUser.ID,
		Login:     ghUser.Login,
		Email:     ghUser.Email,
		AvatarURL: ghUser.AvatarURL,
	}
	if err := s.users.UpsertGitHub(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: upserting user (githubID=%d): %w", ghUser.ID, err)
	}

	s.logger.Info("user authenticated via GitHub",
		slog.String("userID", user.ID),
		slog.String("login", user.Login),
	)

	return s.issueResult(user)
}

// GetUserByID returns the user for the given internal ID. Used by /api/me
// after the middleware has validated the JWT.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, fmt.Errorf("service/auth: user ID must not be empty")
	}

	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", id, err)
	}
	return user, nil
}

// ValidateToken validates a JWT string and returns the userID it encodes.
// Thin delegation to TokenService.Validate so callers only need the service
// package.
func (s *AuthService) ValidateToken(tokenStr string) (string, error) {
	userID, err := s.tokens.Validate(tokenStr)
	if err != nil {
		return "", fmt.Errorf("service/auth: %w", err)
	}
	return userID, nil
}

func (s *AuthService) issueResult(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}
