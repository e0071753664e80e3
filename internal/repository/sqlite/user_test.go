package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/code-share/internal/apperror"
	"github.com/sakif/code-share/internal/model"
)

// =========================================================================
// PASSWORD ACCOUNT TESTS
// =========================================================================

func TestCreateWithPassword(t *testing.T) {
	db := newTestDB(t)

	user := &model.User{
		Email:        "new@example.com",
		PasswordHash: "$2a$12$fakefakefakefakefakefake",
		Login:        "newuser",
	}

	if err := db.CreateWithPassword(context.Background(), user); err != nil {
		t.Fatalf("CreateWithPassword() error = %v", err)
	}

	if user.ID == "" {
		t.Error("CreateWithPassword() did not set user.ID")
	}
	if user.CreatedAt.IsZero() {
		t.Error("CreateWithPassword() did not set user.CreatedAt")
	}

	found, err := db.GetByEmail(context.Background(), "new@example.com")
	if err != nil {
		t.Fatalf("GetByEmail() after create: %v", err)
	}
	if found.ID != user.ID {
		t.Errorf("ID = %q, want %q", found.ID, user.ID)
	}
	if found.PasswordHash != user.PasswordHash {
		t.Error("stored password hash does not round-trip")
	}
}

func TestCreateWithPassword_DuplicateEmail(t *testing.T) {
	db := newTestDB(t)

	first := &model.User{Email: "dup@example.com", PasswordHash: "h", Login: "first"}
	if err := db.CreateWithPassword(context.Background(), first); err != nil {
		t.Fatalf("CreateWithPassword() first: %v", err)
	}

	second := &model.User{Email: "dup@example.com", PasswordHash: "h", Login: "second"}
	err := db.CreateWithPassword(context.Background(), second)
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("duplicate email: error = %v, want ErrConflict", err)
	}
}

func TestGetByEmail_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetByEmail(context.Background(), "ghost@example.com")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByEmail() error = %v, want ErrNotFound", err)
	}
}

func TestGetUserByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetUserByID(context.Background(), "nonexistent-id")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUserByID() error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// GITHUB UPSERT TESTS
// =========================================================================

func TestUpsertGitHub_NewUser(t *testing.T) {
	db := newTestDB(t)

	user := &model.User{
		GitHubID:  55555,
		Login:     "gh_user",
		Email:     "gh@example.com",
		AvatarURL: "https://example.com/gh.png",
	}

	if err := db.UpsertGitHub(context.Background(), user); err != nil {
		t.Fatalf("UpsertGitHub() (new) error = %v", err)
	}
	if user.ID == "" {
		t.Error("UpsertGitHub() did not set user.ID for new user")
	}

	found, err := db.GetUserByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("GetUserByID() after upsert: %v", err)
	}
	if found.GitHubID != 55555 {
		t.Errorf("GitHubID = %d, want 55555", found.GitHubID)
	}
}

func TestUpsertGitHub_ExistingUserKeepsID(t *testing.T) {
	db := newTestDB(t)

	// First login inserts the user.
	first := &model.User{GitHubID: 66666, Login: "original_login", Email: "old@example.com"}
	if err := db.UpsertGitHub(context.Background(), first); err != nil {
		t.Fatalf("UpsertGitHub() first login: %v", err)
	}
	originalID := first.ID

	// Second login: same GitHub account, updated profile.
	second := &model.User{GitHubID: 66666, Login: "updated_login", Email: "new@example.com"}
	if err := db.UpsertGitHub(context.Background(), second); err != nil {
		t.Fatalf("UpsertGitHub() second login: %v", err)
	}

	// The internal ID must NOT change — snippet ownership hangs off it.
	if second.ID != originalID {
		t.Errorf("UpsertGitHub() changed user ID: got %q, want %q", second.ID, originalID)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("UpsertGitHub() changed CreatedAt: %v -> %v", first.CreatedAt, second.CreatedAt)
	}

	found, err := db.GetUserByID(context.Background(), originalID)
	if err != nil {
		t.Fatalf("GetUserByID() after second upsert: %v", err)
	}
	if found.Login != "updated_login" {
		t.Errorf("Login after upsert = %q, want %q", found.Login, "updated_login")
	}
}
