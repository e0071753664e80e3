// Package repository defines the storage contracts the rest of the application
// programs against. Concrete backends (internal/repository/sqlite) implement
// these interfaces; services receive the interface, never the backend.
//
// OWNERSHIP-SCOPED MUTATIONS:
// Every mutation takes both the record id AND the caller's ownerID, and the
// backend must match on both in a single statement. This makes the
// authorization check atomic with the mutation — there is no window between
// "check the owner" and "apply the change" where the record could move under
// us, and a non-owner is indistinguishable from a missing record.
//
// AFFECTED COUNTS:
// UpdateFields/SetShared/SetPublic/Delete return how many rows actually
// changed (0 or 1 — id is unique). Zero is NOT an error: it means "no record
// matched both id and owner", and callers use it to report "nothing changed"
// instead of guessing whether the write landed.
package repository

import (
	"context"

	"github.com/sakif/code-share/internal/model"
)

// SnippetPatch is a partial update of a snippet's mutable fields.
// A nil pointer means "leave this field alone"; a non-nil pointer means "set
// it" (including to the empty string for Code — clearing code is legal).
//
// WHY A TYPED PATCH AND NOT A map[string]any?
// An open-ended map would let arbitrary keys reach the SQL layer. With a
// struct, the compiler enumerates exactly which fields are mutable: id,
// owner_id, shared_id and the timestamps simply cannot be expressed here.
type SnippetPatch struct {
	Title    *string
	Language *model.Language
	Code     *string
}

// Empty reports whether the patch changes nothing.
func (p SnippetPatch) Empty() bool {
	return p.Title == nil && p.Language == nil && p.Code == nil
}

// SnippetRepository is the durable store for snippets.
type SnippetRepository interface {
	// Create inserts a new snippet, assigning ID, timestamps, IsPublic=false
	// and no SharedID. The passed struct is updated in place.
	Create(ctx context.Context, snippet *model.Snippet) error

	// GetByID returns the snippet only if it exists AND belongs to ownerID.
	// Both failure modes collapse to apperror.ErrNotFound.
	GetByID(ctx context.Context, id, ownerID string) (*model.Snippet, error)

	// GetBySharedID returns the snippet only if the token matches AND the
	// snippet is public. A token pointing at a private record is NotFound.
	GetBySharedID(ctx context.Context, sharedID string) (*model.Snippet, error)

	// ListByOwner returns all snippets of one owner, most recently updated first.
	ListByOwner(ctx context.Context, ownerID string) ([]model.Snippet, error)

	// UpdateFields applies the patch to the record matching id AND ownerID,
	// refreshing updated_at. Returns the affected row count (0 or 1).
	UpdateFields(ctx context.Context, id, ownerID string, patch SnippetPatch) (int64, error)

	// SetShared stores the sharing token and flips the snippet public in one
	// owner-scoped update. A uniqueness violation on the token returns an
	// apperror.ErrConflict so the caller can retry with a fresh token.
	SetShared(ctx context.Context, id, ownerID, sharedID string) (int64, error)

	// SetPublic flips visibility without touching the token.
	SetPublic(ctx context.Context, id, ownerID string, public bool) (int64, error)

	// Delete removes the record matching id AND ownerID. Returns the count.
	Delete(ctx context.Context, id, ownerID string) (int64, error)
}

// UserRepository stores accounts for both auth paths (password and GitHub).
type UserRepository interface {
	// CreateWithPassword inserts a password-based account. Email must be
	// unique; a duplicate returns apperror.ErrConflict.
	CreateWithPassword(ctx context.Context, user *model.User) error

	// GetByEmail looks up a password account for login.
	GetByEmail(ctx context.Context, email string) (*model.User, error)

	// GetUserByID fetches a user by internal ID (for /api/me).
	GetUserByID(ctx context.Context, id string) (*model.User, error)

	// UpsertGitHub inserts or refreshes a GitHub-backed account, keyed by the
	// GitHub numeric ID. The passed struct gets the internal ID filled in.
	UpsertGitHub(ctx context.Context, user *model.User) error
}
