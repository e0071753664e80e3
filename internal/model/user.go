// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered account.
//
// Two ways to get an account:
//   - Email + password signup (PasswordHash is set, GitHubID is 0)
//   - GitHub OAuth login (GitHubID is set, PasswordHash is empty)
//
// Either way we generate our own internal string ID (xid) so snippet ownership
// never depends on a third party's numbering scheme.
//
// WHY `json:"-"` ON PasswordHash?
// The dash tells encoding/json to NEVER serialize this field. Even if a handler
// accidentally writes a whole User to a response, the hash cannot leak. Defence
// belongs in the type, not in every call site.
type User struct {
	ID           string    `json:"id"        db:"id"`
	Email        string    `json:"email"     db:"email"`
	PasswordHash string    `json:"-"         db:"password_hash"`
	GitHubID     int64     `json:"githubId,omitempty"  db:"github_id"` // 0 when the account is password-based
	Login        string    `json:"login"     db:"login"`               // Display name / GitHub username
	AvatarURL    string    `json:"avatarUrl" db:"avatar_url"`          // Profile picture URL (may be empty)
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}
