// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data — similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import "time"

// Snippet represents a saved code snippet owned by a single user.
//
// The `json:"..."` tags tell Go's encoding/json package how to serialize/deserialize
// this struct to/from JSON. The field names match what the editor frontend expects.
//
// OWNERSHIP AND SHARING MODEL:
//   - OwnerID is set once at creation (from the authenticated caller) and never
//     accepted from a request body. It appears in payloads but confers no access
//     by itself — access always goes through the verified caller identity.
//   - SharedID is absent (nil) until the snippet is shared for the first time.
//     Once assigned, it is stable for the life of the record; re-sharing reuses it.
//   - A snippet is publicly readable only when IsPublic is true AND SharedID is
//     set. Both conditions are checked by the store's shared-read query.
//
// WHY *string FOR SharedID?
// The sharing token is genuinely optional — "no token yet" and "empty token" are
// different things. A nil pointer maps cleanly to SQL NULL and to a missing JSON
// field (`omitempty`), whereas an empty string would collide with the UNIQUE
// constraint as soon as two unshared snippets existed.
type Snippet struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"userId"`
	Title     string    `json:"title"`
	Language  Language  `json:"language"`
	Code      string    `json:"code"`
	IsPublic  bool      `json:"isPublic"`
	SharedID  *string   `json:"sharedId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Shared reports whether this snippet has ever been shared.
// Note that a shared snippet may still be private (IsPublic false) if visibility
// was revoked after the token was issued — the token alone grants nothing.
func (s *Snippet) Shared() bool {
	return s.SharedID != nil && *s.SharedID != ""
}
