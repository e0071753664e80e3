package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/code-share/internal/apperror"
	"github.com/sakif/code-share/internal/model"
	"github.com/sakif/code-share/internal/repository"
)

// COMPILE-TIME INTERFACE CHECK:
// `var _ X = (*Y)(nil)` verifies AT COMPILE TIME that *DB implements the
// repository interface. If a method is missing, the compiler errors here
// instead of at some distant call site. Standard Go practice.
var _ repository.SnippetRepository = (*DB)(nil)

const snippetColumns = `id, owner_id, title, language, code, is_public, shared_id, created_at, updated_at`

// scanSnippet reads one row into a model.Snippet. Shared by every SELECT in
// this file, so the column order lives in exactly one place (snippetColumns).
//
// shared_id is nullable in SQL, so we scan into sql.NullString and convert to
// the model's *string — NULL becomes nil, which serializes as a missing field.
func scanSnippet(row interface{ Scan(...any) error }) (*model.Snippet, error) {
	var (
		s        model.Snippet
		sharedID sql.NullString
	)
	err := row.Scan(
		&s.ID, &s.OwnerID, &s.Title, &s.Language, &s.Code,
		&s.IsPublic, &sharedID, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if sharedID.Valid {
		s.SharedID = &sharedID.String
	}
	return &s, nil
}

// Create inserts a new snippet.
//
// ID GENERATION WITH xid:
// xid generates 20-char, URL-safe, creation-time-sortable IDs like
// "cv37rs3pp9olc6atsptg". We use the same generator for snippet IDs and for
// sharing tokens — the two live in different uniqueness domains (primary key
// vs shared_id column), so they never interfere.
//
// The caller's struct is modified in place: after Create(), it carries the
// generated ID and timestamps. IsPublic and SharedID are forced to their
// creation defaults regardless of what the caller put in the struct — those
// fields are only ever set through the sharing path.
func (db *DB) Create(ctx context.Context, snippet *model.Snippet) error {
	snippet.ID = xid.New().String()
	snippet.IsPublic = false
	snippet.SharedID = nil

	now := time.Now().UTC()
	snippet.CreatedAt = now
	snippet.UpdatedAt = now

	// PARAMETERIZED QUERIES (the ? placeholders):
	// Never build SQL with string concatenation — the driver escapes every
	// value, which is what prevents SQL injection.
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO snippets (id, owner_id, title, language, code, is_public, shared_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, 0, NULL, ?, ?)`,
		snippet.ID,
		snippet.OwnerID,
		snippet.Title,
		snippet.Language,
		snippet.Code,
		snippet.CreatedAt,
		snippet.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating snippet: %w", err)
	}

	return nil
}

// GetByID retrieves a snippet by ID, scoped to its owner.
//
// The WHERE clause matches id AND owner_id together, so "someone else's
// snippet" and "no such snippet" produce the same NotFound — the caller
// cannot probe for the existence of other users' records.
func (db *DB) GetByID(ctx context.Context, id, ownerID string) (*model.Snippet, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+snippetColumns+` FROM snippets WHERE id = ? AND owner_id = ?`,
		id, ownerID,
	)

	snippet, err := scanSnippet(row)
	if err != nil {
		// sql.ErrNoRows is a sentinel, not a real failure — translate it to
		// the domain's NotFound so the handler returns 404.
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("snippet", id)
		}
		return nil, fmt.Errorf("sqlite: getting snippet %s: %w", id, err)
	}

	return snippet, nil
}

// GetBySharedID is the anonymous read path.
//
// BOTH conditions live in the query: the token must match AND the record must
// be public. A record that was shared and later made private, or a row that
// somehow has is_public without a token, is invisible here.
func (db *DB) GetBySharedID(ctx context.Context, sharedID string) (*model.Snippet, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+snippetColumns+` FROM snippets WHERE shared_id = ? AND is_public = 1`,
		sharedID,
	)

	snippet, err := scanSnippet(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("shared snippet", sharedID)
		}
		return nil, fmt.Errorf("sqlite: getting shared snippet %s: %w", sharedID, err)
	}

	return snippet, nil
}

// ListByOwner returns one user's snippets, most recently updated first.
// The (owner_id, updated_at DESC) index makes this a straight index walk.
func (db *DB) ListByOwner(ctx context.Context, ownerID string) ([]model.Snippet, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+snippetColumns+` FROM snippets
		 WHERE owner_id = ?
		 ORDER BY updated_at DESC, id DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing snippets: %w", err)
	}
	// CRITICAL: always close rows — a leaked sql.Rows holds a pool connection.
	defer rows.Close()

	snippets := []model.Snippet{}
	for rows.Next() {
		s, err := scanSnippet(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning snippet row: %w", err)
		}
		snippets = append(snippets, *s)
	}

	// rows.Err() catches errors that happened DURING iteration.
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating snippets: %w", err)
	}

	return snippets, nil
}

// UpdateFields applies a partial update to the record matching id AND owner_id.
//
// THE COUNT CONTRACT:
// Returns how many rows the UPDATE touched — 0 or 1, since id is the primary
// key. Zero means "no record matched both keys" (wrong id, or not the owner);
// it is NOT an error. The service and ultimately the client use the count to
// distinguish "applied" from "nothing changed".
//
// The SET clause is assembled from the typed patch, so only title, language
// and code can ever appear in it. updated_at is always refreshed.
func (db *DB) UpdateFields(ctx context.Context, id, ownerID string, patch repository.SnippetPatch) (int64, error) {
	if patch.Empty() {
		return 0, nil
	}

	set := make([]string, 0, 4)
	args := make([]any, 0, 6)

	if patch.Title != nil {
		set = append(set, "title = ?")
		args = append(args, *patch.Title)
	}
	if patch.Language != nil {
		set = append(set, "language = ?")
		args = append(args, *patch.Language)
	}
	if patch.Code != nil {
		set = append(set, "code = ?")
		args = append(args, *patch.Code)
	}
	set = append(set, "updated_at = ?")
	args = append(args, time.Now().UTC())

	args = append(args, id, ownerID)

	result, err := db.conn.ExecContext(ctx,
		`UPDATE snippets SET `+strings.Join(set, ", ")+` WHERE id = ? AND owner_id = ?`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: updating snippet %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return affected, nil
}

// SetShared stores the sharing token and makes the snippet public in one
// owner-scoped statement.
//
// The extra `shared_id IS NULL` guard enforces token stability at the SQL
// level: an already-shared record can never have its token overwritten, even
// if two share requests race. The service only calls this when its own read
// saw no token, so count=0 here means the row moved underneath us.
//
// UNIQUENESS BACKSTOP:
// shared_id carries a UNIQUE constraint. If the freshly generated token
// collides with another record's, the UPDATE fails and we surface
// apperror.ErrConflict — the service retries with a new token rather than
// silently pointing two links at one snippet.
func (db *DB) SetShared(ctx context.Context, id, ownerID, sharedID string) (int64, error) {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE snippets
		 SET shared_id = ?, is_public = 1, updated_at = ?
		 WHERE id = ? AND owner_id = ? AND shared_id IS NULL`,
		sharedID, time.Now().UTC(), id, ownerID,
	)
	if err != nil {
		if isSharedIDConflict(err) {
			return 0, apperror.Conflict("sharing token", sharedID)
		}
		return 0, fmt.Errorf("sqlite: sharing snippet %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return affected, nil
}

// SetPublic flips visibility without touching the token. Used to re-assert
// is_public=1 on an idempotent re-share (and available for future unshare).
func (db *DB) SetPublic(ctx context.Context, id, ownerID string, public bool) (int64, error) {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE snippets SET is_public = ?, updated_at = ? WHERE id = ? AND owner_id = ?`,
		public, time.Now().UTC(), id, ownerID,
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: setting visibility of snippet %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return affected, nil
}

// Delete removes the record matching id AND owner_id. Same count contract as
// UpdateFields — deleting someone else's snippet reports 0, not an error.
func (db *DB) Delete(ctx context.Context, id, ownerID string) (int64, error) {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM snippets WHERE id = ? AND owner_id = ?`,
		id, ownerID,
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: deleting snippet %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return affected, nil
}

// isSharedIDConflict detects a UNIQUE violation on snippets.shared_id.
// modernc.org/sqlite reports constraint failures as plain error strings
// naming the column, so string matching is the only available check.
func isSharedIDConflict(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed: snippets.shared_id")
}
