// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// The service accepts primitives and domain types, never *http.Request, and
// returns domain errors (apperror), never status codes. The handler translates
// in both directions. Because the service receives the repository INTERFACE
// (not *sqlite.DB), tests inject an in-memory mock and never touch SQL.
//
// AUTHORIZATION MODEL:
// Every mutating method takes the verified caller identity (ownerID) and
// threads it into the ownership-scoped repository call. There is no separate
// "does it exist" check followed by "is it yours" — one query answers both,
// atomically, and a non-owner gets the same answer as a missing record.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/xid"

	"github.com/sakif/code-share/internal/apperror"
	"github.com/sakif/code-share/internal/model"
	"github.com/sakif/code-share/internal/repository"
)

// Validation constants. Named constants instead of magic numbers: easy to
// find, self-documenting, referenceable in error messages.
const (
	MaxTitleLength = 200
	MaxCodeLength  = 100000 // ~100KB of code

	// sharedReadCacheSize bounds the in-process cache of public snippets.
	// Shared links are read-heavy (one share, many anonymous readers), so
	// even a small LRU absorbs most of the read traffic.
	sharedReadCacheSize = 256

	// shareTokenAttempts bounds the collision-retry loop. xid collisions are
	// effectively impossible, so more than one retry means something is wrong
	// with the environment, not with our luck.
	shareTokenAttempts = 3
)

// SnippetService handles business logic for snippets: lifecycle, ownership,
// sharing and the anonymous read path.
type SnippetService struct {
	repo   repository.SnippetRepository
	logger *slog.Logger

	// shared caches public snippets by sharing token for the anonymous read
	// path. Entries are copies — cache hits hand out values, never pointers
	// into the cache. Invalidated whenever the underlying record mutates.
	shared *lru.Cache[string, model.Snippet]
}

// NewSnippetService creates a SnippetService.
//
// CONSTRUCTOR PATTERN IN GO:
// Go has no constructors; NewXxx functions take all dependencies as
// parameters. The caller decides WHICH repository implementation to use
// (SQLite in production, a mock in tests).
func NewSnippetService(repo repository.SnippetRepository, logger *slog.Logger) *SnippetService {
	// lru.New only fails for a non-positive size, and ours is a constant.
	cache, _ := lru.New[string, model.Snippet](sharedReadCacheSize)
	return &SnippetService{
		repo:   repo,
		logger: logger,
		shared: cache,
	}
}

// Create validates and saves a new snippet owned by ownerID.
//
// The caller identity comes from the auth middleware, never from the request
// body — id and ownerId are not client-settable fields.
func (s *SnippetService) Create(ctx context.Context, ownerID, title string, language model.Language, code string) (*model.Snippet, error) {
	title = strings.TrimSpace(title)

	if title == "" {
		return nil, apperror.ValidationFailed("title", "snippet title is required")
	}
	if len(title) > MaxTitleLength {
		return nil, apperror.ValidationFailed("title",
			fmt.Sprintf("snippet title must be %d characters or less", MaxTitleLength))
	}
	if language == "" {
		language = model.DefaultLanguage
	}
	if !language.Valid() {
		return nil, apperror.ValidationFailed("language",
			fmt.Sprintf("unsupported language %q", language))
	}
	if len(code) > MaxCodeLength {
		return nil, apperror.ValidationFailed("code",
			fmt.Sprintf("code must be %d characters or less", MaxCodeLength))
	}

	snippet := &model.Snippet{
		OwnerID:  ownerID,
		Title:    title,
		Language: language,
		Code:     code,
	}

	if err := s.repo.Create(ctx, snippet); err != nil {
		s.logger.Error("failed to create snippet",
			slog.String("ownerID", ownerID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating snippet: %w", err)
	}

	s.logger.Info("snippet created",
		slog.String("id", snippet.ID),
		slog.String("ownerID", ownerID),
	)

	return snippet, nil
}

// GetByID returns one of the caller's own snippets (used by the download path).
func (s *SnippetService) GetByID(ctx context.Context, id, ownerID string) (*model.Snippet, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "snippet ID is required")
	}
	return s.repo.GetByID(ctx, id, ownerID)
}

// GetShared is the anonymous read path: resolve a sharing token to a public
// snippet. Private records and unknown tokens are both NotFound — the token
// alone proves nothing about what exists.
//
// READ-THROUGH CACHE:
// Hits skip the store entirely. Only confirmed-public records are cached;
// misses are not (a negative cache would delay a fresh share from becoming
// visible). Mutation paths invalidate affected entries.
func (s *SnippetService) GetShared(ctx context.Context, sharedID string) (*model.Snippet, error) {
	sharedID = strings.TrimSpace(sharedID)
	if sharedID == "" {
		return nil, apperror.ValidationFailed("sharedId", "sharing token is required")
	}

	if cached, ok := s.shared.Get(sharedID); ok {
		hit := cached
		return &hit, nil
	}

	snippet, err := s.repo.GetBySharedID(ctx, sharedID)
	if err != nil {
		return nil, err
	}

	s.shared.Add(sharedID, *snippet)
	return snippet, nil
}

// ListMine returns the caller's snippets, most recently updated first.
func (s *SnippetService) ListMine(ctx context.Context, ownerID string) ([]model.Snippet, error) {
	snippets, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		s.logger.Error("failed to list snippets",
			slog.String("ownerID", ownerID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing snippets: %w", err)
	}
	return snippets, nil
}

// Update applies a partial update to the caller's snippet and returns the
// affected count.
//
// THE COUNT CONTRACT:
// count==0 with a nil error means "no record matched id+owner" — wrong id or
// not yours. It is the CALLER's job to treat that as "nothing changed", not
// as success. We deliberately do not convert it to an error: the distinction
// between "mutation failed" and "mutation matched nothing" is the point.
func (s *SnippetService) Update(ctx context.Context, id, ownerID string, patch repository.SnippetPatch) (int64, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return 0, apperror.ValidationFailed("id", "snippet ID is required")
	}
	if patch.Empty() {
		return 0, apperror.ValidationFailed("body", "no updatable fields in request")
	}

	if patch.Title != nil {
		trimmed := strings.TrimSpace(*patch.Title)
		if trimmed == "" {
			return 0, apperror.ValidationFailed("title", "snippet title is required")
		}
		if len(trimmed) > MaxTitleLength {
			return 0, apperror.ValidationFailed("title",
				fmt.Sprintf("snippet title must be %d characters or less", MaxTitleLength))
		}
		patch.Title = &trimmed
	}
	if patch.Language != nil && !patch.Language.Valid() {
		return 0, apperror.ValidationFailed("language",
			fmt.Sprintf("unsupported language %q", *patch.Language))
	}
	if patch.Code != nil && len(*patch.Code) > MaxCodeLength {
		return 0, apperror.ValidationFailed("code",
			fmt.Sprintf("code must be %d characters or less", MaxCodeLength))
	}

	count, err := s.repo.UpdateFields(ctx, id, ownerID, patch)
	if err != nil {
		s.logger.Error("failed to update snippet",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return 0, fmt.Errorf("updating snippet: %w", err)
	}

	if count > 0 {
		s.invalidateShared(id)
		s.logger.Info("snippet updated", slog.String("id", id))
	}

	return count, nil
}

// Delete removes the caller's snippet. Same count contract as Update:
// deleting a record that isn't yours (or doesn't exist) reports count 0.
func (s *SnippetService) Delete(ctx context.Context, id, ownerID string) (int64, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return 0, apperror.ValidationFailed("id", "snippet ID is required")
	}

	count, err := s.repo.Delete(ctx, id, ownerID)
	if err != nil {
		s.logger.Error("failed to delete snippet",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return 0, fmt.Errorf("deleting snippet: %w", err)
	}

	if count > 0 {
		s.invalidateShared(id)
		s.logger.Info("snippet deleted", slog.String("id", id))
	}

	return count, nil
}

// Share makes the caller's snippet publicly readable and returns its sharing
// token.
//
// IDEMPOTENCE:
// Sharing an already-shared snippet re-asserts visibility and returns the
// SAME token — share links never rotate. (Revocation/rotation is a possible
// future feature; today a link, once created, is stable for the record's life.)
//
// COLLISION BACKSTOP:
// Tokens are xids — random enough that collisions are negligible — but the
// store's UNIQUE constraint is the real guarantee. If an insert collides, we
// retry with a fresh token instead of overwriting anything.
func (s *SnippetService) Share(ctx context.Context, id, ownerID string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", apperror.ValidationFailed("id", "snippet ID is required")
	}

	snippet, err := s.repo.GetByID(ctx, id, ownerID)
	if err != nil {
		return "", err // NotFound covers both "absent" and "not yours"
	}

	if snippet.Shared() {
		// Re-share: reuse the token, just make sure the record is public again.
		if !snippet.IsPublic {
			if _, err := s.repo.SetPublic(ctx, id, ownerID, true); err != nil {
				return "", fmt.Errorf("restoring snippet visibility: %w", err)
			}
			s.invalidateShared(id)
		}
		return *snippet.SharedID, nil
	}

	for attempt := 1; attempt <= shareTokenAttempts; attempt++ {
		token := xid.New().String()

		count, err := s.repo.SetShared(ctx, id, ownerID, token)
		if err != nil {
			if errors.Is(err, apperror.ErrConflict) {
				s.logger.Warn("sharing token collision, retrying",
					slog.String("id", id),
					slog.Int("attempt", attempt),
				)
				continue
			}
			return "", fmt.Errorf("sharing snippet: %w", err)
		}
		if count == 0 {
			// The record moved under us between the read and the update —
			// deleted, or shared by a parallel request. Re-read to find out.
			snippet, err := s.repo.GetByID(ctx, id, ownerID)
			if err != nil {
				return "", err
			}
			if snippet.Shared() {
				return *snippet.SharedID, nil
			}
			return "", apperror.NotFound("snippet", id)
		}

		s.logger.Info("snippet shared",
			slog.String("id", id),
			slog.String("sharedId", token),
		)
		return token, nil
	}

	return "", fmt.Errorf("sharing snippet %s: token space exhausted after %d attempts", id, shareTokenAttempts)
}

// invalidateShared drops any cache entry belonging to snippet id. The cache
// is keyed by token, so we scan the (small, bounded) key set for a match.
func (s *SnippetService) invalidateShared(id string) {
	for _, key := range s.shared.Keys() {
		if cached, ok := s.shared.Peek(key); ok && cached.ID == id {
			s.shared.Remove(key)
			return
		}
	}
}
