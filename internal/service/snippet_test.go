package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/sakif/code-share/internal/apperror"
	"github.com/sakif/code-share/internal/model"
	"github.com/sakif/code-share/internal/repository"
)

// =========================================================================
// MOCK REPOSITORY
// =========================================================================
//
// A mock is a fake implementation of an interface used in tests. Instead of
// talking to SQLite, it stores data in memory and mirrors the store's
// semantics exactly: every mutation matches id AND owner together, counts
// come back 0 or 1, and shared_id uniqueness is enforced.
//
// In production code you might reach for testify/mock; a hand-written mock
// keeps the semantics visible, which matters here because the semantics ARE
// what's under test.

type mockSnippetRepo struct {
	snippets map[string]*model.Snippet
	nextID   int

	// shareConflicts makes the next N SetShared calls fail with ErrConflict,
	// simulating a token collision against the UNIQUE constraint.
	shareConflicts int
}

func newMockRepo() *mockSnippetRepo {
	return &mockSnippetRepo{snippets: make(map[string]*model.Snippet)}
}

func (m *mockSnippetRepo) Create(_ context.Context, snippet *model.Snippet) error {
	m.nextID++
	snippet.ID = fmt.Sprintf("mock-%d", m.nextID)
	snippet.IsPublic = false
	snippet.SharedID = nil
	now := time.Now()
	snippet.CreatedAt = now
	snippet.UpdatedAt = now
	stored := *snippet
	m.snippets[snippet.ID] = &stored
	return nil
}

func (m *mockSnippetRepo) GetByID(_ context.Context, id, ownerID string) (*model.Snippet, error) {
	s, ok := m.snippets[id]
	if !ok || s.OwnerID != ownerID {
		return nil, apperror.NotFound("snippet", id)
	}
	result := *s
	return &result, nil
}

func (m *mockSnippetRepo) GetBySharedID(_ context.Context, sharedID string) (*model.Snippet, error) {
	for _, s := range m.snippets {
		if s.Shared() && *s.SharedID == sharedID && s.IsPublic {
			result := *s
			return &result, nil
		}
	}
	return nil, apperror.NotFound("shared snippet", sharedID)
}

func (m *mockSnippetRepo) ListByOwner(_ context.Context, ownerID string) ([]model.Snippet, error) {
	result := []model.Snippet{}
	for _, s := range m.snippets {
		if s.OwnerID == ownerID {
			result = append(result, *s)
		}
	}
	return result, nil
}

func (m *mockSnippetRepo) UpdateFields(_ context.Context, id, ownerID string, patch repository.SnippetPatch) (int64, error) {
	s, ok := m.snippets[id]
	if !ok || s.OwnerID != ownerID {
		return 0, nil
	}
	if patch.Title != nil {
		s.Title = *patch.Title
	}
	if patch.Language != nil {
		s.Language = *patch.Language
	}
	if patch.Code != nil {
		s.Code = *patch.Code
	}
	s.UpdatedAt = time.Now()
	return 1, nil
}

func (m *mockSnippetRepo) SetShared(_ context.Context, id, ownerID, sharedID string) (int64, error) {
	if m.shareConflicts > 0 {
		m.shareConflicts--
		return 0, apperror.Conflict("sharing token", sharedID)
	}
	for _, other := range m.snippets {
		if other.Shared() && *other.SharedID == sharedID {
			return 0, apperror.Conflict("sharing token", sharedID)
		}
	}
	s, ok := m.snippets[id]
	if !ok || s.OwnerID != ownerID || s.SharedID != nil {
		return 0, nil
	}
	token := sharedID
	s.SharedID = &token
	s.IsPublic = true
	s.UpdatedAt = time.Now()
	return 1, nil
}

func (m *mockSnippetRepo) SetPublic(_ context.Context, id, ownerID string, public bool) (int64, error) {
	s, ok := m.snippets[id]
	if !ok || s.OwnerID != ownerID {
		return 0, nil
	}
	s.IsPublic = public
	s.UpdatedAt = time.Now()
	return 1, nil
}

func (m *mockSnippetRepo) Delete(_ context.Context, id, ownerID string) (int64, error) {
	s, ok := m.snippets[id]
	if !ok || s.OwnerID != ownerID {
		return 0, nil
	}
	delete(m.snippets, id)
	return 1, nil
}

// =========================================================================
// TEST HELPERS
// =========================================================================

func newTestService(t *testing.T) (*SnippetService, *mockSnippetRepo) {
	t.Helper()
	repo := newMockRepo()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	svc := NewSnippetService(repo, logger)
	return svc, repo
}

func mustCreate(t *testing.T, svc *SnippetService, ownerID, title string) *model.Snippet {
	t.Helper()
	snippet, err := svc.Create(context.Background(), ownerID, title, model.LangPython, "print(1)")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return snippet
}

func strptr(s string) *string { return &s }

// =========================================================================
// CREATE TESTS
// =========================================================================

func TestCreate_Success(t *testing.T) {
	svc, _ := newTestService(t)

	snippet, err := svc.Create(context.Background(), "u1", "t", model.LangPython, "print(1)")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if snippet.ID == "" {
		t.Error("expected snippet to have an ID")
	}
	if snippet.OwnerID != "u1" {
		t.Errorf("OwnerID = %q, want %q", snippet.OwnerID, "u1")
	}
	if snippet.IsPublic {
		t.Error("new snippet must not be public")
	}
	if snippet.SharedID != nil {
		t.Error("new snippet must not have a sharedId")
	}
}

func TestCreate_EmptyTitle(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Create(context.Background(), "u1", "   ", model.LangGo, "x")
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("Create() with empty title: error = %v, want ErrValidation", err)
	}
}

func TestCreate_UnsupportedLanguage(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Create(context.Background(), "u1", "t", model.Language("cobol"), "x")
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("Create() with unknown language: error = %v, want ErrValidation", err)
	}
}

func TestCreate_EmptyLanguageDefaults(t *testing.T) {
	svc, _ := newTestService(t)

	snippet, err := svc.Create(context.Background(), "u1", "t", "", "x")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if snippet.Language != model.DefaultLanguage {
		t.Errorf("Language = %q, want default %q", snippet.Language, model.DefaultLanguage)
	}
}

// =========================================================================
// UPDATE TESTS
// =========================================================================

func TestUpdate_AppliedForOwner(t *testing.T) {
	svc, repo := newTestService(t)
	snippet := mustCreate(t, svc, "u1", "before")

	count, err := svc.Update(context.Background(), snippet.ID, "u1",
		repository.SnippetPatch{Title: strptr("after")})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if count != 1 {
		t.Fatalf("Update() count = %d, want 1", count)
	}
	if repo.snippets[snippet.ID].Title != "after" {
		t.Errorf("stored title = %q, want %q", repo.snippets[snippet.ID].Title, "after")
	}
}

func TestUpdate_OwnershipIsolation(t *testing.T) {
	// Create snippet A as user U1; attempt to update it as U2.
	// The mutation must report count 0 AND leave the record untouched.
	svc, repo := newTestService(t)
	snippet := mustCreate(t, svc, "u1", "original")

	count, err := svc.Update(context.Background(), snippet.ID, "u2",
		repository.SnippetPatch{Title: strptr("x")})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if count != 0 {
		t.Fatalf("Update() by non-owner: count = %d, want 0", count)
	}
	if repo.snippets[snippet.ID].Title != "original" {
		t.Errorf("title mutated by non-owner: %q", repo.snippets[snippet.ID].Title)
	}
}

func TestUpdate_EmptyPatchIsValidationError(t *testing.T) {
	svc, _ := newTestService(t)
	snippet := mustCreate(t, svc, "u1", "t")

	_, err := svc.Update(context.Background(), snippet.ID, "u1", repository.SnippetPatch{})
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("Update() with empty patch: error = %v, want ErrValidation", err)
	}
}

// =========================================================================
// DELETE TESTS
// =========================================================================

func TestDelete_OwnershipIsolation(t *testing.T) {
	svc, repo := newTestService(t)
	snippet := mustCreate(t, svc, "u1", "keep me")

	count, err := svc.Delete(context.Background(), snippet.ID, "u2")
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if count != 0 {
		t.Fatalf("Delete() by non-owner: count = %d, want 0", count)
	}
	if _, ok := repo.snippets[snippet.ID]; !ok {
		t.Error("record deleted by non-owner")
	}

	count, err = svc.Delete(context.Background(), snippet.ID, "u1")
	if err != nil {
		t.Fatalf("Delete() by owner: error = %v", err)
	}
	if count != 1 {
		t.Fatalf("Delete() by owner: count = %d, want 1", count)
	}
}

// =========================================================================
// SHARE TESTS
// =========================================================================

func TestShare_Idempotent(t *testing.T) {
	svc, _ := newTestService(t)
	snippet := mustCreate(t, svc, "u1", "share me")

	first, err := svc.Share(context.Background(), snippet.ID, "u1")
	if err != nil {
		t.Fatalf("Share() first call: %v", err)
	}
	if first == "" {
		t.Fatal("Share() returned empty token")
	}

	second, err := svc.Share(context.Background(), snippet.ID, "u1")
	if err != nil {
		t.Fatalf("Share() second call: %v", err)
	}
	if second != first {
		t.Errorf("re-share rotated the token: %q -> %q", first, second)
	}

	// The shared read must now resolve the token to a public record.
	got, err := svc.GetShared(context.Background(), first)
	if err != nil {
		t.Fatalf("GetShared() after share: %v", err)
	}
	if got.ID != snippet.ID || !got.IsPublic {
		t.Errorf("GetShared() = %+v, want public snippet %s", got, snippet.ID)
	}
}

func TestShare_NotOwner(t *testing.T) {
	svc, _ := newTestService(t)
	snippet := mustCreate(t, svc, "u1", "mine")

	_, err := svc.Share(context.Background(), snippet.ID, "u2")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Share() by non-owner: error = %v, want ErrNotFound", err)
	}
}

func TestShare_RetriesOnTokenCollision(t *testing.T) {
	svc, repo := newTestService(t)
	snippet := mustCreate(t, svc, "u1", "unlucky")

	// First SetShared attempt collides; the service must retry with a fresh
	// token rather than fail or overwrite.
	repo.shareConflicts = 1

	token, err := svc.Share(context.Background(), snippet.ID, "u1")
	if err != nil {
		t.Fatalf("Share() with one collision: %v", err)
	}
	if token == "" {
		t.Fatal("Share() returned empty token after retry")
	}
	if repo.shareConflicts != 0 {
		t.Error("collision was not consumed — retry did not happen")
	}
}

// =========================================================================
// SHARED READ TESTS
// =========================================================================

func TestGetShared_UnknownToken(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.GetShared(context.Background(), "no-such-token")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetShared() error = %v, want ErrNotFound", err)
	}
}

func TestGetShared_NeverServesPrivateRecords(t *testing.T) {
	svc, repo := newTestService(t)
	snippet := mustCreate(t, svc, "u1", "t")

	// A token with is_public=false must stay invisible, even though the
	// token exists on the row.
	token := "stale-token"
	repo.snippets[snippet.ID].SharedID = &token
	repo.snippets[snippet.ID].IsPublic = false

	_, err := svc.GetShared(context.Background(), token)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetShared() on private record: error = %v, want ErrNotFound", err)
	}
}

func TestGetShared_CacheInvalidatedByUpdate(t *testing.T) {
	svc, _ := newTestService(t)
	snippet := mustCreate(t, svc, "u1", "cached")

	token, err := svc.Share(context.Background(), snippet.ID, "u1")
	if err != nil {
		t.Fatalf("Share() error = %v", err)
	}

	// Prime the cache.
	if _, err := svc.GetShared(context.Background(), token); err != nil {
		t.Fatalf("GetShared() prime: %v", err)
	}

	// Mutate through the service — the cached entry must not survive.
	if _, err := svc.Update(context.Background(), snippet.ID, "u1",
		repository.SnippetPatch{Code: strptr("updated code")}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := svc.GetShared(context.Background(), token)
	if err != nil {
		t.Fatalf("GetShared() after update: %v", err)
	}
	if got.Code != "updated code" {
		t.Errorf("GetShared() served stale code %q after update", got.Code)
	}
}

func TestGetShared_CacheInvalidatedByDelete(t *testing.T) {
	svc, _ := newTestService(t)
	snippet := mustCreate(t, svc, "u1", "gone soon")

	token, err := svc.Share(context.Background(), snippet.ID, "u1")
	if err != nil {
		t.Fatalf("Share() error = %v", err)
	}
	if _, err := svc.GetShared(context.Background(), token); err != nil {
		t.Fatalf("GetShared() prime: %v", err)
	}

	if _, err := svc.Delete(context.Background(), snippet.ID, "u1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	_, err = svc.GetShared(context.Background(), token)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetShared() after delete: error = %v, want ErrNotFound", err)
	}
}
