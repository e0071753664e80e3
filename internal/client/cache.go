package client

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/sakif/code-share/internal/model"
)

// ErrActionPending is returned when an action is requested for a snippet id
// that already has one in flight. The caller retries after the first action
// resolves; the two are never interleaved.
var ErrActionPending = errors.New("client: another action is pending for this snippet")

// Outcome reports what a confirmed mutation did to the local mirror.
//
// NoChange is NOT an error: the network call succeeded, the server just
// reported that zero records matched (deleted elsewhere, or ownership
// changed). The caller shows "nothing to update" instead of a failure toast
// indistinguishable from a network error.
type Outcome int

const (
	// Applied — the server confirmed the change and the mirror was updated.
	Applied Outcome = iota
	// NoChange — the server reported count 0; the mirror was left untouched.
	NoChange
)

// Cache is a per-session local mirror of the caller's snippets.
//
// THE CORE RULE: THE MIRROR NEVER LEADS THE SERVER.
// Every mutation goes to the server first; the local record changes only
// after the server confirms (count > 0). On any failure the mirror is
// exactly what it was before the call — no half-mutated records.
//
// PER-ID PENDING FLAG:
// Each snippet id allows at most one in-flight action. A second action on
// the same id is rejected with ErrActionPending. Actions on DIFFERENT ids
// run concurrently: the mutex guards only the maps and is released during
// network calls.
type Cache struct {
	api    *Client
	origin string // base URL for share links, e.g. "https://codeshare.app"

	mu       sync.Mutex
	snippets map[string]model.Snippet
	pending  map[string]bool
}

// NewCache creates an empty Cache over the given API client. origin is the
// public base URL used to build share links.
func NewCache(api *Client, origin string) *Cache {
	return &Cache{
		api:      api,
		origin:   origin,
		snippets: make(map[string]model.Snippet),
		pending:  make(map[string]bool),
	}
}

// begin marks an action on id as in flight, or rejects it if one already is.
func (c *Cache) begin(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending[id] {
		return ErrActionPending
	}
	c.pending[id] = true
	return nil
}

// finish returns the id to idle. Runs on every exit path, success or not.
func (c *Cache) finish(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// Load replaces the mirror with the server's current list of the caller's
// snippets. Call once at session start and after reconnects.
func (c *Cache) Load(ctx context.Context) error {
	snippets, err := c.api.ListSnippets(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.snippets = make(map[string]model.Snippet, len(snippets))
	for _, s := range snippets {
		c.snippets[s.ID] = s
	}
	return nil
}

// Snippets returns a copy of the mirror, newest-updated first — the same
// order the server lists in.
func (c *Cache) Snippets() []model.Snippet {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]model.Snippet, 0, len(c.snippets))
	for _, s := range c.snippets {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

// Get returns the mirrored snippet for id, if present.
func (c *Cache) Get(id string) (model.Snippet, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.snippets[id]
	return s, ok
}

// Delete removes a snippet on the server, then from the mirror.
//
//	count > 0 → record removed locally, Applied
//	count = 0 → record kept locally, NoChange (it may already be gone
//	            server-side; the next Load reconciles)
//	error     → mirror untouched, id back to idle
func (c *Cache) Delete(ctx context.Context, id string) (Outcome, error) {
	if err := c.begin(id); err != nil {
		return NoChange, err
	}
	defer c.finish(id)

	count, err := c.api.DeleteSnippet(ctx, id)
	if err != nil {
		return NoChange, err
	}
	if count == 0 {
		return NoChange, nil
	}

	c.mu.Lock()
	delete(c.snippets, id)
	c.mu.Unlock()
	return Applied, nil
}

// Update applies a partial update on the server and, if confirmed, merges
// the same patch into the local record and stamps a fresh updatedAt.
//
// The local stamp is the client's clock, not the server's — close enough for
// ordering the local list, and the next Load replaces it with the truth.
func (c *Cache) Update(ctx context.Context, id string, patch SnippetPatch) (Outcome, error) {
	if err := c.begin(id); err != nil {
		return NoChange, err
	}
	defer c.finish(id)

	count, err := c.api.UpdateSnippet(ctx, id, patch)
	if err != nil {
		return NoChange, err
	}
	if count == 0 {
		return NoChange, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.snippets[id]
	if !ok {
		// Confirmed server-side but not mirrored (e.g. Load never ran).
		// Nothing to merge; the next Load picks it up.
		return Applied, nil
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
	s.UpdatedAt = time.Now().UTC()
	c.snippets[id] = s
	return Applied, nil
}

// Share makes a snippet public and returns its share URL. On success the
// sharing token and visibility are written into the local record.
func (c *Cache) Share(ctx context.Context, id string) (string, error) {
	if err := c.begin(id); err != nil {
		return "", err
	}
	defer c.finish(id)

	sharedID, err := c.api.ShareSnippet(ctx, id)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	if s, ok := c.snippets[id]; ok {
		s.SharedID = &sharedID
		s.IsPublic = true
		c.snippets[id] = s
	}
	c.mu.Unlock()

	return c.shareURL(sharedID), nil
}

// ShareNew is the editor's "share before save": the buffer has never been
// saved, so there is no id yet. It creates the snippet (title falls back to
// "Untitled"), shares it, and inserts the confirmed record into the mirror.
//
// If the share step fails the created snippet stays server-side as a
// private draft; it shows up on the next Load and can be shared from there.
func (c *Cache) ShareNew(ctx context.Context, title string, language model.Language, code string) (string, error) {
	if title == "" {
		title = "Untitled"
	}

	snippet, err := c.api.CreateSnippet(ctx, title, language, code)
	if err != nil {
		return "", err
	}

	sharedID, err := c.api.ShareSnippet(ctx, snippet.ID)
	if err != nil {
		return "", err
	}

	snippet.SharedID = &sharedID
	snippet.IsPublic = true

	c.mu.Lock()
	c.snippets[snippet.ID] = *snippet
	c.mu.Unlock()

	return c.shareURL(sharedID), nil
}

func (c *Cache) shareURL(sharedID string) string {
	return c.origin + "/?shared=" + sharedID
}
