// Package client is the Go consumer side of the snippet API: a thin typed
// HTTP client (Client) and a per-session local mirror of the caller's
// snippets (Cache).
//
// An editor frontend embeds this package instead of hand-writing fetch
// calls: Client knows the routes and payloads, Cache knows how to keep a
// local collection consistent with what the server actually confirmed.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sakif/code-share/internal/model"
)

// APIError is a non-2xx response decoded from the server's standard error
// body. The Status field carries the HTTP status code so callers can branch
// on 404 vs 401 without string matching.
type APIError struct {
	Status  int
	Code    string `json:"error"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s: %s", e.Status, e.Code, e.Message)
}

// SnippetPatch is the body of an update call. Nil fields are omitted from
// the JSON and left untouched on the server; a non-nil empty string clears
// the field (for Code).
type SnippetPatch struct {
	Title    *string         `json:"title,omitempty"`
	Language *model.Language `json:"language,omitempty"`
	Code     *string         `json:"code,omitempty"`
}

// Client is a typed HTTP client for the snippet API. Safe for concurrent
// use; every call takes a context for timeout/cancellation.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New creates a Client for the API at baseURL (e.g. "https://codeshare.app")
// authenticating with the given bearer token. Pass an empty token for
// anonymous access (only GetShared works then).
func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// do runs one API request: marshal the body, set auth headers, decode the
// response into out (if non-nil), and turn non-2xx answers into *APIError.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("client: encoding request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("client: building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		apiErr := &APIError{Status: res.StatusCode}
		// Best effort: a proxy might answer with a non-JSON body.
		_ = json.NewDecoder(res.Body).Decode(apiErr)
		return apiErr
	}

	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			return fmt.Errorf("client: decoding response: %w", err)
		}
	}
	return nil
}

// ListSnippets returns all of the caller's snippets, newest-updated first.
func (c *Client) ListSnippets(ctx context.Context) ([]model.Snippet, error) {
	var snippets []model.Snippet
	if err := c.do(ctx, http.MethodGet, "/api/codes", nil, &snippets); err != nil {
		return nil, err
	}
	return snippets, nil
}

// CreateSnippet saves a new snippet and returns the server's record,
// including the assigned ID and timestamps.
func (c *Client) CreateSnippet(ctx context.Context, title string, language model.Language, code string) (*model.Snippet, error) {
	body := map[string]any{
		"title":    title,
		"language": language,
		"code":     code,
	}
	var snippet model.Snippet
	if err := c.do(ctx, http.MethodPost, "/api/codes", body, &snippet); err != nil {
		return nil, err
	}
	return &snippet, nil
}

// UpdateSnippet applies a partial update and returns the affected count:
// 1 if the server changed the record, 0 if nothing matched.
func (c *Client) UpdateSnippet(ctx context.Context, id string, patch SnippetPatch) (int64, error) {
	var res struct {
		Count int64 `json:"count"`
	}
	if err := c.do(ctx, http.MethodPut, "/api/codes/"+id, patch, &res); err != nil {
		return 0, err
	}
	return res.Count, nil
}

// DeleteSnippet removes a snippet and returns the affected count.
func (c *Client) DeleteSnippet(ctx context.Context, id string) (int64, error) {
	var res struct {
		Count int64 `json:"count"`
	}
	if err := c.do(ctx, http.MethodDelete, "/api/codes/"+id, nil, &res); err != nil {
		return 0, err
	}
	return res.Count, nil
}

// ShareSnippet makes a snippet public and returns its sharing token.
// Idempotent server-side: re-sharing returns the existing token.
func (c *Client) ShareSnippet(ctx context.Context, id string) (string, error) {
	var res struct {
		SharedID string `json:"sharedId"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/codes/share/"+id, nil, &res); err != nil {
		return "", err
	}
	return res.SharedID, nil
}

// GetShared fetches a publicly shared snippet by its token. Works without
// authentication.
func (c *Client) GetShared(ctx context.Context, sharedID string) (*model.Snippet, error) {
	var snippet model.Snippet
	if err := c.do(ctx, http.MethodGet, "/api/shared/"+sharedID, nil, &snippet); err != nil {
		return nil, err
	}
	return &snippet, nil
}
