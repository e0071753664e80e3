package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/code-share/internal/auth"
	"github.com/sakif/code-share/internal/download"
	"github.com/sakif/code-share/internal/model"
	"github.com/sakif/code-share/internal/repository"
	"github.com/sakif/code-share/internal/service"
)

// SnippetHandler is the HTTP layer over SnippetService.
//
// WHAT BELONGS HERE (and what doesn't):
// This layer decodes requests, pulls the caller's userID out of the request
// context, calls the service, and encodes the response. Ownership checks,
// validation, and token generation all live in the service — a handler that
// re-implements them would just drift out of sync.
//
// All mutating routes sit behind auth.RequireAuth, so UserIDFromContext is
// guaranteed to succeed there; the ok-check is a safety net for miswired
// routes, not a real code path.
type SnippetHandler struct {
	snippets *service.SnippetService
	logger   *slog.Logger
}

// NewSnippetHandler creates a new SnippetHandler.
func NewSnippetHandler(snippets *service.SnippetService, logger *slog.Logger) *SnippetHandler {
	return &SnippetHandler{snippets: snippets, logger: logger}
}

// createSnippetRequest is the body of POST /api/codes.
type createSnippetRequest struct {
	Title    string         `json:"title"`
	Language model.Language `json:"language"`
	Code     string         `json:"code"`
}

// updateSnippetRequest is the body of PUT /api/codes/{id}.
//
// POINTER FIELDS = PARTIAL UPDATE:
// A field absent from the JSON stays nil and is left untouched; a field
// present (even as "") is applied. This is how we tell "don't change the
// code" apart from "clear the code".
type updateSnippetRequest struct {
	Title    *string         `json:"title"`
	Language *model.Language `json:"language"`
	Code     *string         `json:"code"`
}

// shareResponse is the body of POST /api/codes/share/{id}.
type shareResponse struct {
	SharedID string `json:"sharedId"`
}

// HandleGetShared serves a publicly shared snippet.
//
// HTTP: GET /api/shared/{sharedId} — no auth
//
// An unknown token and a token pointing at a private record both answer 404.
// The response must not reveal that a private record exists behind a token.
func (h *SnippetHandler) HandleGetShared(w http.ResponseWriter, r *http.Request) {
	sharedID := r.PathValue("sharedId")

	snippet, err := h.snippets.GetShared(r.Context(), sharedID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, snippet)
}

// HandleCreate saves a new snippet owned by the caller.
//
// HTTP: POST /api/codes (auth required)
// REQUEST BODY: {"title": "fizzbuzz", "language": "go", "code": "package main..."}
//
// The caller cannot choose the owner, visibility, or sharing token — the
// service assigns ownership from the JWT and every snippet starts private.
func (h *SnippetHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var req createSnippetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid snippet JSON", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "invalid JSON body",
		})
		return
	}

	snippet, err := h.snippets.Create(r.Context(), userID, req.Title, req.Language, req.Code)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, snippet)
}

// HandleList returns all of the caller's snippets, newest-updated first.
//
// HTTP: GET /api/codes (auth required)
func (h *SnippetHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	snippets, err := h.snippets.ListMine(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, snippets)
}

// HandleUpdate applies a partial update to one of the caller's snippets.
//
// HTTP: PUT /api/codes/{id} (auth required)
// RESPONSE: {"count": 1} or {"count": 0}
//
// COUNT, NOT ERROR:
// Updating a snippet that doesn't exist (or isn't yours) is answered with
// {"count": 0}, status 200. The count is the database's report of what
// actually changed; the client uses it to decide whether to update its own
// copy of the record.
func (h *SnippetHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	id := r.PathValue("id")

	var req updateSnippetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid snippet JSON", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "invalid JSON body",
		})
		return
	}

	count, err := h.snippets.Update(r.Context(), id, userID, repository.SnippetPatch{
		Title:    req.Title,
		Language: req.Language,
		Code:     req.Code,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, countResponse{Count: count})
}

// HandleDelete removes one of the caller's snippets.
//
// HTTP: DELETE /api/codes/{id} (auth required)
// RESPONSE: {"count": 1} or {"count": 0} — same contract as HandleUpdate.
func (h *SnippetHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	id := r.PathValue("id")

	count, err := h.snippets.Delete(r.Context(), id, userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, countResponse{Count: count})
}

// HandleShare makes a snippet publicly readable and returns its sharing token.
//
// HTTP: POST /api/codes/share/{id} (auth required)
// RESPONSE: {"sharedId": "cmf9x..."}
//
// IDEMPOTENT:
// Sharing an already-shared snippet returns the existing token — links that
// were handed out keep working. A snippet the caller doesn't own answers 404.
func (h *SnippetHandler) HandleShare(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	id := r.PathValue("id")

	sharedID, err := h.snippets.Share(r.Context(), id, userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, shareResponse{SharedID: sharedID})
}

// HandleDownload streams a snippet's code as a file attachment.
//
// HTTP: GET /api/codes/download/{id} (auth required)
//
// The filename comes from the snippet's title (sanitized) plus the
// language's extension; the browser takes it from the Content-Disposition
// header and saves the body as that file.
func (h *SnippetHandler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}
	id := r.PathValue("id")

	snippet, err := h.snippets.GetByID(r.Context(), id, userID)
	if err != nil {
		writeError(w, err)
		return
	}

	filename := download.Filename(snippet, time.Now())
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", download.ContentDisposition(filename))
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write([]byte(snippet.Code)); err != nil {
		h.logger.Error("failed to write snippet download", slog.String("error", err.Error()))
	}
}
