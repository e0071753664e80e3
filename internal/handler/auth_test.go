package handler_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/code-share/internal/auth"
	"github.com/sakif/code-share/internal/handler"
	"github.com/sakif/code-share/internal/model"
	"github.com/sakif/code-share/internal/repository/sqlite"
	"github.com/sakif/code-share/internal/service"
)

// newAuthHandler wires an AuthHandler over an in-memory database. The GitHub
// provider is nil — the OAuth redirect flow needs a live GitHub app and is
// not exercised here.
func newAuthHandler(t *testing.T) *handler.AuthHandler {
	t.Helper()

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars!!")
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	authSvc := service.NewAuthService(db, tokens, auth.NewPasswordServiceForTest(4), logger)

	return handler.NewAuthHandler(authSvc, nil, logger)
}

func postJSON(target, body string) (*http.Request, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req, httptest.NewRecorder()
}

// sessionCookie digs the "token" cookie out of a recorded response.
func sessionCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == "token" {
			return c
		}
	}
	return nil
}

func TestAuthHandler_HandleRegister(t *testing.T) {
	t.Run("creates account and session", func(t *testing.T) {
		h := newAuthHandler(t)

		req, rr := postJSON("/auth/register", `{"email":"alice@example.com","password":"hunter2hunter2"}`)
		h.HandleRegister(rr, req)

		require.Equal(t, http.StatusCreated, rr.Code, "body: %s", rr.Body.String())

		var user model.User
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&user))
		assert.NotEmpty(t, user.ID)
		assert.Equal(t, "alice@example.com", user.Email)

		cookie := sessionCookie(t, rr)
		require.NotNil(t, cookie, "register must set the session cookie")
		assert.True(t, cookie.HttpOnly)
		assert.NotEmpty(t, cookie.Value)
	})

	t.Run("duplicate email answers 409", func(t *testing.T) {
		h := newAuthHandler(t)

		req, rr := postJSON("/auth/register", `{"email":"dup@example.com","password":"hunter2hunter2"}`)
		h.HandleRegister(rr, req)
		require.Equal(t, http.StatusCreated, rr.Code)

		req, rr = postJSON("/auth/register", `{"email":"dup@example.com","password":"other-password"}`)
		h.HandleRegister(rr, req)
		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("short password answers 400", func(t *testing.T) {
		h := newAuthHandler(t)

		req, rr := postJSON("/auth/register", `{"email":"bob@example.com","password":"short"}`)
		h.HandleRegister(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("invalid JSON answers 400", func(t *testing.T) {
		h := newAuthHandler(t)

		req, rr := postJSON("/auth/register", `{"email":`)
		h.HandleRegister(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestAuthHandler_HandleLogin(t *testing.T) {
	register := func(t *testing.T, h *handler.AuthHandler) {
		t.Helper()
		req, rr := postJSON("/auth/register", `{"email":"carol@example.com","password":"hunter2hunter2"}`)
		h.HandleRegister(rr, req)
		require.Equal(t, http.StatusCreated, rr.Code)
	}

	t.Run("valid credentials", func(t *testing.T) {
		h := newAuthHandler(t)
		register(t, h)

		req, rr := postJSON("/auth/login", `{"email":"carol@example.com","password":"hunter2hunter2"}`)
		h.HandleLogin(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		require.NotNil(t, sessionCookie(t, rr), "login must set the session cookie")
	})

	t.Run("wrong password answers 401", func(t *testing.T) {
		h := newAuthHandler(t)
		register(t, h)

		req, rr := postJSON("/auth/login", `{"email":"carol@example.com","password":"wrong-password"}`)
		h.HandleLogin(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("unknown email answers 401", func(t *testing.T) {
		h := newAuthHandler(t)

		req, rr := postJSON("/auth/login", `{"email":"ghost@example.com","password":"hunter2hunter2"}`)
		h.HandleLogin(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestAuthHandler_HandleLogout(t *testing.T) {
	h := newAuthHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	rr := httptest.NewRecorder()
	h.HandleLogout(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	cookie := sessionCookie(t, rr)
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.Negative(t, cookie.MaxAge, "logout must expire the cookie")
}

func TestAuthHandler_HandleMe(t *testing.T) {
	t.Run("returns the caller's profile", func(t *testing.T) {
		h := newAuthHandler(t)

		req, rr := postJSON("/auth/register", `{"email":"dave@example.com","password":"hunter2hunter2"}`)
		h.HandleRegister(rr, req)
		require.Equal(t, http.StatusCreated, rr.Code)

		var registered model.User
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&registered))

		meReq := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		meReq = meReq.WithContext(auth.ContextWithUserID(meReq.Context(), registered.ID))
		meRR := httptest.NewRecorder()
		h.HandleMe(meRR, meReq)

		require.Equal(t, http.StatusOK, meRR.Code)

		var me model.User
		require.NoError(t, json.NewDecoder(meRR.Body).Decode(&me))
		assert.Equal(t, registered.ID, me.ID)
		assert.Equal(t, "dave@example.com", me.Email)
	})

	t.Run("anonymous request answers 401", func(t *testing.T) {
		h := newAuthHandler(t)

		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		rr := httptest.NewRecorder()
		h.HandleMe(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}
