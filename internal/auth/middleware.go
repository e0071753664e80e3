package auth

import (
	"context"
	"net/http"
	"strings"
)

// contextKey is an unexported type used for context keys in this package.
//
// WHY A CUSTOM TYPE FOR CONTEXT KEYS?
// context.WithValue uses any as the key type. If you use a plain string like
// context.WithValue(ctx, "userID", id), ANY package that knows the string
// "userID" can read or shadow your value. Using a package-private type means
// only THIS package can read or write userID values in the context.
type contextKey string

const userIDKey contextKey = "userID"

// RequireAuth is a middleware that enforces authentication on protected routes.
//
// It extracts the JWT from the request, validates it, and stores the userID in
// the request context. If the token is missing or invalid, it returns
// 401 Unauthorized and stops the request chain — handlers behind it can assume
// a verified caller.
//
// MIDDLEWARE PATTERN IN GO:
// A middleware takes an http.Handler and returns a new http.Handler wrapping
// it. Chi applies them in a chain: req → M1 → M2 → Handler → M2 → M1 → resp.
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := extractUserID(r, tokens)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				http.Error(w, `{"error":"unauthorized","message":"valid authentication required"}`, http.StatusUnauthorized)
				return
			}

			// Store userID in context so handlers can read it
			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth extracts the user identity if a valid token is present, but
// does NOT block the request if it's missing or invalid.
//
// Used on public routes (like the shared-snippet read) where anonymous access
// is fine but a logged-in caller might get extra affordances. Handlers check
// via UserIDFromContext — ("", false) means anonymous.
func OptionalAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userID, err := extractUserID(r, tokens); err == nil && userID != "" {
				ctx := context.WithValue(r.Context(), userIDKey, userID)
				r = r.WithContext(ctx)
			}
			// Always continue — no 401 even if no token
			next.ServeHTTP(w, r)
		})
	}
}

// UserIDFromContext retrieves the authenticated user's ID from the request
// context.
//
// Returns ("", false) if the request is anonymous (no valid token present).
//
// Usage in handlers:
//
//	userID, ok := auth.UserIDFromContext(r.Context())
//	if !ok {
//	    // anonymous
//	}
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// ContextWithUserID returns a copy of ctx carrying the given userID, exactly
// as RequireAuth would have left it after validating a token. Handler tests
// use this to simulate an authenticated request without minting a real JWT.
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// extractUserID finds and validates the caller's JWT.
//
// TWO TRANSPORTS, ONE TOKEN:
//   - API clients (the editor's fetch calls, the Go client in internal/client)
//     send `Authorization: Bearer <token>` — checked first.
//   - Browser page navigations carry the HttpOnly "token" cookie set at
//     login — the fallback. HttpOnly means JavaScript cannot read it, which
//     keeps XSS from stealing the session.
func extractUserID(r *http.Request, tokens *TokenService) (string, error) {
	if h := r.Header.Get("Authorization"); h != "" {
		// The scheme is case-insensitive per RFC 9110.
		if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
			return tokens.Validate(strings.TrimSpace(h[7:]))
		}
	}

	cookie, err := r.Cookie("token")
	if err != nil {
		// http.ErrNoCookie — no credential at all, the caller is anonymous
		return "", err
	}

	return tokens.Validate(cookie.Value)
}
