package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/dayeon-k/examboard/internal/model"
)

// contextKey is an unexported type used for context keys in this package.
// A package-private key type means only this package can read or write the
// authenticated user in a request context — no collisions with other
// packages that happen to use the same string.
type contextKey string

const userKey contextKey = "user"

// UserLookup is the subset of the user repository the access gate needs.
// Declared here (consumer side) so the auth package doesn't depend on the
// repository package.
type UserLookup interface {
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
}

const unauthorizedBody = `{"error":"unauthorized","message":"valid authentication required"}`
const forbiddenBody = `{"error":"forbidden","message":"admin access required"}`

// RequireAuth enforces authentication on protected routes.
//
// It reads the bearer token from the Authorization header, verifies it, and
// loads the subject's user record. A missing or malformed header, an invalid
// or expired token, or a subject that no longer exists (deleted account) all
// end the request with 401. On success the full *model.User is stored in the
// request context for handlers to read via UserFromContext.
//
// Loading the user here — rather than trusting the token's claims alone —
// is what keeps role and ownership checks honest: the token only proves
// identity at issue time, the database row is the current truth.
func RequireAuth(tokens *TokenService, users UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, ok := bearerToken(r)
			if !ok {
				writeAuthError(w, http.StatusUnauthorized, unauthorizedBody)
				return
			}

			userID, err := tokens.Verify(tokenStr)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, unauthorizedBody)
				return
			}

			user, err := users.GetUserByID(r.Context(), userID)
			if err != nil {
				// Covers both "subject deleted" and lookup failures; neither
				// case should reveal more than "not authenticated".
				writeAuthError(w, http.StatusUnauthorized, unauthorizedBody)
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin gates admin-only routes. It must be mounted inside a
// RequireAuth chain; a request that reaches it without an authenticated
// user is treated as unauthenticated rather than panicking.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			writeAuthError(w, http.StatusUnauthorized, unauthorizedBody)
			return
		}
		if !user.IsAdmin() {
			writeAuthError(w, http.StatusForbidden, forbiddenBody)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// UserFromContext retrieves the authenticated user from the request context.
// Returns (nil, false) when the request did not pass through RequireAuth.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(userKey).(*model.User)
	return user, ok && user != nil
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
// The scheme comparison is case-insensitive per RFC 7235.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func writeAuthError(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(body))
}
