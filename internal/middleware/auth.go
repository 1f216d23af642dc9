package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/compliai/compliai/internal/domain/identity"
)

type contextKey string

const userKey contextKey = "user"

// writeError emits the same JSON error envelope the handlers use, so a
// middleware rejection looks no different to the client.
func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// TokenVerifier restores the user behind a session token.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*identity.User, error)
}

// BearerAuth validates the Authorization header and stores the user in the
// request context.
func BearerAuth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if auth == "" {
				writeError(w, http.StatusUnauthorized, "missing Authorization header")
				return
			}
			token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			if token == "" {
				writeError(w, http.StatusUnauthorized, "invalid Authorization header format")
				return
			}

			user, err := verifier.Verify(r.Context(), token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext extracts the authenticated user, nil when absent.
func UserFromContext(ctx context.Context) *identity.User {
	if u, ok := ctx.Value(userKey).(*identity.User); ok {
		return u
	}
	return nil
}
