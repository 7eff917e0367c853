// Package auth carries the authenticated identity through request contexts.
// Identities come from bearer access tokens issued by the external identity
// provider; this package never sees passwords or sessions.
package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/diewo77/portfolio-pilot/httpx"
	"github.com/diewo77/portfolio-pilot/internal/apperr"
	"github.com/google/uuid"
)

type ctxKey string

const identityCtxKey = ctxKey("identity")

// Identity is the current user as proven by the identity provider.
type Identity struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}

// TokenVerifier validates an access token and returns its identity.
type TokenVerifier interface {
	Verify(token string) (Identity, error)
}

// WithIdentity stores the identity in context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey, id)
}

// FromContext extracts the identity.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityCtxKey).(Identity)
	if !ok || id.ID == uuid.Nil {
		return Identity{}, false
	}
	return id, true
}

// BearerToken returns the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

// Middleware attaches the identity to the request context when the bearer
// token verifies. Requests without a valid token continue anonymously.
func Middleware(v TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := BearerToken(r); token != "" && v != nil {
				if id, err := v.Verify(token); err == nil {
					r = r.WithContext(WithIdentity(r.Context(), id))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth returns 401 JSON when no identity is present.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := FromContext(r.Context()); !ok {
			httpx.Error(w, r, apperr.Unauthenticated("authentication_required", "no current identity"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
