package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-anon-inbox/internal/domain"
)

type contextKey string

const PrincipalKey contextKey = "principal"

// SessionValidator turns a bearer token into the caller's principal.
type SessionValidator interface {
	Validate(ctx context.Context, token string) (*domain.Principal, error)
}

// Auth returns middleware that validates the Bearer JWT and injects the
// principal into the request context.
func Auth(sessions SessionValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				writeJSONError(w, http.StatusUnauthorized, domain.ErrInvalidSession.Code, "missing or invalid authorization header")
				return
			}
			principal, err := sessions.Validate(r.Context(), strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer ")))
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, domain.ErrInvalidSession.Code, domain.ErrInvalidSession.Msg)
				return
			}
			ctx := context.WithValue(r.Context(), PrincipalKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// PrincipalFromContext extracts the authenticated principal from the request context.
func PrincipalFromContext(ctx context.Context) (*domain.Principal, bool) {
	p, ok := ctx.Value(PrincipalKey).(*domain.Principal)
	return p, ok && p != nil
}
