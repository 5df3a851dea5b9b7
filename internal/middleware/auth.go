package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/windfall/lingo_service/internal/errors"
	"github.com/windfall/lingo_service/internal/service"
)

type contextKey string

const (
	claimsKey   contextKey = "claims"
	languageKey contextKey = "language"
)

// TokenValidator validates a bearer token.
type TokenValidator interface {
	ValidateToken(token string) (*service.Claims, error)
}

// Auth returns a middleware that validates the Supabase JWT from the
// Authorization header.
func Auth(validator TokenValidator) func(http.Handler) http.Handler {
	return authenticate(validator, func(r *http.Request) (string, bool) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			return "", false
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return "", true
		}
		return strings.TrimSpace(parts[1]), true
	})
}

// QueryAuth is Auth for websocket upgrades, where browsers cannot set
// headers. The token is read from the token query parameter.
func QueryAuth(validator TokenValidator) func(http.Handler) http.Handler {
	return authenticate(validator, func(r *http.Request) (string, bool) {
		token := r.URL.Query().Get("token")
		return token, token != ""
	})
}

func authenticate(validator TokenValidator, extract func(r *http.Request) (string, bool)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, present := extract(r)
			if !present {
				WriteError(w, r, errors.Unauthorized("missing authorization").WithMessageID("auth.missing_token"))
				return
			}
			if token == "" {
				WriteError(w, r, errors.Unauthorized("invalid authorization format").WithMessageID("auth.invalid_token"))
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				WriteError(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// WithClaims stores the authenticated claims in ctx.
func WithClaims(ctx context.Context, claims *service.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// GetClaims extracts the authenticated claims from the request context.
func GetClaims(ctx context.Context) (*service.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*service.Claims)
	return claims, ok && claims != nil
}

// GetUserID extracts the authenticated user id from the request context.
func GetUserID(ctx context.Context) uuid.UUID {
	if claims, ok := GetClaims(ctx); ok {
		return claims.UserID
	}
	return uuid.Nil
}
