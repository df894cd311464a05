package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/mcoot/soulpit/internal/api/apierr"
	"github.com/mcoot/soulpit/internal/model"
	"github.com/mcoot/soulpit/internal/services/identity"
)

// SessionTokenHeader carries the opaque token of an anonymous player
const SessionTokenHeader = "X-Session-Token"

type contextKey string

const playerContextKey contextKey = "player"

// Auth resolves the caller's identity and rejects requests without one
func Auth(resolver *identity.Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			creds := CredentialsFromRequest(r)
			if creds.IsEmpty() {
				apierr.WriteError(w, apierr.NewUnauthorizedError())
				return
			}

			player, err := resolver.Resolve(r.Context(), creds)
			if err != nil {
				apierr.WriteError(w, resolveError(err))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPlayer(r.Context(), player)))
		})
	}
}

// OptionalAuth resolves the caller's identity if present but doesn't require it.
// Invalid bearer tokens are still rejected, so a stale login never silently
// turns into an anonymous request.
func OptionalAuth(resolver *identity.Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			creds := CredentialsFromRequest(r)
			if creds.IsEmpty() {
				next.ServeHTTP(w, r)
				return
			}

			player, err := resolver.Resolve(r.Context(), creds)
			switch {
			case errors.Is(err, model.ErrNoIdentity):
			case err != nil:
				apierr.WriteError(w, resolveError(err))
				return
			default:
				r = r.WithContext(WithPlayer(r.Context(), player))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// resolveError reports rejected credentials as 401 rather than 403
func resolveError(err error) error {
	if errors.Is(err, model.ErrUnauthorized) {
		return apierr.NewInvalidTokenError()
	}
	return err
}

// CredentialsFromRequest extracts the bearer and session tokens from the request
func CredentialsFromRequest(r *http.Request) identity.Credentials {
	var creds identity.Credentials

	// Check Authorization header first
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		creds.BearerToken = strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}

	creds.SessionToken = strings.TrimSpace(r.Header.Get(SessionTokenHeader))
	if creds.SessionToken == "" {
		// EventSource cannot set headers
		creds.SessionToken = r.URL.Query().Get("session_token")
	}
	return creds
}

// WithPlayer stores the resolved player in the context
func WithPlayer(ctx context.Context, player *model.Player) context.Context {
	return context.WithValue(ctx, playerContextKey, player)
}

// GetPlayer returns the authenticated player from the request context
func GetPlayer(ctx context.Context) *model.Player {
	player, _ := ctx.Value(playerContextKey).(*model.Player)
	return player
}

// MustGetPlayer returns the authenticated player or panics
func MustGetPlayer(ctx context.Context) *model.Player {
	player := GetPlayer(ctx)
	if player == nil {
		panic("no player in context - auth middleware not applied?")
	}
	return player
}
