package auth

import (
	"context"
	"net/http"

	"eventsphere/internal/models"
	"eventsphere/internal/utils"
)

type contextKey string

const actorKey contextKey = "actor"

// Middleware rejects requests without a valid bearer token.
func Middleware(tokens *Tokens) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := ExtractTokenFromRequest(r)
			if err != nil {
				raw = ""
			}
			actor, err := tokens.Verify(raw)
			if err != nil {
				utils.WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

// OptionalMiddleware attaches the actor when a valid token is present and
// lets anonymous requests through.
func OptionalMiddleware(tokens *Tokens) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if raw, err := ExtractTokenFromRequest(r); err == nil {
				if actor, err := tokens.Verify(raw); err == nil {
					r = r.WithContext(WithActor(r.Context(), actor))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func WithActor(ctx context.Context, actor *models.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFrom returns nil for anonymous requests.
func ActorFrom(ctx context.Context) *models.Actor {
	if a, ok := ctx.Value(actorKey).(*models.Actor); ok {
		return a
	}
	return nil
}
