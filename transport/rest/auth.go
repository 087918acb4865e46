package rest

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/rocketscienceinc/ultimate-tictactoe-backend/internal/identity"
)

type playerKey struct{}

// requireIdentity resolves the bearer token of every request to a player id.
func requireIdentity(logger *slog.Logger, provider identityProvider) func(http.HandlerFunc) http.Handler {
	return func(next http.HandlerFunc) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := identity.BearerToken(r.Header.Get("Authorization"))
			if err != nil {
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}

			playerID, err := provider.Resolve(token)
			if err != nil {
				logger.Debug("rejected bearer token", "error", err)
				http.Error(w, identity.ErrInvalidToken.Error(), http.StatusUnauthorized)
				return
			}

			next(w, r.WithContext(context.WithValue(r.Context(), playerKey{}, playerID)))
		})
	}
}

func playerFromContext(ctx context.Context) string {
	playerID, _ := ctx.Value(playerKey{}).(string)
	return playerID
}
