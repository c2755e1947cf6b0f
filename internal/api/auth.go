package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/your-username/pihole-log-viewer/internal/auth"
)

type contextKey string

const claimsKey contextKey = "claims"

// authenticate requires a valid Bearer token when a secret is configured.
// Browsers cannot set headers on websocket upgrades, so /api/ws also takes
// the token from the query string.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.deps.JWTSecret == "" {
			next.ServeHTTP(w, r)
			return
		}

		token := bearerToken(r)
		if token == "" && strings.HasSuffix(r.URL.Path, "/ws") {
			token = r.URL.Query().Get("token")
		}
		if token == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]interface{}{
				"success": false,
				"error":   "missing authorization header",
			})
			return
		}

		claims, err := auth.Validate(s.deps.JWTSecret, token)
		if err != nil {
			log.Debug().Err(err).Str("path", r.URL.Path).Msg("Rejected token")
			writeJSON(w, http.StatusUnauthorized, map[string]interface{}{
				"success": false,
				"error":   "invalid token",
			})
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// claimsFrom returns the token claims of an authenticated request
func claimsFrom(ctx context.Context) (*auth.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*auth.Claims)
	return c, ok
}
