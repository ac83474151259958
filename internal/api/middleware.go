package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/nextreadapp/nextread-server/internal/http/response"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const contextKeyExternalID contextKey = "external_id"

// requireAuth validates the identity-provider bearer token and attaches
// the external user id to the request context.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			response.Unauthorized(w, "Missing authorization header", s.logger)
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(w, "Invalid authorization header format", s.logger)
			return
		}

		externalID, err := s.verifier.Verify(parts[1])
		if err != nil {
			response.Unauthorized(w, "Invalid or expired token", s.logger)
			return
		}

		ctx := context.WithValue(r.Context(), contextKeyExternalID, externalID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// getExternalID extracts the authenticated external user id from the
// request context. Returns empty string if not authenticated.
func getExternalID(ctx context.Context) string {
	if id, ok := ctx.Value(contextKeyExternalID).(string); ok {
		return id
	}
	return ""
}
