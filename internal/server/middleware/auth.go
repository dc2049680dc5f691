package middleware

import (
	"net/http"
	"strings"

	"maya-assessment/backend/internal/security"
	"maya-assessment/backend/internal/server/respond"
)

const bearerPrefix = "bearer "

// Verifier validates an access token and returns the user id and role claim.
type Verifier interface {
	ValidateAccess(token string) (userID, role string, err error)
}

// Auth returns middleware that validates the Bearer token and sets user_id and
// role in the request context. Requests without a valid token get 401.
func Auth(tokens Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearer(r)
			if token == "" {
				respond.Error(w, http.StatusUnauthorized, "missing or invalid authorization")
				return
			}
			userID, role, err := tokens.ValidateAccess(token)
			if err != nil {
				respond.Error(w, http.StatusUnauthorized, "missing or invalid authorization")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), userID, role)))
		})
	}
}

// RequireAdmin returns middleware rejecting requests whose identity does not
// carry the admin role. Must run after Auth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role, ok := GetRole(r.Context())
		if !ok || role != security.RoleAdmin {
			respond.Error(w, http.StatusForbidden, "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// extractBearer returns the Bearer token from the Authorization header, or "" if missing or malformed.
func extractBearer(r *http.Request) string {
	v := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
