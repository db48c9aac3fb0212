package http

import (
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

// AdminTokenHeader carries the admin token for administrative endpoints.
const AdminTokenHeader = "X-Admin-Token"

// requireAdmin guards a handler with the configured admin token.
// The configuration stores only a bcrypt hash, never the token itself.
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.config.AdminTokenHash == "" {
			writeJSONError(w, http.StatusForbidden, "admin_disabled", "Administrative endpoints are not configured")
			return
		}

		token := r.Header.Get(AdminTokenHeader)
		if token == "" {
			writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing admin token")
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(s.config.AdminTokenHash), []byte(token)); err != nil {
			writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid admin token")
			return
		}

		next(w, r)
	}
}

// HashAdminToken produces a bcrypt hash suitable for Config.AdminTokenHash.
func HashAdminToken(token string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
