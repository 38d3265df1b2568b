package middleware

import (
	"net/http"

	"github.com/tour-dashboard/backend/internal/auth"
)

// BasicAuth protects a handler with HTTP Basic credentials. A nil creds
// disables the check.
func BasicAuth(creds *auth.Credentials) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		if creds == nil {
			return next
		}
		return func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			if !ok || !creds.Check(user, pass) {
				w.Header().Set("WWW-Authenticate", `Basic realm="tour-dashboard", charset="UTF-8"`)
				WriteError(w, http.StatusUnauthorized, ErrUnauthorized, "Authentication required")
				return
			}
			next(w, r)
		}
	}
}
