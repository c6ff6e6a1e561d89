package api

import (
	"net/http"

	"gallery/internal/auth"
)

type AdminMiddleware struct {
	sessions *auth.SessionService
}

func NewAdminMiddleware(sessions *auth.SessionService) *AdminMiddleware {
	return &AdminMiddleware{sessions: sessions}
}

// RequireAdmin gates a route on a live admin session cookie.
func (m *AdminMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil || !m.sessions.ValidateAdminSession(cookie.Value) {
			unauthorized(w, "admin login required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
