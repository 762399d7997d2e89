package middleware

import (
	"net/http"

	"github.com/schoolgate/schoolgate/internal/csrf"
)

// CSRF enforces the anti-forgery token on state-changing requests. The
// client echoes the token in the X-CSRF-Token header; the stored value is
// looked up by session, so the check requires Auth to have run first.
func (m *Middleware) CSRF(guard *csrf.Guard) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			sessionID := GetSessionID(r.Context())
			if sessionID == "" {
				http.Error(w, `{"error":{"code":"unauthorized","message":"Authentication required"}}`, http.StatusUnauthorized)
				return
			}

			expected, err := guard.Stored(r.Context(), sessionID)
			if err != nil {
				m.log.Error().Err(err).Msg("failed to load csrf token")
				http.Error(w, `{"error":{"code":"csrf_failure","message":"Security check failed. Please refresh and try again."}}`, http.StatusForbidden)
				return
			}

			provided := r.Header.Get("X-CSRF-Token")
			if !guard.ValidateRequest(provided, expected, requestOrigin(r)) {
				m.log.Warn().
					Str("path", r.URL.Path).
					Str("method", r.Method).
					Msg("csrf validation failed")
				http.Error(w, `{"error":{"code":"csrf_failure","message":"Security check failed. Please refresh and try again."}}`, http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// requestOrigin picks the value the origin check runs against: the Origin
// header when present, otherwise Referer.
func requestOrigin(r *http.Request) string {
	if origin := r.Header.Get("Origin"); origin != "" {
		return origin
	}
	return r.Header.Get("Referer")
}
