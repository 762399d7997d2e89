package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/schoolgate/schoolgate/internal/auth"
	"github.com/schoolgate/schoolgate/internal/session"
)

// Context keys for authenticated user data
const (
	UserIDKey    contextKey = "user_id"
	EmailKey     contextKey = "email"
	SessionIDKey contextKey = "session_id"
)

// Auth creates an authentication middleware that validates session tokens
// and enforces the inactivity timeout. A token that is cryptographically
// valid but whose session has idled out is refused; activity on a live
// session resets its timer.
func (m *Middleware) Auth(tokenSvc *auth.TokenService, sessions *session.Manager) func(http.Handler) http.Handler {
	return m.auth(tokenSvc, sessions, true)
}

// AuthObserve validates the session without counting the request as
// activity. The session status poll uses this so the warning countdown
// cannot keep a session alive on its own.
func (m *Middleware) AuthObserve(tokenSvc *auth.TokenService, sessions *session.Manager) func(http.Handler) http.Handler {
	return m.auth(tokenSvc, sessions, false)
}

func (m *Middleware) auth(tokenSvc *auth.TokenService, sessions *session.Manager, touch bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var tokenString string

			// 1. Try Authorization header first
			authHeader := r.Header.Get("Authorization")
			if authHeader != "" {
				parts := strings.SplitN(authHeader, " ", 2)
				if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
					tokenString = parts[1]
				}
			}

			// 2. Fall back to cookie
			if tokenString == "" {
				if cookie, err := r.Cookie("schoolgate_session"); err == nil && cookie.Value != "" {
					tokenString = cookie.Value
				}
			}

			if tokenString == "" {
				http.Error(w, `{"error":{"code":"unauthorized","message":"Authentication required"}}`, http.StatusUnauthorized)
				return
			}

			claims, err := tokenSvc.ValidateSessionToken(tokenString)
			if err != nil {
				m.log.Debug().Err(err).Msg("token validation failed")
				http.Error(w, `{"error":{"code":"token_expired","message":"The session token is invalid or expired"}}`, http.StatusUnauthorized)
				return
			}

			switch sessions.State(claims.SessionID) {
			case session.StateExpired:
				sessions.Stop(claims.SessionID)
				http.Error(w, `{"error":{"code":"session_expired","message":"Your session expired due to inactivity. Please sign in again."}}`, http.StatusUnauthorized)
				return
			case session.StateInactive:
				// Unknown to the registry, e.g. issued before a restart
				http.Error(w, `{"error":{"code":"session_expired","message":"Your session is no longer active. Please sign in again."}}`, http.StatusUnauthorized)
				return
			}
			if touch {
				sessions.Touch(claims.SessionID)
			}

			ctx := r.Context()
			ctx = context.WithValue(ctx, UserIDKey, claims.Subject)
			ctx = context.WithValue(ctx, EmailKey, claims.Email)
			ctx = context.WithValue(ctx, SessionIDKey, claims.SessionID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserID retrieves the authenticated account UID from context
func GetUserID(ctx context.Context) string {
	if id, ok := ctx.Value(UserIDKey).(string); ok {
		return id
	}
	return ""
}

// GetEmail retrieves the authenticated email from context
func GetEmail(ctx context.Context) string {
	if email, ok := ctx.Value(EmailKey).(string); ok {
		return email
	}
	return ""
}

// GetSessionID retrieves the session ID from context
func GetSessionID(ctx context.Context) string {
	if id, ok := ctx.Value(SessionIDKey).(string); ok {
		return id
	}
	return ""
}
