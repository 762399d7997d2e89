package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/schoolgate/schoolgate/internal/auth"
	"github.com/schoolgate/schoolgate/internal/middleware"
	"github.com/schoolgate/schoolgate/internal/service"
)

// LoginRequest is the login payload
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates an admin and opens a dashboard session
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	result, err := h.loginSvc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeLoginError(w, r, err)
		return
	}

	h.collector.RecordLoginAttempt("success")
	h.collector.SessionStarted()
	h.setSessionCookie(w, result.Token)
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) writeLoginError(w http.ResponseWriter, r *http.Request, err error) {
	var rateErr *service.RateLimitError
	var authzErr *service.AuthorizationError

	switch {
	case errors.Is(err, service.ErrValidation):
		h.collector.RecordLoginAttempt("invalid_input")
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.As(err, &rateErr):
		h.log.Warn().Str("client_ip", getClientIP(r)).Str("reason", rateErr.Reason).Msg("login rate limited")
		h.collector.RecordLoginAttempt("rate_limited")
		h.collector.RecordRateLimitHit(rateErr.Reason)
		w.Header().Set("Retry-After", strconv.Itoa(rateErr.RemainingMinutes*60))
		writeError(w, http.StatusTooManyRequests, "rate_limited", err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		h.collector.RecordLoginAttempt("invalid_credentials")
		writeError(w, http.StatusUnauthorized, "invalid_credentials", err.Error())
	case errors.Is(err, auth.ErrAccountDisabled):
		h.collector.RecordLoginAttempt("account_disabled")
		writeError(w, http.StatusForbidden, "account_disabled", err.Error())
	case errors.As(err, &authzErr):
		h.log.Warn().Str("client_ip", getClientIP(r)).Msg("login refused by authorization check")
		h.collector.RecordLoginAttempt("not_authorized")
		writeError(w, http.StatusForbidden, "not_authorized", err.Error())
	default:
		h.log.Error().Err(err).Msg("login failed")
		h.collector.RecordLoginAttempt("error")
		writeError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}

// Logout ends the authenticated session
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	uid := middleware.GetUserID(r.Context())
	sessionID := middleware.GetSessionID(r.Context())

	if err := h.loginSvc.Logout(r.Context(), uid, sessionID); err != nil {
		h.log.Error().Err(err).Msg("logout failed")
	}
	h.collector.SessionEnded()
	h.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"status": "signed_out"})
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     "schoolgate_session",
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.cfg.Security.Tokens.TTL.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     "schoolgate_session",
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
}
