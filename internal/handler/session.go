package handler

import (
	"errors"
	"net/http"

	"github.com/schoolgate/schoolgate/internal/middleware"
	"github.com/schoolgate/schoolgate/internal/session"
)

// SessionStatusResponse reports the session's timeout state so the
// dashboard can show the warning dialog and countdown.
type SessionStatusResponse struct {
	State            session.State `json:"state"`
	RemainingSeconds int           `json:"remainingSeconds"`
}

// SessionStatus returns the current inactivity state. Routed behind
// AuthObserve: polling the countdown is a read, not activity, and must not
// reset the timer.
func (h *Handler) SessionStatus(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.GetSessionID(r.Context())

	writeJSON(w, http.StatusOK, SessionStatusResponse{
		State:            h.sessions.State(sessionID),
		RemainingSeconds: int(h.sessions.Remaining(sessionID).Seconds()),
	})
}

// ExtendSession resets the inactivity timer. Wired to the "stay signed in"
// button on the warning dialog.
func (h *Handler) ExtendSession(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.GetSessionID(r.Context())

	if err := h.sessions.Extend(sessionID); err != nil {
		if errors.Is(err, session.ErrUnknownSession) {
			writeError(w, http.StatusUnauthorized, "session_expired", "Your session is no longer active. Please sign in again.")
			return
		}
		h.log.Error().Err(err).Msg("failed to extend session")
		writeError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
		return
	}

	writeJSON(w, http.StatusOK, SessionStatusResponse{
		State:            h.sessions.State(sessionID),
		RemainingSeconds: int(h.sessions.Remaining(sessionID).Seconds()),
	})
}

// CSRFToken returns the session's anti-forgery token for the client to echo
// on state-changing requests
func (h *Handler) CSRFToken(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.GetSessionID(r.Context())

	token, err := h.guard.Token(r.Context(), sessionID)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to issue csrf token")
		writeError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"csrfToken": token})
}
