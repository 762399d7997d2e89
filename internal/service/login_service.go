package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/schoolgate/schoolgate/internal/auth"
	"github.com/schoolgate/schoolgate/internal/csrf"
	"github.com/schoolgate/schoolgate/internal/logger"
	"github.com/schoolgate/schoolgate/internal/model"
	"github.com/schoolgate/schoolgate/internal/ratelimit"
	"github.com/schoolgate/schoolgate/internal/repository"
	"github.com/schoolgate/schoolgate/internal/session"
)

// LoginService composes the rate limiter, authenticator, and the admin
// request authorization record into the end-to-end login attempt.
type LoginService struct {
	authenticator auth.Authenticator
	requests      repository.AdminRequestStore
	audits        repository.AuditStore
	limiter       *ratelimit.Limiter
	tokens        *auth.TokenService
	sessions      *session.Manager
	guard         *csrf.Guard
	log           *logger.Logger
	now           func() time.Time
}

// NewLoginService creates a new LoginService
func NewLoginService(
	authenticator auth.Authenticator,
	requests repository.AdminRequestStore,
	audits repository.AuditStore,
	limiter *ratelimit.Limiter,
	tokens *auth.TokenService,
	sessions *session.Manager,
	guard *csrf.Guard,
	log *logger.Logger,
) *LoginService {
	return &LoginService{
		authenticator: authenticator,
		requests:      requests,
		audits:        audits,
		limiter:       limiter,
		tokens:        tokens,
		sessions:      sessions,
		guard:         guard,
		log:           log.WithComponent("login"),
		now:           time.Now,
	}
}

// LoginResult is returned on a successful login
type LoginResult struct {
	Token     string              `json:"token"`
	SessionID string              `json:"sessionId"`
	CSRFToken string              `json:"csrfToken"`
	Email     string              `json:"email"`
	UID       string              `json:"uid"`
	Request   *model.AdminRequest `json:"request"`
}

// Login runs one login attempt end to end: input validation, rate limit
// check, credential authentication, then the admin authorization check
// against the request record. A valid credential without an approved record
// is signed out immediately and refused.
func (s *LoginService) Login(ctx context.Context, emailAddr, password string) (*LoginResult, error) {
	if err := auth.ValidateEmail(emailAddr); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err.Error())
	}
	if password == "" {
		return nil, fmt.Errorf("%w: password is required", ErrValidation)
	}
	normalized := auth.NormalizeEmail(emailAddr)
	limiterKey := "email:" + normalized

	// Rate limit check comes before any remote call
	if status := s.limiter.IsRateLimited(ctx, limiterKey); status.Limited {
		s.recordFailure(ctx, normalized, "rate limited", false)
		minutes := int(math.Ceil(status.Remaining.Minutes()))
		if minutes < 1 {
			minutes = 1
		}
		return nil, &RateLimitError{Reason: status.Reason, RemainingMinutes: minutes}
	}

	account, err := s.authenticator.SignIn(ctx, normalized, password)
	if err != nil {
		s.limiter.RecordFailedAttempt(ctx, limiterKey)
		return nil, s.classifyAuthError(ctx, normalized, err)
	}

	req, err := s.lookupAuthorization(ctx, account)
	if err != nil {
		return nil, err
	}

	if authzErr := s.authorize(account, req); authzErr != nil {
		// A valid credential is not enough: force the sign-out before
		// surfacing the authorization failure. The attempt still counts
		// against the lockout window.
		if soErr := s.authenticator.SignOut(ctx, account.UID); soErr != nil {
			s.log.Error().Err(soErr).Str("uid", account.UID).Msg("failed to sign out unauthorized account")
		}
		s.limiter.RecordFailedAttempt(ctx, limiterKey)
		s.recordFailure(ctx, normalized, authzErr.Error(), true)
		return nil, authzErr
	}

	if err := s.limiter.ClearAttempts(ctx, limiterKey); err != nil {
		// Non-critical: a stale entry expires on its own
		s.log.Error().Err(err).Msg("failed to clear rate limit entry")
	}

	token, sessionID, err := s.tokens.GenerateSessionToken(account.UID, account.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session token: %w", err)
	}
	s.sessions.Start(sessionID)

	csrfToken, err := s.guard.Token(ctx, sessionID)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to issue csrf token")
	}

	s.logAudit(ctx, normalized, model.AuditActionLogin, account.UID, nil)
	s.log.LoginAttempt(normalized, true, "")

	return &LoginResult{
		Token:     token,
		SessionID: sessionID,
		CSRFToken: csrfToken,
		Email:     account.Email,
		UID:       account.UID,
		Request:   req,
	}, nil
}

// Logout ends an authenticated session
func (s *LoginService) Logout(ctx context.Context, uid, sessionID string) error {
	if err := s.authenticator.SignOut(ctx, uid); err != nil {
		s.log.Error().Err(err).Str("uid", uid).Msg("failed to sign out")
	}
	s.sessions.Stop(sessionID)
	if err := s.guard.Drop(ctx, sessionID); err != nil {
		s.log.Error().Err(err).Msg("failed to drop csrf token")
	}
	s.logAudit(ctx, uid, model.AuditActionLogout, uid, nil)
	return nil
}

// ExpireSession is wired as the session manager's expiry callback: it
// records the forced sign-out when a session idles out.
func (s *LoginService) ExpireSession(sessionID string) {
	ctx := context.Background()
	if err := s.guard.Drop(ctx, sessionID); err != nil {
		s.log.Error().Err(err).Msg("failed to drop csrf token for expired session")
	}
	s.logAudit(ctx, model.SystemActor, model.AuditActionSessionExpired, sessionID, nil)
}

// lookupAuthorization finds the admin request record for an authenticated
// account: by UID first, then by approved email for records created before
// an account existed, back-filling the UID in that case.
func (s *LoginService) lookupAuthorization(ctx context.Context, account *model.Account) (*model.AdminRequest, error) {
	req, err := s.requests.GetByAccountUID(ctx, account.UID)
	if err == nil {
		return req, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up authorization: %w", err)
	}

	req, err = s.requests.GetApprovedByEmail(ctx, account.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up authorization: %w", err)
	}

	if err := s.requests.SetAccountUID(ctx, req.ID, account.UID); err != nil {
		s.log.Error().Err(err).Str("request_id", req.ID).Msg("failed to back-fill account uid")
	} else {
		req.AccountUID = account.UID
	}
	return req, nil
}

// authorize decides whether the authenticated account may enter the
// dashboard. Returns nil when access is granted.
func (s *LoginService) authorize(account *model.Account, req *model.AdminRequest) *AuthorizationError {
	if req == nil {
		return &AuthorizationError{Registered: false}
	}
	if !req.IsApproved() {
		return &AuthorizationError{Status: req.Status, Registered: true}
	}
	// Anti-takeover: the record's email must match the authenticated
	// identity, or an approved record could be pointed at someone else's
	// account.
	if auth.NormalizeEmail(req.Email) != auth.NormalizeEmail(account.Email) {
		return &AuthorizationError{Registered: false}
	}
	return nil
}

// classifyAuthError maps backend errors to user-safe messages. Credential
// failures and unknown accounts share one message so the endpoint cannot be
// used to enumerate emails.
func (s *LoginService) classifyAuthError(ctx context.Context, email string, err error) error {
	switch {
	case errors.Is(err, auth.ErrInvalidCredential):
		s.recordFailure(ctx, email, "invalid credential", true)
		return ErrInvalidCredentials
	case errors.Is(err, auth.ErrAccountDisabled):
		s.recordFailure(ctx, email, "account disabled", true)
		return auth.ErrAccountDisabled
	default:
		// Infrastructure failure on the critical path: surfaced like a
		// credential failure, logged with full detail.
		s.log.Error().Err(err).Str("email", email).Msg("authentication backend error")
		s.recordFailure(ctx, email, "backend error", true)
		return ErrInvalidCredentials
	}
}

func (s *LoginService) recordFailure(ctx context.Context, email, reason string, audit bool) {
	s.log.LoginAttempt(email, false, reason)
	if audit {
		s.logAudit(ctx, email, model.AuditActionLoginFailed, "", map[string]interface{}{
			"reason": reason,
		})
	}
}

func (s *LoginService) logAudit(ctx context.Context, actor, action, resourceID string, metadata map[string]interface{}) {
	if s.audits == nil {
		return
	}
	resourceType := "auth"
	entry := &model.AuditLog{
		ID:           uuid.NewString(),
		Actor:        actor,
		Action:       action,
		ResourceType: &resourceType,
		Metadata:     metadata,
		CreatedAt:    s.now(),
	}
	if resourceID != "" {
		entry.ResourceID = &resourceID
	}
	if err := s.audits.Create(ctx, entry); err != nil {
		s.log.Error().Err(err).Str("action", action).Msg("failed to create audit log")
	}
}
