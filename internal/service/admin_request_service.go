package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/schoolgate/schoolgate/internal/auth"
	"github.com/schoolgate/schoolgate/internal/config"
	"github.com/schoolgate/schoolgate/internal/email"
	"github.com/schoolgate/schoolgate/internal/logger"
	"github.com/schoolgate/schoolgate/internal/model"
	"github.com/schoolgate/schoolgate/internal/repository"
)

// ChangeNotifier nudges live listeners after a mutation. The Redis client
// satisfies this; tests use a no-op.
type ChangeNotifier interface {
	Publish(ctx context.Context, channel string, message interface{}) error
}

// RequestsChangedChannel is the pub/sub channel mutations are announced on
const RequestsChangedChannel = "admin_requests:changed"

// AdminRequestService owns the admin access request lifecycle:
// submit -> pending -> approved/rejected -> revoked, with re-approval from
// the terminal rejection states. Records are never removed by a transition;
// deletion is its own explicit operation.
type AdminRequestService struct {
	requests      repository.AdminRequestStore
	audits        repository.AuditStore
	authenticator auth.Authenticator
	sender        email.Sender
	notifier      ChangeNotifier
	cfg           *config.Config
	log           *logger.Logger
	now           func() time.Time
}

// NewAdminRequestService creates a new AdminRequestService. notifier may be
// nil when no live listeners exist (tests, CLI tools).
func NewAdminRequestService(
	requests repository.AdminRequestStore,
	audits repository.AuditStore,
	authenticator auth.Authenticator,
	sender email.Sender,
	notifier ChangeNotifier,
	cfg *config.Config,
	log *logger.Logger,
) *AdminRequestService {
	return &AdminRequestService{
		requests:      requests,
		audits:        audits,
		authenticator: authenticator,
		sender:        sender,
		notifier:      notifier,
		cfg:           cfg,
		log:           log.WithComponent("admin_requests"),
		now:           time.Now,
	}
}

// SubmitInput is the public access-request form payload. It deliberately
// carries no credential: the requester chooses a password only after
// approval, during registration.
type SubmitInput struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
}

// Submit files a new admin access request in status pending
func (s *AdminRequestService) Submit(ctx context.Context, input SubmitInput) (*model.AdminRequest, error) {
	if strings.TrimSpace(input.FirstName) == "" || strings.TrimSpace(input.LastName) == "" {
		return nil, fmt.Errorf("%w: first and last name are required", ErrValidation)
	}
	if err := auth.ValidateEmail(input.Email); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err.Error())
	}
	phone, err := auth.NormalizePhone(input.Phone)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err.Error())
	}
	normalizedEmail := auth.NormalizeEmail(input.Email)

	exists, err := s.requests.ExistsByEmailOrPhone(ctx, normalizedEmail, phone)
	if err != nil {
		return nil, fmt.Errorf("failed to check for existing request: %w", err)
	}
	if exists {
		return nil, ErrDuplicateRequest
	}

	req := &model.AdminRequest{
		ID:          uuid.NewString(),
		Email:       normalizedEmail,
		FirstName:   auth.NormalizeName(input.FirstName),
		LastName:    auth.NormalizeName(input.LastName),
		Phone:       phone,
		Status:      model.RequestStatusPending,
		RequestedAt: s.now(),
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	s.logAudit(ctx, normalizedEmail, model.AuditActionRequestSubmitted, req.ID, nil)
	s.notifyChanged(ctx)
	s.log.Info().Str("request_id", req.ID).Str("email", req.Email).Msg("admin access request submitted")
	return req, nil
}

// Approve transitions a request to approved and notifies the requester.
// It never creates an account: the requester registers their own credential
// afterwards, which keeps the approving admin's session untouched.
func (s *AdminRequestService) Approve(ctx context.Context, id, actingAdmin string) (*model.AdminRequest, error) {
	req, err := s.transition(ctx, id, model.RequestStatusApproved, actingAdmin)
	if err != nil {
		return nil, err
	}

	s.sendNotification(ctx, email.Message{
		To:       req.Email,
		Subject:  "Your admin access request was approved",
		HTMLBody: email.ApprovalEmailHTML(req.FirstName, s.cfg.Email.AppName, s.cfg.Email.RegistrationURL),
		TextBody: email.ApprovalEmailText(req.FirstName, s.cfg.Email.AppName, s.cfg.Email.RegistrationURL),
	})
	return req, nil
}

// Reject transitions a request to rejected. The record is kept: rejections
// are part of the audit trail.
func (s *AdminRequestService) Reject(ctx context.Context, id, actingAdmin string) (*model.AdminRequest, error) {
	req, err := s.transition(ctx, id, model.RequestStatusRejected, actingAdmin)
	if err != nil {
		return nil, err
	}

	s.sendNotification(ctx, email.Message{
		To:       req.Email,
		Subject:  "About your admin access request",
		TextBody: email.RejectionEmailText(req.FirstName, s.cfg.Email.AppName),
	})
	return req, nil
}

// Revoke withdraws previously granted access. Only the authorization record
// changes; the authenticable account stays, and the login authorization
// check is what blocks a revoked user's next sign-in.
func (s *AdminRequestService) Revoke(ctx context.Context, id, actingAdmin string) (*model.AdminRequest, error) {
	return s.transition(ctx, id, model.RequestStatusRevoked, actingAdmin)
}

// Delete permanently removes a request. Cleanup of invalid or duplicate
// data; distinct from rejection.
func (s *AdminRequestService) Delete(ctx context.Context, id, actingAdmin string) error {
	if err := s.requests.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete request: %w", err)
	}
	s.logAudit(ctx, actingAdmin, model.AuditActionRequestDeleted, id, nil)
	s.notifyChanged(ctx)
	return nil
}

// Get retrieves one request by ID
func (s *AdminRequestService) Get(ctx context.Context, id string) (*model.AdminRequest, error) {
	return s.requests.GetByID(ctx, id)
}

// List retrieves all requests, newest first
func (s *AdminRequestService) List(ctx context.Context) ([]*model.AdminRequest, error) {
	return s.requests.List(ctx)
}

// CleanupInvalid bulk-deletes records whose date fields never parsed.
// Returns the number removed.
func (s *AdminRequestService) CleanupInvalid(ctx context.Context, actingAdmin string) (int64, error) {
	removed, err := s.requests.DeleteInvalid(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up invalid requests: %w", err)
	}
	if removed > 0 {
		s.logAudit(ctx, actingAdmin, model.AuditActionRequestCleanup, "", map[string]interface{}{
			"removed": removed,
		})
		s.notifyChanged(ctx)
	}
	return removed, nil
}

// CompleteRegistration creates the authenticable account for an approved
// requester. The new account's identity is bound to the pre-approved email;
// a password chosen by anyone else can't be attached to it.
func (s *AdminRequestService) CompleteRegistration(ctx context.Context, emailAddr, password string) (*model.AdminRequest, error) {
	if err := auth.ValidateEmail(emailAddr); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err.Error())
	}
	if err := auth.ValidatePassword(password, s.cfg.Security.Password.MinLength); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err.Error())
	}
	normalized := auth.NormalizeEmail(emailAddr)

	req, err := s.requests.GetByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotApproved
		}
		return nil, fmt.Errorf("failed to look up request: %w", err)
	}
	if !req.IsApproved() {
		return nil, ErrNotApproved
	}
	if req.IsRegistered() {
		return nil, ErrAlreadyRegistered
	}

	account, err := s.authenticator.CreateAccount(ctx, normalized, password)
	if err != nil {
		if errors.Is(err, auth.ErrAccountExists) {
			return nil, ErrAlreadyRegistered
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	if err := s.requests.SetAccountUID(ctx, req.ID, account.UID); err != nil {
		// The account exists but the link failed; login's email fallback
		// will back-fill the UID on first sign-in.
		s.log.Error().Err(err).Str("request_id", req.ID).Msg("failed to link account to request")
	} else {
		req.AccountUID = account.UID
	}

	s.logAudit(ctx, normalized, model.AuditActionRegistration, req.ID, nil)
	s.log.Info().Str("request_id", req.ID).Str("account_uid", account.UID).Msg("registration completed")
	return req, nil
}

// transition validates and applies one lifecycle transition
func (s *AdminRequestService) transition(ctx context.Context, id string, next model.RequestStatus, actingAdmin string) (*model.AdminRequest, error) {
	if actingAdmin == "" {
		actingAdmin = model.SystemActor
	}

	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !req.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, req.Status, next)
	}

	at := s.now()
	if err := s.requests.UpdateStatus(ctx, id, next, at, actingAdmin); err != nil {
		return nil, fmt.Errorf("failed to update status: %w", err)
	}

	req.Status = next
	switch next {
	case model.RequestStatusApproved:
		req.ApprovedAt, req.ApprovedBy = &at, &actingAdmin
	case model.RequestStatusRejected:
		req.RejectedAt, req.RejectedBy = &at, &actingAdmin
	case model.RequestStatusRevoked:
		req.RevokedAt, req.RevokedBy = &at, &actingAdmin
	}

	s.logAudit(ctx, actingAdmin, auditActionFor(next), req.ID, map[string]interface{}{
		"email": req.Email,
	})
	s.notifyChanged(ctx)
	s.log.Info().
		Str("request_id", req.ID).
		Str("status", string(next)).
		Str("by", actingAdmin).
		Msg("request status changed")
	return req, nil
}

func auditActionFor(status model.RequestStatus) string {
	switch status {
	case model.RequestStatusApproved:
		return model.AuditActionRequestApproved
	case model.RequestStatusRejected:
		return model.AuditActionRequestRejected
	case model.RequestStatusRevoked:
		return model.AuditActionRequestRevoked
	}
	return "request.status_changed"
}

func (s *AdminRequestService) sendNotification(ctx context.Context, msg email.Message) {
	if s.sender == nil {
		return
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		// Notification delivery never blocks the workflow
		s.log.Error().Err(err).Str("to", msg.To).Msg("failed to send notification email")
	}
}

func (s *AdminRequestService) notifyChanged(ctx context.Context) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Publish(ctx, RequestsChangedChannel, "changed"); err != nil {
		s.log.Debug().Err(err).Msg("failed to publish change notification")
	}
}

func (s *AdminRequestService) logAudit(ctx context.Context, actor, action, resourceID string, metadata map[string]interface{}) {
	if s.audits == nil {
		return
	}
	resourceType := "admin_request"
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
