package service

import (
	"errors"
	"fmt"

	"github.com/schoolgate/schoolgate/internal/model"
)

// Common service errors. Authentication failures deliberately share one
// generic message so the API cannot be used to probe which emails have
// accounts.
var (
	ErrValidation         = errors.New("validation failed")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrDuplicateRequest   = errors.New("a request already exists for this email or phone number")
	ErrInvalidTransition  = errors.New("status transition not permitted")
	ErrNotApproved        = errors.New("request is not approved")
	ErrAlreadyRegistered  = errors.New("registration already completed")
	ErrSecurityCheck      = errors.New("security check failed")
)

// RateLimitError reports a locked-out identifier with remaining time guidance
type RateLimitError struct {
	Reason           string
	RemainingMinutes int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("too many failed attempts, try again in %d minutes", e.RemainingMinutes)
}

// AuthorizationError means the credential was valid but the account is not an
// approved admin. The caller has already been signed out when this is
// returned.
type AuthorizationError struct {
	Status model.RequestStatus
	// Registered distinguishes "no request on file" from a real status
	Registered bool
}

func (e *AuthorizationError) Error() string {
	if !e.Registered {
		return "this account is not registered for admin access"
	}
	switch e.Status {
	case model.RequestStatusPending:
		return "your access request is still pending approval"
	case model.RequestStatusRejected:
		return "your access request was rejected"
	case model.RequestStatusRevoked:
		return "your admin access has been revoked"
	default:
		return "this account is not authorized for admin access"
	}
}
