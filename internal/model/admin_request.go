package model

import (
	"time"
)

// RequestStatus represents the lifecycle status of an admin access request
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusApproved RequestStatus = "approved"
	RequestStatusRejected RequestStatus = "rejected"
	RequestStatusRevoked  RequestStatus = "revoked"
)

// Valid reports whether s is a known status value
func (s RequestStatus) Valid() bool {
	switch s {
	case RequestStatusPending, RequestStatusApproved, RequestStatusRejected, RequestStatusRevoked:
		return true
	}
	return false
}

// SystemActor is recorded as the acting identity for automated transitions
const SystemActor = "System"

// AdminRequest represents one person's request for administrative access.
// Exactly one non-deleted record exists per email; transitions never remove a
// record, deletion is a separate explicit operation.
type AdminRequest struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`

	// AccountUID links the request to the authenticable account once the
	// requester completes registration. Empty until then.
	AccountUID string `json:"accountUid,omitempty"`

	Status RequestStatus `json:"status"`

	RequestedAt time.Time  `json:"requestedAt"`
	ApprovedAt  *time.Time `json:"approvedAt,omitempty"`
	ApprovedBy  *string    `json:"approvedBy,omitempty"`
	RejectedAt  *time.Time `json:"rejectedAt,omitempty"`
	RejectedBy  *string    `json:"rejectedBy,omitempty"`
	RevokedAt   *time.Time `json:"revokedAt,omitempty"`
	RevokedBy   *string    `json:"revokedBy,omitempty"`
}

// CanTransitionTo reports whether the lifecycle permits moving to next.
// pending -> approved|rejected, approved -> revoked, and rejected|revoked ->
// approved (re-approval).
func (r *AdminRequest) CanTransitionTo(next RequestStatus) bool {
	switch r.Status {
	case RequestStatusPending:
		return next == RequestStatusApproved || next == RequestStatusRejected
	case RequestStatusApproved:
		return next == RequestStatusRevoked
	case RequestStatusRejected, RequestStatusRevoked:
		return next == RequestStatusApproved
	}
	return false
}

// IsApproved reports whether the request currently grants dashboard access
func (r *AdminRequest) IsApproved() bool {
	return r.Status == RequestStatusApproved
}

// IsRegistered reports whether the requester has completed registration
func (r *AdminRequest) IsRegistered() bool {
	return r.AccountUID != ""
}
