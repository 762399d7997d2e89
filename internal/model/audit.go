package model

import "time"

// AuditLog represents an audit log entry
type AuditLog struct {
	ID           string                 `json:"id"`
	Actor        string                 `json:"actor"`
	Action       string                 `json:"action"`
	ResourceType *string                `json:"resourceType,omitempty"`
	ResourceID   *string                `json:"resourceId,omitempty"`
	IPAddress    *string                `json:"ipAddress,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt    time.Time              `json:"createdAt"`
}

// Audit action constants
const (
	AuditActionLogin            = "auth.login"
	AuditActionLoginFailed      = "auth.login_failed"
	AuditActionLogout           = "auth.logout"
	AuditActionSessionExpired   = "auth.session_expired"
	AuditActionRequestSubmitted = "request.submitted"
	AuditActionRequestApproved  = "request.approved"
	AuditActionRequestRejected  = "request.rejected"
	AuditActionRequestRevoked   = "request.revoked"
	AuditActionRequestDeleted   = "request.deleted"
	AuditActionRequestCleanup   = "request.cleanup"
	AuditActionRegistration     = "request.registration_completed"
	AuditActionInquiryReceived  = "inquiry.received"
)
