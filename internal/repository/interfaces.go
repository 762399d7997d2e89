package repository

import (
	"context"
	"time"

	"github.com/schoolgate/schoolgate/internal/model"
)

// AdminRequestStore is the persistence contract for admin access requests.
// Services depend on this interface so tests can substitute in-memory fakes.
type AdminRequestStore interface {
	Create(ctx context.Context, req *model.AdminRequest) error
	GetByID(ctx context.Context, id string) (*model.AdminRequest, error)
	GetByAccountUID(ctx context.Context, uid string) (*model.AdminRequest, error)
	GetByEmail(ctx context.Context, email string) (*model.AdminRequest, error)
	// GetApprovedByEmail looks up an approved record by normalized email. Used
	// as the login fallback for records created before an account UID existed.
	GetApprovedByEmail(ctx context.Context, email string) (*model.AdminRequest, error)
	ExistsByEmailOrPhone(ctx context.Context, email, phone string) (bool, error)
	UpdateStatus(ctx context.Context, id string, status model.RequestStatus, at time.Time, by string) error
	SetAccountUID(ctx context.Context, id, uid string) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*model.AdminRequest, error)
	// DeleteInvalid removes records whose date fields failed to parse on write
	// (imported legacy data). Returns the number of records removed.
	DeleteInvalid(ctx context.Context) (int64, error)
}

// AccountStore is the persistence contract for authenticable accounts
type AccountStore interface {
	Create(ctx context.Context, account *model.Account) error
	GetByUID(ctx context.Context, uid string) (*model.Account, error)
	GetByEmail(ctx context.Context, email string) (*model.Account, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	UpdateStatus(ctx context.Context, uid string, status model.AccountStatus) error
}

// InquiryStore is the persistence contract for admission inquiries
type InquiryStore interface {
	Create(ctx context.Context, inquiry *model.Inquiry) error
	List(ctx context.Context) ([]*model.Inquiry, error)
	UpdateStatus(ctx context.Context, id string, status model.InquiryStatus) error
}

// AuditStore is the persistence contract for audit log entries
type AuditStore interface {
	Create(ctx context.Context, entry *model.AuditLog) error
}
