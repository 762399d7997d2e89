package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/schoolgate/schoolgate/internal/database"
	"github.com/schoolgate/schoolgate/internal/model"
)

// AdminRequestRepository handles admin access request persistence
type AdminRequestRepository struct {
	db *database.Postgres
}

var _ AdminRequestStore = (*AdminRequestRepository)(nil)

// NewAdminRequestRepository creates a new AdminRequestRepository
func NewAdminRequestRepository(db *database.Postgres) *AdminRequestRepository {
	return &AdminRequestRepository{db: db}
}

const adminRequestColumns = `id, email, first_name, last_name, phone, account_uid, status,
       requested_at, approved_at, approved_by, rejected_at, rejected_by, revoked_at, revoked_by`

// Create inserts a new admin request
func (r *AdminRequestRepository) Create(ctx context.Context, req *model.AdminRequest) error {
	query := `
		INSERT INTO admin_requests (id, email, first_name, last_name, phone, account_uid, status, requested_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		req.ID,
		req.Email,
		req.FirstName,
		req.LastName,
		req.Phone,
		nullString(req.AccountUID),
		req.Status,
		req.RequestedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create admin request: %w", err)
	}
	return nil
}

// GetByID retrieves an admin request by ID
func (r *AdminRequestRepository) GetByID(ctx context.Context, id string) (*model.AdminRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM admin_requests WHERE id = $1`, adminRequestColumns)
	return r.scanRequest(r.db.QueryRowContext(ctx, query, id))
}

// GetByAccountUID retrieves an admin request by its linked account UID
func (r *AdminRequestRepository) GetByAccountUID(ctx context.Context, uid string) (*model.AdminRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM admin_requests WHERE account_uid = $1`, adminRequestColumns)
	return r.scanRequest(r.db.QueryRowContext(ctx, query, uid))
}

// GetByEmail retrieves an admin request by normalized email
func (r *AdminRequestRepository) GetByEmail(ctx context.Context, email string) (*model.AdminRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM admin_requests WHERE lower(email) = lower($1)`, adminRequestColumns)
	return r.scanRequest(r.db.QueryRowContext(ctx, query, email))
}

// GetApprovedByEmail retrieves an approved admin request by normalized email
func (r *AdminRequestRepository) GetApprovedByEmail(ctx context.Context, email string) (*model.AdminRequest, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM admin_requests WHERE lower(email) = lower($1) AND status = $2`,
		adminRequestColumns,
	)
	return r.scanRequest(r.db.QueryRowContext(ctx, query, email, model.RequestStatusApproved))
}

// ExistsByEmailOrPhone checks whether a request already exists for the email or phone
func (r *AdminRequestRepository) ExistsByEmailOrPhone(ctx context.Context, email, phone string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM admin_requests WHERE lower(email) = lower($1) OR phone = $2)`
	var exists bool
	err := r.db.QueryRowContext(ctx, query, email, phone).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check request existence: %w", err)
	}
	return exists, nil
}

// UpdateStatus transitions a request and stamps the acting admin's identity.
// The column pair stamped depends on the target status; prior stamps are kept
// so the record stays a full audit trail.
func (r *AdminRequestRepository) UpdateStatus(ctx context.Context, id string, status model.RequestStatus, at time.Time, by string) error {
	var stampAt, stampBy string
	switch status {
	case model.RequestStatusApproved:
		stampAt, stampBy = "approved_at", "approved_by"
	case model.RequestStatusRejected:
		stampAt, stampBy = "rejected_at", "rejected_by"
	case model.RequestStatusRevoked:
		stampAt, stampBy = "revoked_at", "revoked_by"
	default:
		return fmt.Errorf("%w: cannot stamp status %q", ErrInvalidInput, status)
	}

	query := fmt.Sprintf(
		`UPDATE admin_requests SET status = $1, %s = $2, %s = $3 WHERE id = $4`,
		stampAt, stampBy,
	)
	result, err := r.db.ExecContext(ctx, query, status, at, by, id)
	if err != nil {
		return fmt.Errorf("failed to update request status: %w", err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetAccountUID back-fills the account UID on a request
func (r *AdminRequestRepository) SetAccountUID(ctx context.Context, id, uid string) error {
	query := `UPDATE admin_requests SET account_uid = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, uid, id)
	if err != nil {
		return fmt.Errorf("failed to set account uid: %w", err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete permanently removes a request
func (r *AdminRequestRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM admin_requests WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete admin request: %w", err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// List retrieves all admin requests, newest first
func (r *AdminRequestRepository) List(ctx context.Context) ([]*model.AdminRequest, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM admin_requests ORDER BY requested_at DESC NULLS LAST`,
		adminRequestColumns,
	)
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list admin requests: %w", err)
	}
	defer rows.Close()

	var requests []*model.AdminRequest
	for rows.Next() {
		req, err := r.scanRequestRows(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

// DeleteInvalid removes records with no parseable request timestamp. These
// only show up via legacy data imports.
func (r *AdminRequestRepository) DeleteInvalid(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM admin_requests WHERE requested_at IS NULL`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete invalid requests: %w", err)
	}
	return result.RowsAffected()
}

func (r *AdminRequestRepository) scanRequest(row *sql.Row) (*model.AdminRequest, error) {
	var req model.AdminRequest
	var accountUID sql.NullString
	var requestedAt sql.NullTime
	err := row.Scan(
		&req.ID,
		&req.Email,
		&req.FirstName,
		&req.LastName,
		&req.Phone,
		&accountUID,
		&req.Status,
		&requestedAt,
		&req.ApprovedAt,
		&req.ApprovedBy,
		&req.RejectedAt,
		&req.RejectedBy,
		&req.RevokedAt,
		&req.RevokedBy,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan admin request: %w", err)
	}
	req.AccountUID = accountUID.String
	if requestedAt.Valid {
		req.RequestedAt = requestedAt.Time
	}
	return &req, nil
}

func (r *AdminRequestRepository) scanRequestRows(rows *sql.Rows) (*model.AdminRequest, error) {
	var req model.AdminRequest
	var accountUID sql.NullString
	var requestedAt sql.NullTime
	err := rows.Scan(
		&req.ID,
		&req.Email,
		&req.FirstName,
		&req.LastName,
		&req.Phone,
		&accountUID,
		&req.Status,
		&requestedAt,
		&req.ApprovedAt,
		&req.ApprovedBy,
		&req.RejectedAt,
		&req.RejectedBy,
		&req.RevokedAt,
		&req.RevokedBy,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan admin request: %w", err)
	}
	req.AccountUID = accountUID.String
	if requestedAt.Valid {
		req.RequestedAt = requestedAt.Time
	}
	return &req, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
