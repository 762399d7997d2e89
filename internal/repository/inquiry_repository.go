package repository

import (
	"context"
	"fmt"

	"github.com/schoolgate/schoolgate/internal/database"
	"github.com/schoolgate/schoolgate/internal/model"
)

// InquiryRepository handles admission inquiry persistence
type InquiryRepository struct {
	db *database.Postgres
}

var _ InquiryStore = (*InquiryRepository)(nil)

// NewInquiryRepository creates a new InquiryRepository
func NewInquiryRepository(db *database.Postgres) *InquiryRepository {
	return &InquiryRepository{db: db}
}

// Create inserts a new inquiry
func (r *InquiryRepository) Create(ctx context.Context, inquiry *model.Inquiry) error {
	query := `
		INSERT INTO inquiries (id, name, email, phone, grade, message, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		inquiry.ID,
		inquiry.Name,
		inquiry.Email,
		inquiry.Phone,
		inquiry.Grade,
		inquiry.Message,
		inquiry.Status,
		inquiry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create inquiry: %w", err)
	}
	return nil
}

// List retrieves all inquiries, newest first
func (r *InquiryRepository) List(ctx context.Context) ([]*model.Inquiry, error) {
	query := `
		SELECT id, name, email, phone, grade, message, status, created_at
		FROM inquiries
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list inquiries: %w", err)
	}
	defer rows.Close()

	var inquiries []*model.Inquiry
	for rows.Next() {
		var inquiry model.Inquiry
		if err := rows.Scan(
			&inquiry.ID,
			&inquiry.Name,
			&inquiry.Email,
			&inquiry.Phone,
			&inquiry.Grade,
			&inquiry.Message,
			&inquiry.Status,
			&inquiry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan inquiry: %w", err)
		}
		inquiries = append(inquiries, &inquiry)
	}
	return inquiries, rows.Err()
}

// UpdateStatus updates an inquiry's follow-up status
func (r *InquiryRepository) UpdateStatus(ctx context.Context, id string, status model.InquiryStatus) error {
	result, err := r.db.ExecContext(ctx, `UPDATE inquiries SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update inquiry status: %w", err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
