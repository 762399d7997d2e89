package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/schoolgate/schoolgate/internal/auth"
	"github.com/schoolgate/schoolgate/internal/logger"
	"github.com/schoolgate/schoolgate/internal/model"
	"github.com/schoolgate/schoolgate/internal/repository"
)

const maxInquiryMessageLength = 2000

// InquiryService handles public admission inquiry submissions and their
// follow-up status.
type InquiryService struct {
	inquiries repository.InquiryStore
	audits    repository.AuditStore
	log       *logger.Logger
	now       func() time.Time
}

// NewInquiryService creates a new InquiryService
func NewInquiryService(inquiries repository.InquiryStore, audits repository.AuditStore, log *logger.Logger) *InquiryService {
	return &InquiryService{
		inquiries: inquiries,
		audits:    audits,
		log:       log.WithComponent("inquiry"),
		now:       time.Now,
	}
}

// InquirySubmitInput is the public inquiry form payload
type InquirySubmitInput struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Grade   string `json:"grade"`
	Message string `json:"message"`
}

// Submit validates and stores a public inquiry
func (s *InquiryService) Submit(ctx context.Context, input InquirySubmitInput) (*model.Inquiry, error) {
	name := auth.NormalizeName(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if err := auth.ValidateEmail(input.Email); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err.Error())
	}
	phone, err := auth.NormalizePhone(input.Phone)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err.Error())
	}
	message := strings.TrimSpace(input.Message)
	if len(message) > maxInquiryMessageLength {
		return nil, fmt.Errorf("%w: message exceeds %d characters", ErrValidation, maxInquiryMessageLength)
	}

	inquiry := &model.Inquiry{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     auth.NormalizeEmail(input.Email),
		Phone:     phone,
		Grade:     strings.TrimSpace(input.Grade),
		Message:   message,
		Status:    model.InquiryStatusNew,
		CreatedAt: s.now(),
	}
	if err := s.inquiries.Create(ctx, inquiry); err != nil {
		return nil, fmt.Errorf("failed to create inquiry: %w", err)
	}

	s.logAudit(ctx, inquiry.Email, model.AuditActionInquiryReceived, inquiry.ID)
	s.log.Info().Str("inquiry_id", inquiry.ID).Str("grade", inquiry.Grade).Msg("inquiry received")
	return inquiry, nil
}

// List returns all inquiries, newest first
func (s *InquiryService) List(ctx context.Context) ([]*model.Inquiry, error) {
	inquiries, err := s.inquiries.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list inquiries: %w", err)
	}
	return inquiries, nil
}

// UpdateStatus moves an inquiry between follow-up states
func (s *InquiryService) UpdateStatus(ctx context.Context, id string, status model.InquiryStatus) error {
	switch status {
	case model.InquiryStatusNew, model.InquiryStatusContacted, model.InquiryStatusClosed:
	default:
		return fmt.Errorf("%w: unknown inquiry status %q", ErrValidation, status)
	}
	if err := s.inquiries.UpdateStatus(ctx, id, status); err != nil {
		return fmt.Errorf("failed to update inquiry status: %w", err)
	}
	return nil
}

func (s *InquiryService) logAudit(ctx context.Context, actor, action, resourceID string) {
	if s.audits == nil {
		return
	}
	resourceType := "inquiry"
	entry := &model.AuditLog{
		ID:           uuid.NewString(),
		Actor:        actor,
		Action:       action,
		ResourceType: &resourceType,
		ResourceID:   &resourceID,
		CreatedAt:    s.now(),
	}
	if err := s.audits.Create(ctx, entry); err != nil {
		s.log.Error().Err(err).Str("action", action).Msg("failed to create audit log")
	}
}
