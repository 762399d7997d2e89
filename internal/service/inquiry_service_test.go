package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/schoolgate/schoolgate/internal/logger"
	"github.com/schoolgate/schoolgate/internal/model"
	"github.com/schoolgate/schoolgate/internal/repository"
)

type fakeInquiryStore struct {
	mu        sync.Mutex
	inquiries map[string]*model.Inquiry
}

var _ repository.InquiryStore = (*fakeInquiryStore)(nil)

func newFakeInquiryStore() *fakeInquiryStore {
	return &fakeInquiryStore{inquiries: make(map[string]*model.Inquiry)}
}

func (f *fakeInquiryStore) Create(_ context.Context, inquiry *model.Inquiry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *inquiry
	f.inquiries[inquiry.ID] = &cp
	return nil
}

func (f *fakeInquiryStore) List(_ context.Context) ([]*model.Inquiry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*model.Inquiry, 0, len(f.inquiries))
	for _, inquiry := range f.inquiries {
		cp := *inquiry
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeInquiryStore) UpdateStatus(_ context.Context, id string, status model.InquiryStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	inquiry, ok := f.inquiries[id]
	if !ok {
		return repository.ErrNotFound
	}
	inquiry.Status = status
	return nil
}

func TestInquirySubmit(t *testing.T) {
	ctx := context.Background()
	store := newFakeInquiryStore()
	audits := &fakeAuditStore{}
	svc := NewInquiryService(store, audits, logger.Nop())

	inquiry, err := svc.Submit(ctx, InquirySubmitInput{
		Name:    "ravi kumar",
		Email:   "Ravi@Example.com",
		Phone:   "98765 43210",
		Grade:   "Grade 5",
		Message: "  Looking for mid-year admission.  ",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if inquiry.Name != "Ravi Kumar" {
		t.Errorf("name = %q, want title case", inquiry.Name)
	}
	if inquiry.Email != "ravi@example.com" {
		t.Errorf("email = %q, want normalized", inquiry.Email)
	}
	if inquiry.Phone != "+919876543210" {
		t.Errorf("phone = %q, want +919876543210", inquiry.Phone)
	}
	if inquiry.Message != "Looking for mid-year admission." {
		t.Errorf("message = %q, want trimmed", inquiry.Message)
	}
	if inquiry.Status != model.InquiryStatusNew {
		t.Errorf("status = %q, want new", inquiry.Status)
	}
	if !audits.hasAction(model.AuditActionInquiryReceived) {
		t.Error("expected an inquiry.received audit entry")
	}
}

func TestInquirySubmitValidation(t *testing.T) {
	ctx := context.Background()
	svc := NewInquiryService(newFakeInquiryStore(), nil, logger.Nop())

	cases := []struct {
		name  string
		input InquirySubmitInput
	}{
		{"missing name", InquirySubmitInput{Email: "a@b.com", Phone: "9876543210"}},
		{"bad email", InquirySubmitInput{Name: "Ravi", Email: "nope", Phone: "9876543210"}},
		{"bad phone", InquirySubmitInput{Name: "Ravi", Email: "a@b.com", Phone: "12"}},
		{"oversize message", InquirySubmitInput{
			Name: "Ravi", Email: "a@b.com", Phone: "9876543210",
			Message: strings.Repeat("x", maxInquiryMessageLength+1),
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Submit(ctx, tc.input); !errors.Is(err, ErrValidation) {
				t.Errorf("err = %v, want ErrValidation", err)
			}
		})
	}
}

func TestInquiryUpdateStatus(t *testing.T) {
	ctx := context.Background()
	store := newFakeInquiryStore()
	svc := NewInquiryService(store, nil, logger.Nop())

	inquiry, err := svc.Submit(ctx, InquirySubmitInput{
		Name: "Ravi", Email: "a@b.com", Phone: "9876543210",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if err := svc.UpdateStatus(ctx, inquiry.ID, model.InquiryStatusContacted); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	list, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].Status != model.InquiryStatusContacted {
		t.Errorf("list = %v, want one contacted inquiry", list)
	}

	if err := svc.UpdateStatus(ctx, inquiry.ID, model.InquiryStatus("bogus")); !errors.Is(err, ErrValidation) {
		t.Errorf("err = %v, want ErrValidation for unknown status", err)
	}
}
