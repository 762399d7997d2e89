package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/schoolgate/schoolgate/internal/logger"
	"github.com/schoolgate/schoolgate/internal/model"
)

func newTestAdminRequestService() (*AdminRequestService, *fakeRequestStore, *fakeAuditStore, *fakeAuthenticator, *fakeSender) {
	store := newFakeRequestStore()
	audits := &fakeAuditStore{}
	authn := newFakeAuthenticator()
	sender := &fakeSender{}
	svc := NewAdminRequestService(store, audits, authn, sender, nil, testConfig(), logger.Nop())
	return svc, store, audits, authn, sender
}

func submitTestRequest(t *testing.T, svc *AdminRequestService, emailAddr, phone string) *model.AdminRequest {
	t.Helper()
	req, err := svc.Submit(context.Background(), SubmitInput{
		FirstName: "jane",
		LastName:  "doe",
		Email:     emailAddr,
		Phone:     phone,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	return req
}

func TestSubmitNormalizesInput(t *testing.T) {
	svc, _, audits, _, _ := newTestAdminRequestService()

	req := submitTestRequest(t, svc, "Jane.Doe@Example.COM", "98765 43210")

	if req.Email != "jane.doe@example.com" {
		t.Errorf("email = %q, want normalized lowercase", req.Email)
	}
	if req.FirstName != "Jane" || req.LastName != "Doe" {
		t.Errorf("name = %q %q, want title case", req.FirstName, req.LastName)
	}
	if req.Phone != "+919876543210" {
		t.Errorf("phone = %q, want +919876543210", req.Phone)
	}
	if req.Status != model.RequestStatusPending {
		t.Errorf("status = %q, want pending", req.Status)
	}
	if !audits.hasAction(model.AuditActionRequestSubmitted) {
		t.Error("expected a request.submitted audit entry")
	}
}

func TestSubmitRejectsDuplicates(t *testing.T) {
	svc, _, _, _, _ := newTestAdminRequestService()
	submitTestRequest(t, svc, "jane@example.com", "9876543210")

	cases := []struct {
		name  string
		email string
		phone string
	}{
		{"same email", "jane@example.com", "9000000000"},
		{"same email different case", "JANE@example.com", "9000000000"},
		{"same phone", "other@example.com", "9876543210"},
		{"same phone different format", "other@example.com", "+91 98765-43210"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Submit(context.Background(), SubmitInput{
				FirstName: "John", LastName: "Smith", Email: tc.email, Phone: tc.phone,
			})
			if !errors.Is(err, ErrDuplicateRequest) {
				t.Errorf("err = %v, want ErrDuplicateRequest", err)
			}
		})
	}
}

func TestSubmitValidation(t *testing.T) {
	svc, _, _, _, _ := newTestAdminRequestService()

	cases := []struct {
		name  string
		input SubmitInput
	}{
		{"missing first name", SubmitInput{LastName: "Doe", Email: "a@b.com", Phone: "9876543210"}},
		{"missing last name", SubmitInput{FirstName: "Jane", Email: "a@b.com", Phone: "9876543210"}},
		{"bad email", SubmitInput{FirstName: "Jane", LastName: "Doe", Email: "not-an-email", Phone: "9876543210"}},
		{"short phone", SubmitInput{FirstName: "Jane", LastName: "Doe", Email: "a@b.com", Phone: "12345"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Submit(context.Background(), tc.input)
			if !errors.Is(err, ErrValidation) {
				t.Errorf("err = %v, want ErrValidation", err)
			}
		})
	}
}

func TestApproveSendsEmailAndStamps(t *testing.T) {
	svc, _, audits, authn, sender := newTestAdminRequestService()
	req := submitTestRequest(t, svc, "jane@example.com", "9876543210")

	approved, err := svc.Approve(context.Background(), req.ID, "principal@example.com")
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if approved.Status != model.RequestStatusApproved {
		t.Errorf("status = %q, want approved", approved.Status)
	}
	if approved.ApprovedAt == nil || approved.ApprovedBy == nil || *approved.ApprovedBy != "principal@example.com" {
		t.Error("expected approval stamp with acting admin")
	}
	if authn.createCalls != 0 {
		t.Errorf("CreateAccount called %d times on approval, want 0", authn.createCalls)
	}
	msgs := sender.sent()
	if len(msgs) != 1 || msgs[0].To != "jane@example.com" {
		t.Fatalf("sent = %v, want one approval email to requester", msgs)
	}
	if !strings.Contains(msgs[0].TextBody, "https://school.example.com/register") {
		t.Error("approval email should carry the registration link")
	}
	if !audits.hasAction(model.AuditActionRequestApproved) {
		t.Error("expected a request.approved audit entry")
	}
}

func TestLifecycleTransitions(t *testing.T) {
	ctx := context.Background()

	t.Run("approve then revoke then re-approve", func(t *testing.T) {
		svc, _, _, _, _ := newTestAdminRequestService()
		req := submitTestRequest(t, svc, "jane@example.com", "9876543210")

		if _, err := svc.Approve(ctx, req.ID, "admin"); err != nil {
			t.Fatalf("Approve: %v", err)
		}
		revoked, err := svc.Revoke(ctx, req.ID, "admin")
		if err != nil {
			t.Fatalf("Revoke: %v", err)
		}
		if revoked.RevokedAt == nil {
			t.Error("expected revocation stamp")
		}
		reapproved, err := svc.Approve(ctx, req.ID, "admin2")
		if err != nil {
			t.Fatalf("re-Approve: %v", err)
		}
		if reapproved.Status != model.RequestStatusApproved {
			t.Errorf("status = %q, want approved", reapproved.Status)
		}
		if reapproved.ApprovedBy == nil || *reapproved.ApprovedBy != "admin2" {
			t.Error("re-approval should stamp the second admin")
		}
		// The revocation stamp is history, not state; it survives re-approval.
		if reapproved.RevokedAt == nil {
			t.Error("revocation stamp should remain after re-approval")
		}
	})

	t.Run("invalid transitions", func(t *testing.T) {
		svc, _, _, _, _ := newTestAdminRequestService()
		req := submitTestRequest(t, svc, "jane@example.com", "9876543210")

		if _, err := svc.Revoke(ctx, req.ID, "admin"); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("revoke pending: err = %v, want ErrInvalidTransition", err)
		}
		if _, err := svc.Approve(ctx, req.ID, "admin"); err != nil {
			t.Fatalf("Approve: %v", err)
		}
		if _, err := svc.Reject(ctx, req.ID, "admin"); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("reject approved: err = %v, want ErrInvalidTransition", err)
		}
	})

	t.Run("rejected can be re-approved", func(t *testing.T) {
		svc, _, _, _, _ := newTestAdminRequestService()
		req := submitTestRequest(t, svc, "jane@example.com", "9876543210")

		if _, err := svc.Reject(ctx, req.ID, "admin"); err != nil {
			t.Fatalf("Reject: %v", err)
		}
		if _, err := svc.Approve(ctx, req.ID, "admin"); err != nil {
			t.Errorf("approve after reject: %v", err)
		}
	})

	t.Run("blank actor defaults to system", func(t *testing.T) {
		svc, _, _, _, _ := newTestAdminRequestService()
		req := submitTestRequest(t, svc, "jane@example.com", "9876543210")

		approved, err := svc.Approve(ctx, req.ID, "")
		if err != nil {
			t.Fatalf("Approve: %v", err)
		}
		if approved.ApprovedBy == nil || *approved.ApprovedBy != model.SystemActor {
			t.Errorf("ApprovedBy = %v, want %q", approved.ApprovedBy, model.SystemActor)
		}
	})
}

func TestCompleteRegistration(t *testing.T) {
	ctx := context.Background()

	t.Run("approved requester registers", func(t *testing.T) {
		svc, store, audits, authn, _ := newTestAdminRequestService()
		req := submitTestRequest(t, svc, "jane@example.com", "9876543210")
		if _, err := svc.Approve(ctx, req.ID, "admin"); err != nil {
			t.Fatalf("Approve: %v", err)
		}

		registered, err := svc.CompleteRegistration(ctx, "jane@example.com", "a-long-password")
		if err != nil {
			t.Fatalf("CompleteRegistration: %v", err)
		}
		if registered.AccountUID == "" {
			t.Error("expected account uid on request after registration")
		}
		if authn.createCalls != 1 {
			t.Errorf("CreateAccount calls = %d, want 1", authn.createCalls)
		}
		stored, err := store.GetByID(ctx, req.ID)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if stored.AccountUID != registered.AccountUID {
			t.Error("account uid not persisted on request record")
		}
		if !audits.hasAction(model.AuditActionRegistration) {
			t.Error("expected a registration audit entry")
		}
	})

	t.Run("pending requester refused", func(t *testing.T) {
		svc, _, _, authn, _ := newTestAdminRequestService()
		submitTestRequest(t, svc, "jane@example.com", "9876543210")

		_, err := svc.CompleteRegistration(ctx, "jane@example.com", "a-long-password")
		if !errors.Is(err, ErrNotApproved) {
			t.Errorf("err = %v, want ErrNotApproved", err)
		}
		if authn.createCalls != 0 {
			t.Error("no account may be created for an unapproved request")
		}
	})

	t.Run("unknown email refused", func(t *testing.T) {
		svc, _, _, _, _ := newTestAdminRequestService()
		_, err := svc.CompleteRegistration(ctx, "stranger@example.com", "a-long-password")
		if !errors.Is(err, ErrNotApproved) {
			t.Errorf("err = %v, want ErrNotApproved", err)
		}
	})

	t.Run("second registration refused", func(t *testing.T) {
		svc, _, _, _, _ := newTestAdminRequestService()
		req := submitTestRequest(t, svc, "jane@example.com", "9876543210")
		if _, err := svc.Approve(ctx, req.ID, "admin"); err != nil {
			t.Fatalf("Approve: %v", err)
		}
		if _, err := svc.CompleteRegistration(ctx, "jane@example.com", "a-long-password"); err != nil {
			t.Fatalf("first CompleteRegistration: %v", err)
		}
		_, err := svc.CompleteRegistration(ctx, "jane@example.com", "another-long-password")
		if !errors.Is(err, ErrAlreadyRegistered) {
			t.Errorf("err = %v, want ErrAlreadyRegistered", err)
		}
	})

	t.Run("weak password refused", func(t *testing.T) {
		svc, _, _, _, _ := newTestAdminRequestService()
		req := submitTestRequest(t, svc, "jane@example.com", "9876543210")
		if _, err := svc.Approve(ctx, req.ID, "admin"); err != nil {
			t.Fatalf("Approve: %v", err)
		}
		_, err := svc.CompleteRegistration(ctx, "jane@example.com", "short")
		if !errors.Is(err, ErrValidation) {
			t.Errorf("err = %v, want ErrValidation", err)
		}
	})
}

func TestDeleteAndCleanup(t *testing.T) {
	ctx := context.Background()
	svc, store, audits, _, _ := newTestAdminRequestService()
	req := submitTestRequest(t, svc, "jane@example.com", "9876543210")

	// A record imported with unparseable dates has a zero RequestedAt.
	invalid := &model.AdminRequest{ID: "legacy-1", Email: "legacy@example.com", Status: model.RequestStatusPending}
	if err := store.Create(ctx, invalid); err != nil {
		t.Fatalf("Create: %v", err)
	}

	removed, err := svc.CleanupInvalid(ctx, "admin")
	if err != nil {
		t.Fatalf("CleanupInvalid: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if !audits.hasAction(model.AuditActionRequestCleanup) {
		t.Error("expected a cleanup audit entry")
	}

	if err := svc.Delete(ctx, req.ID, "admin"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(ctx, req.ID); err == nil {
		t.Error("expected deleted request to be gone")
	}

	list, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("len(list) = %d, want 0", len(list))
	}
}

func TestWatchEmitsOnChange(t *testing.T) {
	svc, _, _, _, _ := newTestAdminRequestService()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wake := make(chan struct{}, 1)
	events := svc.Watch(ctx, 10*time.Millisecond, wake)

	req := submitTestRequest(t, svc, "jane@example.com", "9876543210")

	waitForEvent := func(want model.RequestStatus) {
		t.Helper()
		deadline := time.After(2 * time.Second)
		for {
			select {
			case ev := <-events:
				if ev.ID == req.ID && ev.Status == want {
					return
				}
			case <-deadline:
				t.Fatalf("timed out waiting for status %q", want)
			}
		}
	}

	waitForEvent(model.RequestStatusPending)

	if _, err := svc.Approve(ctx, req.ID, "admin"); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	wake <- struct{}{}
	waitForEvent(model.RequestStatusApproved)
}
