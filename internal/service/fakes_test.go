package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/schoolgate/schoolgate/internal/auth"
	"github.com/schoolgate/schoolgate/internal/config"
	"github.com/schoolgate/schoolgate/internal/email"
	"github.com/schoolgate/schoolgate/internal/model"
	"github.com/schoolgate/schoolgate/internal/repository"
)

// fakeRequestStore is an in-memory AdminRequestStore for service tests.
type fakeRequestStore struct {
	mu       sync.Mutex
	requests map[string]*model.AdminRequest
}

var _ repository.AdminRequestStore = (*fakeRequestStore)(nil)

func newFakeRequestStore() *fakeRequestStore {
	return &fakeRequestStore{requests: make(map[string]*model.AdminRequest)}
}

func (f *fakeRequestStore) Create(_ context.Context, req *model.AdminRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *req
	f.requests[req.ID] = &cp
	return nil
}

func (f *fakeRequestStore) GetByID(_ context.Context, id string) (*model.AdminRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requests[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *req
	return &cp, nil
}

func (f *fakeRequestStore) GetByAccountUID(_ context.Context, uid string) (*model.AdminRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, req := range f.requests {
		if req.AccountUID == uid && uid != "" {
			cp := *req
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeRequestStore) GetByEmail(_ context.Context, emailAddr string) (*model.AdminRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, req := range f.requests {
		if strings.EqualFold(req.Email, emailAddr) {
			cp := *req
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeRequestStore) GetApprovedByEmail(_ context.Context, emailAddr string) (*model.AdminRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, req := range f.requests {
		if strings.EqualFold(req.Email, emailAddr) && req.Status == model.RequestStatusApproved {
			cp := *req
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeRequestStore) ExistsByEmailOrPhone(_ context.Context, emailAddr, phone string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, req := range f.requests {
		if strings.EqualFold(req.Email, emailAddr) || req.Phone == phone {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRequestStore) UpdateStatus(_ context.Context, id string, status model.RequestStatus, at time.Time, by string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requests[id]
	if !ok {
		return repository.ErrNotFound
	}
	req.Status = status
	switch status {
	case model.RequestStatusApproved:
		req.ApprovedAt, req.ApprovedBy = &at, &by
	case model.RequestStatusRejected:
		req.RejectedAt, req.RejectedBy = &at, &by
	case model.RequestStatusRevoked:
		req.RevokedAt, req.RevokedBy = &at, &by
	}
	return nil
}

func (f *fakeRequestStore) SetAccountUID(_ context.Context, id, uid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requests[id]
	if !ok {
		return repository.ErrNotFound
	}
	req.AccountUID = uid
	return nil
}

func (f *fakeRequestStore) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.requests[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.requests, id)
	return nil
}

func (f *fakeRequestStore) List(_ context.Context) ([]*model.AdminRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*model.AdminRequest, 0, len(f.requests))
	for _, req := range f.requests {
		cp := *req
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestedAt.After(out[j].RequestedAt) })
	return out, nil
}

func (f *fakeRequestStore) DeleteInvalid(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var removed int64
	for id, req := range f.requests {
		if req.RequestedAt.IsZero() {
			delete(f.requests, id)
			removed++
		}
	}
	return removed, nil
}

// fakeAuditStore records audit entries for assertions.
type fakeAuditStore struct {
	mu      sync.Mutex
	entries []*model.AuditLog
}

var _ repository.AuditStore = (*fakeAuditStore)(nil)

func (f *fakeAuditStore) Create(_ context.Context, entry *model.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeAuditStore) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.entries))
	for i, e := range f.entries {
		out[i] = e.Action
	}
	return out
}

func (f *fakeAuditStore) hasAction(action string) bool {
	for _, a := range f.actions() {
		if a == action {
			return true
		}
	}
	return false
}

// fakeAuthenticator counts calls and serves scripted accounts. Seeded
// accounts accept the password "correct-password".
type fakeAuthenticator struct {
	mu           sync.Mutex
	accounts     map[string]*model.Account
	passwords    map[string]string
	signInErr    error
	signInCalls  int
	signOutCalls int
	createCalls  int
	observers    []func(auth.AuthState)
}

var _ auth.Authenticator = (*fakeAuthenticator)(nil)

func newFakeAuthenticator() *fakeAuthenticator {
	return &fakeAuthenticator{
		accounts:  make(map[string]*model.Account),
		passwords: make(map[string]string),
	}
}

func (f *fakeAuthenticator) addAccount(emailAddr string) *model.Account {
	f.mu.Lock()
	defer f.mu.Unlock()
	account := &model.Account{
		UID:    uuid.NewString(),
		Email:  emailAddr,
		Status: model.AccountStatusActive,
	}
	key := strings.ToLower(emailAddr)
	f.accounts[key] = account
	f.passwords[key] = "correct-password"
	return account
}

func (f *fakeAuthenticator) CreateAccount(_ context.Context, emailAddr, password string) (*model.Account, error) {
	f.mu.Lock()
	f.createCalls++
	key := strings.ToLower(emailAddr)
	if _, ok := f.accounts[key]; ok {
		f.mu.Unlock()
		return nil, auth.ErrAccountExists
	}
	f.mu.Unlock()
	account := f.addAccount(emailAddr)
	f.mu.Lock()
	f.passwords[key] = password
	f.mu.Unlock()
	return account, nil
}

func (f *fakeAuthenticator) SignIn(_ context.Context, emailAddr, password string) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signInCalls++
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	key := strings.ToLower(emailAddr)
	account, ok := f.accounts[key]
	if !ok || f.passwords[key] != password {
		return nil, auth.ErrInvalidCredential
	}
	if account.IsDisabled() {
		return nil, auth.ErrAccountDisabled
	}
	return account, nil
}

func (f *fakeAuthenticator) SignOut(_ context.Context, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signOutCalls++
	return nil
}

func (f *fakeAuthenticator) OnAuthStateChange(fn func(auth.AuthState)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.observers = append(f.observers, fn)
}

// fakeSender records outgoing messages.
type fakeSender struct {
	mu       sync.Mutex
	messages []email.Message
}

var _ email.Sender = (*fakeSender)(nil)

func (f *fakeSender) Send(_ context.Context, msg email.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, msg)
	return nil
}

func (f *fakeSender) sent() []email.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]email.Message, len(f.messages))
	copy(out, f.messages)
	return out
}

func nowStamp() time.Time {
	return time.Now().Truncate(time.Second)
}

func testConfig() *config.Config {
	return &config.Config{
		Security: config.SecurityConfig{
			Password: config.PasswordConfig{MinLength: 12},
			Tokens: config.TokenConfig{
				SigningKey: "0123456789abcdef0123456789abcdef",
				TTL:        time.Hour,
				Issuer:     "schoolgate-test",
			},
			RateLimit: config.RateLimitConfig{
				Enabled:             true,
				MaxAttempts:         5,
				Window:              15 * time.Minute,
				EscalationThreshold: 10,
				EscalationWindow:    time.Hour,
			},
			CSRF: config.CSRFConfig{
				TokenLength: 32,
				MaxAge:      24 * time.Hour,
			},
		},
		Session: config.SessionConfig{
			Timeout:     30 * time.Minute,
			WarningLead: 5 * time.Minute,
		},
		Email: config.EmailConfig{
			Provider:        "log",
			AppName:         "Testing Academy",
			RegistrationURL: "https://school.example.com/register",
		},
	}
}
