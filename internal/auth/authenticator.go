package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/schoolgate/schoolgate/internal/model"
	"github.com/schoolgate/schoolgate/internal/repository"
)

// Authentication errors. Callers map these to user-safe messages.
var (
	ErrInvalidCredential = errors.New("invalid email or password")
	ErrAccountDisabled   = errors.New("account is disabled")
	ErrAccountExists     = errors.New("account already exists for this email")
)

// AuthState describes a sign-in or sign-out transition
type AuthState struct {
	UID      string
	Email    string
	SignedIn bool
}

// Authenticator is the authentication backend contract: account creation,
// credential sign-in, sign-out, and an observer that fires on every
// sign-in/out transition.
type Authenticator interface {
	CreateAccount(ctx context.Context, email, password string) (*model.Account, error)
	SignIn(ctx context.Context, email, password string) (*model.Account, error)
	SignOut(ctx context.Context, uid string) error
	OnAuthStateChange(fn func(AuthState))
}

// LocalAuthenticator implements Authenticator over the accounts table with
// Argon2id password hashing.
type LocalAuthenticator struct {
	accounts repository.AccountStore
	params   *Argon2Params

	mu        sync.Mutex
	observers []func(AuthState)
}

var _ Authenticator = (*LocalAuthenticator)(nil)

// NewLocalAuthenticator creates a LocalAuthenticator
func NewLocalAuthenticator(accounts repository.AccountStore, params *Argon2Params) *LocalAuthenticator {
	return &LocalAuthenticator{accounts: accounts, params: params}
}

// CreateAccount registers a new authenticable account
func (a *LocalAuthenticator) CreateAccount(ctx context.Context, email, password string) (*model.Account, error) {
	email = NormalizeEmail(email)

	exists, err := a.accounts.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check account: %w", err)
	}
	if exists {
		return nil, ErrAccountExists
	}

	hash, err := HashPassword(password, a.params)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	account := &model.Account{
		UID:          uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Status:       model.AccountStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := a.accounts.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	return account, nil
}

// SignIn verifies the credential and returns the account
func (a *LocalAuthenticator) SignIn(ctx context.Context, email, password string) (*model.Account, error) {
	email = NormalizeEmail(email)

	account, err := a.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredential
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	if account.IsDisabled() {
		return nil, ErrAccountDisabled
	}

	match, err := VerifyPassword(password, account.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to verify password: %w", err)
	}
	if !match {
		return nil, ErrInvalidCredential
	}

	a.notify(AuthState{UID: account.UID, Email: account.Email, SignedIn: true})
	return account, nil
}

// SignOut ends the account's authenticated state
func (a *LocalAuthenticator) SignOut(ctx context.Context, uid string) error {
	account, err := a.accounts.GetByUID(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to get account: %w", err)
	}
	a.notify(AuthState{UID: account.UID, Email: account.Email, SignedIn: false})
	return nil
}

// OnAuthStateChange registers an observer for sign-in/out transitions
func (a *LocalAuthenticator) OnAuthStateChange(fn func(AuthState)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.observers = append(a.observers, fn)
}

func (a *LocalAuthenticator) notify(state AuthState) {
	a.mu.Lock()
	observers := make([]func(AuthState), len(a.observers))
	copy(observers, a.observers)
	a.mu.Unlock()

	for _, fn := range observers {
		fn(state)
	}
}
