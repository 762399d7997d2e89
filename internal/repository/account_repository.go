package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/schoolgate/schoolgate/internal/database"
	"github.com/schoolgate/schoolgate/internal/model"
)

// AccountRepository handles authenticable account persistence
type AccountRepository struct {
	db *database.Postgres
}

var _ AccountStore = (*AccountRepository)(nil)

// NewAccountRepository creates a new AccountRepository
func NewAccountRepository(db *database.Postgres) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create inserts a new account
func (r *AccountRepository) Create(ctx context.Context, account *model.Account) error {
	query := `
		INSERT INTO accounts (uid, email, password_hash, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		account.UID,
		account.Email,
		account.PasswordHash,
		account.Status,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// GetByUID retrieves an account by UID
func (r *AccountRepository) GetByUID(ctx context.Context, uid string) (*model.Account, error) {
	query := `
		SELECT uid, email, password_hash, status, created_at, updated_at
		FROM accounts
		WHERE uid = $1
	`
	return r.scanAccount(r.db.QueryRowContext(ctx, query, uid))
}

// GetByEmail retrieves an account by normalized email
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	query := `
		SELECT uid, email, password_hash, status, created_at, updated_at
		FROM accounts
		WHERE lower(email) = lower($1)
	`
	return r.scanAccount(r.db.QueryRowContext(ctx, query, email))
}

// ExistsByEmail checks if an account with the given email exists
func (r *AccountRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM accounts WHERE lower(email) = lower($1))`
	var exists bool
	err := r.db.QueryRowContext(ctx, query, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check account existence: %w", err)
	}
	return exists, nil
}

// UpdateStatus updates the account's status
func (r *AccountRepository) UpdateStatus(ctx context.Context, uid string, status model.AccountStatus) error {
	query := `UPDATE accounts SET status = $1, updated_at = now() WHERE uid = $2`
	result, err := r.db.ExecContext(ctx, query, status, uid)
	if err != nil {
		return fmt.Errorf("failed to update account status: %w", err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *AccountRepository) scanAccount(row *sql.Row) (*model.Account, error) {
	var account model.Account
	err := row.Scan(
		&account.UID,
		&account.Email,
		&account.PasswordHash,
		&account.Status,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan account: %w", err)
	}
	return &account, nil
}
