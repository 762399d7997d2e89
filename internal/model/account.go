package model

import "time"

// AccountStatus represents the status of an authenticable account
type AccountStatus string

const (
	AccountStatusActive   AccountStatus = "active"
	AccountStatusDisabled AccountStatus = "disabled"
)

// Account is an authenticable identity. Authorization to use the admin
// dashboard is decided separately by the AdminRequest record; an account by
// itself grants nothing.
type Account struct {
	UID          string        `json:"uid"`
	Email        string        `json:"email"`
	PasswordHash string        `json:"-"` // never expose password hash
	Status       AccountStatus `json:"status"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// IsDisabled reports whether sign-in is blocked for the account
func (a *Account) IsDisabled() bool {
	return a.Status == AccountStatusDisabled
}
