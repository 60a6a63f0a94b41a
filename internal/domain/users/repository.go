package users

import (
	"context"
	"errors"
	"time"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrPasswordMismatch   = errors.New("new password and confirmation do not match")
	ErrMissingEmail       = errors.New("email is required")
	ErrMissingPassword    = errors.New("password is required")
)

type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type CreateParams struct {
	ID           string
	Email        string
	PasswordHash string
}

// Repository is the credential store. Lookups return ErrUserNotFound when
// nothing matches; updates return it when no row was changed.
type Repository interface {
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Create(ctx context.Context, params CreateParams) (*User, error)
	UpdateEmail(ctx context.Context, id, email string) (*User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}
