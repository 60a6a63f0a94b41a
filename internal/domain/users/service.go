package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/comilla/site-backend/internal/auth"
	"github.com/comilla/site-backend/internal/domain/ids"
)

// Service handles login and credential management for site administrators.
type Service struct {
	repo   Repository
	hasher *auth.PasswordHasher
	tokens *auth.JWTManager
	logger zerolog.Logger
}

func NewService(repo Repository, hasher *auth.PasswordHasher, tokens *auth.JWTManager, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		hasher: hasher,
		tokens: tokens,
		logger: logger.With().Str("component", "users").Logger(),
	}
}

// LoginResult carries the issued session token and the authenticated user.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      User
}

// NormalizeEmail lowercases and trims an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return LoginResult{}, ErrMissingEmail
	}
	if password == "" {
		return LoginResult{}, ErrMissingPassword
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return LoginResult{}, ErrUserNotFound
		}
		return LoginResult{}, fmt.Errorf("lookup user: %w", err)
	}

	if err := s.checkPassword(user.PasswordHash, password); err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			s.logger.Warn().Str("user_id", user.ID).Msg("login failed: invalid password")
		}
		return LoginResult{}, err
	}

	token, expiresAt, err := s.tokens.Generate(user.ID, user.Email)
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue session token: %w", err)
	}

	s.logger.Info().Str("user_id", user.ID).Msg("user logged in")
	return LoginResult{Token: token, ExpiresAt: expiresAt, User: *user}, nil
}

// Register stores a new user. Email uniqueness is not checked.
func (s *Service) Register(ctx context.Context, email, password string) (*User, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, ErrMissingEmail
	}
	if password == "" {
		return nil, ErrMissingPassword
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	id, err := ids.NewULID()
	if err != nil {
		return nil, fmt.Errorf("generate user id: %w", err)
	}

	user, err := s.repo.Create(ctx, CreateParams{ID: id, Email: email, PasswordHash: hash})
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info().Str("user_id", user.ID).Msg("user registered")
	return user, nil
}

// Bootstrap creates the administrator account unless a user with that email
// already exists. It reports whether a user was created.
func (s *Service) Bootstrap(ctx context.Context, email, password string) (bool, error) {
	_, err := s.repo.GetByEmail(ctx, NormalizeEmail(email))
	switch {
	case err == nil:
		return false, nil
	case !errors.Is(err, ErrUserNotFound):
		return false, fmt.Errorf("lookup user: %w", err)
	}

	if _, err := s.Register(ctx, email, password); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) ChangeEmail(ctx context.Context, id, email string) (*User, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, ErrMissingEmail
	}
	id, err := ids.Normalize(id)
	if err != nil {
		return nil, ErrUserNotFound
	}

	user, err := s.repo.UpdateEmail(ctx, id, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("update email: %w", err)
	}

	s.logger.Info().Str("user_id", user.ID).Msg("user email changed")
	return user, nil
}

// ChangePassword checks, in order: the user exists, oldPassword matches,
// and newPassword equals confirm.
func (s *Service) ChangePassword(ctx context.Context, id, oldPassword, newPassword, confirm string) error {
	if newPassword == "" {
		return ErrMissingPassword
	}
	id, err := ids.Normalize(id)
	if err != nil {
		return ErrUserNotFound
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	if err := s.checkPassword(user.PasswordHash, oldPassword); err != nil {
		return err
	}
	if newPassword != confirm {
		return ErrPasswordMismatch
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(ctx, user.ID, hash); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("update password: %w", err)
	}

	s.logger.Info().Str("user_id", user.ID).Msg("user password changed")
	return nil
}

func (s *Service) checkPassword(hash, password string) error {
	err := s.hasher.Compare(hash, password)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, auth.ErrPasswordMismatch):
		return ErrInvalidCredentials
	default:
		return fmt.Errorf("verify password: %w", err)
	}
}
