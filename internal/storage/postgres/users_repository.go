package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/comilla/site-backend/internal/domain/users"
	"github.com/comilla/site-backend/internal/metrics"
)

type UserRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

const userColumns = `id, email, password_hash, created_at, updated_at`

func scanUser(row pgx.Row) (*users.User, error) {
	var u users.User
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if isNoRows(err) {
			return nil, users.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (user *users.User, err error) {
	defer func(start time.Time) {
		metrics.RecordQuery("get_user_by_id", start, ignoreNotFound(err, users.ErrUserNotFound))
	}(time.Now())

	user, err = scanUser(pick(r.pool, r.tx).QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil && err != users.ErrUserNotFound {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, err
}

// GetByEmail returns the oldest account for email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (user *users.User, err error) {
	defer func(start time.Time) {
		metrics.RecordQuery("get_user_by_email", start, ignoreNotFound(err, users.ErrUserNotFound))
	}(time.Now())

	user, err = scanUser(pick(r.pool, r.tx).QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1 ORDER BY created_at, id LIMIT 1`, email))
	if err != nil && err != users.ErrUserNotFound {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return user, err
}

func (r *UserRepository) Create(ctx context.Context, params users.CreateParams) (user *users.User, err error) {
	defer func(start time.Time) {
		metrics.RecordQuery("create_user", start, err)
	}(time.Now())

	user, err = scanUser(pick(r.pool, r.tx).QueryRow(ctx, `
INSERT INTO users (id, email, password_hash)
VALUES ($1, $2, $3)
RETURNING `+userColumns, params.ID, params.Email, params.PasswordHash))
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (r *UserRepository) UpdateEmail(ctx context.Context, id, email string) (user *users.User, err error) {
	defer func(start time.Time) {
		metrics.RecordQuery("update_user_email", start, ignoreNotFound(err, users.ErrUserNotFound))
	}(time.Now())

	user, err = scanUser(pick(r.pool, r.tx).QueryRow(ctx, `
UPDATE users SET email = $2, updated_at = now()
 WHERE id = $1
RETURNING `+userColumns, id, email))
	if err != nil && err != users.ErrUserNotFound {
		return nil, fmt.Errorf("update user email: %w", err)
	}
	return user, err
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) (err error) {
	defer func(start time.Time) {
		metrics.RecordQuery("update_user_password", start, ignoreNotFound(err, users.ErrUserNotFound))
	}(time.Now())

	tag, err := pick(r.pool, r.tx).Exec(ctx,
		`UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`, id, passwordHash)
	if err != nil {
		return fmt.Errorf("update user password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return users.ErrUserNotFound
	}
	return nil
}
