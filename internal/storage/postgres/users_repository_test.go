package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comilla/site-backend/internal/domain/ids"
	"github.com/comilla/site-backend/internal/domain/users"
)

func newUserID(t *testing.T) string {
	t.Helper()
	id, err := ids.NewULID()
	require.NoError(t, err)
	return id
}

func TestUserRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	pool, _ := setupPostgres(t)
	repo, err := NewRepository(pool)
	require.NoError(t, err)

	created, err := repo.Users().Create(ctx, users.CreateParams{
		ID:           newUserID(t),
		Email:        "admin@example.com",
		PasswordHash: "hash",
	})
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", created.Email)
	assert.False(t, created.CreatedAt.IsZero())

	byID, err := repo.Users().GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, byID.ID)
	assert.Equal(t, "hash", byID.PasswordHash)

	_, err = repo.Users().GetByID(ctx, newUserID(t))
	assert.ErrorIs(t, err, users.ErrUserNotFound)

	_, err = repo.Users().GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, users.ErrUserNotFound)
}

func TestUserRepository_GetByEmailReturnsOldest(t *testing.T) {
	ctx := context.Background()
	pool, _ := setupPostgres(t)
	repo, err := NewRepository(pool)
	require.NoError(t, err)

	first, err := repo.Users().Create(ctx, users.CreateParams{ID: newUserID(t), Email: "dup@example.com", PasswordHash: "first"})
	require.NoError(t, err)
	second, err := repo.Users().Create(ctx, users.CreateParams{ID: newUserID(t), Email: "dup@example.com", PasswordHash: "second"})
	require.NoError(t, err)

	setCreatedAt(t, ctx, pool, "users", first.ID, time.Now().Add(-time.Hour))
	setCreatedAt(t, ctx, pool, "users", second.ID, time.Now().Add(-2*time.Hour))

	got, err := repo.Users().GetByEmail(ctx, "dup@example.com")
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)
}

func TestUserRepository_Updates(t *testing.T) {
	ctx := context.Background()
	pool, _ := setupPostgres(t)
	repo, err := NewRepository(pool)
	require.NoError(t, err)

	created, err := repo.Users().Create(ctx, users.CreateParams{ID: newUserID(t), Email: "old@example.com", PasswordHash: "hash"})
	require.NoError(t, err)

	updated, err := repo.Users().UpdateEmail(ctx, created.ID, "new@example.com")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", updated.Email)
	assert.False(t, updated.UpdatedAt.Before(created.UpdatedAt))

	require.NoError(t, repo.Users().UpdatePassword(ctx, created.ID, "rehashed"))
	got, err := repo.Users().GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "rehashed", got.PasswordHash)

	missing := newUserID(t)
	_, err = repo.Users().UpdateEmail(ctx, missing, "x@example.com")
	assert.ErrorIs(t, err, users.ErrUserNotFound)
	assert.ErrorIs(t, repo.Users().UpdatePassword(ctx, missing, "x"), users.ErrUserNotFound)
}
