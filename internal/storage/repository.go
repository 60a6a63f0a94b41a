package storage

import (
	"context"
	"time"

	"github.com/comilla/site-backend/internal/domain/events"
	"github.com/comilla/site-backend/internal/domain/projects"
	"github.com/comilla/site-backend/internal/domain/users"
)

// Repository groups data access by domain.
type Repository interface {
	Users() users.Repository
	Projects() projects.Repository
	Events() events.Repository
	Orphans() OrphanRepository

	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Ping(ctx context.Context) error
}

// OrphanBlob is a blob key the application failed to delete.
type OrphanBlob struct {
	ID            int64
	Key           string
	Reason        string
	Attempts      int
	LastError     string
	CreatedAt     time.Time
	LastAttemptAt *time.Time
}

// OrphanRepository is the ledger swept by the orphan cleanup job.
type OrphanRepository interface {
	// RecordOrphan inserts key, or refreshes reason and error if already present.
	RecordOrphan(ctx context.Context, key, reason, lastError string) error
	// ListDue returns up to limit orphans with fewer than maxAttempts
	// attempts, oldest attempt first.
	ListDue(ctx context.Context, limit, maxAttempts int) ([]OrphanBlob, error)
	Resolve(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, lastError string) error
	Count(ctx context.Context) (int64, error)
}
