package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/comilla/site-backend/internal/metrics"
	"github.com/comilla/site-backend/internal/storage"
)

// OrphanRepository stores blob keys whose deletion failed.
type OrphanRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

func (r *OrphanRepository) RecordOrphan(ctx context.Context, key, reason, lastError string) error {
	_, err := pick(r.pool, r.tx).Exec(ctx, `
INSERT INTO orphan_blobs (blob_key, reason, last_error)
VALUES ($1, $2, $3)
ON CONFLICT (blob_key) DO UPDATE
   SET reason = EXCLUDED.reason, last_error = EXCLUDED.last_error,
       attempts = 0, last_attempt_at = NULL`, key, reason, lastError)
	if err != nil {
		return fmt.Errorf("record orphan blob: %w", err)
	}
	metrics.OrphansRecorded.WithLabelValues(reason).Inc()
	return nil
}

func (r *OrphanRepository) ListDue(ctx context.Context, limit, maxAttempts int) ([]storage.OrphanBlob, error) {
	rows, err := pick(r.pool, r.tx).Query(ctx, `
SELECT id, blob_key, reason, attempts, last_error, created_at, last_attempt_at
  FROM orphan_blobs
 WHERE attempts < $2
 ORDER BY last_attempt_at NULLS FIRST, id
 LIMIT $1`, limit, maxAttempts)
	if err != nil {
		return nil, fmt.Errorf("list orphan blobs: %w", err)
	}
	defer rows.Close()

	var out []storage.OrphanBlob
	for rows.Next() {
		var o storage.OrphanBlob
		if err := rows.Scan(&o.ID, &o.Key, &o.Reason, &o.Attempts, &o.LastError, &o.CreatedAt, &o.LastAttemptAt); err != nil {
			return nil, fmt.Errorf("scan orphan blob: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orphan blobs: %w", err)
	}
	return out, nil
}

func (r *OrphanRepository) Resolve(ctx context.Context, id int64) error {
	if _, err := pick(r.pool, r.tx).Exec(ctx, `DELETE FROM orphan_blobs WHERE id = $1`, id); err != nil {
		return fmt.Errorf("resolve orphan blob: %w", err)
	}
	return nil
}

func (r *OrphanRepository) MarkFailed(ctx context.Context, id int64, lastError string) error {
	_, err := pick(r.pool, r.tx).Exec(ctx, `
UPDATE orphan_blobs
   SET attempts = attempts + 1, last_error = $2, last_attempt_at = now()
 WHERE id = $1`, id, lastError)
	if err != nil {
		return fmt.Errorf("mark orphan blob failed: %w", err)
	}
	return nil
}

func (r *OrphanRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := pick(r.pool, r.tx).QueryRow(ctx, `SELECT count(*) FROM orphan_blobs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count orphan blobs: %w", err)
	}
	return n, nil
}
