package postgres

import (
	"context"
	"fmt"
)

// MigrationState reports the applied schema version and whether the last
// migration left the database dirty.
func (r *Repository) MigrationState(ctx context.Context) (int64, bool, error) {
	var (
		version int64
		dirty   bool
	)
	err := r.pool.QueryRow(ctx, `SELECT version, dirty FROM schema_migrations ORDER BY version DESC LIMIT 1`).Scan(&version, &dirty)
	if err != nil {
		if isNoRows(err) {
			return 0, false, fmt.Errorf("no migrations applied")
		}
		return 0, false, fmt.Errorf("query migration version: %w", err)
	}
	return version, dirty, nil
}

// ActiveJobs counts available and running River jobs. ok is false when the
// River tables have not been created.
func (r *Repository) ActiveJobs(ctx context.Context) (count int64, ok bool, err error) {
	var exists bool
	err = r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_schema = current_schema()
			AND table_name = 'river_job'
		)`).Scan(&exists)
	if err != nil {
		return 0, false, fmt.Errorf("check river_job table: %w", err)
	}
	if !exists {
		return 0, false, nil
	}

	err = r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM river_job WHERE state = ANY($1)`,
		[]string{"available", "running"}).Scan(&count)
	if err != nil {
		return 0, true, fmt.Errorf("count active jobs: %w", err)
	}
	return count, true, nil
}
