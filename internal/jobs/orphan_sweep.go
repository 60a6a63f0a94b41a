package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/riverqueue/river"

	"github.com/comilla/site-backend/internal/metrics"
	"github.com/comilla/site-backend/internal/storage"
)

// OrphanSweepArgs defines the job that retries deletion of orphaned blobs.
type OrphanSweepArgs struct{}

func (OrphanSweepArgs) Kind() string { return JobKindOrphanSweep }

func (OrphanSweepArgs) InsertOpts() river.InsertOpts {
	return InsertOptsForKind(JobKindOrphanSweep)
}

// BlobDeleter removes a stored blob. Deleting a missing key succeeds.
type BlobDeleter interface {
	Delete(ctx context.Context, key string) error
}

// SweepResult summarizes one pass over the orphan ledger.
type SweepResult struct {
	Scanned  int
	Resolved int
	Failed   int
}

// Sweeper deletes orphaned blobs recorded in the ledger. Keys that fail are
// retried on later passes until they reach MaxAttempts.
type Sweeper struct {
	Orphans     storage.OrphanRepository
	Blobs       BlobDeleter
	BatchSize   int
	MaxAttempts int
	Logger      *slog.Logger
}

// Sweep processes one batch of due orphans. Per-key delete failures are
// recorded on the ledger and do not fail the pass; ledger errors do.
func (s *Sweeper) Sweep(ctx context.Context) (SweepResult, error) {
	var result SweepResult
	if s.Orphans == nil || s.Blobs == nil {
		return result, fmt.Errorf("orphan sweeper not configured")
	}

	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	batch := s.BatchSize
	if batch <= 0 {
		batch = 100
	}
	maxAttempts := s.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 10
	}

	due, err := s.Orphans.ListDue(ctx, batch, maxAttempts)
	if err != nil {
		return result, fmt.Errorf("list orphans: %w", err)
	}
	result.Scanned = len(due)

	var ledgerErrs []error
	for _, orphan := range due {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if delErr := s.Blobs.Delete(ctx, orphan.Key); delErr != nil {
			result.Failed++
			metrics.OrphansSwept.WithLabelValues("failed").Inc()
			logger.Warn("orphan blob delete failed",
				"key", orphan.Key,
				"attempts", orphan.Attempts+1,
				"error", delErr,
			)
			if err := s.Orphans.MarkFailed(ctx, orphan.ID, delErr.Error()); err != nil {
				ledgerErrs = append(ledgerErrs, err)
			}
			continue
		}

		if err := s.Orphans.Resolve(ctx, orphan.ID); err != nil {
			ledgerErrs = append(ledgerErrs, err)
			continue
		}
		result.Resolved++
		metrics.OrphansSwept.WithLabelValues("resolved").Inc()
	}

	if len(ledgerErrs) > 0 {
		return result, fmt.Errorf("update orphan ledger: %w", errors.Join(ledgerErrs...))
	}
	return result, nil
}

// OrphanSweepWorker runs Sweeper on River's maintenance queue.
type OrphanSweepWorker struct {
	river.WorkerDefaults[OrphanSweepArgs]
	Sweeper *Sweeper
	Logger  *slog.Logger
}

func (OrphanSweepWorker) Kind() string { return JobKindOrphanSweep }

func (w OrphanSweepWorker) Timeout(*river.Job[OrphanSweepArgs]) time.Duration {
	return 5 * time.Minute
}

func (w OrphanSweepWorker) Work(ctx context.Context, job *river.Job[OrphanSweepArgs]) error {
	if w.Sweeper == nil {
		return fmt.Errorf("orphan sweeper not configured")
	}

	logger := w.Logger
	if logger == nil {
		logger = slog.Default()
	}

	start := time.Now()
	result, err := w.Sweeper.Sweep(ctx)
	if err != nil {
		return err
	}

	logger.Info("orphan sweep completed",
		"attempt", job.Attempt,
		"scanned", result.Scanned,
		"resolved", result.Resolved,
		"failed", result.Failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// NewWorkers registers every worker the server runs.
func NewWorkers(sweeper *Sweeper, logger *slog.Logger) *river.Workers {
	workers := river.NewWorkers()
	river.AddWorker[OrphanSweepArgs](workers, OrphanSweepWorker{Sweeper: sweeper, Logger: logger})
	return workers
}
