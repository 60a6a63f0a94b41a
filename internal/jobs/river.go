package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/riverqueue/river/rivertype"
)

const (
	JobKindOrphanSweep = "orphan_sweep"
)

// QueueMaintenance runs background housekeeping jobs.
const QueueMaintenance = "maintenance"

const (
	OrphanSweepMaxAttempts = 3
	DefaultMaxAttempts     = 5
)

// RetryConfig controls per-kind retry behavior.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// RetryPolicy implements River's ClientRetryPolicy with per-kind exponential backoff.
type RetryPolicy struct {
	Default RetryConfig
	ByKind  map[string]RetryConfig
}

// NewRetryPolicy returns the default retry policy configuration.
func NewRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		Default: RetryConfig{
			MaxAttempts: DefaultMaxAttempts,
			BaseDelay:   30 * time.Second,
			MaxDelay:    30 * time.Minute,
		},
		ByKind: map[string]RetryConfig{
			JobKindOrphanSweep: {
				MaxAttempts: OrphanSweepMaxAttempts,
				BaseDelay:   1 * time.Minute,
				MaxDelay:    15 * time.Minute,
			},
		},
	}
}

// NextRetry determines the next retry time for a failed job.
func (p *RetryPolicy) NextRetry(job *rivertype.JobRow) time.Time {
	config := p.configFor(job.Kind)
	if config.BaseDelay == 0 {
		return time.Now()
	}

	attempt := job.Attempt
	if attempt < 1 {
		attempt = 1
	}

	delay := time.Duration(float64(config.BaseDelay) * math.Pow(2, float64(attempt-1)))
	if config.MaxDelay > 0 && delay > config.MaxDelay {
		delay = config.MaxDelay
	}

	if job.AttemptedAt != nil {
		return job.AttemptedAt.Add(delay)
	}
	return time.Now().Add(delay)
}

// InsertOptsForKind returns default insert options for a job kind.
func InsertOptsForKind(kind string) river.InsertOpts {
	config := NewRetryPolicy().configFor(kind)
	opts := river.InsertOpts{MaxAttempts: config.MaxAttempts}
	if kind == JobKindOrphanSweep {
		opts.Queue = QueueMaintenance
	}
	return opts
}

// ClientOptions carries the pieces of a River client configuration that vary
// between deployments.
type ClientOptions struct {
	Workers            *river.Workers
	Logger             *slog.Logger
	Hooks              []rivertype.Hook
	PeriodicJobs       []*river.PeriodicJob
	MaintenanceWorkers int
}

// NewClientConfig builds a River client configuration with retry policy.
func NewClientConfig(opts ClientOptions) *river.Config {
	maintenance := opts.MaintenanceWorkers
	if maintenance <= 0 {
		maintenance = 1
	}

	policy := NewRetryPolicy()
	config := &river.Config{
		Workers:      opts.Workers,
		RetryPolicy:  policy,
		MaxAttempts:  policy.Default.MaxAttempts,
		PeriodicJobs: opts.PeriodicJobs,
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 2},
			QueueMaintenance:   {MaxWorkers: maintenance},
		},
		Hooks: opts.Hooks,
	}
	if opts.Logger != nil {
		config.Logger = opts.Logger
		config.ErrorHandler = NewAlertingErrorHandler(opts.Logger, nil)
	}
	return config
}

// NewClient creates a River client using pgx v5.
func NewClient(pool *pgxpool.Pool, opts ClientOptions) (*river.Client[pgx.Tx], error) {
	return river.NewClient(riverpgxv5.New(pool), NewClientConfig(opts))
}

// NewPeriodicJobs creates the periodic schedule. The orphan sweep runs every
// interval and once on start so a restart picks up leftovers promptly.
func NewPeriodicJobs(orphanSweepEvery time.Duration) []*river.PeriodicJob {
	if orphanSweepEvery <= 0 {
		orphanSweepEvery = time.Hour
	}
	return []*river.PeriodicJob{
		river.NewPeriodicJob(
			river.PeriodicInterval(orphanSweepEvery),
			func() (river.JobArgs, *river.InsertOpts) {
				opts := InsertOptsForKind(JobKindOrphanSweep)
				return OrphanSweepArgs{}, &opts
			},
			&river.PeriodicJobOpts{RunOnStart: true},
		),
	}
}

// MigrateRiver applies River's own schema migrations.
func MigrateRiver(ctx context.Context, pool *pgxpool.Pool) error {
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		return fmt.Errorf("init river migrator: %w", err)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, &rivermigrate.MigrateOpts{}); err != nil {
		return fmt.Errorf("migrate river: %w", err)
	}
	return nil
}

func (p *RetryPolicy) configFor(kind string) RetryConfig {
	if p == nil {
		return RetryConfig{MaxAttempts: DefaultMaxAttempts, BaseDelay: 1 * time.Minute, MaxDelay: 1 * time.Hour}
	}
	if config, ok := p.ByKind[kind]; ok {
		return config
	}
	return p.Default
}
