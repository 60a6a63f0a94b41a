package jobs

import (
	"testing"
	"time"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
)

func TestNewRetryPolicy(t *testing.T) {
	policy := NewRetryPolicy()

	if policy == nil {
		t.Fatal("NewRetryPolicy() returned nil")
	}

	if policy.Default.MaxAttempts != DefaultMaxAttempts {
		t.Errorf("Default.MaxAttempts = %d, want %d", policy.Default.MaxAttempts, DefaultMaxAttempts)
	}
	if policy.Default.BaseDelay != 30*time.Second {
		t.Errorf("Default.BaseDelay = %v, want 30s", policy.Default.BaseDelay)
	}

	config, ok := policy.ByKind[JobKindOrphanSweep]
	if !ok {
		t.Fatalf("kind %s not found in ByKind map", JobKindOrphanSweep)
	}
	if config.MaxAttempts != OrphanSweepMaxAttempts {
		t.Errorf("MaxAttempts = %d, want %d", config.MaxAttempts, OrphanSweepMaxAttempts)
	}
}

func TestRetryPolicy_NextRetry(t *testing.T) {
	policy := NewRetryPolicy()
	now := time.Now()

	tests := []struct {
		name          string
		kind          string
		attempt       int
		expectedDelay time.Duration
	}{
		{name: "orphan sweep first attempt", kind: JobKindOrphanSweep, attempt: 1, expectedDelay: 1 * time.Minute},
		{name: "orphan sweep second attempt", kind: JobKindOrphanSweep, attempt: 2, expectedDelay: 2 * time.Minute},
		{name: "orphan sweep capped", kind: JobKindOrphanSweep, attempt: 10, expectedDelay: 15 * time.Minute},
		{name: "zero attempt treated as first", kind: JobKindOrphanSweep, attempt: 0, expectedDelay: 1 * time.Minute},
		{name: "unknown kind uses default", kind: "unknown", attempt: 1, expectedDelay: 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := &rivertype.JobRow{
				Kind:        tt.kind,
				Attempt:     tt.attempt,
				AttemptedAt: &now,
			}

			actualDelay := policy.NextRetry(job).Sub(now)
			if actualDelay != tt.expectedDelay {
				t.Errorf("NextRetry() delay = %v, want %v", actualDelay, tt.expectedDelay)
			}
		})
	}
}

func TestInsertOptsForKind(t *testing.T) {
	opts := InsertOptsForKind(JobKindOrphanSweep)
	if opts.MaxAttempts != OrphanSweepMaxAttempts {
		t.Errorf("MaxAttempts = %d, want %d", opts.MaxAttempts, OrphanSweepMaxAttempts)
	}
	if opts.Queue != QueueMaintenance {
		t.Errorf("Queue = %q, want %q", opts.Queue, QueueMaintenance)
	}

	opts = InsertOptsForKind("unknown-kind")
	if opts.MaxAttempts != DefaultMaxAttempts {
		t.Errorf("unknown kind MaxAttempts = %d, want %d", opts.MaxAttempts, DefaultMaxAttempts)
	}
	if opts.Queue != "" {
		t.Errorf("unknown kind Queue = %q, want default", opts.Queue)
	}
}

func TestNewClientConfig(t *testing.T) {
	config := NewClientConfig(ClientOptions{Workers: river.NewWorkers()})

	if _, ok := config.Queues[QueueMaintenance]; !ok {
		t.Fatalf("maintenance queue not configured")
	}
	if got := config.Queues[QueueMaintenance].MaxWorkers; got != 1 {
		t.Errorf("maintenance MaxWorkers = %d, want 1", got)
	}
	if config.ErrorHandler != nil {
		t.Errorf("ErrorHandler set without a logger")
	}

	config = NewClientConfig(ClientOptions{Workers: river.NewWorkers(), MaintenanceWorkers: 3, Logger: discardLogger()})
	if got := config.Queues[QueueMaintenance].MaxWorkers; got != 3 {
		t.Errorf("maintenance MaxWorkers = %d, want 3", got)
	}
	if config.ErrorHandler == nil {
		t.Errorf("ErrorHandler not set with a logger")
	}
}

func TestNewPeriodicJobs(t *testing.T) {
	jobs := NewPeriodicJobs(0)

	if len(jobs) != 1 {
		t.Fatalf("NewPeriodicJobs() returned %d jobs, want 1", len(jobs))
	}
	if jobs[0] == nil {
		t.Errorf("NewPeriodicJobs()[0] is nil")
	}
}
