package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/comilla/site-backend/internal/metrics"
)

const checkTimeout = 2 * time.Second

// DatabaseProbe is the database side of the readiness check.
// *postgres.Repository satisfies it.
type DatabaseProbe interface {
	Ping(ctx context.Context) error
	MigrationState(ctx context.Context) (version int64, dirty bool, err error)
	ActiveJobs(ctx context.Context) (count int64, ok bool, err error)
}

// BlobProbe checks that the image bucket is reachable.
type BlobProbe interface {
	Ping(ctx context.Context) error
}

// HealthCheck is the readiness report.
type HealthCheck struct {
	Status    string                 `json:"status"`
	Version   string                 `json:"version"`
	GitCommit string                 `json:"git_commit"`
	Checks    map[string]CheckResult `json:"checks"`
	Timestamp string                 `json:"timestamp"`
}

// CheckResult is the outcome of one readiness check.
type CheckResult struct {
	Status    string         `json:"status"`
	Message   string         `json:"message,omitempty"`
	LatencyMs int64          `json:"latency_ms,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

type HealthChecker struct {
	db          DatabaseProbe
	blobs       BlobProbe
	jobsEnabled bool
	version     string
	gitCommit   string
	now         func() time.Time
}

// NewHealthChecker builds a checker. A nil blobs probe skips the storage check.
func NewHealthChecker(db DatabaseProbe, blobs BlobProbe, jobsEnabled bool, version, gitCommit string) *HealthChecker {
	return &HealthChecker{
		db:          db,
		blobs:       blobs,
		jobsEnabled: jobsEnabled,
		version:     version,
		gitCommit:   gitCommit,
		now:         time.Now,
	}
}

// Readyz runs every check. Any failing check makes the response 503; a
// warning only degrades the status.
func (h *HealthChecker) Readyz() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
			respondHealth(w, http.StatusServiceUnavailable, "shutting_down")
			return
		default:
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		checks := map[string]CheckResult{
			"database":   h.checkDatabase(ctx),
			"migrations": h.checkMigrations(ctx),
			"job_queue":  h.checkJobQueue(ctx),
		}
		if h.blobs != nil {
			checks["object_storage"] = h.checkBlobs(ctx)
		}

		overall := "healthy"
		statusCode := http.StatusOK
		for name, check := range checks {
			pass := 1.0
			switch check.Status {
			case "fail":
				pass = 0
				overall = "unhealthy"
				statusCode = http.StatusServiceUnavailable
			case "warn":
				if overall == "healthy" {
					overall = "degraded"
				}
			}
			metrics.HealthCheckStatus.WithLabelValues(name).Set(pass)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		_ = json.NewEncoder(w).Encode(HealthCheck{
			Status:    overall,
			Version:   h.version,
			GitCommit: h.gitCommit,
			Checks:    checks,
			Timestamp: h.now().UTC().Format(time.RFC3339),
		})
	})
}

func (h *HealthChecker) checkDatabase(ctx context.Context) CheckResult {
	if h.db == nil {
		return CheckResult{Status: "fail", Message: "Database not configured"}
	}
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	start := time.Now()
	err := h.db.Ping(ctx)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return CheckResult{
			Status:    "fail",
			Message:   databaseFailureMessage(ctx, err),
			LatencyMs: latency,
			Details:   map[string]any{"error": err.Error()},
		}
	}
	return CheckResult{Status: "pass", Message: "PostgreSQL connection successful", LatencyMs: latency}
}

func databaseFailureMessage(ctx context.Context, err error) string {
	msg := err.Error()
	switch {
	case ctx.Err() == context.DeadlineExceeded:
		return "Database ping timed out"
	case strings.Contains(msg, "connection refused"):
		return "Database connection refused"
	case strings.Contains(msg, "authentication failed"):
		return "Database authentication failed"
	default:
		return "Database ping failed"
	}
}

func (h *HealthChecker) checkMigrations(ctx context.Context) CheckResult {
	if h.db == nil {
		return CheckResult{Status: "fail", Message: "Database not configured"}
	}
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	start := time.Now()
	version, dirty, err := h.db.MigrationState(ctx)
	latency := time.Since(start).Milliseconds()
	switch {
	case err != nil:
		return CheckResult{
			Status:    "fail",
			Message:   "Failed to read migration version",
			LatencyMs: latency,
			Details:   map[string]any{"error": err.Error(), "remediation": "Run: server migrate up"},
		}
	case dirty:
		return CheckResult{
			Status:    "fail",
			Message:   "Database in dirty migration state",
			LatencyMs: latency,
			Details:   map[string]any{"version": version, "dirty": true},
		}
	}
	return CheckResult{
		Status:    "pass",
		Message:   fmt.Sprintf("Migrations applied (version %d)", version),
		LatencyMs: latency,
		Details:   map[string]any{"version": version},
	}
}

func (h *HealthChecker) checkJobQueue(ctx context.Context) CheckResult {
	if !h.jobsEnabled {
		return CheckResult{Status: "warn", Message: "Background jobs disabled"}
	}
	if h.db == nil {
		return CheckResult{Status: "fail", Message: "Database not configured"}
	}
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	start := time.Now()
	active, ok, err := h.db.ActiveJobs(ctx)
	latency := time.Since(start).Milliseconds()
	switch {
	case err != nil:
		return CheckResult{
			Status:    "fail",
			Message:   "Failed to query job queue",
			LatencyMs: latency,
			Details:   map[string]any{"error": err.Error()},
		}
	case !ok:
		return CheckResult{
			Status:    "warn",
			Message:   "River job table not found",
			LatencyMs: latency,
			Details:   map[string]any{"remediation": "Run: server migrate up"},
		}
	}
	return CheckResult{
		Status:    "pass",
		Message:   "River job queue operational",
		LatencyMs: latency,
		Details:   map[string]any{"active_jobs": active},
	}
}

func (h *HealthChecker) checkBlobs(ctx context.Context) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	start := time.Now()
	err := h.blobs.Ping(ctx)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return CheckResult{
			Status:    "fail",
			Message:   "Object storage unreachable",
			LatencyMs: latency,
			Details:   map[string]any{"error": err.Error()},
		}
	}
	return CheckResult{Status: "pass", Message: "Bucket reachable", LatencyMs: latency}
}

// Healthz is the liveness probe. It never touches dependencies.
func Healthz() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondHealth(w, http.StatusOK, "ok")
	})
}

type healthResponse struct {
	Status string `json:"status"`
}

func respondHealth(w http.ResponseWriter, status int, value string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(healthResponse{Status: value})
}
