package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// errInvalidHealthResponse marks a reply that is not a readiness report.
var errInvalidHealthResponse = errors.New("invalid health response")

// HealthResponse mirrors the /readyz report.
type HealthResponse struct {
	Status string                 `json:"status"`
	Checks map[string]CheckResult `json:"checks,omitempty"`
}

type CheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func newHealthcheckCommand() *cobra.Command {
	var (
		timeout time.Duration
		url     string
	)
	cmd := &cobra.Command{
		Use:   "healthcheck",
		Short: "Check if the server is ready",
		Long: `Calls the /readyz endpoint. Used as the container HEALTHCHECK.

Exits 0 when the server reports healthy or degraded, non-zero otherwise.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if url == "" {
				url = defaultHealthURL()
			}
			resp, err := checkHealth(cmd.Context(), url, timeout)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "status: %s\n", resp.Status)
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "request timeout")
	cmd.Flags().StringVar(&url, "url", "", "readiness URL (default: http://localhost:{SERVER_PORT}/readyz)")
	return cmd
}

func defaultHealthURL() string {
	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "9000"
	}
	return fmt.Sprintf("http://localhost:%s/readyz", port)
}

// checkHealth fetches the readiness report. A non-200 status or an
// unhealthy report is an error; degraded is accepted.
func checkHealth(ctx context.Context, url string, timeout time.Duration) (HealthResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return HealthResponse{}, fmt.Errorf("create request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return HealthResponse{}, fmt.Errorf("health check failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return HealthResponse{}, fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	var report HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return HealthResponse{}, fmt.Errorf("%w: %w", errInvalidHealthResponse, err)
	}
	switch report.Status {
	case "healthy", "degraded":
		return report, nil
	case "":
		return report, errInvalidHealthResponse
	default:
		return report, fmt.Errorf("unhealthy: status=%s", report.Status)
	}
}
