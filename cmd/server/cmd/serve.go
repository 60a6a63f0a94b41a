package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/comilla/site-backend/internal/api"
	"github.com/comilla/site-backend/internal/api/handlers"
	"github.com/comilla/site-backend/internal/config"
	"github.com/comilla/site-backend/internal/jobs"
	"github.com/comilla/site-backend/internal/metrics"
	"github.com/comilla/site-backend/internal/storage/postgres"
	"github.com/comilla/site-backend/internal/telemetry"
)

const shutdownTimeout = 10 * time.Second

type serveOptions struct {
	host string
	port int
}

func newServeCommand(global *globalOptions) *cobra.Command {
	opts := serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the HTTP server and the background job workers.

The server will:
- Load configuration from environment variables (or --config file if provided)
- Apply database and job queue migrations
- Bootstrap the admin user if ADMIN_EMAIL and ADMIN_PASSWORD are set
- Serve the admin API until SIGINT/SIGTERM, then shut down gracefully

Examples:
  # Start with default configuration (from env vars)
  server serve

  # Start on a specific host and port
  server serve --host 127.0.0.1 --port 9090

  # Start with debug logging
  server serve --log-level debug`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), global, opts)
		},
	}
	cmd.Flags().StringVar(&opts.host, "host", "", "server host address (default: 0.0.0.0)")
	cmd.Flags().IntVar(&opts.port, "port", 0, "server port (default: 9000)")
	return cmd
}

func runServe(ctx context.Context, global *globalOptions, opts serveOptions) error {
	ctx, cfg, logger, err := setup(ctx, global)
	if err != nil {
		return err
	}
	applyServeOverrides(&cfg, opts)
	logger.Info().Str("version", Version).Str("env", cfg.Environment).Msg("starting server")

	metrics.Init(Version, GitCommit, BuildDate)

	shutdownTracing, err := telemetry.InitTracing(ctx, cfg.Tracing, Version)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(stopCtx); err != nil {
			logger.Warn().Err(err).Msg("tracing shutdown error")
		}
	}()

	if err := postgres.MigrateUp(cfg.Database.URL, cfg.Database.MigrationsPath); err != nil {
		return err
	}

	pool, repo, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if cfg.Jobs.Enabled {
		if err := jobs.MigrateRiver(ctx, pool); err != nil {
			return err
		}
	}

	services, err := newApp(ctx, cfg, logger, pool, repo)
	if err != nil {
		return err
	}

	bootCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	if err := bootstrapAdmin(bootCtx, cfg, services.users, logger); err != nil {
		logger.Error().Err(err).Msg("admin bootstrap failed")
	}
	cancel()

	collector := metrics.NewDBCollector(pool)
	collectorCtx, stopCollector := context.WithCancel(ctx)
	defer stopCollector()
	go collector.Start(collectorCtx, 15*time.Second)

	var riverClient *river.Client[pgx.Tx]
	if cfg.Jobs.Enabled {
		slogger := config.NewSlogLogger(logger)
		riverClient, err = jobs.NewClient(pool, jobs.ClientOptions{
			Workers:            jobs.NewWorkers(services.sweeper(logger), slogger),
			Logger:             slogger,
			Hooks:              []rivertype.Hook{metrics.NewRiverMetricsHook()},
			PeriodicJobs:       jobs.NewPeriodicJobs(cfg.Jobs.OrphanSweepEvery),
			MaintenanceWorkers: cfg.Jobs.MaintenanceWorkers,
		})
		if err != nil {
			return fmt.Errorf("river client: %w", err)
		}
	} else {
		logger.Warn().Msg("background jobs disabled; orphaned images will not be swept")
	}

	router := api.NewRouter(ctx, api.Dependencies{
		Config:    cfg,
		Logger:    logger,
		Tokens:    services.tokens,
		Users:     services.users,
		Projects:  services.projects,
		Events:    services.events,
		Contact:   services.contact,
		Health:    handlers.NewHealthChecker(repo, services.blobs, cfg.Jobs.Enabled, Version, GitCommit),
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
	})

	server := newHTTPServer(cfg.Server, router)
	return serveUntilDone(ctx, server, riverClient, logger)
}

func applyServeOverrides(cfg *config.Config, opts serveOptions) {
	if opts.host != "" {
		cfg.Server.Host = opts.host
	}
	if opts.port != 0 {
		cfg.Server.Port = opts.port
	}
}

func newHTTPServer(cfg config.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Handler:           handler,
		ReadTimeout:       30 * time.Second, // multipart uploads
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
}

// serveUntilDone runs the HTTP server and, when given, the River client
// until ctx is cancelled or either fails. HTTP stops first, then River.
func serveUntilDone(ctx context.Context, server *http.Server, riverClient *river.Client[pgx.Tx], logger zerolog.Logger) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Str("addr", server.Addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if riverClient != nil {
		g.Go(func() error {
			// Stop is called explicitly below so in-flight jobs finish.
			if err := riverClient.Start(context.WithoutCancel(gctx)); err != nil {
				return fmt.Errorf("river workers failed to start: %w", err)
			}
			logger.Info().Msg("river workers started")
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")

		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var errs []error
		if err := server.Shutdown(stopCtx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
		if riverClient != nil {
			if err := riverClient.Stop(stopCtx); err != nil {
				errs = append(errs, fmt.Errorf("river shutdown: %w", err))
			}
		}
		if err := errors.Join(errs...); err != nil {
			return err
		}
		logger.Info().Msg("server stopped")
		return nil
	})

	return g.Wait()
}
