package cmd

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/comilla/site-backend/internal/auth"
	"github.com/comilla/site-backend/internal/blob"
	"github.com/comilla/site-backend/internal/config"
	"github.com/comilla/site-backend/internal/domain/attachments"
	"github.com/comilla/site-backend/internal/domain/contact"
	"github.com/comilla/site-backend/internal/domain/events"
	"github.com/comilla/site-backend/internal/domain/projects"
	"github.com/comilla/site-backend/internal/domain/users"
	"github.com/comilla/site-backend/internal/email"
	"github.com/comilla/site-backend/internal/jobs"
	"github.com/comilla/site-backend/internal/storage/postgres"
)

const tokenIssuer = "comilla-site-backend"

// app holds the services built from one configuration.
type app struct {
	cfg      config.Config
	pool     *pgxpool.Pool
	repo     *postgres.Repository
	blobs    *blob.Store
	tokens   *auth.JWTManager
	users    *users.Service
	projects *projects.Service
	events   *events.Service
	contact  *contact.Service
}

// openDatabase connects the pool and wraps it in a repository.
func openDatabase(ctx context.Context, cfg config.Config) (*pgxpool.Pool, *postgres.Repository, error) {
	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}
	repo, err := postgres.NewRepository(pool)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	return pool, repo, nil
}

func newUserService(cfg config.Config, repo *postgres.Repository, logger zerolog.Logger) (*users.Service, *auth.JWTManager, error) {
	tokens, err := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL, tokenIssuer)
	if err != nil {
		return nil, nil, fmt.Errorf("session tokens: %w", err)
	}
	service := users.NewService(repo.Users(), auth.NewPasswordHasher(cfg.Auth.BcryptCost), tokens, logger)
	return service, tokens, nil
}

func newApp(ctx context.Context, cfg config.Config, logger zerolog.Logger, pool *pgxpool.Pool, repo *postgres.Repository) (*app, error) {
	store, err := blob.NewStore(ctx, cfg.S3)
	if err != nil {
		return nil, fmt.Errorf("object storage: %w", err)
	}

	userService, tokens, err := newUserService(cfg, repo, logger)
	if err != nil {
		return nil, err
	}

	mailer, err := email.NewService(cfg.Email, logger)
	if err != nil {
		return nil, fmt.Errorf("email: %w", err)
	}

	images := attachments.NewManager(store, repo.Orphans())
	return &app{
		cfg:      cfg,
		pool:     pool,
		repo:     repo,
		blobs:    store,
		tokens:   tokens,
		users:    userService,
		projects: projects.NewService(repo.Projects(), images),
		events:   events.NewService(repo.Events(), images),
		contact:  contact.NewService(mailer, cfg.Contact.Recipient, cfg.Contact.Subject, logger),
	}, nil
}

func (a *app) sweeper(logger zerolog.Logger) *jobs.Sweeper {
	return &jobs.Sweeper{
		Orphans:     a.repo.Orphans(),
		Blobs:       a.blobs,
		BatchSize:   a.cfg.Jobs.OrphanSweepBatch,
		MaxAttempts: a.cfg.Jobs.OrphanMaxAttempts,
		Logger:      config.NewSlogLogger(logger),
	}
}

// bootstrapAdmin creates the administrator from ADMIN_EMAIL/ADMIN_PASSWORD
// when both are set and no user with that email exists.
func bootstrapAdmin(ctx context.Context, cfg config.Config, service *users.Service, logger zerolog.Logger) error {
	bootstrap := cfg.AdminBootstrap
	if bootstrap.Email == "" || bootstrap.Password == "" {
		logger.Debug().Msg("admin bootstrap env vars not set; skipping")
		return nil
	}

	created, err := service.Bootstrap(ctx, bootstrap.Email, bootstrap.Password)
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	if created {
		event := logger.Info()
		if cfg.Environment != "production" {
			event = event.Str("email", users.NormalizeEmail(bootstrap.Email))
		}
		event.Msg("bootstrapped admin user")
	}
	return nil
}
