package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/comilla/site-backend/internal/config"
)

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	configPath string
	logLevel   string
	logFormat  string
}

func newRootCommand() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "server",
		Short: "Comilla site backend - admin API for projects, events and the contact form",
		Long: `Comilla site backend serves the website's admin API.

It provides:
- Single-administrator login with a session cookie
- Projects and events, each with up to six images stored in S3
- A contact form that forwards messages by email
- A background sweep that removes images left behind by failed deletes

Running without a subcommand starts the HTTP server.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts, serveOptions{})
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML config file (environment variables take precedence)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error) (default: info)")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "log format (json, console) (default: json)")

	root.AddCommand(
		newServeCommand(opts),
		newVersionCommand(),
		newHealthcheckCommand(),
		newMigrateCommand(opts),
		newUserCommand(opts),
		newOrphansCommand(opts),
	)
	return root
}

// Execute runs the CLI and exits non-zero on failure. SIGINT and SIGTERM
// cancel the command context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(opts *globalOptions) (config.Config, error) {
	cfg, err := config.LoadFile(opts.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	if opts.logFormat != "" {
		cfg.Logging.Format = opts.logFormat
	}
	return cfg, nil
}

// setup loads configuration and builds the logger for commands that need both.
func setup(ctx context.Context, opts *globalOptions) (context.Context, config.Config, zerolog.Logger, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return ctx, config.Config{}, zerolog.Nop(), fmt.Errorf("config error: %w", err)
	}
	logger := config.NewLogger(cfg.Logging)
	return logger.WithContext(ctx), cfg, logger, nil
}
