package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/comilla/site-backend/internal/domain/users"
)

func newUserCommand(global *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage the administrator account",
	}

	var email, password string
	create := &cobra.Command{
		Use:     "create",
		Short:   "Create an administrator unless one with the email exists",
		Example: `  server user create --email admin@example.com --password 's3cret'`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" || password == "" {
				return errors.New("--email and --password are required")
			}

			ctx, cfg, logger, err := setup(cmd.Context(), global)
			if err != nil {
				return err
			}
			pool, repo, err := openDatabase(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			service, _, err := newUserService(cfg, repo, logger)
			if err != nil {
				return err
			}
			created, err := service.Bootstrap(ctx, email, password)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if created {
				fmt.Fprintf(out, "created user %s\n", users.NormalizeEmail(email))
			} else {
				fmt.Fprintf(out, "user %s already exists\n", users.NormalizeEmail(email))
			}
			return nil
		},
	}
	create.Flags().StringVar(&email, "email", "", "administrator email")
	create.Flags().StringVar(&password, "password", "", "administrator password")

	cmd.AddCommand(create)
	return cmd
}
