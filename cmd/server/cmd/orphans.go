package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newOrphansCommand(global *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orphans",
		Short: "Inspect and clean up images left behind by failed deletes",
	}

	sweep := &cobra.Command{
		Use:   "sweep",
		Short: "Run one orphan sweep batch now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cfg, logger, err := setup(cmd.Context(), global)
			if err != nil {
				return err
			}
			pool, repo, err := openDatabase(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			services, err := newApp(ctx, cfg, logger, pool, repo)
			if err != nil {
				return err
			}
			result, err := services.sweeper(logger).Sweep(ctx)
			fmt.Fprintf(cmd.OutOrStdout(), "scanned %d, resolved %d, failed %d\n", result.Scanned, result.Resolved, result.Failed)
			if err != nil {
				return err
			}

			remaining, err := repo.Orphans().Count(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d orphans remain in the ledger\n", remaining)
			return nil
		},
	}

	cmd.AddCommand(sweep)
	return cmd
}
