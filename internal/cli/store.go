package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMigrateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			db, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer a.closeStore(ctx, db)
			fmt.Fprintf(cmd.OutOrStdout(), "schema ready (%s)\n", db.Driver())
			return nil
		},
	}
}

func newSeedCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert the default admin, plans and email templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			db, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer a.closeStore(ctx, db)
			res, err := db.Seed(ctx)
			if err != nil {
				return fmt.Errorf("seed store: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d admins, %d plans, %d templates\n", res.Admins, res.Plans, res.Templates)
			return nil
		},
	}
}
