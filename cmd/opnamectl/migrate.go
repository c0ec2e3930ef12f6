package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"backoffice/internal/infrastructure/storage/postgres"
)

var migrateSteps int

var migrateCmd = &cobra.Command{
	Use:       "migrate up|down",
	Short:     "Apply or roll back the embedded schema migrations",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{string(postgres.MigrateUp), string(postgres.MigrateDown)},
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required")
		}
		dir := postgres.MigrateDirection(args[0])
		if err := postgres.Migrate(cmd.Context(), cfg.DatabaseURL, dir, migrateSteps); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "migrate %s: done\n", dir)
		return nil
	},
}

func init() {
	migrateCmd.Flags().IntVar(&migrateSteps, "steps", 0, "number of migrations to roll back (down only; 0 = all)")
	rootCmd.AddCommand(migrateCmd)
}
