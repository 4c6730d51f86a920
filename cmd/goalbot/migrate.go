package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/edgard/goalbot/internal/config"
	"github.com/edgard/goalbot/internal/database"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}

			db, err := database.Open(cfg.Database.Path)
			if err != nil {
				return err
			}
			defer database.CloseDB(db)

			if err := database.ApplyMigrations(db.DB, database.ExtractDBNameFromPath(cfg.Database.Path)); err != nil {
				return fmt.Errorf("failed to apply migrations: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Database %s is up to date\n", cfg.Database.Path)
			return nil
		},
	}
}
