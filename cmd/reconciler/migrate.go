package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"reconciler/internal/infrastructure/database"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
	}
	cmd.AddCommand(
		migrateDirectionCmd("up", "Apply all pending migrations", true),
		migrateDirectionCmd("down", "Roll back the most recent migration", false),
	)
	return cmd
}

func migrateDirectionCmd(use, short string, up bool) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := database.Migrate(cfg.MigrationsPath, cfg.DB, up); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrate %s completed\n", use)
			return nil
		},
	}
}
