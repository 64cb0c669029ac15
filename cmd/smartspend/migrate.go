package main

import (
	"fmt"
	"log/slog"

	"github.com/Veraticus/smartspend/internal/cli"
	"github.com/Veraticus/smartspend/internal/storage"
	"github.com/spf13/cobra"
)

func migrateCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the database schema to the latest version.

Every command migrates on open, so this is only needed to prepare a
database ahead of time or to check its version.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			status, _ := cmd.Flags().GetBool("status")
			ctx := cmd.Context()
			cfg := opts.cfg.Storage

			slog.Info("Starting database migration",
				"driver", cfg.Driver,
				"path", cfg.Path,
				"status_only", status)

			if status {
				if cfg.Driver != storage.DriverSQLite {
					return fmt.Errorf("migration status is only tracked for the %s driver", storage.DriverSQLite)
				}
				store, err := storage.NewSQLiteStorage(cfg.Path)
				if err != nil {
					return fmt.Errorf("failed to open database: %w", err)
				}
				defer func() { _ = store.Close() }()

				current, err := store.SchemaVersion(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, cli.FormatTitle("Database Migration Status"))
				fmt.Fprintf(out, "  Database: %s\n", store.Path())
				fmt.Fprintf(out, "  Current version: %d\n", current)
				fmt.Fprintf(out, "  Latest version:  %d\n", storage.ExpectedSchemaVersion)
				if current < storage.ExpectedSchemaVersion {
					fmt.Fprintln(out, cli.FormatWarning("Run 'smartspend migrate' to upgrade."))
				}
				return nil
			}

			store, err := storage.Open(ctx, cfg)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			defer func() { _ = store.Close() }()

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Database migrations completed successfully!"))
			return nil
		},
	}

	cmd.Flags().Bool("status", false, "Show current migration status without applying changes")

	return cmd
}
