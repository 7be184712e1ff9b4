package main

import (
	"fmt"

	"github.com/cochranfilms/coursecreatoracademy/internal/config"
	"github.com/cochranfilms/coursecreatoracademy/internal/db"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
)

func newDBCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Manage the document store schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDB(func(database *sqlx.DB, cfg *config.Config) error {
				if err := db.RunMigrations(database.DB, cfg.DBDriver); err != nil {
					return err
				}
				return printVersion(cmd, database, cfg)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rollback",
		Short: "Roll back the most recent migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDB(func(database *sqlx.DB, cfg *config.Config) error {
				if err := db.MigrateDown(database.DB, cfg.DBDriver); err != nil {
					return err
				}
				return printVersion(cmd, database, cfg)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDB(func(database *sqlx.DB, cfg *config.Config) error {
				return printVersion(cmd, database, cfg)
			})
		},
	})

	return cmd
}

func printVersion(cmd *cobra.Command, database *sqlx.DB, cfg *config.Config) error {
	version, err := db.Version(database.DB, cfg.DBDriver)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", version)
	return nil
}
