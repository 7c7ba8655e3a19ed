package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"github.com/studyolle/studyolle/internal/config"
	"github.com/studyolle/studyolle/internal/db"
)

func MigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply, roll back or inspect database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: withDB(func(cfg *config.Config, database *sqlx.DB) error {
			return db.RunMigrations(database.DB, cfg.DBDriver)
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		RunE: withDB(func(cfg *config.Config, database *sqlx.DB) error {
			return db.MigrateDown(database.DB, cfg.DBDriver)
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "List migrations and whether they are applied",
		RunE: withDB(func(cfg *config.Config, database *sqlx.DB) error {
			statuses, err := db.MigrationStatus(database.DB, cfg.DBDriver)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "VERSION\tSTATE\tAPPLIED AT\tFILE")
			for _, s := range statuses {
				appliedAt := "-"
				if !s.AppliedAt.IsZero() {
					appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", s.Source.Version, s.State, appliedAt, s.Source.Path)
			}
			return tw.Flush()
		}),
	})

	return cmd
}

func withDB(fn func(cfg *config.Config, database *sqlx.DB) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()

		database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close(database)

		return fn(cfg, database)
	}
}
