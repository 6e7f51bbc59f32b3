package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/persistorai/trail/internal/db"
	"github.com/persistorai/trail/internal/db/migrations"
)

func newMigrateCmd() *cobra.Command {
	var status bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations (DATABASE_URL)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dbURL := os.Getenv("DATABASE_URL")
			if dbURL == "" {
				return fmt.Errorf("DATABASE_URL is required")
			}
			ctx := cmd.Context()

			if status {
				states, err := db.MigrationStatus(ctx, dbURL, migrations.FS)
				if err != nil {
					return err
				}
				if flagFmt != "table" {
					formatJSON(states)
					return nil
				}
				rows := make([][]string, len(states))
				for i, s := range states {
					rows[i] = []string{strconv.FormatInt(s.Version, 10), s.File, strconv.FormatBool(s.Applied)}
				}
				formatTable([]string{"VERSION", "FILE", "APPLIED"}, rows)
				return nil
			}

			log := newLogger(os.Getenv("LOG_LEVEL"))
			if err := db.RunMigrations(ctx, dbURL, log, migrations.FS); err != nil {
				return err
			}
			fmt.Printf("schema at version %d (%s)\n", db.SchemaVersion(), versionString())
			return nil
		},
	}
	cmd.Flags().BoolVar(&status, "status", false, "Show applied and pending migrations instead of applying")
	return cmd
}
