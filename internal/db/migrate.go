// Package db runs the embedded goose migrations for the versions table.
//
// Migration files live in internal/db/migrations/ and are embedded via
// //go:embed. Each file carries its own -- +goose Up / -- +goose Down blocks.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as database/sql driver
	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"
)

// MigrationState describes one migration as reported by goose.
type MigrationState struct {
	Version int64  `json:"version"`
	File    string `json:"file"`
	Applied bool   `json:"applied"`
}

// newProvider opens a database/sql handle over the pgx stdlib driver, which
// goose requires. The caller must close the returned *sql.DB.
func newProvider(connStr string, fsys fs.FS) (*goose.Provider, *sql.DB, error) {
	sqlDB, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, nil, fmt.Errorf("opening sql.DB for migrations: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectPostgres, sqlDB, fsys)
	if err != nil {
		sqlDB.Close() //nolint:errcheck,gosec // best-effort cleanup.

		return nil, nil, fmt.Errorf("creating goose provider: %w", err)
	}

	return provider, sqlDB, nil
}

// RunMigrations applies all pending migrations from fsys.
func RunMigrations(ctx context.Context, connStr string, log *logrus.Logger, fsys fs.FS) error {
	provider, sqlDB, err := newProvider(connStr, fsys)
	if err != nil {
		return err
	}
	defer sqlDB.Close() //nolint:errcheck // read-only handle.

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}

	for _, r := range results {
		if r.Error != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", r.Source.Version, r.Source.Path, r.Error)
		}

		log.WithFields(logrus.Fields{
			"version":  r.Source.Version,
			"file":     r.Source.Path,
			"duration": r.Duration,
		}).Info("migration applied")
	}

	if len(results) == 0 {
		log.Debug("all migrations already applied")
	}

	return nil
}

// MigrationStatus reports every known migration and whether it is applied.
func MigrationStatus(ctx context.Context, connStr string, fsys fs.FS) ([]MigrationState, error) {
	provider, sqlDB, err := newProvider(connStr, fsys)
	if err != nil {
		return nil, err
	}
	defer sqlDB.Close() //nolint:errcheck // read-only handle.

	statuses, err := provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading migration status: %w", err)
	}

	out := make([]MigrationState, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, MigrationState{
			Version: s.Source.Version,
			File:    s.Source.Path,
			Applied: s.State == goose.StateApplied,
		})
	}

	return out, nil
}
