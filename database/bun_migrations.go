package database

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

type bunMigration struct {
	version string
	name    string
	up      func(context.Context, *bun.DB) error
}

var bunMigrations = []bunMigration{
	{"001", "create_conversion_jobs", init001CreateConversionJobs},
	{"002", "add_job_indexes", init002AddJobIndexes},
}

func isPostgres(db *bun.DB) bool {
	return db.Dialect().Name() == dialect.PG
}

// runMigrations runs all Bun migrations not yet recorded in bun_schema_migrations
func (b *BunDB) runMigrations(ctx context.Context) error {
	idColumn := "id INTEGER PRIMARY KEY AUTOINCREMENT"
	if isPostgres(b.db) {
		idColumn = "id SERIAL PRIMARY KEY"
	}
	_, err := b.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS bun_schema_migrations (
			`+idColumn+`,
			version TEXT NOT NULL UNIQUE,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	type AppliedMigration struct {
		bun.BaseModel `bun:"table:bun_schema_migrations"`
		Version       string `bun:"version"`
	}
	var applied []AppliedMigration
	err = b.db.NewSelect().
		Model(&applied).
		Column("version").
		Scan(ctx)
	if err != nil {
		return fmt.Errorf("failed to check applied migrations: %w", err)
	}

	appliedMap := make(map[string]bool)
	for _, m := range applied {
		appliedMap[m.Version] = true
	}

	for _, m := range bunMigrations {
		if appliedMap[m.version] {
			continue
		}

		Logger.Info("Running migration", "version", m.version, "name", m.name)
		if err := m.up(ctx, b.db); err != nil {
			return fmt.Errorf("failed to run migration %s: %w", m.version, err)
		}

		_, err = b.db.NewInsert().
			Model(&AppliedMigration{Version: m.version}).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to mark migration %s as applied: %w", m.version, err)
		}
	}

	Logger.Info("All migrations completed successfully")
	return nil
}

// Migration 001: Create the conversion job log
func init001CreateConversionJobs(ctx context.Context, db *bun.DB) error {
	bigint := "INTEGER"
	if isPostgres(db) {
		bigint = "BIGINT"
	}

	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS conversion_jobs (
			id TEXT PRIMARY KEY,
			tool TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'running',
			request_id TEXT,
			input_count INTEGER NOT NULL DEFAULT 0,
			input_bytes `+bigint+` NOT NULL DEFAULT 0,
			output_name TEXT,
			output_count INTEGER NOT NULL DEFAULT 0,
			output_bytes `+bigint+` NOT NULL DEFAULT 0,
			error TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			started_at TIMESTAMP,
			completed_at TIMESTAMP,
			duration_ms `+bigint+` NOT NULL DEFAULT 0
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create conversion_jobs table: %w", err)
	}
	return nil
}

// Migration 002: Index the columns the job routes and the pruner filter on
func init002AddJobIndexes(ctx context.Context, db *bun.DB) error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_conversion_jobs_status ON conversion_jobs(status)",
		"CREATE INDEX IF NOT EXISTS idx_conversion_jobs_tool ON conversion_jobs(tool)",
		"CREATE INDEX IF NOT EXISTS idx_conversion_jobs_created_at ON conversion_jobs(created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_conversion_jobs_completed_at ON conversion_jobs(completed_at) WHERE completed_at IS NOT NULL",
	}

	for _, idx := range indexes {
		if _, err := db.ExecContext(ctx, idx); err != nil {
			// Partial indexes might not be supported everywhere
			Logger.Warn("Could not create index (might not be supported)", "error", err)
		}
	}
	return nil
}
