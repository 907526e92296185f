package database

import (
	"context"
	"fmt"
)

// migration defines a single idempotent schema migration.
type migration struct {
	name  string
	sql   string
	check string // query that returns true if the migration is already applied
}

// migrations is the ordered list of schema migrations to apply.
// Each must be idempotent (use IF NOT EXISTS, IF EXISTS, etc.).
var migrations = []migration{
	{
		name:  "add notes.language",
		sql:   `ALTER TABLE notes ADD COLUMN IF NOT EXISTS language text NOT NULL DEFAULT ''`,
		check: `SELECT EXISTS (SELECT 1 FROM information_schema.columns WHERE table_name = 'notes' AND column_name = 'language')`,
	},
	{
		name:  "add notes.summary_model",
		sql:   `ALTER TABLE notes ADD COLUMN IF NOT EXISTS summary_model text NOT NULL DEFAULT ''`,
		check: `SELECT EXISTS (SELECT 1 FROM information_schema.columns WHERE table_name = 'notes' AND column_name = 'summary_model')`,
	},
	{
		name:  "add notes status index",
		sql:   `CREATE INDEX IF NOT EXISTS idx_notes_status ON notes (status)`,
		check: `SELECT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_notes_status')`,
	},
}

// Migrate applies any pending migrations. Safe to run on every startup.
func (db *DB) Migrate(ctx context.Context) error {
	for _, m := range migrations {
		var applied bool
		if m.check != "" {
			if err := db.Pool.QueryRow(ctx, m.check).Scan(&applied); err != nil {
				return fmt.Errorf("migration check %q: %w", m.name, err)
			}
		}
		if applied {
			continue
		}
		db.log.Info().Str("migration", m.name).Msg("applying migration")
		if _, err := db.Pool.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("migration %q: %w", m.name, err)
		}
	}
	return nil
}
