package database

import "context"

// schemaSQL is the full schema for a fresh database.
const schemaSQL = `
CREATE TABLE notes (
    id              bigserial PRIMARY KEY,
    created_at      timestamptz NOT NULL DEFAULT now(),
    updated_at      timestamptz NOT NULL DEFAULT now(),
    source          text NOT NULL,              -- 'upload', 'text', 'inbox'
    filename        text NOT NULL DEFAULT '',
    audio_key       text NOT NULL DEFAULT '',   -- storage key, '' for text notes
    audio_format    text NOT NULL DEFAULT '',
    status          text NOT NULL DEFAULT 'pending', -- pending, transcribing, transcribed, failed
    error           text NOT NULL DEFAULT '',
    transcript      text NOT NULL DEFAULT '',
    language        text NOT NULL DEFAULT '',
    word_count      int NOT NULL DEFAULT 0,
    stt_provider    text NOT NULL DEFAULT '',
    stt_model       text NOT NULL DEFAULT '',
    stt_duration_ms int NOT NULL DEFAULT 0,
    summary         text NOT NULL DEFAULT '',
    summary_min_len int NOT NULL DEFAULT 0,
    summary_max_len int NOT NULL DEFAULT 0,
    summary_bullets bool NOT NULL DEFAULT true,
    summary_provider text NOT NULL DEFAULT '',
    summary_model   text NOT NULL DEFAULT ''
);

CREATE INDEX idx_notes_created_at ON notes (created_at DESC);
CREATE INDEX idx_notes_status ON notes (status);

CREATE TABLE deliveries (
    id        bigserial PRIMARY KEY,
    note_id   bigint NOT NULL REFERENCES notes(id) ON DELETE CASCADE,
    recipient text NOT NULL,
    subject   text NOT NULL,
    sent_at   timestamptz NOT NULL DEFAULT now()
);

CREATE INDEX idx_deliveries_note_id ON deliveries (note_id);
`

// InitSchema applies the full schema on a fresh database.
// It checks whether the "notes" table exists as a proxy for whether the
// schema has been loaded. If present, it's a no-op.
func (db *DB) InitSchema(ctx context.Context) error {
	var exists bool
	err := db.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT FROM pg_tables WHERE schemaname = 'public' AND tablename = 'notes')`,
	).Scan(&exists)
	if err != nil {
		return err
	}

	if exists {
		db.log.Debug().Msg("schema already initialized, skipping")
		return nil
	}

	db.log.Info().Msg("fresh database detected — applying schema")
	if _, err := db.Pool.Exec(ctx, schemaSQL); err != nil {
		return err
	}
	db.log.Info().Msg("schema applied successfully")
	return nil
}
