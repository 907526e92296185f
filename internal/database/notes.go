package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// Note statuses.
const (
	StatusPending      = "pending"
	StatusTranscribing = "transcribing"
	StatusTranscribed  = "transcribed"
	StatusFailed       = "failed"
)

// Note sources.
const (
	SourceUpload = "upload"
	SourceText   = "text"
	SourceInbox  = "inbox"
)

// ErrNotFound is returned when a note does not exist.
var ErrNotFound = errors.New("note not found")

// Note is a single transcription/summary unit of work.
type Note struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Source    string    `json:"source"`
	Filename  string    `json:"filename,omitempty"`
	AudioKey  string    `json:"audio_key,omitempty"`
	AudioFmt  string    `json:"audio_format,omitempty"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`

	Transcript    string `json:"transcript,omitempty"`
	Language      string `json:"language,omitempty"`
	WordCount     int    `json:"word_count"`
	STTProvider   string `json:"stt_provider,omitempty"`
	STTModel      string `json:"stt_model,omitempty"`
	STTDurationMs int    `json:"stt_duration_ms,omitempty"`

	Summary         string `json:"summary,omitempty"`
	SummaryMinLen   int    `json:"summary_min_len,omitempty"`
	SummaryMaxLen   int    `json:"summary_max_len,omitempty"`
	SummaryBullets  bool   `json:"summary_bullets"`
	SummaryProvider string `json:"summary_provider,omitempty"`
	SummaryModel    string `json:"summary_model,omitempty"`
}

// NoteFilter specifies filters for listing notes.
type NoteFilter struct {
	Status  string
	Source  string
	Limit   int
	Offset  int
	OrderBy string // validated SQL fragment, e.g. "created_at DESC"
}

const noteColumns = `id, created_at, updated_at, source, filename, audio_key, audio_format,
	status, error, transcript, language, word_count, stt_provider, stt_model, stt_duration_ms,
	summary, summary_min_len, summary_max_len, summary_bullets, summary_provider, summary_model`

func scanNote(row pgx.Row) (*Note, error) {
	var n Note
	err := row.Scan(
		&n.ID, &n.CreatedAt, &n.UpdatedAt, &n.Source, &n.Filename, &n.AudioKey, &n.AudioFmt,
		&n.Status, &n.Error, &n.Transcript, &n.Language, &n.WordCount,
		&n.STTProvider, &n.STTModel, &n.STTDurationMs,
		&n.Summary, &n.SummaryMinLen, &n.SummaryMaxLen, &n.SummaryBullets,
		&n.SummaryProvider, &n.SummaryModel,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// InsertNote creates a new note and returns it with ID and timestamps filled.
func (db *DB) InsertNote(ctx context.Context, n *Note) (*Note, error) {
	row := db.Pool.QueryRow(ctx, `
		INSERT INTO notes (source, filename, audio_key, audio_format, status, transcript, language, word_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+noteColumns,
		n.Source, n.Filename, n.AudioKey, n.AudioFmt, n.Status, n.Transcript, n.Language, n.WordCount,
	)
	return scanNote(row)
}

// GetNote returns a note by ID.
func (db *DB) GetNote(ctx context.Context, id int64) (*Note, error) {
	row := db.Pool.QueryRow(ctx, `SELECT `+noteColumns+` FROM notes WHERE id = $1`, id)
	return scanNote(row)
}

// ListNotes returns notes matching the filter plus the total count.
func (db *DB) ListNotes(ctx context.Context, f NoteFilter) ([]Note, int, error) {
	where := "TRUE"
	args := []any{}
	if f.Status != "" {
		args = append(args, f.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if f.Source != "" {
		args = append(args, f.Source)
		where += fmt.Sprintf(" AND source = $%d", len(args))
	}

	var total int
	if err := db.Pool.QueryRow(ctx, `SELECT count(*) FROM notes WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	orderBy := f.OrderBy
	if orderBy == "" {
		orderBy = "created_at DESC"
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, f.Offset)
	q := fmt.Sprintf(`SELECT `+noteColumns+` FROM notes WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d`,
		where, orderBy, len(args)-1, len(args))

	rows, err := db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	result := []Note{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *n)
	}
	return result, total, rows.Err()
}

// MarkTranscribing transitions a note to the transcribing state.
func (db *DB) MarkTranscribing(ctx context.Context, id int64) error {
	_, err := db.Pool.Exec(ctx, `
		UPDATE notes SET status = $2, error = '', updated_at = now() WHERE id = $1`,
		id, StatusTranscribing)
	return err
}

// SetTranscript stores a finished transcription and clears any previous summary,
// since the summary no longer matches the transcript.
func (db *DB) SetTranscript(ctx context.Context, id int64, transcript, language, provider, model string, wordCount, durationMs int) error {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE notes SET
			status = $2, error = '', transcript = $3, language = $4,
			stt_provider = $5, stt_model = $6, word_count = $7, stt_duration_ms = $8,
			summary = '', summary_provider = '', summary_model = '',
			updated_at = now()
		WHERE id = $1`,
		id, StatusTranscribed, transcript, language, provider, model, wordCount, durationMs)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkFailed records a processing failure on the note.
func (db *DB) MarkFailed(ctx context.Context, id int64, cause string) error {
	_, err := db.Pool.Exec(ctx, `
		UPDATE notes SET status = $2, error = $3, updated_at = now() WHERE id = $1`,
		id, StatusFailed, cause)
	return err
}

// SetSummary stores a generated summary and its parameters.
func (db *DB) SetSummary(ctx context.Context, id int64, summary string, minLen, maxLen int, bullets bool, provider, model string) error {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE notes SET
			summary = $2, summary_min_len = $3, summary_max_len = $4,
			summary_bullets = $5, summary_provider = $6, summary_model = $7,
			updated_at = now()
		WHERE id = $1`,
		id, summary, minLen, maxLen, bullets, provider, model)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteNote removes a note. Deliveries cascade.
func (db *DB) DeleteNote(ctx context.Context, id int64) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM notes WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delivery records a summary emailed to a recipient.
type Delivery struct {
	ID        int64     `json:"id"`
	NoteID    int64     `json:"note_id"`
	Recipient string    `json:"recipient"`
	Subject   string    `json:"subject"`
	SentAt    time.Time `json:"sent_at"`
}

// InsertDelivery records a sent email.
func (db *DB) InsertDelivery(ctx context.Context, noteID int64, recipient, subject string) (*Delivery, error) {
	var d Delivery
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO deliveries (note_id, recipient, subject)
		VALUES ($1, $2, $3)
		RETURNING id, note_id, recipient, subject, sent_at`,
		noteID, recipient, subject,
	).Scan(&d.ID, &d.NoteID, &d.Recipient, &d.Subject, &d.SentAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ListDeliveries returns all deliveries for a note, newest first.
func (db *DB) ListDeliveries(ctx context.Context, noteID int64) ([]Delivery, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, note_id, recipient, subject, sent_at
		FROM deliveries WHERE note_id = $1 ORDER BY sent_at DESC`, noteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []Delivery{}
	for rows.Next() {
		var d Delivery
		if err := rows.Scan(&d.ID, &d.NoteID, &d.Recipient, &d.Subject, &d.SentAt); err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	return result, rows.Err()
}
