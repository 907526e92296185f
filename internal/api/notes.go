package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/voxsum/voxsum/internal/config"
	"github.com/voxsum/voxsum/internal/database"
	"github.com/voxsum/voxsum/internal/mailer"
	"github.com/voxsum/voxsum/internal/metrics"
	"github.com/voxsum/voxsum/internal/storage"
	"github.com/voxsum/voxsum/internal/summarize"
	"github.com/voxsum/voxsum/internal/transcribe"
)

// NoteStore is the slice of the database layer the note handlers use.
// *database.DB satisfies it; tests substitute an in-memory fake.
type NoteStore interface {
	InsertNote(ctx context.Context, n *database.Note) (*database.Note, error)
	GetNote(ctx context.Context, id int64) (*database.Note, error)
	ListNotes(ctx context.Context, f database.NoteFilter) ([]database.Note, int, error)
	MarkFailed(ctx context.Context, id int64, cause string) error
	SetSummary(ctx context.Context, id int64, summary string, minLen, maxLen int, bullets bool, provider, model string) error
	DeleteNote(ctx context.Context, id int64) error
	InsertDelivery(ctx context.Context, noteID int64, recipient, subject string) (*database.Delivery, error)
	ListDeliveries(ctx context.Context, noteID int64) ([]database.Delivery, error)
}

// TranscribeQueue is the enqueue side of the transcription worker pool.
type TranscribeQueue interface {
	Enqueue(j transcribe.Job) bool
	Stats() transcribe.QueueStats
	Provider() string
	Model() string
}

// Summarizer condenses a transcript, optionally as bullet points.
type Summarizer interface {
	Summarize(ctx context.Context, text string, opts summarize.Options, bullets bool) (string, error)
	Provider() string
	Model() string
}

// Sender delivers a summary by email.
type Sender interface {
	Send(ctx context.Context, recipient, subject, body string) error
	Configured() bool
}

// notesSortFields maps API sort fields to SQL columns.
var notesSortFields = map[string]string{
	"created_at": "created_at",
	"updated_at": "updated_at",
	"status":     "status",
}

// NotesHandler implements the note CRUD and pipeline endpoints.
type NotesHandler struct {
	db         NoteStore
	store      storage.AudioStore
	queue      TranscribeQueue
	summarizer Summarizer
	sender     Sender
	cfg        *config.Config
	publish    PublishFunc
	log        zerolog.Logger
}

func NewNotesHandler(db NoteStore, store storage.AudioStore, queue TranscribeQueue, summarizer Summarizer, sender Sender, cfg *config.Config, publish PublishFunc, log zerolog.Logger) *NotesHandler {
	return &NotesHandler{
		db:         db,
		store:      store,
		queue:      queue,
		summarizer: summarizer,
		sender:     sender,
		cfg:        cfg,
		publish:    publish,
		log:        log.With().Str("handler", "notes").Logger(),
	}
}

// Routes registers note routes on the given router.
func (h *NotesHandler) Routes(r chi.Router) {
	r.Post("/notes/audio", h.UploadAudio)
	r.Post("/notes/text", h.CreateText)
	r.Get("/notes", h.List)
	r.Get("/notes/{id}", h.Get)
	r.Delete("/notes/{id}", h.Delete)
	r.Get("/notes/{id}/audio", h.GetAudio)
	r.Post("/notes/{id}/summarize", h.Summarize)
	r.Post("/notes/{id}/email", h.Email)
	r.Get("/notes/{id}/deliveries", h.Deliveries)
}

// UploadAudio handles POST /api/v1/notes/audio.
// Accepts a multipart form with an "audio" file field, stores the file, and
// queues it for transcription. Responds 202 with the pending note.
func (h *NotesHandler) UploadAudio(w http.ResponseWriter, r *http.Request) {
	maxBytes := int64(h.cfg.MaxUploadMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("upload exceeds %d MB limit", h.cfg.MaxUploadMB))
			return
		}
		WriteError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("audio")
	if err != nil {
		WriteError(w, http.StatusBadRequest, `missing "audio" file field`)
		return
	}
	defer file.Close()

	// Extension check happens before anything touches disk or the queue.
	ext, contentType, ok := transcribe.SupportedFormat(header.Filename)
	if !ok {
		WriteErrorDetail(w, http.StatusBadRequest, "unsupported audio format",
			"supported formats: "+strings.Join(transcribe.SupportedExtensions(), ", "))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "failed to read audio file")
		return
	}
	if len(data) == 0 {
		WriteError(w, http.StatusBadRequest, "audio file is empty")
		return
	}

	filename := filepath.Base(header.Filename)
	key := fmt.Sprintf("%s/%d-%s", time.Now().UTC().Format("2006-01-02"), time.Now().UnixNano(), filename)

	if err := h.store.Save(r.Context(), key, data, contentType); err != nil {
		h.log.Error().Err(err).Str("key", key).Msg("audio store failed")
		WriteError(w, http.StatusInternalServerError, "failed to store audio")
		return
	}

	note, err := h.db.InsertNote(r.Context(), &database.Note{
		Source:   database.SourceUpload,
		Filename: filename,
		AudioKey: key,
		AudioFmt: ext,
		Status:   database.StatusPending,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("note insert failed")
		WriteError(w, http.StatusInternalServerError, "failed to create note")
		return
	}

	if !h.queue.Enqueue(transcribe.Job{NoteID: note.ID, AudioKey: key, Filename: filename}) {
		_ = h.db.MarkFailed(r.Context(), note.ID, "transcription queue full")
		WriteError(w, http.StatusServiceUnavailable, "transcription queue full, try again later")
		return
	}

	if h.publish != nil {
		h.publish("note_created", note.ID, map[string]any{
			"note_id":  note.ID,
			"source":   note.Source,
			"filename": note.Filename,
		})
	}

	WriteJSON(w, http.StatusAccepted, note)
}

// CreateText handles POST /api/v1/notes/text.
// Pasted text skips transcription entirely and lands directly in the
// transcribed state, ready to summarize.
func (h *NotesHandler) CreateText(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		WriteError(w, http.StatusBadRequest, "text must not be empty")
		return
	}

	note, err := h.db.InsertNote(r.Context(), &database.Note{
		Source:     database.SourceText,
		Status:     database.StatusTranscribed,
		Transcript: text,
		WordCount:  len(strings.Fields(text)),
	})
	if err != nil {
		h.log.Error().Err(err).Msg("note insert failed")
		WriteError(w, http.StatusInternalServerError, "failed to create note")
		return
	}

	if h.publish != nil {
		h.publish("note_created", note.ID, map[string]any{
			"note_id": note.ID,
			"source":  note.Source,
		})
	}

	WriteJSON(w, http.StatusCreated, note)
}

// List handles GET /api/v1/notes.
func (h *NotesHandler) List(w http.ResponseWriter, r *http.Request) {
	p, err := ParsePagination(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	sort := ParseSort(r, "-created_at", notesSortFields)

	filter := database.NoteFilter{
		Limit:   p.Limit,
		Offset:  p.Offset,
		OrderBy: sort.SQLOrderBy(notesSortFields),
	}
	if v, ok := QueryString(r, "status"); ok {
		filter.Status = v
	}
	if v, ok := QueryString(r, "source"); ok {
		filter.Source = v
	}

	notes, total, err := h.db.ListNotes(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("note list failed")
		WriteError(w, http.StatusInternalServerError, "failed to list notes")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"notes":  notes,
		"total":  total,
		"limit":  p.Limit,
		"offset": p.Offset,
	})
}

// Get handles GET /api/v1/notes/{id}.
func (h *NotesHandler) Get(w http.ResponseWriter, r *http.Request) {
	note, ok := h.loadNote(w, r)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, note)
}

// Delete handles DELETE /api/v1/notes/{id}. Stored audio is removed
// best-effort before the row; deliveries cascade.
func (h *NotesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	note, ok := h.loadNote(w, r)
	if !ok {
		return
	}

	if note.AudioKey != "" {
		if err := h.store.Delete(r.Context(), note.AudioKey); err != nil {
			h.log.Warn().Err(err).Str("key", note.AudioKey).Msg("audio delete failed")
		}
	}

	if err := h.db.DeleteNote(r.Context(), note.ID); err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to delete note")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetAudio handles GET /api/v1/notes/{id}/audio. Serves from local disk when
// possible, otherwise redirects to a presigned URL, otherwise streams.
func (h *NotesHandler) GetAudio(w http.ResponseWriter, r *http.Request) {
	note, ok := h.loadNote(w, r)
	if !ok {
		return
	}
	if note.AudioKey == "" {
		WriteError(w, http.StatusNotFound, "note has no audio")
		return
	}

	if p := h.store.LocalPath(note.AudioKey); p != "" {
		http.ServeFile(w, r, p)
		return
	}

	if url, err := h.store.URL(r.Context(), note.AudioKey); err == nil && url != "" {
		http.Redirect(w, r, url, http.StatusFound)
		return
	}

	rc, err := h.store.Open(r.Context(), note.AudioKey)
	if err != nil {
		WriteError(w, http.StatusNotFound, "audio not found in storage")
		return
	}
	defer rc.Close()

	if _, ct, okFmt := transcribe.SupportedFormat("x." + note.AudioFmt); okFmt {
		w.Header().Set("Content-Type", ct)
	}
	io.Copy(w, rc)
}

// Summarize handles POST /api/v1/notes/{id}/summarize.
// Runs synchronously: the response carries the updated note with its summary.
func (h *NotesHandler) Summarize(w http.ResponseWriter, r *http.Request) {
	note, ok := h.loadNote(w, r)
	if !ok {
		return
	}

	if note.Status != database.StatusTranscribed || strings.TrimSpace(note.Transcript) == "" {
		WriteErrorDetail(w, http.StatusConflict, "note has no transcript to summarize",
			"current status: "+note.Status)
		return
	}

	var req struct {
		MinLength *int  `json:"min_length"`
		MaxLength *int  `json:"max_length"`
		Bullets   *bool `json:"bullets"`
	}
	if r.ContentLength > 0 {
		if err := DecodeJSON(r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}

	opts := summarize.Options{
		MinLength: h.cfg.Summary.MinLength,
		MaxLength: h.cfg.Summary.MaxLength,
	}
	if req.MinLength != nil {
		opts.MinLength = *req.MinLength
	}
	if req.MaxLength != nil {
		opts.MaxLength = *req.MaxLength
	}
	if opts.MinLength < 1 || opts.MaxLength <= opts.MinLength {
		WriteError(w, http.StatusBadRequest, "min_length must be >= 1 and max_length must be greater than min_length")
		return
	}
	bullets := false
	if req.Bullets != nil {
		bullets = *req.Bullets
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.Summary.Timeout)
	defer cancel()

	summary, err := h.summarizer.Summarize(ctx, note.Transcript, opts, bullets)
	if err != nil {
		metrics.SummariesTotal.WithLabelValues("failed").Inc()
		if errors.Is(err, summarize.ErrEmptyInput) {
			WriteError(w, http.StatusConflict, err.Error())
			return
		}
		h.log.Error().Err(err).Int64("note_id", note.ID).Msg("summarization failed")
		WriteErrorDetail(w, http.StatusBadGateway, "summarization failed", err.Error())
		return
	}

	err = h.db.SetSummary(r.Context(), note.ID, summary, opts.MinLength, opts.MaxLength, bullets,
		h.summarizer.Provider(), h.summarizer.Model())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to store summary")
		return
	}
	metrics.SummariesTotal.WithLabelValues("ok").Inc()

	if h.publish != nil {
		h.publish("summary", note.ID, map[string]any{
			"note_id":  note.ID,
			"bullets":  bullets,
			"provider": h.summarizer.Provider(),
		})
	}

	updated, err := h.db.GetNote(r.Context(), note.ID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to reload note")
		return
	}
	WriteJSON(w, http.StatusOK, updated)
}

// Email handles POST /api/v1/notes/{id}/email.
// Missing SMTP credentials produce a user-visible 503 without any send attempt.
func (h *NotesHandler) Email(w http.ResponseWriter, r *http.Request) {
	note, ok := h.loadNote(w, r)
	if !ok {
		return
	}

	if strings.TrimSpace(note.Summary) == "" {
		WriteError(w, http.StatusConflict, "note has no summary to email; summarize it first")
		return
	}

	var req struct {
		Recipient string `json:"recipient"`
		Subject   string `json:"subject"`
	}
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Recipient) == "" {
		WriteError(w, http.StatusBadRequest, "recipient must not be empty")
		return
	}
	subject := strings.TrimSpace(req.Subject)
	if subject == "" {
		subject = "Your Summary"
	}

	if !h.sender.Configured() {
		metrics.EmailsSentTotal.WithLabelValues("not_configured").Inc()
		WriteError(w, http.StatusServiceUnavailable, mailer.ErrNotConfigured.Error())
		return
	}

	if err := h.sender.Send(r.Context(), req.Recipient, subject, note.Summary); err != nil {
		metrics.EmailsSentTotal.WithLabelValues("failed").Inc()
		h.log.Error().Err(err).Int64("note_id", note.ID).Msg("email send failed")
		WriteErrorDetail(w, http.StatusBadGateway, "failed to send email", err.Error())
		return
	}
	metrics.EmailsSentTotal.WithLabelValues("ok").Inc()

	delivery, err := h.db.InsertDelivery(r.Context(), note.ID, req.Recipient, subject)
	if err != nil {
		// The mail went out; report success but log the bookkeeping failure.
		h.log.Error().Err(err).Int64("note_id", note.ID).Msg("delivery record failed")
		WriteJSON(w, http.StatusOK, map[string]any{"sent": true})
		return
	}

	if h.publish != nil {
		h.publish("email", note.ID, map[string]any{
			"note_id":   note.ID,
			"recipient": req.Recipient,
		})
	}

	WriteJSON(w, http.StatusOK, map[string]any{"sent": true, "delivery": delivery})
}

// Deliveries handles GET /api/v1/notes/{id}/deliveries.
func (h *NotesHandler) Deliveries(w http.ResponseWriter, r *http.Request) {
	note, ok := h.loadNote(w, r)
	if !ok {
		return
	}

	deliveries, err := h.db.ListDeliveries(r.Context(), note.ID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to list deliveries")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"deliveries": deliveries})
}

// loadNote resolves the {id} path param to a note, writing the error response
// itself when the note can't be loaded.
func (h *NotesHandler) loadNote(w http.ResponseWriter, r *http.Request) (*database.Note, bool) {
	id, err := PathInt64(r, "id")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid note id")
		return nil, false
	}

	note, err := h.db.GetNote(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		WriteError(w, http.StatusNotFound, "note not found")
		return nil, false
	}
	if err != nil {
		h.log.Error().Err(err).Int64("note_id", id).Msg("note load failed")
		WriteError(w, http.StatusInternalServerError, "failed to load note")
		return nil, false
	}
	return note, true
}
