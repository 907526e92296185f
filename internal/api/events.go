package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"
)

// SSEEvent is a single server-sent event on the note lifecycle stream.
// Event types: note_created, transcription, transcription_failed, summary, email.
type SSEEvent struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Timestamp string          `json:"timestamp"`
	NoteID    int64           `json:"note_id"`
	Data      json.RawMessage `json:"data"`
}

// EventFilter restricts which events a subscriber receives.
type EventFilter struct {
	Types   []string
	NoteIDs []int64
}

// Matches reports whether the event passes the filter.
func (f EventFilter) Matches(e SSEEvent) bool {
	if len(f.Types) > 0 {
		match := false
		for _, t := range f.Types {
			if strings.TrimSpace(t) == e.Type {
				match = true
				break
			}
		}
		if !match {
			return false
		}
	}
	if len(f.NoteIDs) > 0 && e.NoteID != 0 {
		match := false
		for _, id := range f.NoteIDs {
			if id == e.NoteID {
				match = true
				break
			}
		}
		if !match {
			return false
		}
	}
	return true
}

// EventSource is the subscription side of the event bus.
type EventSource interface {
	Subscribe(filter EventFilter) (<-chan SSEEvent, func())
	ReplaySince(lastEventID string, filter EventFilter) []SSEEvent
}

// PublishFunc publishes a note lifecycle event. Handlers call it after state
// changes; nil means events are disabled.
type PublishFunc func(eventType string, noteID int64, payload map[string]any)

type EventsHandler struct {
	events EventSource
}

func NewEventsHandler(events EventSource) *EventsHandler {
	return &EventsHandler{events: events}
}

// Routes registers event routes on the given router.
func (h *EventsHandler) Routes(r chi.Router) {
	r.Get("/events/stream", h.StreamEvents)
}

// StreamEvents opens an SSE connection and pushes filtered lifecycle events.
func (h *EventsHandler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	if h.events == nil {
		WriteError(w, http.StatusServiceUnavailable, "event streaming not available")
		return
	}

	filter := EventFilter{
		NoteIDs: QueryInt64List(r, "note_ids"),
	}
	if v, ok := QueryString(r, "types"); ok {
		filter.Types = strings.Split(v, ",")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	// The middleware chain wraps the ResponseWriter, so a direct
	// http.Flusher assertion would fail; ResponseController walks the
	// Unwrap chain to reach the real connection.
	flusher := http.NewResponseController(w)
	if err := flusher.Flush(); err != nil {
		WriteError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	// Replay missed events if Last-Event-ID is provided
	lastEventID := r.Header.Get("Last-Event-ID")
	if lastEventID != "" {
		for _, e := range h.events.ReplaySince(lastEventID, filter) {
			fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", e.ID, e.Type, e.Data)
		}
		flusher.Flush()
	}

	ch, cancel := h.events.Subscribe(filter)
	defer cancel()

	keepalive := time.NewTicker(15 * time.Second)
	defer keepalive.Stop()

	log := hlog.FromRequest(r)
	log.Info().Msg("SSE client connected")

	for {
		select {
		case <-r.Context().Done():
			log.Info().Msg("SSE client disconnected")
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", event.ID, event.Type, event.Data)
			flusher.Flush()
		case <-keepalive.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		}
	}
}
