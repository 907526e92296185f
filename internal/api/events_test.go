package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/voxsum/voxsum/internal/metrics"
)

type mockEventSource struct {
	replay []SSEEvent
	ch     chan SSEEvent
}

func (m *mockEventSource) Subscribe(EventFilter) (<-chan SSEEvent, func()) {
	return m.ch, func() {}
}

func (m *mockEventSource) ReplaySince(lastEventID string, filter EventFilter) []SSEEvent {
	var out []SSEEvent
	for _, e := range m.replay {
		if filter.Matches(e) {
			out = append(out, e)
		}
	}
	return out
}

func TestEventFilterMatches(t *testing.T) {
	ev := SSEEvent{Type: "summary", NoteID: 5}

	tests := []struct {
		name   string
		filter EventFilter
		want   bool
	}{
		{"empty_filter_matches_all", EventFilter{}, true},
		{"type_match", EventFilter{Types: []string{"summary"}}, true},
		{"type_mismatch", EventFilter{Types: []string{"transcription"}}, false},
		{"note_id_match", EventFilter{NoteIDs: []int64{5}}, true},
		{"note_id_mismatch", EventFilter{NoteIDs: []int64{6}}, false},
		{"type_and_note", EventFilter{Types: []string{"summary"}, NoteIDs: []int64{5}}, true},
		{"whitespace_tolerant", EventFilter{Types: []string{" summary "}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Matches(ev); got != tt.want {
				t.Errorf("Matches = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStreamEvents_Replay(t *testing.T) {
	src := &mockEventSource{
		replay: []SSEEvent{
			{ID: "1-1", Type: "transcription", NoteID: 1, Data: json.RawMessage(`{"note_id":1}`)},
			{ID: "1-2", Type: "summary", NoteID: 1, Data: json.RawMessage(`{"note_id":1}`)},
		},
		ch: make(chan SSEEvent),
	}
	h := NewEventsHandler(src)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest("GET", "/api/v1/events/stream", nil).WithContext(ctx)
	req.Header.Set("Last-Event-ID", "1-0")
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		h.StreamEvents(rec, req)
		close(done)
	}()

	// Cancel the request once the replayed events are flushed.
	cancel()
	<-done

	body := rec.Body.String()
	if !strings.Contains(body, "id: 1-1\nevent: transcription") {
		t.Errorf("replayed transcription event missing from stream:\n%s", body)
	}
	if !strings.Contains(body, "id: 1-2\nevent: summary") {
		t.Errorf("replayed summary event missing from stream:\n%s", body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}
}

// The server's middleware wraps the ResponseWriter, so streaming must work
// through the wrapped writer, not just a bare recorder.
func TestStreamEvents_ThroughMiddlewareChain(t *testing.T) {
	src := &mockEventSource{
		replay: []SSEEvent{
			{ID: "1-1", Type: "summary", NoteID: 3, Data: json.RawMessage(`{"note_id":3}`)},
		},
		ch: make(chan SSEEvent),
	}
	h := NewEventsHandler(src)

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Recoverer)
	r.Use(Logger(zerolog.Nop()))
	r.Use(metrics.InstrumentHandler)
	r.Use(CORS)
	r.Get("/api/v1/events/stream", h.StreamEvents)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest("GET", "/api/v1/events/stream", nil).WithContext(ctx)
	req.Header.Set("Last-Event-ID", "1-0")
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		r.ServeHTTP(rec, req)
		close(done)
	}()

	cancel()
	<-done

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d through middleware chain, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "id: 1-1\nevent: summary") {
		t.Errorf("replayed event missing from stream:\n%s", rec.Body.String())
	}
}

func TestStreamEvents_NilSource(t *testing.T) {
	h := NewEventsHandler(nil)

	req := httptest.NewRequest("GET", "/api/v1/events/stream", nil)
	rec := httptest.NewRecorder()
	h.StreamEvents(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}
