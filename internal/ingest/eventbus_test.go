package ingest

import (
	"testing"
	"time"

	"github.com/voxsum/voxsum/internal/api"
)

func recvEvent(t *testing.T, ch <-chan api.SSEEvent) api.SSEEvent {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return api.SSEEvent{}
	}
}

func TestEventBus_PublishSubscribe(t *testing.T) {
	eb := NewEventBus(16)

	ch, cancel := eb.Subscribe(api.EventFilter{})
	defer cancel()

	eb.Publish("transcription", 42, map[string]any{"note_id": 42})

	e := recvEvent(t, ch)
	if e.Type != "transcription" {
		t.Errorf("Type = %q, want transcription", e.Type)
	}
	if e.NoteID != 42 {
		t.Errorf("NoteID = %d, want 42", e.NoteID)
	}
	if e.ID == "" {
		t.Error("event ID is empty")
	}
}

func TestEventBus_TypeFilter(t *testing.T) {
	eb := NewEventBus(16)

	ch, cancel := eb.Subscribe(api.EventFilter{Types: []string{"summary"}})
	defer cancel()

	eb.Publish("transcription", 1, map[string]any{"note_id": 1})
	eb.Publish("summary", 2, map[string]any{"note_id": 2})

	e := recvEvent(t, ch)
	if e.Type != "summary" || e.NoteID != 2 {
		t.Errorf("got %s/%d, want summary/2", e.Type, e.NoteID)
	}

	select {
	case extra := <-ch:
		t.Errorf("unexpected extra event: %s", extra.Type)
	default:
	}
}

func TestEventBus_NoteIDFilter(t *testing.T) {
	eb := NewEventBus(16)

	ch, cancel := eb.Subscribe(api.EventFilter{NoteIDs: []int64{7}})
	defer cancel()

	eb.Publish("transcription", 6, map[string]any{"note_id": 6})
	eb.Publish("transcription", 7, map[string]any{"note_id": 7})

	e := recvEvent(t, ch)
	if e.NoteID != 7 {
		t.Errorf("NoteID = %d, want 7", e.NoteID)
	}
}

func TestEventBus_ReplaySince(t *testing.T) {
	eb := NewEventBus(16)

	eb.Publish("note_created", 1, map[string]any{"note_id": 1})
	eb.Publish("transcription", 1, map[string]any{"note_id": 1})
	eb.Publish("summary", 1, map[string]any{"note_id": 1})

	// Grab the first event's ID via full replay.
	all := eb.ReplaySince("", api.EventFilter{})
	if len(all) != 3 {
		t.Fatalf("full replay returned %d events, want 3", len(all))
	}

	after := eb.ReplaySince(all[0].ID, api.EventFilter{})
	if len(after) != 2 {
		t.Fatalf("replay after first event returned %d events, want 2", len(after))
	}
	if after[0].Type != "transcription" || after[1].Type != "summary" {
		t.Errorf("replay order wrong: %s, %s", after[0].Type, after[1].Type)
	}
}

func TestEventBus_ReplayRingWrap(t *testing.T) {
	eb := NewEventBus(4)

	for i := 0; i < 10; i++ {
		eb.Publish("transcription", int64(i), map[string]any{"note_id": i})
	}

	events := eb.ReplaySince("", api.EventFilter{})
	if len(events) != 4 {
		t.Fatalf("replay returned %d events, want ring size 4", len(events))
	}
	// Oldest surviving event is note 6.
	if events[0].NoteID != 6 {
		t.Errorf("oldest NoteID = %d, want 6", events[0].NoteID)
	}
}

func TestEventBus_CancelStopsDelivery(t *testing.T) {
	eb := NewEventBus(16)

	ch, cancel := eb.Subscribe(api.EventFilter{})
	cancel()

	eb.Publish("transcription", 1, map[string]any{"note_id": 1})

	select {
	case e := <-ch:
		t.Errorf("received event after cancel: %s", e.Type)
	default:
	}
}
