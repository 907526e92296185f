package storage

import (
	"context"
	"io"
	"testing"
)

func TestLocalStore_SaveOpenDelete(t *testing.T) {
	dir := t.TempDir()
	s := NewLocalStore(dir)
	ctx := context.Background()

	key := "2026-08-25/meeting.mp3"
	data := []byte("fake-mp3-bytes")

	if err := s.Save(ctx, key, data, "audio/mpeg"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !s.Exists(ctx, key) {
		t.Error("Exists = false after Save")
	}
	if p := s.LocalPath(key); p == "" {
		t.Error("LocalPath = \"\" after Save")
	}

	r, err := s.Open(ctx, key)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got, _ := io.ReadAll(r)
	r.Close()
	if string(got) != string(data) {
		t.Errorf("read back %q, want %q", got, data)
	}

	if err := s.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if s.Exists(ctx, key) {
		t.Error("Exists = true after Delete")
	}

	// Deleting a missing key is not an error
	if err := s.Delete(ctx, key); err != nil {
		t.Errorf("Delete of missing key: %v", err)
	}
}

func TestLocalStore_URLEmpty(t *testing.T) {
	s := NewLocalStore(t.TempDir())
	url, err := s.URL(context.Background(), "any")
	if err != nil {
		t.Fatalf("URL: %v", err)
	}
	if url != "" {
		t.Errorf("URL = %q, want empty for local store", url)
	}
}
