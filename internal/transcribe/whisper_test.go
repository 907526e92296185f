package transcribe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTempAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.wav")
	if err := os.WriteFile(path, []byte("RIFF-fake-wav"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestWhisperClient_Transcribe(t *testing.T) {
	var gotAuth, gotFormat string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := r.ParseMultipartForm(4 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		gotFormat = r.FormValue("response_format")
		if r.FormValue("model") != "base" {
			t.Errorf("model = %q, want base", r.FormValue("model"))
		}
		if r.FormValue("language") != "en" {
			t.Errorf("language = %q, want en", r.FormValue("language"))
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("missing file field: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text":" hello world ","language":"en","duration":3.2}`))
	}))
	defer srv.Close()

	wc := NewWhisperClient(srv.URL, "secret", "base", 5*time.Second)
	resp, err := wc.Transcribe(context.Background(), writeTempAudio(t), TranscribeOpts{})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if resp.Text != " hello world " {
		t.Errorf("Text = %q", resp.Text)
	}
	if resp.Language != "en" {
		t.Errorf("Language = %q, want en", resp.Language)
	}
	if resp.Duration != 3.2 {
		t.Errorf("Duration = %v, want 3.2", resp.Duration)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q, want Bearer secret", gotAuth)
	}
	if gotFormat != "verbose_json" {
		t.Errorf("response_format = %q, want verbose_json", gotFormat)
	}
}

func TestWhisperClient_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":"unsupported format"}`))
	}))
	defer srv.Close()

	wc := NewWhisperClient(srv.URL, "", "base", 5*time.Second)
	_, err := wc.Transcribe(context.Background(), writeTempAudio(t), TranscribeOpts{})
	if err == nil {
		t.Fatal("expected error on 422 response")
	}
}

func TestWhisperClient_MissingFile(t *testing.T) {
	wc := NewWhisperClient("http://localhost:0", "", "base", time.Second)
	_, err := wc.Transcribe(context.Background(), "/nonexistent/audio.wav", TranscribeOpts{})
	if err == nil {
		t.Fatal("expected error for missing audio file")
	}
}

func TestDeepInfraClient_Transcribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/openai/whisper-large-v3-turbo" {
			t.Errorf("path = %q, want model path", r.URL.Path)
		}
		if err := r.ParseMultipartForm(4 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if _, _, err := r.FormFile("audio"); err != nil {
			t.Errorf("missing audio field: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text":"bonjour","language":"fr","duration":1.5}`))
	}))
	defer srv.Close()

	di := NewDeepInfraClient("key", "openai/whisper-large-v3-turbo", 5*time.Second)
	di.baseURL = srv.URL + "/"

	resp, err := di.Transcribe(context.Background(), writeTempAudio(t), TranscribeOpts{Language: "fr"})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if resp.Text != "bonjour" || resp.Language != "fr" {
		t.Errorf("got %+v", resp)
	}
}

func TestElevenLabsClient_Transcribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("xi-api-key") != "xi-secret" {
			t.Errorf("xi-api-key = %q", r.Header.Get("xi-api-key"))
		}
		if err := r.ParseMultipartForm(4 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if r.FormValue("model_id") != "scribe_v1" {
			t.Errorf("model_id = %q", r.FormValue("model_id"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"language_code":"en","language_probability":0.99,"text":"hi there"}`))
	}))
	defer srv.Close()

	el := NewElevenLabsClient("xi-secret", "scribe_v1", 5*time.Second)
	el.endpoint = srv.URL

	resp, err := el.Transcribe(context.Background(), writeTempAudio(t), TranscribeOpts{})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if resp.Text != "hi there" || resp.Language != "en" {
		t.Errorf("got %+v", resp)
	}
}
