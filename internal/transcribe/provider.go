package transcribe

import "context"

// Provider is the interface for speech-to-text backends.
type Provider interface {
	Transcribe(ctx context.Context, audioPath string, opts TranscribeOpts) (*Response, error)
	Name() string  // "whisper", "elevenlabs", "deepinfra"
	Model() string // model identifier for DB/logs
}

// TranscribeOpts are per-request options shared across providers.
// Zero-value fields are omitted from the request.
type TranscribeOpts struct {
	Temperature float64
	Language    string
	Prompt      string // domain vocabulary hint
}

// Response is the common transcription result from any provider.
type Response struct {
	Text     string
	Language string
	Duration float64 // audio duration in seconds
}
