package summarize

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
)

// ErrEmptyInput is returned before any provider call when there is nothing
// to summarize.
var ErrEmptyInput = errors.New("nothing to summarize: input text is empty")

// Provider is the interface for summarization backends.
type Provider interface {
	Summarize(ctx context.Context, text string, opts Options) (string, error)
	Name() string  // "deepinfra", "openai"
	Model() string // model identifier for DB/logs
}

// Options are per-request length bounds, in model tokens (roughly words).
type Options struct {
	MinLength int
	MaxLength int
}

// Engine wraps a Provider with chunking and bullet post-formatting.
// Long inputs are split into word windows, summarized independently, and the
// per-chunk summaries joined with a space before formatting.
type Engine struct {
	provider   Provider
	chunkWords int
	log        zerolog.Logger
}

// NewEngine creates a summarization engine.
func NewEngine(provider Provider, chunkWords int, log zerolog.Logger) *Engine {
	if chunkWords <= 0 {
		chunkWords = 800
	}
	return &Engine{provider: provider, chunkWords: chunkWords, log: log}
}

// Provider returns the backend provider name.
func (e *Engine) Provider() string { return e.provider.Name() }

// Model returns the backend model identifier.
func (e *Engine) Model() string { return e.provider.Model() }

// Summarize condenses text. Empty input is rejected before any provider call.
// When bullets is true the combined summary is reformatted as a bullet list.
func (e *Engine) Summarize(ctx context.Context, text string, opts Options, bullets bool) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyInput
	}

	chunks := ChunkWords(text, e.chunkWords)
	parts := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		s, err := e.provider.Summarize(ctx, chunk, opts)
		if err != nil {
			return "", err
		}
		parts = append(parts, strings.TrimSpace(s))
		if len(chunks) > 1 {
			e.log.Debug().Int("chunk", i+1).Int("chunks", len(chunks)).Msg("chunk summarized")
		}
	}
	combined := strings.Join(parts, " ")

	if bullets {
		combined = FormatBullets(combined)
	}
	return combined, nil
}
