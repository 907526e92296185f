package summarize

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const systemPrompt = "You are a summarization engine. Condense the user's text into " +
	"a concise abstractive summary written as plain prose sentences. Do not add " +
	"commentary, headings, or bullet markers."

// OpenAIClient summarizes text through a chat-completion model.
// Implements the Provider interface.
type OpenAIClient struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAIClient creates an OpenAI chat summarization client.
func NewOpenAIClient(apiKey, model string, timeout time.Duration) *OpenAIClient {
	return &OpenAIClient{
		client:  openai.NewClient(apiKey),
		model:   model,
		timeout: timeout,
	}
}

// Name returns the provider name.
func (oc *OpenAIClient) Name() string { return "openai" }

// Model returns the configured model identifier.
func (oc *OpenAIClient) Model() string { return oc.model }

// Summarize sends text to the chat API with length bounds expressed in the
// prompt, since chat models take no min_length/max_length parameters.
func (oc *OpenAIClient) Summarize(ctx context.Context, text string, opts Options) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, oc.timeout)
	defer cancel()

	prompt := fmt.Sprintf("Summarize the following text in roughly %d to %d words:\n\n%s",
		opts.MinLength, opts.MaxLength, text)

	resp, err := oc.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: oc.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.7,
		TopP:        0.9,
	})
	if err != nil {
		return "", fmt.Errorf("openai request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
