package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const deepInfraBaseURL = "https://api.deepinfra.com/v1/inference/"

// DeepInfraClient calls DeepInfra's inference API for hosted summarization
// models such as facebook/bart-large-cnn. Implements the Provider interface.
type DeepInfraClient struct {
	baseURL string
	apiKey  string
	model   string
	timeout time.Duration
	client  *http.Client
}

// deepInfraRequest is the JSON request body for summarization inference.
// Sampling parameters match the upstream pipeline defaults so repeated runs
// produce varied summaries.
type deepInfraRequest struct {
	Input       string  `json:"input"`
	MaxLength   int     `json:"max_length,omitempty"`
	MinLength   int     `json:"min_length,omitempty"`
	DoSample    bool    `json:"do_sample"`
	Temperature float64 `json:"temperature,omitempty"`
	TopP        float64 `json:"top_p,omitempty"`
}

// deepInfraResponse covers the response shapes DeepInfra returns for
// summarization models: a top-level summary_text or a results array.
type deepInfraResponse struct {
	SummaryText string `json:"summary_text"`
	Results     []struct {
		SummaryText string `json:"summary_text"`
	} `json:"results"`
}

// NewDeepInfraClient creates a DeepInfra summarization client.
func NewDeepInfraClient(apiKey, model string, timeout time.Duration) *DeepInfraClient {
	return &DeepInfraClient{
		baseURL: deepInfraBaseURL,
		apiKey:  apiKey,
		model:   model,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
	}
}

// Name returns the provider name.
func (di *DeepInfraClient) Name() string { return "deepinfra" }

// Model returns the configured model identifier.
func (di *DeepInfraClient) Model() string { return di.model }

// Summarize sends text to the inference endpoint and returns the condensed form.
func (di *DeepInfraClient) Summarize(ctx context.Context, text string, opts Options) (string, error) {
	reqBody := deepInfraRequest{
		Input:       text,
		MaxLength:   opts.MaxLength,
		MinLength:   opts.MinLength,
		DoSample:    true,
		Temperature: 0.7,
		TopP:        0.9,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := di.baseURL + di.model
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+di.apiKey)

	resp, err := di.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("deepinfra request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("deepinfra API error (status %d): %s", resp.StatusCode, string(body))
	}

	var result deepInfraResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	if result.SummaryText != "" {
		return result.SummaryText, nil
	}
	if len(result.Results) > 0 {
		return result.Results[0].SummaryText, nil
	}
	return "", fmt.Errorf("deepinfra returned no summary text")
}
