package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// OpenAIGenerator generates completions against an OpenAI-compatible
// /v1/chat/completions endpoint.
type OpenAIGenerator struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewOpenAIGenerator creates a generator for the given endpoint and model.
func NewOpenAIGenerator(baseURL, apiKey, model string, timeout time.Duration) (*OpenAIGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai generator: API key is required")
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &OpenAIGenerator{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
	}, nil
}

// Generate sends a two-message chat completion request and returns the text.
func (g *OpenAIGenerator) Generate(ctx context.Context, system, user string, temperature float64) (string, error) {
	payload, err := json.Marshal(openAIChatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", wrapBackendErr("openai generator", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", wrapBackendErr("openai generator", err)
	}
	var chatResp openAIChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", wrapBackendErr("openai generator", fmt.Errorf("decode response: %w", err))
	}
	if chatResp.Error != nil {
		return "", wrapBackendErr("openai generator", fmt.Errorf("%s", chatResp.Error.Message))
	}
	if resp.StatusCode != http.StatusOK {
		return "", wrapBackendErr("openai generator", fmt.Errorf("status %d: %s", resp.StatusCode, string(body)))
	}
	if len(chatResp.Choices) == 0 {
		return "", wrapBackendErr("openai generator", fmt.Errorf("no choices returned"))
	}
	return chatResp.Choices[0].Message.Content, nil
}

// Close is a no-op; the HTTP client needs no cleanup.
func (g *OpenAIGenerator) Close() error {
	return nil
}
