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

// OllamaGenerator generates completions using a local Ollama server.
type OllamaGenerator struct {
	client  *http.Client
	baseURL string
	model   string
}

type ollamaChatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  struct {
		Temperature float64 `json:"temperature"`
	} `json:"options"`
}

type ollamaChatResponse struct {
	Message chatMessage `json:"message"`
}

// NewOllamaGenerator creates a generator talking to an Ollama instance.
func NewOllamaGenerator(baseURL, model string, timeout time.Duration) *OllamaGenerator {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3.2"
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &OllamaGenerator{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		model:   model,
	}
}

// Generate sends a non-streaming chat request and returns the response text.
func (g *OllamaGenerator) Generate(ctx context.Context, system, user string, temperature float64) (string, error) {
	reqBody := ollamaChatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	}
	reqBody.Options.Temperature = temperature

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", wrapBackendErr("ollama generator", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", wrapBackendErr("ollama generator", fmt.Errorf("status %d: %s", resp.StatusCode, string(body)))
	}
	var chatResp ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", wrapBackendErr("ollama generator", fmt.Errorf("decode response: %w", err))
	}
	return chatResp.Message.Content, nil
}

// Close is a no-op; the HTTP client needs no cleanup.
func (g *OllamaGenerator) Close() error {
	return nil
}
