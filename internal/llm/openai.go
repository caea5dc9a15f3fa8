package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/starford/amber/internal/apperr"
)

// temperature is fixed; notes should be factual rather than creative.
const temperature = 0.3

// OpenAICompatible talks to any /chat/completions endpoint: OpenAI, Ollama,
// LM Studio, OpenRouter and friends.
type OpenAICompatible struct {
	baseURL     string
	model       string
	keyEnv      string
	keyOptional bool
	client      *http.Client
}

// NewOpenAICompatible creates a client for cfg.APIBase.
func NewOpenAICompatible(cfg Config) *OpenAICompatible {
	return &OpenAICompatible{
		baseURL: strings.TrimRight(cfg.APIBase, "/"),
		model:   cfg.Model,
		keyEnv:  cfg.APIKeyEnv,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete implements Provider.
func (c *OpenAICompatible) Complete(ctx context.Context, messages []Message) (string, error) {
	key, err := apiKey(c.keyEnv)
	if err != nil && !c.keyOptional {
		return "", err
	}

	jsonBody, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("%w: marshal request: %w", apperr.ErrProvider, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("%w: build request: %w", apperr.ErrProvider, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: send request: %w", apperr.ErrProvider, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response: %w", apperr.ErrProvider, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: API returned %d: %s", apperr.ErrProvider, resp.StatusCode, truncate(string(body), 500))
	}

	var result chatResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("%w: decode response: %w", apperr.ErrProvider, err)
	}
	if result.Error != nil {
		return "", fmt.Errorf("%w: API error: %s", apperr.ErrProvider, result.Error.Message)
	}
	if len(result.Choices) == 0 || result.Choices[0].Message.Content == nil {
		return "", fmt.Errorf("%w: response has no message content", apperr.ErrProvider)
	}
	return *result.Choices[0].Message.Content, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
