// Package llmclient implements llm.Client against an OpenAI-compatible
// chat-completions HTTP endpoint, the consumed external collaborator of
// §6. No vendor SDK exists anywhere in the reporter's dependency corpus,
// so this talks to the endpoint directly over net/http.
package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/paudley/git-ai-reporter/internal/reporter/llm"
)

// Client calls an OpenAI-compatible /chat/completions endpoint.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// New constructs a Client. A nil httpClient gets a default with no
// timeout of its own: the LLMGateway imposes its own per-call deadline via
// context, so this client must not race it with an independent timeout.
func New(baseURL, apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{BaseURL: baseURL, APIKey: apiKey, HTTPClient: httpClient}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Generate implements llm.Client.
func (c *Client) Generate(ctx context.Context, model, prompt string, maxOutputTokens int, temperature float64) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens:   maxOutputTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("llmclient: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("llmclient: build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", llm.ErrTransient, err)
	}

	if err := classifyStatus(resp.StatusCode, resp.Header.Get("Retry-After")); err != nil {
		return "", err
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("%w: unmarshal response: %v", llm.ErrTransient, err)
	}

	if parsed.Error != nil {
		return "", fmt.Errorf("%w: %s", llm.ErrInvalidRequest, parsed.Error.Message)
	}

	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%w: empty choices", llm.ErrTransient)
	}

	return parsed.Choices[0].Message.Content, nil
}

func classifyTransportError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %v", llm.ErrCanceled, err)
	}

	return fmt.Errorf("%w: %v", llm.ErrTransient, err)
}

func classifyStatus(status int, retryAfter string) error {
	switch {
	case status == http.StatusOK:
		return nil
	case status == http.StatusTooManyRequests:
		return &llm.RateLimitedError{RetryAfter: parseRetryAfter(retryAfter)}
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return llm.ErrAuth
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return llm.ErrTimeout
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return llm.ErrInvalidRequest
	case status >= http.StatusInternalServerError:
		return llm.ErrTransient
	default:
		return fmt.Errorf("%w: unexpected status %d", llm.ErrTransient, status)
	}
}

func parseRetryAfter(raw string) time.Duration {
	if raw == "" {
		return 0
	}

	if secs, err := time.ParseDuration(raw + "s"); err == nil {
		return secs
	}

	return 0
}
