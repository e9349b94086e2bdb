// Package textgen calls an OpenAI-compatible chat completions endpoint.
package textgen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/stemsi/skilltest-backend/internal/config"
)

// ErrNotConfigured is returned when no API key is set.
var ErrNotConfigured = errors.New("text generation is not configured")

const systemPrompt = `You are a tutor reviewing a learner's multiple-choice test. Answer in plain prose, be concise and encouraging, and do not repeat the question verbatim.`

const (
	// maxErrorBody caps how much of a failed response is kept in the error.
	maxErrorBody = 512
	// maxResponseBody caps how much of a response is read.
	maxResponseBody = 1 << 20
)

// ErrResponseTooLarge is returned when a response body exceeds maxResponseBody.
var ErrResponseTooLarge = fmt.Errorf("response exceeds %d bytes", maxResponseBody)

// Client sends prompts to the chat completions API.
type Client struct {
	httpClient *http.Client
	apiKey     string
	apiURL     string
	model      string
}

// New creates a Client from cfg.
func New(cfg config.AIConfig) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		apiKey:     cfg.APIKey,
		apiURL:     cfg.APIURL,
		model:      cfg.Model,
	}
}

// IsAvailable reports whether an API key is configured.
func (c *Client) IsAvailable() bool {
	return c.apiKey != ""
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Generate returns the first completion for prompt.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if !c.IsAvailable() {
		return "", ErrNotConfigured
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody+1))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if len(raw) > maxErrorBody {
			raw = raw[:maxErrorBody]
		}
		return "", fmt.Errorf("api returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if len(raw) > maxResponseBody {
		return "", ErrResponseTooLarge
	}

	var chat chatResponse
	if err := json.Unmarshal(raw, &chat); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if chat.Error != nil {
		return "", fmt.Errorf("api error: %s", chat.Error.Message)
	}
	if len(chat.Choices) == 0 {
		return "", errors.New("api returned no choices")
	}

	return chat.Choices[0].Message.Content, nil
}
