// Package openai implements the content generator port against the OpenAI
// chat completions API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gigashifu/webinar-buddy-bot/internal/domain"
	"github.com/gigashifu/webinar-buddy-bot/internal/retry"
)

// systemInstruction keeps completions short and safe to embed in email HTML.
const systemInstruction = "You write one short, friendly paragraph for a webinar email. " +
	"Plain text only, no markdown, no links, no subject line, at most three sentences."

// Config holds configuration for the OpenAI client.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
}

type client struct {
	http *http.Client
	cfg  Config
}

// New returns a ContentGenerator backed by the chat completions endpoint.
func New(cfg Config, httpClient *http.Client) domain.ContentGenerator {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	return &client{http: httpClient, cfg: cfg}
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
}

func (c *client) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemInstruction},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   maxTokens,
		Temperature: 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("marshal completion request: %w", err)
	}

	url := strings.TrimSuffix(c.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", retry.Transient(fmt.Errorf("call completion api: %w", err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusPaymentRequired:
		return "", retry.Transient(fmt.Errorf("completion api returned status %d: %w", resp.StatusCode, domain.ErrRateLimited))
	case resp.StatusCode >= 500:
		return "", retry.Transient(fmt.Errorf("completion api returned status: %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("completion api returned status: %d", resp.StatusCode)
	}

	var data chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", fmt.Errorf("decode completion response: %w", err)
	}
	if len(data.Choices) == 0 {
		return "", fmt.Errorf("completion response has no choices")
	}
	return strings.TrimSpace(data.Choices[0].Message.Content), nil
}
