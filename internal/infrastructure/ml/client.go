package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ContributionScorer/internal/ports"
)

// Client talks to a self-hosted text-in/text-out model service.
type Client struct {
	endpoint string
	apiKey   string
	model    string
	http     *http.Client
}

var _ ports.Completer = (*Client)(nil)

// NewClient creates a reusable HTTP client.
func NewClient(endpoint, apiKey, model string) *Client {
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   apiKey,
		model:    model,
		http:     &http.Client{Timeout: 15 * time.Second},
	}
}

// Complete posts the prompt to /complete and returns the completion text.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if c.endpoint == "" {
		return "", fmt.Errorf("ml client misconfigured: endpoint is empty")
	}

	payload := map[string]any{
		"prompt": prompt,
	}
	if c.model != "" {
		payload["model"] = c.model
	}

	var resp struct {
		Completion string `json:"completion"`
	}
	if err := c.post(ctx, "/complete", payload, &resp); err != nil {
		return "", err
	}

	return strings.TrimSpace(resp.Completion), nil
}

func (c *Client) post(ctx context.Context, path string, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		closeErr := resp.Body.Close()
		if closeErr != nil {
			return fmt.Errorf("unexpected status %s, close body: %v", resp.Status, closeErr)
		}
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		_ = resp.Body.Close()
		return fmt.Errorf("decode response: %w", err)
	}

	if err := resp.Body.Close(); err != nil {
		return fmt.Errorf("close response body: %w", err)
	}

	return nil
}
