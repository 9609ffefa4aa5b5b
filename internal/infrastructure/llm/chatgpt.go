package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"ContributionScorer/internal/config"
	"ContributionScorer/internal/ports"
)

const (
	defaultModel        = "gpt-4o-mini"
	defaultMaxTokens    = 256
	defaultSystemPrompt = "You label community chat messages for a contribution ledger. Answer only in the format you are asked for."
)

// ChatGPTClient implements ports.Completer backed by OpenAI-compatible APIs.
type ChatGPTClient struct {
	client       openai.Client
	model        string
	systemPrompt string
	timeout      time.Duration
}

var _ ports.Completer = (*ChatGPTClient)(nil)

// NewChatGPTClient builds a client from configuration. Endpoint overrides the
// API base URL for compatible gateways.
func NewChatGPTClient(cfg config.OracleConfig) (*ChatGPTClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("chatgpt client misconfigured: api key is empty")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		// retries are owned by the oracle client
		option.WithMaxRetries(0),
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithBaseURL(cfg.Endpoint))
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	return &ChatGPTClient{
		client:       openai.NewClient(opts...),
		model:        model,
		systemPrompt: defaultSystemPrompt,
		timeout:      20 * time.Second,
	}, nil
}

// Complete sends prompt as a single user message and returns the first choice.
func (c *ChatGPTClient) Complete(ctx context.Context, prompt string) (string, error) {
	if c == nil {
		return "", fmt.Errorf("chatgpt client is nil")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(c.systemPrompt),
			openai.UserMessage(prompt),
		},
		MaxTokens:   openai.Int(defaultMaxTokens),
		Temperature: openai.Float(0),
	})
	if err != nil {
		return "", fmt.Errorf("chatgpt completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chatgpt completion: no choices in response")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
