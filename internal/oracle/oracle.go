// Package oracle asks an external reasoning service to classify messages and
// to name their contributors, and parses its free-text answers strictly.
package oracle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"ContributionScorer/internal/domain"
	"ContributionScorer/internal/ports"
	"ContributionScorer/pkg/logger"
)

// Options tunes a Client.
type Options struct {
	Rubric      []string
	MaxAttempts int
	BaseDelay   time.Duration
	Logger      *slog.Logger
}

// Client is the classification oracle boundary. It never returns errors:
// every failure maps to a sentinel classification so the batch continues.
type Client struct {
	completer   ports.Completer
	rubric      []string
	maxAttempts int
	baseDelay   time.Duration
	logger      *slog.Logger
}

// New wraps a completer. A nil completer yields Unknown for every message.
func New(completer ports.Completer, opts Options) *Client {
	attempts := opts.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return &Client{
		completer:   completer,
		rubric:      opts.Rubric,
		maxAttempts: attempts,
		baseDelay:   opts.BaseDelay,
		logger:      logger.OrDiscard(opts.Logger),
	}
}

// Classify returns the rubric category and provisioned amount for text.
func (c *Client) Classify(ctx context.Context, text, sender, platform string) domain.Classification {
	resp, err := c.complete(ctx, classificationPrompt(text, sender, platform, c.rubric))
	if err != nil {
		c.logger.Warn("oracle classification failed", "sender", sender, "error", err)
		return domain.Classification{Category: domain.CategoryUnknown, Amount: domain.ZeroAmount}
	}

	result := ParseClassification(resp, c.rubric)
	if result.Category == domain.CategoryUnexpectedFormat {
		c.logger.Warn("oracle classification malformed", "sender", sender, "response", resp)
	}
	return result
}

// Contributors returns the handles the oracle credits for text. It returns nil
// when the oracle fails or names nobody.
func (c *Client) Contributors(ctx context.Context, text, sender, platform string) []string {
	resp, err := c.complete(ctx, contributorsPrompt(text, sender, platform))
	if err != nil {
		c.logger.Warn("oracle contributor lookup failed", "sender", sender, "error", err)
		return nil
	}

	handles, salvaged := ParseContributors(resp)
	if salvaged {
		c.logger.Warn("oracle contributor list salvaged", "sender", sender, "response", resp, "kept", len(handles))
	}
	return handles
}

// complete retries transport errors only; a malformed answer is still an answer.
func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	if c.completer == nil {
		return "", fmt.Errorf("oracle not configured")
	}

	attempts := 0
	resp, err := backoff.Retry(ctx, func() (string, error) {
		attempts++
		resp, err := c.completer.Complete(ctx, prompt)
		if err != nil && ctx.Err() != nil {
			return "", backoff.Permanent(err)
		}
		return resp, err
	},
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithMaxTries(uint(c.maxAttempts)),
		backoff.WithNotify(func(err error, delay time.Duration) {
			c.logger.Debug("oracle retry", "attempt", attempts, "delay", delay, "error", err)
		}),
	)
	if err != nil {
		return "", fmt.Errorf("after %d attempts: %w", attempts, err)
	}
	return resp, nil
}

// newBackOff doubles the base delay per attempt with up to half of it as jitter
// either way.
func (c *Client) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.baseDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0.5
	b.Reset()
	return b
}
