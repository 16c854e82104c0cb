package ai

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"

	"github.com/mailpilot-ai/mailpilot/pkg/ratelimit"
)

const defaultMaxRetries = 5

// Client wraps a Generator with rate-limit admission and bounded retries.
// Every attempt, including retries, goes back through the limiter.
type Client struct {
	backend    Generator
	limiter    *ratelimit.Limiter
	logger     *log.Logger
	maxRetries int
}

func NewClient(logger *log.Logger, backend Generator, limiter *ratelimit.Limiter, maxRetries int) *Client {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	return &Client{
		backend:    backend,
		limiter:    limiter,
		logger:     logger,
		maxRetries: maxRetries,
	}
}

// Generate runs the prompt against the backend. On backpressure it sleeps
// for the provider's hinted delay, or exponential backoff with jitter when
// no hint is present, and retries. Any other failure, or running out of
// attempts, surfaces as an error the caller degrades to a placeholder.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}

		text, err := c.backend.Generate(ctx, prompt)
		if err == nil {
			return text, nil
		}
		lastErr = err
		c.logger.Warn("generation attempt failed",
			"attempt", attempt+1, "max_retries", c.maxRetries, "error", err)

		var rl *RateLimitedError
		if !errors.As(err, &rl) || attempt == c.maxRetries-1 {
			return "", err
		}

		delay := rl.RetryAfter
		if delay <= 0 {
			delay = backoffDelay(attempt)
		}
		c.logger.Info("backend rate limited, retrying", "delay", delay)
		if err := sleep(ctx, delay); err != nil {
			return "", err
		}
	}
	return "", lastErr
}

func backoffDelay(attempt int) time.Duration {
	secs := math.Pow(2, float64(attempt)) + rand.Float64()
	return time.Duration(secs * float64(time.Second))
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
