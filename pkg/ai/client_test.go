package ai

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"

	"github.com/mailpilot-ai/mailpilot/pkg/ratelimit"
)

type fakeBackend struct {
	calls    int
	failWith func(call int) error
	text     string
}

func (f *fakeBackend) Generate(ctx context.Context, prompt string) (string, error) {
	f.calls++
	if f.failWith != nil {
		if err := f.failWith(f.calls); err != nil {
			return "", err
		}
	}
	return f.text, nil
}

func testClient(backend Generator, maxRetries int) *Client {
	logger := log.New(os.Stdout)
	limiter := ratelimit.NewLimiter(100, time.Minute)
	return NewClient(logger, backend, limiter, maxRetries)
}

func rateLimited(hint time.Duration) error {
	return &RateLimitedError{RetryAfter: hint, Err: fmt.Errorf("429 too many requests")}
}

func TestGenerateSucceedsFirstTry(t *testing.T) {
	backend := &fakeBackend{text: "hello"}
	client := testClient(backend, 5)

	text, err := client.Generate(context.Background(), "prompt")
	assert.NoError(t, err)
	assert.Equal(t, "hello", text)
	assert.Equal(t, 1, backend.calls)
}

func TestGenerateRetriesThroughBackpressure(t *testing.T) {
	// Fails with a rate-limit signal maxRetries-1 times, then succeeds.
	backend := &fakeBackend{
		text: "eventually",
		failWith: func(call int) error {
			if call < 5 {
				return rateLimited(time.Millisecond)
			}
			return nil
		},
	}
	client := testClient(backend, 5)

	text, err := client.Generate(context.Background(), "prompt")
	assert.NoError(t, err)
	assert.Equal(t, "eventually", text)
	assert.Equal(t, 5, backend.calls)
}

func TestGenerateExhaustsRetries(t *testing.T) {
	backend := &fakeBackend{
		failWith: func(int) error { return rateLimited(time.Millisecond) },
	}
	client := testClient(backend, 3)

	text, err := client.Generate(context.Background(), "prompt")
	assert.Error(t, err)
	assert.Empty(t, text)
	assert.Equal(t, 3, backend.calls)
}

func TestGenerateDoesNotRetryOtherFailures(t *testing.T) {
	backend := &fakeBackend{
		failWith: func(int) error { return fmt.Errorf("model not found") },
	}
	client := testClient(backend, 5)

	_, err := client.Generate(context.Background(), "prompt")
	assert.Error(t, err)
	assert.Equal(t, 1, backend.calls)
}

func TestGenerateEveryAttemptGoesThroughLimiter(t *testing.T) {
	logger := log.New(os.Stdout)
	// Window admits one call per 200ms slot; three attempts must take at
	// least two evictions worth of waiting.
	limiter := ratelimit.NewLimiter(1, 200*time.Millisecond)
	backend := &fakeBackend{
		text: "done",
		failWith: func(call int) error {
			if call < 3 {
				return rateLimited(time.Millisecond)
			}
			return nil
		},
	}
	client := NewClient(logger, backend, limiter, 5)

	start := time.Now()
	text, err := client.Generate(context.Background(), "prompt")
	assert.NoError(t, err)
	assert.Equal(t, "done", text)
	assert.Equal(t, 3, backend.calls)
	assert.GreaterOrEqual(t, time.Since(start), 400*time.Millisecond)
}

func TestParseRetryHint(t *testing.T) {
	assert.Equal(t, 7*time.Second, parseRetryHint(`retry_delay { seconds: 7 }`))
	assert.Equal(t, 30*time.Second, parseRetryHint(`Retry-After: 30`))
	assert.Equal(t, 12*time.Second, parseRetryHint(`"retryDelay": "12s"`))
	assert.Equal(t, time.Duration(0), parseRetryHint(`quota exceeded`))
}
