package ai

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// RateLimitedError signals backpressure from the generation backend. A
// non-zero RetryAfter carries the provider's own hint for when to try again.
type RateLimitedError struct {
	RetryAfter time.Duration
	Err        error
}

func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("generation backend rate limited (retry after %s): %v", e.RetryAfter, e.Err)
	}
	return fmt.Sprintf("generation backend rate limited: %v", e.Err)
}

func (e *RateLimitedError) Unwrap() error { return e.Err }

// Providers embed the delay in different shapes ("retry_delay { seconds: 7 }",
// "Retry-After: 7", "retryDelay: 7s"). One integer-seconds capture covers them.
var retryHintPattern = regexp.MustCompile(`(?i)retry[_\- ]?(?:delay|after)[^0-9]{0,20}(\d+)`)

// parseRetryHint pulls an integer seconds value out of a provider error
// payload. Returns zero when no hint is present.
func parseRetryHint(payload string) time.Duration {
	m := retryHintPattern.FindStringSubmatch(payload)
	if m == nil {
		return 0
	}
	secs, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return time.Duration(secs) * time.Second
}
