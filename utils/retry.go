package utils

import (
	"context"
	"fmt"
	"time"
)

// Retry runs fn up to maxRetries times, stopping on the first success.
// Failed attempts wait base, 2*base, 4*base... before the next one.
// If retryable is non-nil and reports false for an error, Retry gives up
// immediately and returns that error unwrapped.
//
// Usage:
//
//	err := utils.Retry(ctx, 3, time.Second, nil, func() error {
//	    return fetch(url)
//	})
func Retry(ctx context.Context, maxRetries int, base time.Duration, retryable func(error) bool, fn func() error) error {
	if maxRetries < 1 {
		maxRetries = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if retryable != nil && !retryable(lastErr) {
			return lastErr
		}
		if attempt == maxRetries {
			break
		}

		wait := base * time.Duration(1<<uint(attempt-1))
		Warn("Attempt %d/%d failed: %v — retrying in %v", attempt, maxRetries, lastErr, wait)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	if maxRetries == 1 {
		return lastErr
	}
	return fmt.Errorf("all %d attempts failed, last error: %w", maxRetries, lastErr)
}
