package llm

import (
	"context"
	"errors"
	"time"
)

const (
	maxAttempts = 3
	retryStep   = 300 * time.Millisecond
)

// Retry calls fn up to three times with a linearly growing pause, giving up
// early when ctx is done or the error is permanent.
func Retry(ctx context.Context, fn func(ctx context.Context) (string, error)) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		out, err := fn(ctx)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if !retryable(err) || attempt == maxAttempts {
			break
		}
		t := time.NewTimer(time.Duration(attempt) * retryStep)
		select {
		case <-ctx.Done():
			t.Stop()
			return "", ctx.Err()
		case <-t.C:
		}
	}
	return "", lastErr
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrEmptyAPIKey) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == 429 || se.Code >= 500
	}
	return true
}
