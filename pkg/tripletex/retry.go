package tripletex

import (
	"context"
	"log/slog"
	"time"
)

// withRetry runs fn up to c.retries times, sleeping a fixed delay between
// attempts, as long as it fails with a transient error.
func (c *Client) withRetry(ctx context.Context, path string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= c.retries; attempt++ {
		err = fn()
		if err == nil || !IsTransient(err) || ctx.Err() != nil {
			return err
		}
		if attempt == c.retries {
			break
		}

		slog.Warn("transient tripletex error, retrying",
			"path", path, "attempt", attempt, "delay", c.retryDelay, "error", err)

		timer := time.NewTimer(c.retryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}
