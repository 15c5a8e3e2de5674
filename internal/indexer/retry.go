package indexer

import (
	"context"
	"time"
)

const defaultRetryBackoff = 100 * time.Millisecond

// withRetry runs fn up to maxRetries+1 times, doubling the wait
// between attempts. The runner's chain fetches all go through it, so a
// transient RPC failure does not abort a whole batch.
func withRetry(ctx context.Context, maxRetries int, backoff time.Duration, fn func(context.Context) error) error {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if backoff <= 0 {
		backoff = defaultRetryBackoff
	}

	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if attempt == maxRetries {
			break
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		backoff *= 2
	}
	return err
}
