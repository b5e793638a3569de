package store

import (
	"context"
	"fmt"
	"time"
)

const (
	retryAttempts = 3
	retryBackoff  = 100 * time.Millisecond
)

// WithRetry runs fn up to three times, backing off exponentially from
// 100ms, as long as retryable classifies the failure as lock
// contention. Exhausted retries surface as ErrStoreBusy wrapping the
// last failure; non-retryable errors are returned unchanged.
func WithRetry(ctx context.Context, retryable func(error) bool, fn func() error) error {
	var err error
	delay := retryBackoff
	for attempt := 0; attempt < retryAttempts; attempt++ {
		err = fn()
		if err == nil || !retryable(err) {
			return err
		}
		if attempt == retryAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return fmt.Errorf("%w: %v", ErrStoreBusy, err)
}
