package services

import (
	"context"
	"fmt"
	"log"
	"time"
)

// retry calls fn up to attempts times, sleeping backoff between failures.
// The last error is returned wrapped with the attempt count.
func retry(ctx context.Context, label string, attempts int, backoff time.Duration, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		log.Printf("[%s] attempt %d/%d failed: %v", label, attempt, attempts, err)
		if attempt == attempts {
			break
		}
		if backoff > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		} else if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return fmt.Errorf("after %d attempts: %w", attempts, err)
}
