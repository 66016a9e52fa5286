package querycache

import (
	"context"
	"time"

	"github.com/streed/notes-browser/internal/logger"
)

// RetryPolicy controls how a failed fetch is retried. Delays double from
// BaseDelay up to MaxDelay. Retries stop early when the context ends.
type RetryPolicy struct {
	Retries   int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// NoRetry makes a single attempt.
var NoRetry = RetryPolicy{}

// Attempts is the total number of calls the policy allows.
func (p RetryPolicy) Attempts() int {
	if p.Retries < 0 {
		return 1
	}
	return p.Retries + 1
}

// Backoff returns the wait before retry n (1-based).
func (p RetryPolicy) Backoff(n int) time.Duration {
	if p.BaseDelay <= 0 || n < 1 {
		return 0
	}
	d := p.BaseDelay
	for i := 1; i < n; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Retry calls fn until it succeeds or p's attempts are used up, returning
// the last error.
func Retry[V any](ctx context.Context, p RetryPolicy, fn func(context.Context) (V, error)) (V, error) {
	var (
		value V
		err   error
	)
	for attempt := 1; attempt <= p.Attempts(); attempt++ {
		if attempt > 1 {
			wait := p.Backoff(attempt - 1)
			logger.Debug("Retrying fetch in %s (attempt %d/%d): %v", wait, attempt, p.Attempts(), err)
			select {
			case <-ctx.Done():
				return value, err
			case <-time.After(wait):
			}
		}
		value, err = fn(ctx)
		if err == nil {
			return value, nil
		}
		if ctx.Err() != nil {
			return value, err
		}
	}
	return value, err
}
