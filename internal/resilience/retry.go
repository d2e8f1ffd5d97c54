// Package resilience retries and short-circuits calls to external services.
package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// Backoff controls how many times a call is attempted and how long to wait
// between attempts. Delays grow by doubling from Initial up to Max.
type Backoff struct {
	Attempts int
	Initial  time.Duration
	Max      time.Duration

	// Jitter is the fraction of each delay randomized in either direction.
	Jitter float64
}

// DefaultBackoff suits rate-limited API calls.
func DefaultBackoff() Backoff {
	return Backoff{Attempts: 3, Initial: 500 * time.Millisecond, Max: 20 * time.Second, Jitter: 0.2}
}

// Retry calls fn until it succeeds, fails with an error retryable rejects,
// or runs out of attempts. The last error is returned. A nil retryable
// uses Transient.
func Retry[T any](ctx context.Context, b Backoff, retryable func(error) bool, fn func(context.Context) (T, error)) (T, error) {
	if retryable == nil {
		retryable = Transient
	}
	attempts := max(b.Attempts, 1)

	var (
		zero T
		err  error
	)
	for attempt := 0; attempt < attempts; attempt++ {
		var v T
		v, err = fn(ctx)
		if err == nil {
			return v, nil
		}
		if ctx.Err() != nil || !retryable(err) || attempt == attempts-1 {
			break
		}

		wait := b.delay(attempt)
		zap.L().Debug("resilience: retrying",
			zap.Int("attempt", attempt+1),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return zero, err
		case <-t.C:
		}
	}
	return zero, err
}

func (b Backoff) delay(attempt int) time.Duration {
	d := float64(b.Initial) * math.Pow(2, float64(attempt))
	if b.Max > 0 && d > float64(b.Max) {
		d = float64(b.Max)
	}
	if b.Jitter > 0 {
		d += (rand.Float64()*2 - 1) * d * b.Jitter
	}
	return time.Duration(max(d, 0))
}
