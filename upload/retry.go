// ABOUTME: Opt-in retry policy with exponential backoff for init and chunk requests.
// ABOUTME: The protocol performs no retries by default; RetryPolicyNone is the zero behavior.

package upload

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// RetryPolicy controls how many times a failed init or chunk request is
// reattempted. MaxAttempts of 1 means no retries.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     BackoffConfig
	ShouldRetry func(error) bool
}

// BackoffConfig controls delay timing between retry attempts.
type BackoffConfig struct {
	InitialDelay time.Duration
	Factor       float64
	MaxDelay     time.Duration
	Jitter       bool
}

// DelayForAttempt calculates the delay for a given attempt number (0-indexed):
// InitialDelay * Factor^attempt, capped at MaxDelay. With Jitter the delay is
// randomized in [0, calculated_delay].
func (b BackoffConfig) DelayForAttempt(attempt int) time.Duration {
	baseNanos := float64(b.InitialDelay.Nanoseconds()) * math.Pow(b.Factor, float64(attempt))
	maxNanos := float64(b.MaxDelay.Nanoseconds())
	delayNanos := math.Min(baseNanos, maxNanos)

	if b.Jitter {
		delayNanos = rand.Float64() * delayNanos
	}

	return time.Duration(int64(delayNanos))
}

// RetryPolicyNone returns a policy with a single attempt, matching the
// reference behavior of surfacing every failure immediately.
func RetryPolicyNone() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 1,
		Backoff: BackoffConfig{
			InitialDelay: 200 * time.Millisecond,
			Factor:       2.0,
			MaxDelay:     30 * time.Second,
		},
		ShouldRetry: DefaultShouldRetry,
	}
}

// RetryPolicyStandard returns a policy with 4 attempts and jittered
// exponential backoff for callers that want transient transport failures
// absorbed.
func RetryPolicyStandard() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 4,
		Backoff: BackoffConfig{
			InitialDelay: 200 * time.Millisecond,
			Factor:       2.0,
			MaxDelay:     30 * time.Second,
			Jitter:       true,
		},
		ShouldRetry: DefaultShouldRetry,
	}
}

// DefaultShouldRetry retries everything except context cancellation and
// deadline expiry, which indicate the caller has given up.
func DefaultShouldRetry(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}

// run executes fn up to MaxAttempts times, sleeping the backoff delay
// between attempts and respecting ctx cancellation.
func (p RetryPolicy) run(ctx context.Context, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	shouldRetry := p.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = DefaultShouldRetry
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(p.Backoff.DelayForAttempt(attempt - 1)):
			case <-ctx.Done():
				return err
			}
		}
		if err = fn(); err == nil {
			return nil
		}
		if !shouldRetry(err) {
			return err
		}
	}
	return err
}
