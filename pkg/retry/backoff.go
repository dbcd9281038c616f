package retry

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// BackoffStrategy defines the interface for different backoff strategies
type BackoffStrategy interface {
	// NextDelay returns the next delay duration
	NextDelay(attempt int) time.Duration
	// Reset resets the backoff strategy to initial state
	Reset()
}

// ExponentialBackoff implements exponential backoff with jitter
type ExponentialBackoff struct {
	// BaseDelay is the initial delay duration
	BaseDelay time.Duration
	// MaxDelay is the maximum delay duration
	MaxDelay time.Duration
	// Multiplier is the factor by which delay increases
	Multiplier float64
	// JitterFactor adds randomness to avoid thundering herd (0.0 to 1.0)
	JitterFactor float64
}

// DefaultExponentialBackoff returns a backoff with sensible defaults
func DefaultExponentialBackoff() *ExponentialBackoff {
	return &ExponentialBackoff{
		BaseDelay:    1 * time.Second,
		MaxDelay:     60 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.1,
	}
}

// NextDelay calculates the next delay with exponential backoff and jitter
func (eb *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	delay := float64(eb.BaseDelay) * math.Pow(eb.Multiplier, float64(attempt-1))

	if delay > float64(eb.MaxDelay) {
		delay = float64(eb.MaxDelay)
	}

	if eb.JitterFactor > 0 {
		jitter := delay * eb.JitterFactor
		// Random value between -jitter and +jitter
		randomJitter := (rand.Float64() * 2 * jitter) - jitter
		delay += randomJitter
	}

	if delay < 0 {
		delay = 0
	}

	return time.Duration(delay)
}

// Reset resets the backoff to initial state
func (eb *ExponentialBackoff) Reset() {}

// StepBackoff walks a fixed ladder of delays: attempt N sleeps Steps[N-1],
// and attempts past the end of the ladder reuse the last step.
type StepBackoff struct {
	Steps []time.Duration
}

// NextDelay returns the ladder entry for the given attempt
func (sb *StepBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 || len(sb.Steps) == 0 {
		return 0
	}
	if attempt > len(sb.Steps) {
		return sb.Steps[len(sb.Steps)-1]
	}
	return sb.Steps[attempt-1]
}

// Reset resets the backoff (no-op for step backoff)
func (sb *StepBackoff) Reset() {}

// FetchBackoff is the escalating floor used between attempts when a platform
// fetch hits a rate limit and the limiter itself has no opinion on the wait.
func FetchBackoff() *StepBackoff {
	return &StepBackoff{Steps: []time.Duration{
		60 * time.Second,
		120 * time.Second,
		180 * time.Second,
	}}
}

// LoginBackoff is the escalating floor between interactive login attempts.
func LoginBackoff() *StepBackoff {
	return &StepBackoff{Steps: []time.Duration{
		30 * time.Second,
		60 * time.Second,
		90 * time.Second,
	}}
}

// ConstantBackoff implements constant delay backoff
type ConstantBackoff struct {
	Delay time.Duration
}

// NextDelay returns a constant delay
func (cb *ConstantBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return cb.Delay
}

// Reset resets the backoff (no-op for constant backoff)
func (cb *ConstantBackoff) Reset() {}

// Wait waits for the specified duration or until context is cancelled
func Wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
