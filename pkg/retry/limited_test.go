package retry

import (
	"context"
	"testing"
	"time"

	errs "socialingest/pkg/errors"
	"socialingest/pkg/ratelimit"
)

// stubLimiter records what DoLimited reports back to the admission gate
type stubLimiter struct {
	decision   ratelimit.Decision
	successes  int
	violations int
}

func (s *stubLimiter) Admit() ratelimit.Decision { return s.decision }
func (s *stubLimiter) RecordSuccess()            { s.successes++ }
func (s *stubLimiter) RecordViolation()          { s.violations++ }

func admitAll() *stubLimiter {
	return &stubLimiter{decision: ratelimit.Decision{Proceed: true}}
}

func noSleep(ctx context.Context, d time.Duration) error { return nil }

func TestDoLimitedSuccessRecordsWithLimiter(t *testing.T) {
	limiter := admitAll()
	calls := 0

	err := DoLimited(limiter, func() error {
		calls++
		return nil
	}, &LimitedConfig{Sleep: noSleep})

	if err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected 1 call, got %d", calls)
	}
	if limiter.successes != 1 {
		t.Errorf("Expected 1 recorded success, got %d", limiter.successes)
	}
}

func TestDoLimitedHonorsMaxAttempts(t *testing.T) {
	limiter := admitAll()
	calls := 0

	err := DoLimited(limiter, func() error {
		calls++
		return errs.New(errs.ErrorTypeNetwork, "connection reset")
	}, &LimitedConfig{MaxAttempts: 5, Sleep: noSleep})

	if err == nil {
		t.Fatal("Expected error after exhausting attempts")
	}
	if calls != 5 {
		t.Errorf("Expected 5 calls, got %d", calls)
	}
}

func TestDoLimitedDefaultsToThreeAttempts(t *testing.T) {
	limiter := admitAll()
	calls := 0

	_ = DoLimited(limiter, func() error {
		calls++
		return errs.New(errs.ErrorTypeServerError, "upstream down")
	}, &LimitedConfig{Sleep: noSleep})

	if calls != 3 {
		t.Errorf("Expected 3 calls by default, got %d", calls)
	}
}

func TestDoLimitedRecordsViolations(t *testing.T) {
	limiter := admitAll()

	err := DoLimited(limiter, func() error {
		return errs.New(errs.ErrorTypeRateLimit, "too many requests")
	}, &LimitedConfig{MaxAttempts: 2, Sleep: noSleep})

	if err == nil {
		t.Fatal("Expected the rate limit error to surface")
	}
	if limiter.violations != 2 {
		t.Errorf("Expected 2 recorded violations, got %d", limiter.violations)
	}
}

func TestDoLimitedTerminalErrorStopsImmediately(t *testing.T) {
	limiter := admitAll()
	calls := 0

	err := DoLimited(limiter, func() error {
		calls++
		return errs.New(errs.ErrorTypeNotFound, "gone")
	}, &LimitedConfig{MaxAttempts: 3, Sleep: noSleep})

	if err == nil {
		t.Fatal("Expected error")
	}
	if calls != 1 {
		t.Errorf("Expected 1 call for a terminal error, got %d", calls)
	}
}

func TestDoLimitedDeniedSleepsReportedWait(t *testing.T) {
	limiter := &stubLimiter{decision: ratelimit.Decision{Wait: 7 * time.Second}}
	var slept []time.Duration

	err := DoLimited(limiter, func() error {
		t.Fatal("op must not run while denied")
		return nil
	}, &LimitedConfig{
		MaxAttempts: 2,
		Sleep: func(ctx context.Context, d time.Duration) error {
			slept = append(slept, d)
			return nil
		},
	})

	if err == nil {
		t.Fatal("Expected denial to surface as an error")
	}
	if len(slept) != 2 || slept[0] != 7*time.Second {
		t.Errorf("Expected two 7s waits, got %v", slept)
	}
}
