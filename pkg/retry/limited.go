package retry

import (
	"context"
	"errors"
	"time"

	errs "socialingest/pkg/errors"
	"socialingest/pkg/logger"
	"socialingest/pkg/ratelimit"
)

// limitedNetworkDelay is the fixed pause before retrying a connection-level
// or server-side failure
const limitedNetworkDelay = 2 * time.Second

// Limiter is the admission gate DoLimited consults around every attempt
type Limiter interface {
	Admit() ratelimit.Decision
	RecordSuccess()
	RecordViolation()
}

// LimitedConfig configures DoLimited
type LimitedConfig struct {
	// MaxAttempts bounds the attempts per call (0 or less means 3)
	MaxAttempts int
	// Backoff paces retries after rate-limit rejections and limiter denials
	// that carry no wait hint. Defaults to FetchBackoff.
	Backoff BackoffStrategy
	// Context for cancellation
	Context context.Context
	// Logger for denial and retry attempts
	Logger logger.Logger
	// Sleep overrides the wait primitive. Defaults to Wait.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DoLimited executes op behind the limiter's admission gate with bounded
// attempts. A denial sleeps the limiter-reported wait, falling back to the
// backoff ladder when the limiter has no opinion. A remote rate-limit
// rejection records a violation before backing off; connection-level and
// server-side failures retry after a short fixed delay. Any other error is
// returned immediately, and a success registers with the limiter.
func DoLimited(limiter Limiter, op Operation, cfg *LimitedConfig) error {
	if cfg == nil {
		cfg = &LimitedConfig{}
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	backoff := cfg.Backoff
	if backoff == nil {
		backoff = FetchBackoff()
	}
	ctx := cfg.Context
	if ctx == nil {
		ctx = context.Background()
	}
	log := cfg.Logger
	if log == nil {
		log = logger.GetLogger()
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = Wait
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if decision := limiter.Admit(); !decision.Proceed {
			wait := decision.Wait
			if wait <= 0 {
				wait = backoff.NextDelay(attempt)
			}
			log.InfoWithFields("rate limiter denied request", map[string]interface{}{
				"wait":    wait.String(),
				"attempt": attempt,
			})
			lastErr = errs.New(errs.ErrorTypeRateLimit, "rate limiter denied request")
			if err := sleep(ctx, wait); err != nil {
				return err
			}
			continue
		}

		err := op()
		if err == nil {
			limiter.RecordSuccess()
			return nil
		}
		lastErr = err

		var apiErr *errs.Error
		if !errors.As(err, &apiErr) {
			return err
		}
		switch apiErr.Type {
		case errs.ErrorTypeRateLimit:
			limiter.RecordViolation()
			if attempt < maxAttempts {
				if werr := sleep(ctx, backoff.NextDelay(attempt)); werr != nil {
					return werr
				}
			}
		case errs.ErrorTypeNetwork, errs.ErrorTypeServerError:
			if attempt < maxAttempts {
				if werr := sleep(ctx, limitedNetworkDelay); werr != nil {
					return werr
				}
			}
		default:
			return err
		}
	}

	return lastErr
}
