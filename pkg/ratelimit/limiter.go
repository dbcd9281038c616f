package ratelimit

import (
	"math/rand"
	"sync"
	"time"

	"socialingest/pkg/logger"
)

// window is the rolling period the hourly ceiling applies to
const window = time.Hour

// casAttempts bounds how often a persist retries after a version conflict
const casAttempts = 5

// Decision is the outcome of an admission check. When Proceed is false the
// caller is expected to either sleep Wait and ask again, or give up.
type Decision struct {
	Proceed bool
	Wait    time.Duration
}

// Options configures a Limiter
type Options struct {
	// MinInterval is the minimum spacing between admitted requests
	MinInterval time.Duration
	// HourlyCeiling is the request budget per rolling hour
	HourlyCeiling int
	// Jitter, when positive, stretches spacing waits by a random amount up
	// to this duration so concurrent callers desynchronize.
	Jitter time.Duration
}

// Limiter decides whether a platform call may proceed, and escalates the
// persisted state after violations. It never fails a caller: persistence
// problems are logged and the decision is still returned.
type Limiter struct {
	store Store
	opts  Options
	log   logger.Logger
	now   func() time.Time

	mu sync.Mutex
}

// NewLimiter creates a limiter over the given store
func NewLimiter(store Store, opts Options, log logger.Logger) *Limiter {
	if log == nil {
		log = logger.GetLogger()
	}
	if opts.MinInterval <= 0 {
		opts.MinInterval = 3 * time.Second
	}
	if opts.HourlyCeiling <= 0 {
		opts.HourlyCeiling = 100
	}
	return &Limiter{
		store: store,
		opts:  opts,
		log:   log,
		now:   time.Now,
	}
}

// Admit checks whether a request may proceed right now. It has three deny
// paths: an active block, the minimum spacing between requests, and the
// hourly ceiling. Hitting the ceiling self-blocks for one hour and persists
// that block.
func (l *Limiter) Admit() Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	state, version, err := l.store.Load()
	if err != nil {
		l.log.WithError(err).Warn("failed to load rate limit state, admitting request")
		return Decision{Proceed: true}
	}

	if state.BlockedUntil != nil {
		if now.Before(*state.BlockedUntil) {
			return Decision{Wait: state.BlockedUntil.Sub(now)}
		}
		// Block expired: the natural unblock transition clears violations.
		state.BlockedUntil = nil
		state.Violations = 0
		version = l.persist(version, state)
	}

	if state.LastRequestAt != nil {
		elapsed := now.Sub(*state.LastRequestAt)
		if elapsed < l.opts.MinInterval {
			wait := l.opts.MinInterval - elapsed
			if l.opts.Jitter > 0 {
				wait += time.Duration(rand.Int63n(int64(l.opts.Jitter)))
			}
			return Decision{Wait: wait}
		}
	}

	if now.Sub(state.WindowStartedAt) >= window {
		state.RequestCount = 0
		state.WindowStartedAt = now
		version = l.persist(version, state)
	}

	if state.RequestCount >= l.opts.HourlyCeiling {
		blocked := now.Add(window)
		state.BlockedUntil = &blocked
		l.persist(version, state)
		l.log.WarnWithFields("hourly request ceiling reached, self-blocking", map[string]interface{}{
			"requests":      state.RequestCount,
			"ceiling":       l.opts.HourlyCeiling,
			"blocked_until": blocked,
		})
		return Decision{Wait: window}
	}

	return Decision{Proceed: true}
}

// RecordSuccess registers an admitted request: stamps the request time and
// bumps the window counter, resetting the window when it is older than an hour.
func (l *Limiter) RecordSuccess() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.update(func(state *State) {
		now := l.now()
		if now.Sub(state.WindowStartedAt) >= window {
			state.RequestCount = 0
			state.WindowStartedAt = now
		}
		state.LastRequestAt = &now
		state.RequestCount++
	})
}

// RecordViolation registers a remote rate-limit rejection. It is the only
// path that increases the block horizon: the consecutive-violation counter
// goes up and the block extends along the backoff ladder.
func (l *Limiter) RecordViolation() {
	l.mu.Lock()
	defer l.mu.Unlock()

	var blockFor time.Duration
	var violations int
	l.update(func(state *State) {
		now := l.now()
		state.Violations++
		state.LastViolationAt = &now
		blockFor = ViolationBackoff(state.Violations)
		blocked := now.Add(blockFor)
		state.BlockedUntil = &blocked
		violations = state.Violations
	})

	l.log.WarnWithFields("rate limit violation recorded", map[string]interface{}{
		"violations":  violations,
		"blocked_for": blockFor,
	})
}

// Reset clears all limiter state. Operator action only.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.update(func(state *State) {
		*state = State{WindowStartedAt: l.now()}
	})
	l.log.Info("rate limit state reset")
}

// Status describes the current limiter state for operators
type Status struct {
	CanRequest        bool       `json:"can_request"`
	RequestsMade      int        `json:"requests_made"`
	RequestsRemaining int        `json:"requests_remaining"`
	Violations        int        `json:"violations"`
	BlockedUntil      *time.Time `json:"blocked_until,omitempty"`
	BlockedFor        string     `json:"blocked_for,omitempty"`
}

// Status returns a read-only snapshot of the limiter state. It applies the
// same checks as Admit without any of its transitions, so an operator asking
// for status never blocks the account or persists anything.
func (l *Limiter) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	state, _, err := l.store.Load()
	if err != nil {
		l.log.WithError(err).Warn("failed to load rate limit state for status")
		return Status{CanRequest: true}
	}

	requests := state.RequestCount
	if now.Sub(state.WindowStartedAt) >= window {
		requests = 0
	}
	remaining := l.opts.HourlyCeiling - requests
	if remaining < 0 {
		remaining = 0
	}

	canRequest := !state.Blocked(now) && remaining > 0
	if canRequest && state.LastRequestAt != nil && now.Sub(*state.LastRequestAt) < l.opts.MinInterval {
		canRequest = false
	}

	status := Status{
		CanRequest:        canRequest,
		RequestsMade:      requests,
		RequestsRemaining: remaining,
		Violations:        state.Violations,
	}
	if state.Blocked(now) {
		status.BlockedUntil = state.BlockedUntil
		status.BlockedFor = state.BlockedUntil.Sub(now).Round(time.Second).String()
	}
	return status
}

// update runs a load-modify-persist cycle with compare-and-swap retries.
// Callers must hold l.mu.
func (l *Limiter) update(fn func(*State)) {
	for attempt := 0; attempt < casAttempts; attempt++ {
		state, version, err := l.store.Load()
		if err != nil {
			l.log.WithError(err).Warn("failed to load rate limit state")
			return
		}
		fn(&state)
		err = l.store.CompareAndSwap(version, state)
		if err == nil {
			return
		}
		if err != ErrVersionConflict {
			l.log.WithError(err).Warn("failed to persist rate limit state")
			return
		}
	}
	l.log.Warn("gave up persisting rate limit state after repeated version conflicts")
}

// persist writes the given state at the given version, returning the version
// the caller should continue with. Conflicts are tolerated: the concurrent
// writer observed the same remote signals. Callers must hold l.mu.
func (l *Limiter) persist(version uint64, state State) uint64 {
	err := l.store.CompareAndSwap(version, state)
	if err == nil {
		return version + 1
	}
	if err != ErrVersionConflict {
		l.log.WithError(err).Warn("failed to persist rate limit state")
	}
	return version
}
