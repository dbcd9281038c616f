package ratelimit

import "time"

// State is the persisted rate limit state for one platform credential.
// It survives process restarts and is shared by every job that talks to
// the same platform account.
type State struct {
	LastRequestAt   *time.Time `json:"last_request_at,omitempty"`
	RequestCount    int        `json:"request_count"`
	WindowStartedAt time.Time  `json:"window_started_at"`
	Violations      int        `json:"violations"`
	LastViolationAt *time.Time `json:"last_violation_at,omitempty"`
	BlockedUntil    *time.Time `json:"blocked_until,omitempty"`
}

// Blocked reports whether the state carries an active block at the given time
func (s *State) Blocked(now time.Time) bool {
	return s.BlockedUntil != nil && now.Before(*s.BlockedUntil)
}

// ViolationBackoff maps a consecutive-violation count to a block duration.
// The ladder escalates 5, 15, 60 minutes and flattens at 4 hours so repeated
// violations are punished without unbounded growth.
func ViolationBackoff(violations int) time.Duration {
	switch {
	case violations <= 0:
		return 0
	case violations == 1:
		return 5 * time.Minute
	case violations == 2:
		return 15 * time.Minute
	case violations == 3:
		return 60 * time.Minute
	default:
		return 240 * time.Minute
	}
}
