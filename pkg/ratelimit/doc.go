// Package ratelimit governs how aggressively the pipeline may call a
// rate-limited external platform.
//
// The state is persisted per platform credential, not per job: every job
// against the same account shares one Limiter and its Store, so the request
// spacing, the hourly budget and the violation ladder hold across concurrent
// jobs and across process restarts.
//
// Admission protocol:
//
//	limiter := ratelimit.NewLimiter(store, opts, log)
//
//	d := limiter.Admit()
//	if !d.Proceed {
//	    // sleep d.Wait and ask again, or give up
//	}
//	// make the call
//	limiter.RecordSuccess()
//
// When the remote platform rejects a call with a rate-limit signal (HTTP 429
// or a "please wait" message) the caller reports it:
//
//	limiter.RecordViolation()
//
// which escalates the block along a capped ladder (5, 15, 60, then a flat
// 240 minutes). The block clears when its deadline passes, which also resets
// the consecutive-violation count.
//
// Store backends: a JSON file written atomically (single host), Redis with
// WATCH-based compare-and-swap (multiple processes), and an in-memory store
// for tests.
package ratelimit
