// Package clock abstracts the wall clock so time-driven policy (ETA phases,
// signal cooldowns, janitor thresholds) is injectable and testable.
//
// Production code uses System; tests use testutil.Clock, which only moves
// when advanced. Never call time.Now directly from engine or lifecycle code.
package clock

import "time"

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// System reads the real wall clock.
type System struct{}

// Now returns time.Now in UTC. All stored timestamps are UTC.
func (System) Now() time.Time { return time.Now().UTC() }
