// Package schedule holds the pure wall-clock window policy for live
// sessions. A single clock reading is evaluated per request; callers pass
// "now" in rather than reading the clock here.
package schedule

import "time"

const (
	// EarlyStartLead is how long before the scheduled time a tutor may
	// start the session.
	EarlyStartLead = 15 * time.Minute

	// EarlyJoinLead is how long before the scheduled time a learner may
	// join a still-scheduled session.
	EarlyJoinLead = 5 * time.Minute
)

// Check is the outcome of a single window evaluation.
type Check struct {
	Allowed  bool
	Boundary time.Time

	// TimeDifferenceMinutes is the signed distance from now to the
	// scheduled start: positive while the session is still in the future,
	// negative once the scheduled time has passed.
	TimeDifferenceMinutes float64
}

// StartWindow reports whether a start attempt at now is inside the
// early-start window for the given scheduled time.
func StartWindow(scheduledAt, now time.Time) Check {
	return evaluate(scheduledAt, now, EarlyStartLead)
}

// JoinWindow reports whether a join attempt at now is inside the early-join
// window for a still-scheduled session. Joining a live session is always
// allowed and never consults this check.
func JoinWindow(scheduledAt, now time.Time) Check {
	return evaluate(scheduledAt, now, EarlyJoinLead)
}

func evaluate(scheduledAt, now time.Time, lead time.Duration) Check {
	boundary := scheduledAt.Add(-lead)
	return Check{
		Allowed:               !now.Before(boundary),
		Boundary:              boundary,
		TimeDifferenceMinutes: scheduledAt.Sub(now).Minutes(),
	}
}
