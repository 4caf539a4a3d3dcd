package domain

import "time"

// LockoutInfo is the client-side record of a temporary ban on PIN attempts.
// Timestamp records when the ban was observed and is informational only.
type LockoutInfo struct {
	IsLocked    bool      `json:"isLocked"`
	LockedUntil time.Time `json:"lockedUntil"`
	Timestamp   time.Time `json:"timestamp"`
}

// Active reports whether the lockout is still in force.
func (l LockoutInfo) Active(now time.Time) bool {
	return now.Before(l.LockedUntil)
}
