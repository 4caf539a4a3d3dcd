package domain

import "time"

// StoredSession is the client-side record of a granted access pass. It is
// persisted between runs so the keypad can be skipped while the pass is valid.
type StoredSession struct {
	SessionID string    `json:"sessionId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Valid reports whether the session expiry is strictly in the future.
func (s StoredSession) Valid(now time.Time) bool {
	return now.Before(s.ExpiresAt)
}
