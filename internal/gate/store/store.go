// Package store persists the gate's two client-side records between runs:
// the granted session and any lockout. Reads purge expired or malformed
// records; every operation swallows storage failures so an unavailable
// backing store degrades to "no record" instead of crashing the gate.
package store

import "github.com/fieldserve/pingate/internal/domain"

type Store interface {
	// ReadSession returns nil when the record is absent, malformed, or
	// expired. Malformed and expired records are deleted as a side effect.
	ReadSession() *domain.StoredSession
	// WriteSession reports whether the write landed. Callers must tolerate
	// false.
	WriteSession(session domain.StoredSession) bool
	// ReadLockout follows the same purge-on-read semantics as ReadSession.
	ReadLockout() *domain.LockoutInfo
	WriteLockout(info domain.LockoutInfo)
	ClearLockout()
}
