package service

import (
	"context"
	"sync"
	"time"
)

// LockoutPolicy bounds the failure budget: AttemptCeiling failures inside
// FailureWindow install a lock lasting LockoutDuration.
type LockoutPolicy struct {
	AttemptCeiling  int
	FailureWindow   time.Duration
	LockoutDuration time.Duration
}

// LockoutState is the stored view of one client key. LockedUntil is nil when
// no lock is in force.
type LockoutState struct {
	Failures    int
	LockedUntil *time.Time
}

// LockoutStore tracks PIN failures per client key. Implementations must make
// RecordFailure atomic: the ceiling check and the lock installation happen as
// one operation.
type LockoutStore interface {
	State(ctx context.Context, key string) (LockoutState, error)
	RecordFailure(ctx context.Context, key string, policy LockoutPolicy) (LockoutState, error)
	Reset(ctx context.Context, key string) error
}

type localEntry struct {
	failures      int
	windowExpires time.Time
	lockedUntil   time.Time
}

// localLockoutStore is the in-process fallback used when no Redis address is
// configured. Single-node only.
type localLockoutStore struct {
	mu      sync.Mutex
	store   map[string]*localEntry
	cleanup time.Time
	now     func() time.Time
}

func NewLocalLockoutStore() LockoutStore {
	return &localLockoutStore{
		store:   make(map[string]*localEntry),
		cleanup: time.Now().Add(time.Minute),
		now:     time.Now,
	}
}

func (s *localLockoutStore) State(_ context.Context, key string) (LockoutState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked(key), nil
}

func (s *localLockoutStore) RecordFailure(_ context.Context, key string, policy LockoutPolicy) (LockoutState, error) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	if now.After(s.cleanup) {
		for k, e := range s.store {
			if now.After(e.windowExpires) && now.After(e.lockedUntil) {
				delete(s.store, k)
			}
		}
		s.cleanup = now.Add(time.Minute)
	}

	entry, ok := s.store[key]
	if !ok {
		entry = &localEntry{}
		s.store[key] = entry
	}
	if now.Before(entry.lockedUntil) {
		return s.stateLocked(key), nil
	}
	if now.After(entry.windowExpires) {
		entry.failures = 0
	}

	entry.failures++
	entry.windowExpires = now.Add(policy.FailureWindow)
	if entry.failures >= policy.AttemptCeiling {
		entry.lockedUntil = now.Add(policy.LockoutDuration)
		entry.failures = 0
	}
	return s.stateLocked(key), nil
}

func (s *localLockoutStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.store, key)
	return nil
}

func (s *localLockoutStore) stateLocked(key string) LockoutState {
	now := s.now()
	entry, ok := s.store[key]
	if !ok {
		return LockoutState{}
	}
	state := LockoutState{}
	if now.Before(entry.windowExpires) {
		state.Failures = entry.failures
	}
	if now.Before(entry.lockedUntil) {
		until := entry.lockedUntil
		state.LockedUntil = &until
	}
	return state
}
