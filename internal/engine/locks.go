package engine

import "sync"

// userLocks hands out one mutex per user id so every read-modify-write of a
// ledger runs serialized. This closes the check-then-act race between the
// grant gate and the grant executor under concurrent requests.
//
// Locks are never released from the map; the set of active users in one
// process is small enough that this is not worth an eviction scheme.
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[string]*sync.Mutex)}
}

// acquire locks the per-user mutex and returns its unlock function.
func (l *userLocks) acquire(userID string) func() {
	l.mu.Lock()
	m, ok := l.locks[userID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[userID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
