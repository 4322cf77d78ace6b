package engine

import "sync"

// lockKey identifies one logical sequence counter: a single branch of a
// single session.
type lockKey struct {
	sessionID string
	branchID  string
}

// branchLocks serializes writers per (session, branch) pair. Different
// sessions and different branches of the same session proceed fully in
// parallel. Locks are created on first access and evicted when their session
// is cleaned up; readers never take them.
type branchLocks struct {
	mu    sync.Mutex
	locks map[lockKey]*sync.Mutex
}

func newBranchLocks() *branchLocks {
	return &branchLocks{locks: make(map[lockKey]*sync.Mutex)}
}

// acquire locks the branch and returns the unlock function.
func (b *branchLocks) acquire(sessionID, branchID string) func() {
	key := lockKey{sessionID: sessionID, branchID: branchID}

	b.mu.Lock()
	l, ok := b.locks[key]
	if !ok {
		l = &sync.Mutex{}
		b.locks[key] = l
	}
	b.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// evictSession drops every lock belonging to the session. Callers must only
// evict sessions that can no longer be written (deleted or reaped).
func (b *branchLocks) evictSession(sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for key := range b.locks {
		if key.sessionID == sessionID {
			delete(b.locks, key)
		}
	}
}
