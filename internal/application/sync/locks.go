package sync

import "sync"

// pairLocks hands out one mutex per (entity, integration) pair so concurrent
// workers never interleave the remote call and the mapping update for the
// same pair. Entries are reference counted and dropped when idle.
type pairLocks struct {
	mu    sync.Mutex
	locks map[string]*pairLock
}

type pairLock struct {
	mu   sync.Mutex
	refs int
}

func newPairLocks() *pairLocks {
	return &pairLocks{locks: make(map[string]*pairLock)}
}

// lock acquires the mutex for key and returns its release function.
func (l *pairLocks) lock(key string) func() {
	l.mu.Lock()
	entry, ok := l.locks[key]
	if !ok {
		entry = &pairLock{}
		l.locks[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}
