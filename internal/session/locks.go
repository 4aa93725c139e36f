package session

import "sync"

// Locks serializes the requests of one session so each request sees the
// state saved by the previous one.
type Locks struct {
	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func NewLocks() *Locks {
	return &Locks{locks: make(map[string]*sessionLock)}
}

// Lock blocks until no other request of session id holds the lock and
// returns the func that releases it.
func (l *Locks) Lock(id string) (unlock func()) {
	l.mu.Lock()
	sl, ok := l.locks[id]
	if !ok {
		sl = &sessionLock{}
		l.locks[id] = sl
	}
	sl.refs++
	l.mu.Unlock()

	sl.mu.Lock()
	return func() {
		sl.mu.Unlock()

		l.mu.Lock()
		defer l.mu.Unlock()
		if sl.refs--; sl.refs == 0 {
			delete(l.locks, id)
		}
	}
}

// Len returns the number of sessions holding or waiting for a lock.
func (l *Locks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
