package services

import "sync"

// BookLocks hands out one exclusive lock per book ID. Entries are
// dropped once nobody holds or waits for them.
type BookLocks struct {
	mu    sync.Mutex
	locks map[string]*bookLock
}

type bookLock struct {
	mu   sync.Mutex
	refs int
}

// NewBookLocks creates an empty lock table.
func NewBookLocks() *BookLocks {
	return &BookLocks{locks: make(map[string]*bookLock)}
}

// Lock blocks until the caller holds id's lock and returns its release
// function.
func (l *BookLocks) Lock(id string) (unlock func()) {
	l.mu.Lock()
	lock, ok := l.locks[id]
	if !ok {
		lock = &bookLock{}
		l.locks[id] = lock
	}
	lock.refs++
	l.mu.Unlock()

	lock.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			lock.mu.Unlock()
			l.mu.Lock()
			lock.refs--
			if lock.refs == 0 {
				delete(l.locks, id)
			}
			l.mu.Unlock()
		})
	}
}

// Len returns the number of IDs currently locked or awaited.
func (l *BookLocks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
