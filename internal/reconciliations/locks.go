package reconciliations

import (
	"sync"

	"github.com/google/uuid"
)

// keyedLocks serializes writers per reconciliation id within the process.
// Entries are removed once no goroutine holds or waits on them.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*keyedLock
}

type keyedLock struct {
	sync.Mutex
	refs int
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{locks: make(map[uuid.UUID]*keyedLock)}
}

// Lock acquires the lock for id and returns its release function.
func (k *keyedLocks) Lock(id uuid.UUID) func() {
	k.mu.Lock()
	l, ok := k.locks[id]
	if !ok {
		l = &keyedLock{}
		k.locks[id] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()

	return func() {
		l.Unlock()

		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, id)
		}
		k.mu.Unlock()
	}
}
