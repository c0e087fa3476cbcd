package app

import (
	"sync"

	identity "github.com/dwikikusuma/cartline/internal/identity/domain"
)

// LineLocks hands out one mutex per (identity, product id) pair. Entries are
// reference counted and dropped once no operation holds or waits on them.
type LineLocks struct {
	mu    sync.Mutex
	locks map[string]*lineLock
}

type lineLock struct {
	mu   sync.Mutex
	refs int
}

func NewLineLocks() *LineLocks {
	return &LineLocks{locks: make(map[string]*lineLock)}
}

// Lock blocks until the pair is free and returns its release func.
func (l *LineLocks) Lock(id identity.Identity, productID string) func() {
	key := id.PartitionKey() + "\x00" + productID

	l.mu.Lock()
	ll, ok := l.locks[key]
	if !ok {
		ll = &lineLock{}
		l.locks[key] = ll
	}
	ll.refs++
	l.mu.Unlock()

	ll.mu.Lock()

	return func() {
		ll.mu.Unlock()

		l.mu.Lock()
		ll.refs--
		if ll.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}

func (l *LineLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
