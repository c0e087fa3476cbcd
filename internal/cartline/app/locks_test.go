package app

import (
	"sync"
	"testing"

	identity "github.com/dwikikusuma/cartline/internal/identity/domain"
	"github.com/stretchr/testify/assert"
)

func TestLineLocksSerializeSameKey(t *testing.T) {
	l := NewLineLocks()
	id := identity.Identity{Email: "a@x.io"}

	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.Lock(id, "p-1")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
	assert.Zero(t, l.size())
}

func TestLineLocksIndependentKeys(t *testing.T) {
	l := NewLineLocks()
	a := identity.Identity{Email: "a@x.io"}
	b := identity.Identity{Email: "b@x.io"}

	unlockA := l.Lock(a, "p-1")
	// different identity, same product: must not block
	unlockB := l.Lock(b, "p-1")
	unlockC := l.Lock(a, "p-2")
	assert.Equal(t, 3, l.size())

	unlockA()
	unlockB()
	unlockC()
	assert.Zero(t, l.size())
}
