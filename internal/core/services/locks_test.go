package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBookLocks_Exclusive(t *testing.T) {
	locks := NewBookLocks()
	unlock := locks.Lock("book-1")

	acquired := make(chan struct{})
	go func() {
		release := locks.Lock("book-1")
		close(acquired)
		release()
	}()

	select {
	case <-acquired:
		t.Fatal("second holder acquired a held lock")
	case <-time.After(50 * time.Millisecond):
	}

	unlock()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("lock was not handed over after release")
	}
}

func TestBookLocks_IndependentIDs(t *testing.T) {
	locks := NewBookLocks()
	unlockA := locks.Lock("a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		locks.Lock("b")()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on b blocked behind a")
	}
}

func TestBookLocks_Cleanup(t *testing.T) {
	locks := NewBookLocks()

	unlock := locks.Lock("a")
	assert.Equal(t, 1, locks.Len())

	unlock()
	assert.Equal(t, 0, locks.Len())

	// A second call is a no-op.
	unlock()
	assert.Equal(t, 0, locks.Len())

	locks.Lock("a")()
	assert.Equal(t, 0, locks.Len())
}
