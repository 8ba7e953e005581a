package sync

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPairLocksSerializeSameKey(t *testing.T) {
	locks := newPairLocks()

	const workers = 50
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.lock("item|integration")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, workers, counter)
	locks.mu.Lock()
	assert.Empty(t, locks.locks, "idle entries are dropped")
	locks.mu.Unlock()
}

func TestPairLocksDifferentKeysDoNotBlock(t *testing.T) {
	locks := newPairLocks()

	unlockA := locks.lock("a|x")
	done := make(chan struct{})
	go func() {
		unlockB := locks.lock("b|x")
		unlockB()
		close(done)
	}()
	<-done
	unlockA()
}
