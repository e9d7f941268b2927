package locks

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLockSerializesSameKey(t *testing.T) {
	k := NewKeyed()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			k.Lock(7)
			counter++
			k.Unlock(7)
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, counter)
}

func TestDifferentKeysDoNotBlock(t *testing.T) {
	k := NewKeyed()

	k.Lock(1)
	done := make(chan struct{})
	go func() {
		k.Lock(2)
		k.Unlock(2)
		close(done)
	}()
	<-done
	k.Unlock(1)
}

func TestUnlockUnheldKeyPanics(t *testing.T) {
	k := NewKeyed()
	assert.Panics(t, func() { k.Unlock(9) })
}

func TestEntriesAreReclaimed(t *testing.T) {
	k := NewKeyed()
	k.Lock(3)
	k.Unlock(3)

	k.mu.Lock()
	defer k.mu.Unlock()
	assert.Empty(t, k.entries)
}
