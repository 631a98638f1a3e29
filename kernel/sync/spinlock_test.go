package sync

import (
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSpinlockAcquireReleaseRoundTrip(t *testing.T) {
	var sl Spinlock

	assert.True(t, sl.TryToAcquire())
	assert.False(t, sl.TryToAcquire())

	sl.Release()
	assert.True(t, sl.TryToAcquire())
	sl.Release()
}

func TestSpinlockAcquireBlocksUntilReleased(t *testing.T) {
	defer func(orig func()) { yieldFn = orig }(yieldFn)
	yieldFn = runtime.Gosched

	var (
		sl         Spinlock
		wg         sync.WaitGroup
		numWorkers = 10
	)

	sl.Acquire()

	wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go func() {
			sl.Acquire()
			sl.Release()
			wg.Done()
		}()
	}

	<-time.After(50 * time.Millisecond)
	sl.Release()
	wg.Wait()
}

func TestSpinlockAcquireSpinsWithoutYieldFunc(t *testing.T) {
	var sl Spinlock

	sl.Acquire()
	sl.Release()
	sl.Acquire()

	assert.False(t, sl.TryToAcquire())
	sl.Release()
}
