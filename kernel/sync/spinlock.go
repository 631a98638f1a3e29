// Package sync provides synchronization primitives for code shared across
// the cooperative task table, where "concurrent" means "another task will
// run on this same CPU the next time someone yields", not true parallelism.
package sync

import "sync/atomic"

// Spinlock implements a lock where each task trying to acquire it busy-waits
// until the lock becomes available. Acquire never blocks the CPU outright:
// it calls the package's yield hook between attempts so a holder running as
// another cooperative task gets a chance to run and release it.
type Spinlock struct {
	state uint32
}

// SetYieldFunc wires the cooperative yield called between failed acquire
// attempts. Left nil before the scheduler comes up, in which case Acquire
// degenerates to a plain busy spin.
func SetYieldFunc(fn func()) {
	yieldFn = fn
}

var yieldFn func()

// Acquire blocks until the lock can be acquired by the currently active
// task. Any attempt to re-acquire a lock already held by the current task
// will deadlock.
func (l *Spinlock) Acquire() {
	for !l.TryToAcquire() {
		if yieldFn != nil {
			yieldFn()
		}
	}
}

// TryToAcquire attempts to acquire the lock and returns true if the lock
// could be acquired or false otherwise.
func (l *Spinlock) TryToAcquire() bool {
	return atomic.SwapUint32(&l.state, 1) == 0
}

// Release relinquishes a held lock, allowing other tasks to acquire it.
// Calling Release while the lock is free has no effect.
func (l *Spinlock) Release() {
	atomic.StoreUint32(&l.state, 0)
}
