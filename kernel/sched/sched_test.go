package sched

import (
	"testing"
	"unsafe"

	"github.com/gianndev/ParvaOS/kernel/mem/heap"
	"github.com/stretchr/testify/assert"
)

func resetState() {
	tasks = [maxTasks]task{}
	lastRun = -1
	current = -1
	schedSP = 0
	tickSeen = 0
}

func newTestHeap(t *testing.T, size uintptr) {
	backing := make([]byte, size+16)
	start := (uintptr(unsafe.Pointer(&backing[0])) + 15) &^ 15
	heap.Init(start, size)
	t.Cleanup(func() { _ = backing })
}

func TestSpawnFillsTableThenFails(t *testing.T) {
	resetState()
	newTestHeap(t, 1<<20)

	for i := 0; i < maxTasks; i++ {
		id, err := Spawn(func() { YieldNow() })
		assert.Nil(t, err)
		assert.Equal(t, i, id)
	}

	_, err := Spawn(func() {})
	assert.Equal(t, ErrTableFull, err)
}

func TestSingleTaskRunsToCompletion(t *testing.T) {
	resetState()
	newTestHeap(t, 1<<20)

	ran := false
	_, err := Spawn(func() {
		ran = true
	})
	assert.Nil(t, err)

	assert.True(t, runOnce())
	assert.True(t, ran)
	assert.Equal(t, StateDone, tasks[0].state)

	// A second scheduling pass has nothing Ready left to run.
	assert.False(t, runOnce())
}

func TestYieldReturnsControlToScheduler(t *testing.T) {
	resetState()
	newTestHeap(t, 1<<20)

	steps := 0
	_, err := Spawn(func() {
		steps++
		YieldNow()
		steps++
		YieldNow()
		steps++
	})
	assert.Nil(t, err)

	assert.True(t, runOnce())
	assert.Equal(t, 1, steps)
	assert.Equal(t, StateReady, tasks[0].state)

	assert.True(t, runOnce())
	assert.Equal(t, 2, steps)

	assert.True(t, runOnce())
	assert.Equal(t, 3, steps)
	assert.Equal(t, StateDone, tasks[0].state)
}

// TestCooperativeFairness exercises the testable property from the
// scheduler design: with two Ready tasks that each yield N times, after
// round-robin scheduling both have executed the same number of iterations.
func TestCooperativeFairness(t *testing.T) {
	resetState()
	newTestHeap(t, 1<<20)

	const rounds = 20
	countA, countB := 0, 0

	_, err := Spawn(func() {
		for i := 0; i < rounds; i++ {
			countA++
			YieldNow()
		}
	})
	assert.Nil(t, err)

	_, err = Spawn(func() {
		for i := 0; i < rounds; i++ {
			countB++
			YieldNow()
		}
	})
	assert.Nil(t, err)

	for runOnce() {
	}

	assert.Equal(t, rounds, countA)
	assert.Equal(t, rounds, countB)
	assert.LessOrEqual(t, abs(countA-countB), 1)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func TestStackReuseAfterCompletion(t *testing.T) {
	resetState()
	newTestHeap(t, 1<<20)

	_, err := Spawn(func() {})
	assert.Nil(t, err)
	firstBase := tasks[0].stackBase
	assert.True(t, runOnce())
	assert.Equal(t, StateDone, tasks[0].state)

	id, err := Spawn(func() {})
	assert.Nil(t, err)
	assert.Equal(t, 0, id, "expected the Done slot to be recycled")
	assert.Equal(t, firstBase, tasks[0].stackBase, "expected the old stack allocation to be reused")
}

func TestTicksAccumulate(t *testing.T) {
	resetState()

	Tick()
	Tick()
	Tick()

	assert.EqualValues(t, 3, Ticks())
}
