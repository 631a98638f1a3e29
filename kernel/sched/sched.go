// Package sched implements a fixed-capacity, cooperative task table. Tasks
// are plain stackful contexts switched with switchTo; there is no
// preemption and no async runtime underneath it, matching a kernel with one
// real CPU and no privilege separation.
package sched

import (
	"unsafe"

	"github.com/gianndev/ParvaOS/kernel"
	"github.com/gianndev/ParvaOS/kernel/cpu"
	"github.com/gianndev/ParvaOS/kernel/mem/heap"
)

const (
	maxTasks  = 16
	stackSize = 16 * 1024
)

// State is a task's position in its lifecycle.
type State uint8

const (
	StateEmpty State = iota
	StateReady
	StateRunning
	StateDone
)

type task struct {
	state     State
	sp        uintptr
	stackBase uintptr
	entry     func()
}

var (
	tasks    [maxTasks]task
	lastRun  = -1
	current  = -1 // index of the Running task; -1 while in the scheduler/idle context
	schedSP  uintptr
	tickSeen uint64

	// ErrTableFull is returned by Spawn when all task slots are occupied.
	ErrTableFull = &kernel.Error{Module: "sched", Message: "task table full"}
)

// funcPC extracts the code address of a Go function value, the same trick
// used by irq to build IDT gate targets: a func value's first machine word
// is a pointer to its code.
func funcPC(fn func()) uintptr {
	return **(**uintptr)(unsafe.Pointer(&fn))
}

// Spawn allocates a stack from the kernel heap and installs entry as a new
// Ready task. The stack, like every other kernel heap allocation made at
// bring-up, is never freed back to the OS-wide pool even after the task
// finishes; it is recycled into the next Spawn that reuses this slot.
func Spawn(entry func()) (int, *kernel.Error) {
	for i := range tasks {
		if tasks[i].state != StateEmpty && tasks[i].state != StateDone {
			continue
		}

		base := tasks[i].stackBase
		if base == 0 {
			base = uintptr(heap.Alloc(stackSize, 16))
		}

		tasks[i] = task{
			state:     StateReady,
			sp:        initialSP(base, entry),
			stackBase: base,
			entry:     entry,
		}
		return i, nil
	}

	return -1, ErrTableFull
}

// initialSP lays out a fake switchTo frame at the top of [base, base+stackSize)
// so that the first switch into this task lands on taskTrampoline with a
// stack it has never actually run on.
func initialSP(base uintptr, entry func()) uintptr {
	top := base + stackSize
	frameAddr := top - 7*unsafe.Sizeof(uintptr(0))
	frame := (*[7]uintptr)(unsafe.Pointer(frameAddr))

	frame[0] = 0 // R15
	frame[1] = 0 // R14
	frame[2] = 0 // R13
	frame[3] = 0 // R12
	frame[4] = 0 // BX
	frame[5] = 0 // BP
	frame[6] = funcPC(taskTrampoline)

	return frameAddr
}

// taskTrampoline is the landing pad every freshly spawned task's stack is
// rigged to "return" into. It runs the task's entry function to completion,
// marks the slot Done, and yields one last time so the scheduler reclaims
// control; Run never switches back into a Done task, so execution never
// resumes past the final YieldNow call.
func taskTrampoline() {
	id := current
	tasks[id].entry()
	tasks[id].state = StateDone
	YieldNow()

	// Unreachable: Run only switches into Ready tasks.
	for {
		cpu.Halt()
	}
}

// YieldNow suspends the calling task and returns control to the scheduler
// loop in Run. It is the only point at which a context switch away from a
// task can occur; there is no preemption.
func YieldNow() {
	if current == -1 {
		return
	}

	id := current
	if tasks[id].state == StateRunning {
		tasks[id].state = StateReady
	}
	switchTo(&tasks[id].sp, schedSP)
}

// Tick is called from the timer IRQ handler on every PIT interrupt. It only
// records that a tick occurred; per the cooperative model, IRQs never force
// a context switch.
func Tick() {
	tickSeen++
}

// Ticks reports how many timer ticks the scheduler has observed.
func Ticks() uint64 {
	return tickSeen
}

// pickNext returns the next Ready task after lastRun in round-robin order,
// or -1 if none is Ready.
func pickNext() int {
	for i := 1; i <= maxTasks; i++ {
		idx := (lastRun + i) % maxTasks
		if tasks[idx].state == StateReady {
			return idx
		}
	}
	return -1
}

// runOnce switches into the next Ready task, if any, and returns once that
// task yields or finishes. It reports whether a task was found.
func runOnce() bool {
	next := pickNext()
	if next == -1 {
		return false
	}

	lastRun = next
	current = next
	tasks[next].state = StateRunning
	switchTo(&schedSP, tasks[next].sp)
	current = -1
	return true
}

// Run is the idle/scheduler loop. It is called once, after bring-up, and
// never returns: it repeatedly switches into the next Ready task and, when
// none is Ready, halts the CPU with interrupts enabled until the next
// interrupt (timer or keyboard) wakes it to re-check the table.
func Run() {
	for {
		if !runOnce() {
			cpu.EnableInterrupts()
			cpu.Halt()
		}
	}
}

// Count returns the number of non-empty task slots, for diagnostics.
func Count() int {
	n := 0
	for i := range tasks {
		if tasks[i].state != StateEmpty {
			n++
		}
	}
	return n
}
