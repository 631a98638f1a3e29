package kernel

import (
	"github.com/gianndev/ParvaOS/kernel/cpu"
	"github.com/gianndev/ParvaOS/kernel/kfmt/early"
)

var (
	// cpuHaltFn is mocked by tests and is automatically inlined by the compiler.
	cpuHaltFn = cpu.Halt

	// cpuDisableInterruptsFn is mocked by tests for the same reason.
	cpuDisableInterruptsFn = cpu.DisableInterrupts

	errRuntimePanic = &Error{Module: "rt", Message: "unknown cause"}
)

// Panic outputs the supplied error (if not nil) to the console and halts the
// CPU. Calls to Panic never return. Panic also works as a redirection target
// for calls to panic() (resolved via runtime.gopanic)
//
// kmain.Kmain enables interrupts globally once the shell task is spawned, so
// by the time anything reaches Panic, IRQ0/IRQ1 are live: a bare HLT with
// IF=1 is woken by the next timer tick and execution falls back into
// whatever called Panic, which is never safe once the console has already
// printed "system halted". Interrupts are disabled first so the final HLT
// parks the CPU for good.
//go:redirect-from runtime.gopanic
func Panic(e interface{}) {
	var err *Error

	switch t := e.(type) {
	case *Error:
		err = t
	case string:
		panicString(t)
		return
	case error:
		errRuntimePanic.Message = t.Error()
		err = errRuntimePanic
	}

	early.Printf("\n-----------------------------------\n")
	if err != nil {
		early.Printf("[%s] unrecoverable error: %s\n", err.Module, err.Message)
	}
	early.Printf("*** kernel panic: system halted ***")
	early.Printf("\n-----------------------------------\n")

	cpuDisableInterruptsFn()
	cpuHaltFn()
}

// panicString serves as a redirect target for runtime.throw
//go:redirect-from runtime.throw
func panicString(msg string) {
	errRuntimePanic.Message = msg
	Panic(errRuntimePanic)
}
