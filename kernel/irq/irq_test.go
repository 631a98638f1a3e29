package irq

import (
	"testing"

	"github.com/gianndev/ParvaOS/kernel/hal"
	"github.com/gianndev/ParvaOS/kernel/kfmt/early"
	"github.com/stretchr/testify/assert"
)

// resetHandlers clears the dispatch tables so tests do not leak handlers
// into each other, and restores cpuHaltFn/readCR2Fn afterwards. It never
// calls Init: remapPIC and installIDT issue real port I/O and LIDT
// instructions that have no meaning on the host running the test binary.
// The active terminal is attached to an in-memory console so that the
// handlers' log output has somewhere to go.
func resetHandlers(t *testing.T) *bool {
	t.Helper()

	hal.TextConsole().SetBackingStore(make([]uint16, 80*25))
	hal.InitTerminal()

	exceptionHandlers = [32]ExceptionHandler{}
	exceptionHandlersWithCode = [32]ExceptionHandlerWithCode{}

	halted := false
	prevHalt, prevCR2 := cpuHaltFn, readCR2Fn
	prevSerial := early.SerialWriteByteFn
	cpuHaltFn = func() { halted = true }
	readCR2Fn = func() uintptr { return 0xDEADBEEF }
	early.SerialWriteByteFn = func(byte) error { return nil }

	t.Cleanup(func() {
		cpuHaltFn = prevHalt
		readCR2Fn = prevCR2
		early.SerialWriteByteFn = prevSerial
	})

	return &halted
}

func TestFatalPageFaultLogsAndHalts(t *testing.T) {
	halted := resetHandlers(t)
	HandleExceptionWithCode(PageFaultException, fatalPageFault)

	dispatchException(uint8(PageFaultException), 0x2, &Frame{RIP: 0x1000}, &Regs{})

	assert.True(t, *halted, "expected a page fault to halt the CPU")
}

func TestDispatchExceptionFallsBackToUnhandledLogAndHalt(t *testing.T) {
	// A vector nothing has registered a handler for still needs to halt
	// rather than silently returning into unknown state.
	halted := resetHandlers(t)

	dispatchException(uint8(Breakpoint), 0, &Frame{}, &Regs{})

	assert.True(t, *halted)
}

func TestDispatchExceptionWithCodeRoutesToRegisteredHandler(t *testing.T) {
	resetHandlers(t)

	var gotCode uint64
	HandleExceptionWithCode(GPFException, func(code uint64, _ *Frame, _ *Regs) {
		gotCode = code
	})

	dispatchException(uint8(GPFException), 0x42, &Frame{}, &Regs{})

	assert.EqualValues(t, 0x42, gotCode)
}

func TestDispatchExceptionRoutesToRegisteredHandler(t *testing.T) {
	resetHandlers(t)

	called := false
	HandleException(DivideByZero, func(_ *Frame, _ *Regs) {
		called = true
	})

	dispatchException(uint8(DivideByZero), 0, &Frame{}, &Regs{})

	assert.True(t, called)
}

func TestHasErrorCode(t *testing.T) {
	assert.True(t, hasErrorCode(uint8(PageFaultException)))
	assert.True(t, hasErrorCode(uint8(GPFException)))
	assert.False(t, hasErrorCode(uint8(DivideByZero)))
	assert.False(t, hasErrorCode(uint8(Breakpoint)))
}
