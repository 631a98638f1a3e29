// Package irq installs the interrupt descriptor table, remaps the legacy
// 8259 PIC pair and dispatches CPU exceptions and hardware interrupts to
// registered Go handlers.
package irq

import (
	"github.com/gianndev/ParvaOS/kernel/cpu"
	"github.com/gianndev/ParvaOS/kernel/ioport"
	"github.com/gianndev/ParvaOS/kernel/kfmt/early"
)

// Regs is a snapshot of the general purpose registers at the time an
// interrupt occurred. The assembly trampolines populate this structure
// before calling into Go.
type Regs struct {
	RAX uint64
	RBX uint64
	RCX uint64
	RDX uint64
	RSI uint64
	RDI uint64
	RBP uint64
	R8  uint64
	R9  uint64
	R10 uint64
	R11 uint64
	R12 uint64
	R13 uint64
	R14 uint64
	R15 uint64
}

// Frame describes the interrupt frame the CPU pushes automatically.
type Frame struct {
	RIP    uint64
	CS     uint64
	RFlags uint64
	RSP    uint64
	SS     uint64
}

// ExceptionNum identifies one of the 32 CPU exception vectors.
type ExceptionNum uint8

const (
	DivideByZero        = ExceptionNum(0)
	NMI                  = ExceptionNum(2)
	Breakpoint           = ExceptionNum(3)
	Overflow             = ExceptionNum(4)
	BoundRangeExceeded   = ExceptionNum(5)
	InvalidOpcode        = ExceptionNum(6)
	DeviceNotAvailable   = ExceptionNum(7)
	DoubleFault          = ExceptionNum(8)
	InvalidTSS           = ExceptionNum(10)
	SegmentNotPresent    = ExceptionNum(11)
	StackSegmentFault    = ExceptionNum(12)
	GPFException         = ExceptionNum(13)
	PageFaultException   = ExceptionNum(14)
)

// IRQNum identifies one of the 16 legacy hardware interrupt lines, already
// remapped to vectors picBase..picBase+15.
type IRQNum uint8

const (
	IRQTimer    = IRQNum(0)
	IRQKeyboard = IRQNum(1)
	IRQATAPrimary   = IRQNum(14)
	IRQATASecondary = IRQNum(15)
)

const (
	pic1Command = 0x20
	pic1Data    = 0x21
	pic2Command = 0xA0
	pic2Data    = 0xA1

	picEOI = 0x20

	// picBase is the interrupt vector the master PIC's IRQ0 is remapped
	// to. Slave IRQs follow at picBase+8.
	picBase = 0x20

)

// ExceptionHandler handles an exception that does not push an error code.
type ExceptionHandler func(*Frame, *Regs)

// ExceptionHandlerWithCode handles an exception that pushes an error code.
type ExceptionHandlerWithCode func(code uint64, frame *Frame, regs *Regs)

// IRQHandler handles a hardware interrupt. The handler runs with interrupts
// disabled and must not block, allocate or touch the filesystem.
type IRQHandler func(*Regs)

var (
	exceptionHandlers         [32]ExceptionHandler
	exceptionHandlersWithCode [32]ExceptionHandlerWithCode
	irqHandlers               [16]IRQHandler
)

// hasErrorCode reports whether the CPU pushes an error code for the given
// exception vector.
func hasErrorCode(num uint8) bool {
	switch num {
	case 8, 10, 11, 12, 13, 14, 17, 21, 29, 30:
		return true
	default:
		return false
	}
}

// Init installs a kernel-owned TSS and GDT, the IDT, and remaps the PIC.
// Interrupts remain disabled on return; the caller enables them once every
// subsystem that might receive an interrupt is ready.
//
// installIDT (idt_amd64.go) installs the TSS before building the table, so
// the double fault gate can carry a nonzero IST index: double fault always
// runs on its own dedicated stack, never on whatever RSP was active when it
// fired, since a corrupted or exhausted kernel stack is exactly the kind of
// thing that causes a double fault in the first place.
func Init() {
	remapPIC()
	installIDT()
	maskAllIRQs()

	HandleException(DivideByZero, defaultExceptionHandler("divide by zero"))
	HandleException(NMI, defaultExceptionHandler("non-maskable interrupt"))
	HandleException(Overflow, defaultExceptionHandler("overflow"))
	HandleException(InvalidOpcode, defaultExceptionHandler("invalid opcode"))
	HandleException(DeviceNotAvailable, defaultExceptionHandler("device not available"))
	HandleExceptionWithCode(DoubleFault, fatalExceptionWithCode("double fault"))
	HandleExceptionWithCode(InvalidTSS, fatalExceptionWithCode("invalid TSS"))
	HandleExceptionWithCode(SegmentNotPresent, fatalExceptionWithCode("segment not present"))
	HandleExceptionWithCode(StackSegmentFault, fatalExceptionWithCode("stack segment fault"))
	HandleExceptionWithCode(GPFException, fatalExceptionWithCode("general protection fault"))
	HandleExceptionWithCode(PageFaultException, fatalPageFault)
}

// fatalPageFault logs the faulting address from CR2 alongside the usual
// exception frame before halting. There is no demand paging or copy-on-write
// in this kernel, so every page fault is fatal by construction: it always
// means an access outside the heap/identity-mapped range.
func fatalPageFault(code uint64, frame *Frame, regs *Regs) {
	logException("page fault", code, true, frame, regs)
	early.Printf("fault address (cr2): %x\n", readCR2Fn())
	cpuHaltFn()
}

func defaultExceptionHandler(name string) ExceptionHandler {
	return func(frame *Frame, regs *Regs) {
		logException(name, 0, false, frame, regs)
		cpuHaltFn()
	}
}

func fatalExceptionWithCode(name string) ExceptionHandlerWithCode {
	return func(code uint64, frame *Frame, regs *Regs) {
		logException(name, code, true, frame, regs)
		cpuHaltFn()
	}
}

func logException(name string, code uint64, hasCode bool, frame *Frame, regs *Regs) {
	early.Printf("\n*** exception: %s ***\n", name)
	if hasCode {
		early.Printf("error code: %x\n", code)
	}
	early.Printf("rip: %x cs: %x rflags: %x\n", frame.RIP, frame.CS, frame.RFlags)
	early.Printf("rsp: %x ss: %x\n", frame.RSP, frame.SS)
	early.Printf("rax: %x rbx: %x rcx: %x rdx: %x\n", regs.RAX, regs.RBX, regs.RCX, regs.RDX)
}

// cpuHaltFn is overridden by tests so exception handlers can be exercised
// without actually halting the process.
var cpuHaltFn = func() {
	for {
		cpu.Halt()
	}
}

// readCR2Fn is overridden by tests, since cpu.ReadCR2 is a real assembly
// instruction that has no meaning on the host running the test binary.
var readCR2Fn = cpu.ReadCR2

// HandleException registers a handler for an exception vector that does not
// carry an error code.
func HandleException(num ExceptionNum, handler ExceptionHandler) {
	exceptionHandlers[num] = handler
}

// HandleExceptionWithCode registers a handler for an exception vector that
// carries an error code.
func HandleExceptionWithCode(num ExceptionNum, handler ExceptionHandlerWithCode) {
	exceptionHandlersWithCode[num] = handler
}

// HandleIRQ registers a handler for one of the 16 remapped hardware
// interrupt lines and unmasks it on the PIC.
func HandleIRQ(num IRQNum, handler IRQHandler) {
	irqHandlers[num] = handler
	unmaskIRQ(uint8(num))
}

// dispatchException is called by the assembly trampolines for vectors 0-31.
func dispatchException(vec uint8, code uint64, frame *Frame, regs *Regs) {
	if hasErrorCode(vec) {
		if h := exceptionHandlersWithCode[vec]; h != nil {
			h(code, frame, regs)
			return
		}
	} else if h := exceptionHandlers[vec]; h != nil {
		h(frame, regs)
		return
	}

	logException("unhandled", code, hasErrorCode(vec), frame, regs)
	cpuHaltFn()
}

// dispatchIRQ is called by the assembly trampolines for vectors 32-47.
func dispatchIRQ(irqNum uint8, regs *Regs) {
	if h := irqHandlers[irqNum]; h != nil {
		h(regs)
	}

	sendEOI(irqNum)
}

// remapPIC reprograms the master/slave 8259 pair so IRQ0-15 land on vectors
// 0x20-0x2F instead of colliding with the CPU exception range.
func remapPIC() {
	// Save masks, issue ICW1 (cascade mode, edge triggered, needs ICW4).
	m1 := ioport.Inb(pic1Data)
	m2 := ioport.Inb(pic2Data)

	ioport.Outb(pic1Command, 0x11)
	ioport.IODelay()
	ioport.Outb(pic2Command, 0x11)
	ioport.IODelay()

	// ICW2: vector offsets.
	ioport.Outb(pic1Data, picBase)
	ioport.IODelay()
	ioport.Outb(pic2Data, picBase+8)
	ioport.IODelay()

	// ICW3: master has slave on IRQ2, slave's identity is 2.
	ioport.Outb(pic1Data, 0x04)
	ioport.IODelay()
	ioport.Outb(pic2Data, 0x02)
	ioport.IODelay()

	// ICW4: 8086 mode.
	ioport.Outb(pic1Data, 0x01)
	ioport.IODelay()
	ioport.Outb(pic2Data, 0x01)
	ioport.IODelay()

	ioport.Outb(pic1Data, m1)
	ioport.Outb(pic2Data, m2)
}

func maskAllIRQs() {
	ioport.Outb(pic1Data, 0xFF)
	ioport.Outb(pic2Data, 0xFF)
}

func unmaskIRQ(irq uint8) {
	if irq < 8 {
		mask := ioport.Inb(pic1Data)
		mask &^= 1 << irq
		ioport.Outb(pic1Data, mask)
		return
	}

	irq -= 8
	mask := ioport.Inb(pic2Data)
	mask &^= 1 << irq
	ioport.Outb(pic2Data, mask)
}

func sendEOI(irq uint8) {
	if irq >= 8 {
		ioport.Outb(pic2Command, picEOI)
	}
	ioport.Outb(pic1Command, picEOI)
}
