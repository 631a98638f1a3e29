package irq

import "unsafe"

// idtEntry is the on-disk layout of a long-mode interrupt gate descriptor.
// ist occupies the low 3 bits of what the SDM calls byte 4 of the
// descriptor (the rest of that byte must be zero); typeAttr is byte 5
// (present, DPL, gate type). They are declared as one uint16 field so the
// zero-IST common case (every gate but double fault) can still be built
// with a single OR, the way the rest of this file's bit-packing works.
type idtEntry struct {
	offsetLow  uint16
	selector   uint16
	flags      uint16
	offsetMid  uint16
	offsetHigh uint32
	reserved   uint32
}

const (
	gateTypeInterrupt = 0xE
	gatePresent       = 1 << 15

	// codeSelector is the flat 64-bit code segment selector every IDT gate
	// references. installTSS (tss_amd64.go) installs a kernel-owned GDT
	// that carries a matching code descriptor at this same selector value,
	// so gates keep working once that GDT replaces rt0's.
	codeSelector = 0x08
)

var idt [48]idtEntry

// makeGate builds a gate descriptor for handler. ist is the Interrupt
// Stack Table index (0-7) the CPU should switch to before running the
// handler; 0 means "no stack switch, use whatever RSP was active".
func makeGate(handler uintptr, ist uint8) idtEntry {
	return idtEntry{
		offsetLow:  uint16(handler),
		selector:   codeSelector,
		flags:      uint16(ist&0x7) | gatePresent | (gateTypeInterrupt << 8),
		offsetMid:  uint16(handler >> 16),
		offsetHigh: uint32(handler >> 32),
	}
}

// installIDT builds the 48-entry IDT (32 exceptions + 16 IRQs) and loads it
// with LIDT. Entries beyond vector 47 are left absent; a stray interrupt
// there would fault, which is preferable to silently ignoring it. Double
// fault (vector 8) is the only gate with a nonzero IST index: it always
// runs on the dedicated stack installTSS sets up, since it is the one
// exception that can legitimately fire with the current kernel stack
// already corrupted or exhausted.
func installIDT() {
	installTSS()

	for i, addr := range exceptionTrampolines {
		ist := uint8(0)
		if ExceptionNum(i) == DoubleFault {
			ist = doubleFaultISTIndex
		}
		idt[i] = makeGate(addr, ist)
	}
	for i, addr := range irqTrampolines {
		idt[32+i] = makeGate(addr, 0)
	}

	limit := uint16(len(idt)*16 - 1)
	base := uintptr(unsafe.Pointer(&idt[0]))
	lidt(limit, base)
}

// lidt loads the IDT register from the given limit/base pair.
func lidt(limit uint16, base uintptr)

// exceptionTrampolines and irqTrampolines hold the entry point of each
// assembly stub, populated by their respective .s definitions via
// go:linkname-free forward declarations resolved at link time.
var exceptionTrampolines = [32]uintptr{
	funcPC(isr0), funcPC(isr1), funcPC(isr2), funcPC(isr3),
	funcPC(isr4), funcPC(isr5), funcPC(isr6), funcPC(isr7),
	funcPC(isr8), funcPC(isr9), funcPC(isr10), funcPC(isr11),
	funcPC(isr12), funcPC(isr13), funcPC(isr14), funcPC(isr15),
	funcPC(isr16), funcPC(isr17), funcPC(isr18), funcPC(isr19),
	funcPC(isr20), funcPC(isr21), funcPC(isr22), funcPC(isr23),
	funcPC(isr24), funcPC(isr25), funcPC(isr26), funcPC(isr27),
	funcPC(isr28), funcPC(isr29), funcPC(isr30), funcPC(isr31),
}

var irqTrampolines = [16]uintptr{
	funcPC(irq0), funcPC(irq1), funcPC(irq2), funcPC(irq3),
	funcPC(irq4), funcPC(irq5), funcPC(irq6), funcPC(irq7),
	funcPC(irq8), funcPC(irq9), funcPC(irq10), funcPC(irq11),
	funcPC(irq12), funcPC(irq13), funcPC(irq14), funcPC(irq15),
}

// funcPC extracts the code address of a Go-declared assembly
// function so it can be stored as a raw IDT gate target.
func funcPC(fn func()) uintptr {
	return **(**uintptr)(unsafe.Pointer(&fn))
}

func isr0()
func isr1()
func isr2()
func isr3()
func isr4()
func isr5()
func isr6()
func isr7()
func isr8()
func isr9()
func isr10()
func isr11()
func isr12()
func isr13()
func isr14()
func isr15()
func isr16()
func isr17()
func isr18()
func isr19()
func isr20()
func isr21()
func isr22()
func isr23()
func isr24()
func isr25()
func isr26()
func isr27()
func isr28()
func isr29()
func isr30()
func isr31()

func irq0()
func irq1()
func irq2()
func irq3()
func irq4()
func irq5()
func irq6()
func irq7()
func irq8()
func irq9()
func irq10()
func irq11()
func irq12()
func irq13()
func irq14()
func irq15()

// commonExceptionStub and commonIRQStub are the landing pads the assembly
// trampolines call into after saving registers. They reconstruct the Go
// values dispatchException/dispatchIRQ expect from the raw stack layout the
// CPU and the trampoline built.
func commonExceptionStub(vec uint8, code uint64, regsPtr, framePtr uintptr) {
	dispatchException(vec, code, (*Frame)(unsafe.Pointer(framePtr)), (*Regs)(unsafe.Pointer(regsPtr)))
}

func commonIRQStub(irqNum uint8, regsPtr uintptr) {
	dispatchIRQ(irqNum, (*Regs)(unsafe.Pointer(regsPtr)))
}
