package irq

import "unsafe"

// tss is the x86-64 Task State Segment. ParvaOS never task-switches through
// it; the only field that matters is the Interrupt Stack Table, which lets
// an IDT gate force the CPU onto a known-good stack before an exception
// handler runs, regardless of what RSP held at fault time.
type tss struct {
	reserved0 uint32
	rsp       [3]uint64
	reserved1 uint64
	ist       [7]uint64
	reserved2 uint64
	reserved3 uint16
	ioMapBase uint16
}

// gdtEntry is one 8-byte slot of a GDT. A TSS descriptor needs a 64-bit
// base address, so it occupies two consecutive slots; a code/data
// descriptor only ever uses the low one.
type gdtEntry uint64

const (
	// doubleFaultISTIndex is the IST slot (1-7) double fault's gate uses.
	// Index 1 selects tss.ist[0].
	doubleFaultISTIndex = 1

	// istStackSize is generous for a handler that only logs the fault and
	// halts; there is no recursive work done on it.
	istStackSize = 8192

	// Segment descriptor access-byte bits (Intel SDM Vol. 3A, 3.4.5).
	segAccessPresent      = 1 << 7
	segAccessCodeOrData   = 1 << 4 // S bit: 1 = code/data, 0 = system segment
	segTypeCodeExecRead   = 0xA
	segTypeTSSAvailable64 = 0x9

	// segFlagLongMode is bit 1 of the 4-bit flags nibble (G, D/B, L, AVL).
	segFlagLongMode = 1 << 1

	// tssSelector indexes kernelGDT[2:4], the two slots the TSS descriptor
	// occupies; RPL and table indicator are both 0.
	tssSelector = 2 * 8
)

// doubleFaultStack backs IST1. Double fault is the one exception that can
// legitimately fire with an already corrupted or exhausted kernel stack, so
// it needs a stack the CPU switches to automatically rather than one
// inherited from whatever was running at fault time.
var doubleFaultStack [istStackSize]byte

var kernelTSS tss

// kernelGDT holds a null descriptor, a flat 64-bit ring-0 code segment at
// the same selector value (codeSelector) the existing IDT gates already
// reference, and a TSS descriptor. It is a GDT this package owns end to
// end, entirely separate from whatever table the rt0 bootstrap installed,
// so double-fault IST support does not depend on rt0's layout.
var kernelGDT [4]gdtEntry

// installTSS builds a minimal TSS whose IST1 entry points at the top of
// doubleFaultStack, installs a kernel-owned GDT containing that TSS plus a
// code segment matching codeSelector, and loads both with LGDT/LTR. Called
// once from Init before the double fault gate is installed with an IST
// index.
func installTSS() {
	top := uintptr(unsafe.Pointer(&doubleFaultStack[0])) + istStackSize
	kernelTSS.ist[doubleFaultISTIndex-1] = uint64(top)

	kernelGDT[0] = 0
	kernelGDT[1] = flatCodeDescriptor()
	kernelGDT[2], kernelGDT[3] = tssDescriptor(uintptr(unsafe.Pointer(&kernelTSS)), uint32(unsafe.Sizeof(kernelTSS))-1)

	limit := uint16(len(kernelGDT)*8 - 1)
	base := uintptr(unsafe.Pointer(&kernelGDT[0]))
	lgdt(limit, base)
	ltr(tssSelector)
}

// flatCodeDescriptor reproduces the flat, 64-bit, ring-0 code segment
// descriptor the existing IDT gates assume lives at selector codeSelector:
// base and limit are ignored by the CPU for code segments in long mode.
func flatCodeDescriptor() gdtEntry {
	lo, _ := makeDescriptor(0, 0, segAccessPresent|segAccessCodeOrData|segTypeCodeExecRead, segFlagLongMode)
	return lo
}

// tssDescriptor builds the two 8-byte halves of a 64-bit system-segment
// descriptor for a TSS at base with the given byte limit.
func tssDescriptor(base uintptr, limit uint32) (lo, hi gdtEntry) {
	return makeDescriptor(uint64(base), limit, segAccessPresent|segTypeTSSAvailable64, 0)
}

// makeDescriptor packs a GDT descriptor's two 8-byte halves. hi is only
// meaningful for system-segment descriptors (like a TSS), which need the
// upper 32 bits of a 64-bit base; code/data descriptors leave it zero.
func makeDescriptor(base uint64, limit uint32, access, flags byte) (lo, hi gdtEntry) {
	l := uint64(limit)
	lo = gdtEntry(
		l&0xFFFF |
			(base&0xFFFFFF)<<16 |
			uint64(access)<<40 |
			((l>>16)&0xF)<<48 |
			uint64(flags&0xF)<<52 |
			((base>>24)&0xFF)<<56,
	)
	hi = gdtEntry(base >> 32)
	return lo, hi
}

// lgdt loads the GDT register from the given limit/base pair. CS is not
// reloaded: the running code segment's cached descriptor state stays valid
// until the next segment load, and the next interrupt to fire will load CS
// from the IDT gate's selector against this new table, which carries the
// same flat code descriptor at the same selector value.
func lgdt(limit uint16, base uintptr)

// ltr loads the task register with a GDT selector pointing at a TSS
// descriptor.
func ltr(selector uint16)
