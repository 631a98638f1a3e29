// Package cpu provides low-level, architecture-specific primitives that Go
// cannot express directly: interrupt masking, halting, TLB control, and
// control-register access.
package cpu

// EnableInterrupts enables interrupt handling.
func EnableInterrupts()

// DisableInterrupts disables interrupt handling.
func DisableInterrupts()

// Halt stops instruction execution until the next interrupt arrives.
func Halt()

// FlushTLBEntry flushes a TLB entry for a particular virtual address.
func FlushTLBEntry(virtAddr uintptr)

// SwitchPDT sets the root page table directory to point to the specified
// physical address and flushes the TLB.
func SwitchPDT(pdtPhysAddr uintptr)

// ActivePDT returns the physical address of the currently active page table,
// read out of CR3.
func ActivePDT() uintptr

// ReadCR2 returns the contents of CR2, the register the CPU populates with
// the faulting address whenever a page fault occurs.
func ReadCR2() uintptr
