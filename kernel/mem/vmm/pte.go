package vmm

import "github.com/gianndev/ParvaOS/kernel/mem"

// pageTableEntry is a single 64-bit entry in any of the four paging levels.
type pageTableEntry uint64

// PageTableEntryFlag describes one of the bit flags that can be set on a
// pageTableEntry.
type PageTableEntryFlag uint64

const (
	FlagPresent PageTableEntryFlag = 1 << 0
	FlagRW      PageTableEntryFlag = 1 << 1
	FlagUser    PageTableEntryFlag = 1 << 2
	FlagHugePage PageTableEntryFlag = 1 << 7
	FlagNoExecute PageTableEntryFlag = 1 << 63

	// frameAddrMask isolates the physical frame address bits (51:12),
	// stripping both the low flag bits and the NX bit at 63.
	frameAddrMask = pageTableEntry(0x000FFFFFFFFFF000)
)

// SetFlags ORs the given flags into the entry, leaving the frame untouched.
func (pte *pageTableEntry) SetFlags(flags PageTableEntryFlag) {
	*pte |= pageTableEntry(flags)
}

// ClearFlags clears the given flags, leaving the frame untouched.
func (pte *pageTableEntry) ClearFlags(flags PageTableEntryFlag) {
	*pte &^= pageTableEntry(flags)
}

// HasFlags reports whether all of the given flags are set.
func (pte pageTableEntry) HasFlags(flags PageTableEntryFlag) bool {
	return pageTableEntry(flags)&pte == pageTableEntry(flags)
}

// SetFrame points the entry at the given physical frame address.
func (pte *pageTableEntry) SetFrame(frameAddr uintptr) {
	*pte = (*pte &^ frameAddrMask) | (pageTableEntry(frameAddr) & frameAddrMask)
}

// Frame returns the physical frame address this entry points to.
func (pte pageTableEntry) Frame() uintptr {
	return uintptr(pte & frameAddrMask)
}

// Page describes a virtual memory page index.
type Page uintptr

// Address returns the virtual address at the start of this page.
func (p Page) Address() uintptr {
	return uintptr(p) << mem.PageShift
}

// PageFromAddress rounds virtAddr down to the page that contains it.
func PageFromAddress(virtAddr uintptr) Page {
	return Page((virtAddr &^ (uintptr(mem.PageSize) - 1)) >> mem.PageShift)
}
