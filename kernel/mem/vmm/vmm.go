// Package vmm implements 4-level x86-64 paging on top of a fixed
// physical-memory offset mapping: every physical frame, including the page
// tables themselves, is reachable at phys+PhysOffset without needing a
// recursive self-map or a temporary-mapping dance to bootstrap new tables.
package vmm

import (
	"unsafe"

	"github.com/gianndev/ParvaOS/kernel"
	"github.com/gianndev/ParvaOS/kernel/cpu"
	"github.com/gianndev/ParvaOS/kernel/mem"
)

// PhysOffset is the virtual address at which physical address 0 is mapped.
// Chosen high enough to avoid colliding with the kernel's own link address
// or the heap region.
const PhysOffset = uintptr(0xF00000000000)

const pageLevels = 4

// pageLevelShift holds, for each of the 4 levels (PML4, PDPT, PD, PT), the
// bit offset of its 9-bit index within a virtual address.
var pageLevelShift = [pageLevels]uint{39, 30, 21, 12}

const entriesPerTable = 512

var (
	// flushTLBEntryFn and activePDTFn are indirected so tests can run this
	// package's address math without trapping on real control registers.
	flushTLBEntryFn = cpu.FlushTLBEntry
	activePDTFn     = cpu.ActivePDT

	// allocFrameFn provides new physical frames for page tables created
	// on demand while walking. Overridden in tests.
	allocFrameFn = defaultAllocFrame

	// ErrInvalidMapping is returned by Unmap/Translate when no mapping
	// exists for the requested page.
	ErrInvalidMapping = &kernel.Error{Module: "vmm", Message: "no mapping for page"}

	errHugePage = &kernel.Error{Module: "vmm", Message: "huge pages are not supported"}
)

// PhysToVirt returns the address at which a physical address is reachable
// through the fixed-offset direct map.
func PhysToVirt(phys uintptr) uintptr {
	return phys + PhysOffset
}

// tableAtFn resolves a table's physical address to its contents. Overridden
// in tests, which cannot dereference the real PhysOffset-based direct map.
var tableAtFn = func(phys uintptr) *[entriesPerTable]pageTableEntry {
	return (*[entriesPerTable]pageTableEntry)(unsafe.Pointer(PhysToVirt(phys)))
}

func levelIndex(virtAddr uintptr, level int) uintptr {
	return (virtAddr >> pageLevelShift[level]) & (entriesPerTable - 1)
}

// walk locates (creating as needed) the leaf PTE for virtAddr, invoking
// visit at every level from PML4 down to the page table. visit returns
// false to abort early, in which case walk returns immediately.
func walk(virtAddr uintptr, visit func(level int, pte *pageTableEntry) bool) {
	tablePhys := activePDTFn()

	for level := 0; level < pageLevels; level++ {
		table := tableAtFn(tablePhys)
		pte := &table[levelIndex(virtAddr, level)]

		if !visit(level, pte) {
			return
		}

		if level == pageLevels-1 {
			return
		}

		tablePhys = pte.Frame()
	}
}

func clearTable(phys uintptr) {
	t := tableAtFn(phys)
	for i := range t {
		t[i] = 0
	}
}

func defaultAllocFrame() uintptr {
	panic("vmm: allocFrameFn not wired")
}

// SetFrameAllocator wires the physical frame source used to materialize
// missing intermediate page tables. Called once during bring-up with
// pmm.AllocFrame.
func SetFrameAllocator(fn func() uintptr) {
	allocFrameFn = fn
}

// Map establishes a mapping from page to frame with the given flags in the
// currently active page table, allocating any missing intermediate tables.
func Map(page Page, frame uintptr, flags PageTableEntryFlag) *kernel.Error {
	var err *kernel.Error

	walk(page.Address(), func(level int, pte *pageTableEntry) bool {
		if level == pageLevels-1 {
			*pte = 0
			pte.SetFrame(frame)
			pte.SetFlags(FlagPresent | flags)
			flushTLBEntryFn(page.Address())
			return true
		}

		if pte.HasFlags(FlagHugePage) {
			err = errHugePage
			return false
		}

		if !pte.HasFlags(FlagPresent) {
			newTable := allocFrameFn()
			clearTable(newTable)
			*pte = 0
			pte.SetFrame(newTable)
			pte.SetFlags(FlagPresent | FlagRW)
		}

		return true
	})

	return err
}

// Unmap clears a previously established mapping.
func Unmap(page Page) *kernel.Error {
	var err *kernel.Error

	walk(page.Address(), func(level int, pte *pageTableEntry) bool {
		if level == pageLevels-1 {
			if !pte.HasFlags(FlagPresent) {
				err = ErrInvalidMapping
				return false
			}
			pte.ClearFlags(FlagPresent)
			flushTLBEntryFn(page.Address())
			return true
		}

		if !pte.HasFlags(FlagPresent) {
			err = ErrInvalidMapping
			return false
		}

		if pte.HasFlags(FlagHugePage) {
			err = errHugePage
			return false
		}

		return true
	})

	return err
}

// Translate returns the physical frame a virtual page is mapped to.
func Translate(page Page) (uintptr, *kernel.Error) {
	var (
		frame uintptr
		err   = ErrInvalidMapping
	)

	walk(page.Address(), func(level int, pte *pageTableEntry) bool {
		if !pte.HasFlags(FlagPresent) {
			return false
		}

		if level == pageLevels-1 {
			frame = pte.Frame()
			err = nil
			return true
		}

		return true
	})

	return frame, err
}

// MapRegion maps a contiguous virtual range of size (in bytes) starting at
// virtAddr to a contiguous physical range starting at physAddr, one page at
// a time. Bring-up does not use it: kmain maps the heap page by page with
// Map, because pmm's frames need not be contiguous.
func MapRegion(virtAddr, physAddr uintptr, size mem.Size, flags PageTableEntryFlag) *kernel.Error {
	pages := size.Pages()
	for i := uint32(0); i < pages; i++ {
		offset := uintptr(i) * uintptr(mem.PageSize)
		if err := Map(PageFromAddress(virtAddr+offset), physAddr+offset, flags); err != nil {
			return err
		}
	}
	return nil
}
