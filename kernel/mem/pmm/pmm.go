// Package pmm implements the physical frame allocator: a cursor over the
// bootloader-supplied usable memory regions. Frames are handed out
// monotonically and are never reclaimed, which is sufficient for a kernel
// that never tears down address spaces.
package pmm

import (
	"github.com/gianndev/ParvaOS/kernel/hal/multiboot"
	"github.com/gianndev/ParvaOS/kernel/mem"
)

// region is a usable physical range collected during Init.
type region struct {
	start, end uintptr // end is exclusive
}

const maxRegions = 32

var (
	regions    [maxRegions]region
	numRegions int

	curRegion int
	cursor    uintptr

	// reservedBelow excludes addresses below this physical address from
	// allocation, keeping the frame allocator from handing out memory
	// still used by the bootloader, kernel image or BIOS data area.
	reservedBelow uintptr
)

// Init scans the multiboot memory map for available regions at or above
// reserveBelow, rounding each region's bounds to frame boundaries.
func Init(reserveBelow uintptr) {
	reservedBelow = reserveBelow
	numRegions = 0

	multiboot.VisitMemRegions(func(entry *multiboot.MemoryMapEntry) bool {
		if entry.Type != multiboot.MemAvailable || numRegions >= maxRegions {
			return true
		}

		start := uintptr(entry.PhysAddress)
		end := start + uintptr(entry.Length)

		if start < reservedBelow {
			start = reservedBelow
		}
		start = mem.Size(start).AlignUp(mem.PageSize)
		end = mem.Size(end).AlignDown(mem.PageSize)

		if end <= start {
			return true
		}

		regions[numRegions] = region{start: start, end: end}
		numRegions++
		return true
	})

	curRegion = 0
	if numRegions > 0 {
		cursor = regions[0].start
	}
}

// AllocFrame returns the physical address of the next unused, page-aligned
// frame. Panics if physical memory is exhausted: there is nowhere left to
// go and no deallocation path to wait on.
func AllocFrame() uintptr {
	for curRegion < numRegions {
		r := regions[curRegion]
		if cursor+uintptr(mem.PageSize) <= r.end {
			frame := cursor
			cursor += uintptr(mem.PageSize)
			return frame
		}

		curRegion++
		if curRegion < numRegions {
			cursor = regions[curRegion].start
		}
	}

	panic("pmm: out of physical memory")
}

// setRegionsForTest lets tests exercise AllocFrame without a real multiboot
// memory map.
func setRegionsForTest(rs []region) {
	numRegions = copy(regions[:], rs)
	curRegion = 0
	cursor = 0
	if numRegions > 0 {
		cursor = regions[0].start
	}
}

// TotalUsable returns the sum of all usable region sizes discovered by Init,
// used by diagnostics (the shell's info command).
func TotalUsable() uintptr {
	var total uintptr
	for i := 0; i < numRegions; i++ {
		total += regions[i].end - regions[i].start
	}
	return total
}
