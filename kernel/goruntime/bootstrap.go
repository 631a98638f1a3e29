// Package goruntime contains code for bootstrapping Go runtime features such
// as the memory allocator.
package goruntime

import (
	"unsafe"

	"github.com/gianndev/ParvaOS/kernel/mem"
	"github.com/gianndev/ParvaOS/kernel/mem/pmm"
	"github.com/gianndev/ParvaOS/kernel/mem/vmm"
)

var (
	mapFn        = vmm.Map
	frameAllocFn = pmm.AllocFrame
)

// regionBase is the start of the virtual range handed out to the Go runtime
// for its own heap growth. It sits above the kernel's own explicit heap
// region (mem/heap) so the two allocators never collide.
const regionBase = uintptr(0xFFFF900000000000)

// reserveCursor is a monotonic bump pointer into regionBase. Like the
// physical frame allocator, reserved virtual space is never returned: the
// runtime occasionally calls sysFree but we do not need to honor it for a
// kernel that runs until power-off.
var reserveCursor = regionBase

func reserveRegion(size uintptr) uintptr {
	addr := reserveCursor
	reserveCursor += size
	return addr
}

//go:linkname mSysStatInc runtime.mSysStatInc
func mSysStatInc(*uint64, uintptr)

// sysReserve reserves address space without allocating any memory or
// establishing any page mappings.
//
// This function replaces runtime.sysReserve and is required for initializing
// the Go allocator.
//
//go:redirect-from runtime.sysReserve
//go:nosplit
func sysReserve(_ unsafe.Pointer, size uintptr, reserved *bool) unsafe.Pointer {
	regionSize := mem.Size(size).AlignUp(mem.PageSize)
	*reserved = true
	return unsafe.Pointer(reserveRegion(regionSize))
}

// sysMap establishes a mapping for a region reserved previously via
// sysReserve, backing it with freshly allocated physical frames. The
// upstream runtime.sysMap expects a copy-on-write zero page here; this
// kernel has no zero-page/CoW machinery (mem/vmm never implements
// FlagCopyOnWrite), so frames are allocated and zeroed eagerly instead.
//
// This function replaces runtime.sysMap and is required for initializing
// the Go allocator.
//
//go:redirect-from runtime.sysMap
//go:nosplit
func sysMap(virtAddr unsafe.Pointer, size uintptr, reserved bool, sysStat *uint64) unsafe.Pointer {
	if !reserved {
		panic("sysMap should only be called with reserved=true")
	}

	regionStartAddr := mem.Size(uintptr(virtAddr)).AlignUp(mem.PageSize)
	regionSize := mem.Size(size).AlignUp(mem.PageSize)
	pageCount := regionSize >> mem.PageShift

	mapFlags := vmm.FlagRW | vmm.FlagNoExecute
	page := vmm.PageFromAddress(regionStartAddr)
	for ; pageCount > 0; pageCount, page = pageCount-1, page+1 {
		frame := frameAllocFn()
		mem.Memset(vmm.PhysToVirt(frame), 0, mem.PageSize)
		if err := mapFn(page, frame, mapFlags); err != nil {
			return unsafe.Pointer(uintptr(0))
		}
	}

	mSysStatInc(sysStat, uintptr(regionSize))
	return unsafe.Pointer(regionStartAddr)
}

// sysAlloc reserves enough physical frames to satisfy the allocation request
// and establishes a contiguous virtual page mapping for them, returning the
// pointer to the virtual region start.
//
// This function replaces runtime.sysAlloc and is required for initializing the
// Go allocator.
//
//go:redirect-from runtime.sysAlloc
//go:nosplit
func sysAlloc(size uintptr, sysStat *uint64) unsafe.Pointer {
	regionSize := mem.Size(size).AlignUp(mem.PageSize)
	regionStartAddr := reserveRegion(regionSize)

	mapFlags := vmm.FlagRW | vmm.FlagNoExecute
	pageCount := mem.Size(regionSize) >> mem.PageShift
	page := vmm.PageFromAddress(regionStartAddr)
	for ; pageCount > 0; pageCount, page = pageCount-1, page+1 {
		frame := frameAllocFn()
		if err := mapFn(page, frame, mapFlags); err != nil {
			return unsafe.Pointer(uintptr(0))
		}
	}

	mSysStatInc(sysStat, uintptr(regionSize))
	return unsafe.Pointer(regionStartAddr)
}

func init() {
	// Dummy calls so the compiler does not optimize away the functions in
	// this file.
	var (
		reserved bool
		stat     uint64
		zeroPtr  = unsafe.Pointer(uintptr(0))
	)

	sysReserve(zeroPtr, 0, &reserved)
	sysMap(zeroPtr, 0, reserved, &stat)
	sysAlloc(0, &stat)
}
