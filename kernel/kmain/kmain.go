// Package kmain assembles every subsystem into the boot sequence: paging and
// heap bring-up, interrupt and device init, mounting the file system, and
// finally spawning the shell as the kernel's one cooperative task.
package kmain

import (
	"github.com/gianndev/ParvaOS/kernel"
	"github.com/gianndev/ParvaOS/kernel/ata"
	"github.com/gianndev/ParvaOS/kernel/cpu"
	"github.com/gianndev/ParvaOS/kernel/fs"
	"github.com/gianndev/ParvaOS/kernel/goruntime"
	"github.com/gianndev/ParvaOS/kernel/hal"
	"github.com/gianndev/ParvaOS/kernel/hal/multiboot"
	"github.com/gianndev/ParvaOS/kernel/ioport"
	"github.com/gianndev/ParvaOS/kernel/irq"
	"github.com/gianndev/ParvaOS/kernel/keyboard"
	"github.com/gianndev/ParvaOS/kernel/kfmt/early"
	"github.com/gianndev/ParvaOS/kernel/mem"
	"github.com/gianndev/ParvaOS/kernel/mem/heap"
	"github.com/gianndev/ParvaOS/kernel/mem/pmm"
	"github.com/gianndev/ParvaOS/kernel/mem/vmm"
	"github.com/gianndev/ParvaOS/kernel/sched"
	"github.com/gianndev/ParvaOS/kernel/shell"
	"github.com/gianndev/ParvaOS/kernel/timer"
	"github.com/gianndev/ParvaOS/kernel/video/window"
)

const (
	// heapVirtBase sits below goruntime's own regionBase so the Go runtime's
	// allocator and the kernel's explicit heap never fight over the same
	// virtual range.
	heapVirtBase = uintptr(0xFFFF880000000000)
	heapSize     = 16 * mem.Mb
)

var errKmainReturned = &kernel.Error{Module: "kmain", Message: "Kmain returned"}

// Kmain is the only Go symbol that is visible (exported) from the rt0
// initialization code. This function is invoked by the rt0 assembly code
// after setting up the GDT, enabling long mode and the fixed physical-offset
// direct map, and preparing a minimal g0 struct that allows Go code to run
// on the 4K stack allocated by the assembly stage.
//
// The rt0 code passes the address of the multiboot info payload provided by
// the bootloader as well as the physical addresses for the kernel start/end.
//
// Kmain is not expected to return; sched.Run loops forever once the shell
// task is spawned. If it does return, the rt0 code will halt the CPU.
//
//go:noinline
func Kmain(multibootInfoPtr, kernelStart, kernelEnd uintptr) {
	multiboot.SetInfoPtr(multibootInfoPtr)
	ioport.COM1.Init()

	hal.InitTerminal()
	hal.ActiveTerminal.Clear()

	early.Printf("ParvaOS booting...\n")

	pmm.Init(kernelEnd)
	vmm.SetFrameAllocator(pmm.AllocFrame)

	if err := mapHeapRegion(); err != nil {
		kernel.Panic(err)
	}
	heap.Init(heapVirtBase, uintptr(heapSize))

	if err := goruntime.Init(); err != nil {
		kernel.Panic(err)
	}

	irq.Init()
	timer.Init()
	timer.SetYieldHook(sched.Tick)
	keyboard.Init()

	ata.SetYieldFunc(sched.YieldNow)
	ata.Probe()

	if err := fs.Mount(); err != nil {
		early.Printf("%s (run install)\n", err.Error())
	}

	window.Init(hal.TextConsole(), "ParvaOS")

	if _, err := sched.Spawn(shell.Run); err != nil {
		kernel.Panic(err)
	}

	// irq.Init leaves IF=0 so device probing above runs with a quiet PIC.
	// Nothing depends on interrupts being masked past this point, and the
	// shell task never blocks in a way that leaves the ready queue empty,
	// so sched.Run's own idle-branch STI would never actually fire it.
	cpu.EnableInterrupts()

	sched.Run()

	// Use kernel.Panic instead of panic to prevent the compiler from
	// treating kernel.Panic as dead-code and eliminating it.
	kernel.Panic(errKmainReturned)
}

// mapHeapRegion backs the kernel heap's virtual range with freshly allocated
// physical frames, one page at a time, since pmm hands out frames that need
// not be contiguous.
func mapHeapRegion() *kernel.Error {
	pages := mem.Size(heapSize).Pages()
	for i := uint32(0); i < pages; i++ {
		frame := pmm.AllocFrame()
		page := vmm.PageFromAddress(heapVirtBase + uintptr(i)*uintptr(mem.PageSize))
		if err := vmm.Map(page, frame, vmm.FlagPresent|vmm.FlagRW); err != nil {
			return err
		}
	}
	return nil
}
