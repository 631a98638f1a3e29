package main

import "github.com/gianndev/ParvaOS/kernel/kmain"

// multibootInfoPtr, kernelStart and kernelEnd are poked by the rt0 assembly
// stage before it jumps to main. Go requires main to be niladic, so the
// values rt0 would otherwise pass as arguments are staged through these
// globals instead.
var (
	multibootInfoPtr uintptr
	kernelStart      uintptr
	kernelEnd        uintptr
)

// main makes a call to the actual kernel entrypoint (kmain.Kmain). It is
// intentionally defined to prevent the Go compiler from optimizing away the
// real kernel code, which it cannot see is reachable from the rt0 code.
//
// The main function is invoked by the rt0 assembly code after setting up the
// GDT and a minimal g0 struct that allows Go code to run on the 4K stack
// allocated by the assembly code.
//
// main is not expected to return. If it does, the rt0 code will halt the CPU.
func main() {
	kmain.Kmain(multibootInfoPtr, kernelStart, kernelEnd)
}
