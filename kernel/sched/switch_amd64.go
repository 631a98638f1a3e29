package sched

// switchTo saves the currently executing stack pointer into *savedSP, then
// switches execution onto the stack pointed to by resumeSP. Control returns
// to the caller of switchTo only once some other call to switchTo points
// resumeSP back at *savedSP.
//
// This is a plain stackful context switch in the style of a classic
// textbook swtch: six callee-saved registers are pushed onto the
// outgoing stack and popped off the incoming one, so neither side needs to
// know anything about the other's call history.
func switchTo(savedSP *uintptr, resumeSP uintptr)
