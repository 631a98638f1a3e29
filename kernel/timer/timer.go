// Package timer programs the legacy 8253/8254 PIT (programmable interval
// timer) and exposes a monotonic tick counter driven by IRQ0.
package timer

import (
	"sync/atomic"
	"time"

	"github.com/gianndev/ParvaOS/kernel/ioport"
	"github.com/gianndev/ParvaOS/kernel/irq"
)

const (
	channel0Data = 0x40
	modeCommand  = 0x43

	// pitFrequency is the PIT's fixed input clock in Hz.
	pitFrequency = 1193182

	// tickHz is the rate at which IRQ0 fires once programmed.
	tickHz = 100
)

var ticks uint64

// yieldHook is called on every tick after the counter is incremented, giving
// the scheduler a chance to mark the current task eligible for a cooperative
// yield. It is nil until SetYieldHook is called (kmain passes sched.Tick).
var yieldHook func()

// Init programs channel 0 for periodic mode at tickHz and installs the IRQ0
// handler. It does not unmask interrupts globally; kmain calls
// cpu.EnableInterrupts for that once the rest of bring-up is done.
func Init() {
	divisor := uint16(pitFrequency / tickHz)

	ioport.Outb(modeCommand, 0x36) // channel 0, lo/hi byte access, mode 3 (square wave)
	ioport.Outb(channel0Data, byte(divisor&0xFF))
	ioport.Outb(channel0Data, byte(divisor>>8))

	irq.HandleIRQ(irq.IRQTimer, func(_ *irq.Regs) {
		atomic.AddUint64(&ticks, 1)
		if yieldHook != nil {
			yieldHook()
		}
	})
}

// SetYieldHook registers the function invoked from IRQ context after every
// tick. kmain calls it once during bring-up, passing sched.Tick.
func SetYieldHook(hook func()) {
	yieldHook = hook
}

// Ticks returns the number of timer interrupts observed since Init.
func Ticks() uint64 {
	return atomic.LoadUint64(&ticks)
}

// UptimeMillis returns the time elapsed since Init at tick resolution,
// expressed in milliseconds since there is no RTC wired up to provide
// wall-clock time.
func UptimeMillis() uint64 {
	return atomic.LoadUint64(&ticks) * (1000 / tickHz)
}

// Uptime returns the time elapsed since Init as a time.Duration, derived
// from the tick count rather than any wall-clock source: there is no CMOS
// RTC wired up.
func Uptime() time.Duration {
	return time.Duration(UptimeMillis()) * time.Millisecond
}

// setTicksForTest lets tests exercise UptimeMillis without programming real
// hardware via Init.
func setTicksForTest(v uint64) {
	atomic.StoreUint64(&ticks, v)
}
