package shell

import (
	"github.com/gianndev/ParvaOS/kernel/cpu"
	"github.com/gianndev/ParvaOS/kernel/ioport"
)

const (
	// kbdCtrlStatusPort/kbdCtrlCmdPort are the 8042 keyboard controller's
	// status and command ports; pulsing the CPU reset line through it is
	// the standard legacy way to reboot without ACPI.
	kbdCtrlStatusPort = 0x64
	kbdCtrlCmdPort    = 0x64
	kbdCtrlInputFull  = 1 << 1
	kbdCtrlResetPulse = 0xFE

	// qemuExitPort/qemuExitSuccess drive QEMU's isa-debug-exit device.
	// Writing a byte v there terminates the emulator with exit code
	// (v<<1)|1, so writing 0x10 yields the spec's documented code 33.
	qemuExitPort    = 0xF4
	qemuExitSuccess = 0x10
)

func cmdReboot(_ []string) {
	for ioport.Inb(kbdCtrlStatusPort)&kbdCtrlInputFull != 0 {
	}
	ioport.Outb(kbdCtrlCmdPort, kbdCtrlResetPulse)

	// The controller should have reset the CPU by now; if it did not,
	// there is nothing left to do but halt.
	haltForever()
}

func cmdShutdown(_ []string) {
	ioport.Outb(qemuExitPort, qemuExitSuccess)

	// isa-debug-exit is only wired up under QEMU with the right machine
	// flag; on real hardware or a plain QEMU invocation the write above
	// is a no-op and the kernel falls back to halting.
	haltForever()
}

func haltForever() {
	for {
		cpu.Halt()
	}
}
