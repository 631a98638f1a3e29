// Package ata implements a polled-PIO driver for the legacy ATA interface:
// bus/drive probing and synchronous 512-byte sector read/write using LBA28
// addressing. There is no DMA, no interrupt-driven completion, and no
// retries; a failed transfer is reported once to the caller.
package ata

import (
	"github.com/gianndev/ParvaOS/kernel"
	"github.com/gianndev/ParvaOS/kernel/ioport"
	"github.com/gianndev/ParvaOS/kernel/sync"
)

// Bus identifies one of the two legacy ATA controller port ranges.
type Bus uint8

const (
	Primary   Bus = 0
	Secondary Bus = 1
)

// Drive identifies master or slave on a Bus.
type Drive uint8

const (
	Master Drive = 0
	Slave  Drive = 1
)

// Register offsets relative to each bus's I/O base.
const (
	regData      = 0
	regSectorCnt = 2
	regLBALow    = 3
	regLBAMid    = 4
	regLBAHigh   = 5
	regDriveHead = 6
	regStatus    = 7
	regCommand   = 7
)

// Status register bits.
const (
	statusERR = 1 << 0
	statusDRQ = 1 << 3
	statusSRV = 1 << 4
	statusDF  = 1 << 5
	statusRDY = 1 << 6
	statusBSY = 1 << 7
)

const (
	cmdIdentify     = 0xEC
	cmdReadSectors  = 0x20
	cmdWriteSectors = 0x30

	driveHeadLBA = 0xE0 // bit 6 set selects LBA addressing mode
)

type busPorts struct {
	ioBase uint16
}

var buses = [2]busPorts{
	{ioBase: 0x1F0},
	{ioBase: 0x170},
}

// device records whether a (bus, drive) pair answered IDENTIFY during probe.
type device struct {
	present bool
}

var devices [2][2]device

// Port access is indirected the same way irq/vmm mock hardware control
// registers: tests swap these for an in-memory fake device and exercise the
// real probe/read/write state machine without touching real I/O ports.
var (
	inbFn     = ioport.Inb
	outbFn    = ioport.Outb
	inwFn     = ioport.Inw
	outwFn    = ioport.Outw
	ioDelayFn = ioport.IODelay
)

// State names a step in the per-operation state machine every Read/Write
// transfer moves through: Idle -> Selected -> CommandIssued -> DataTransfer
// -> Idle. It exists for observability (tests, diagnostics); the driver
// itself is purely synchronous and never reads it to decide behavior.
type State uint8

const (
	StateIdle State = iota
	StateSelected
	StateCommandIssued
	StateDataTransfer
)

var state State

// CurrentState reports the state of the most recently started transfer.
func CurrentState() State {
	return state
}

var (
	// yieldFn is called from the busy-wait loop in place of a spin; wired to
	// sched.YieldNow during bring-up so a stalled transfer lets other
	// cooperative tasks run. Left nil before sched comes up, in which case
	// the busy-wait degenerates to a plain spin.
	yieldFn func()

	lockState sync.Spinlock

	// ErrTimeout is returned when a device never clears BSY or sets DRQ
	// within pollLimit iterations.
	ErrTimeout = &kernel.Error{Module: "ata", Message: "device timeout"}

	// ErrDeviceError is returned when the status register's ERR/DF bits are
	// set after a command completes.
	ErrDeviceError = &kernel.Error{Module: "ata", Message: "device reported an error"}

	// ErrNoDevice is returned by Read/Write when (bus, drive) never
	// answered IDENTIFY during Probe.
	ErrNoDevice = &kernel.Error{Module: "ata", Message: "no device on bus/drive"}
)

// pollLimit bounds the busy-wait loops; this is not a timer-based timeout,
// just a generous iteration cap, matching the driver's synchronous, no-retry
// contract.
const pollLimit = 1_000_000

// SetYieldFunc wires the cooperative yield used while a lock or a device
// poll loop is busy-waiting. Called once during bring-up with sched.YieldNow.
func SetYieldFunc(fn func()) {
	yieldFn = fn
	sync.SetYieldFunc(fn)
}

func yieldOrSpin() {
	if yieldFn != nil {
		yieldFn()
	}
}

// lock serializes access to the ATA ports across the whole driver: there is
// one pair of buses and every caller goes through the same global lockState.
// Interrupt handlers never take it, so there is no producer/consumer
// deadlock risk with IRQ context.
func lock() {
	lockState.Acquire()
}

func unlock() {
	lockState.Release()
}

// Probe issues IDENTIFY to all four (bus, drive) combinations and records
// which ones respond. It must run before Read/Write/Format are usable.
func Probe() {
	lock()
	defer unlock()

	for b := Primary; b <= Secondary; b++ {
		for d := Master; d <= Slave; d++ {
			devices[b][d].present = identify(b, d)
		}
	}
}

// Present reports whether (bus, drive) answered during the last Probe.
func Present(bus Bus, drive Drive) bool {
	return devices[bus][drive].present
}

func selectDrive(bus Bus, drive Drive, lbaHighNibble byte) {
	p := buses[bus]
	head := driveHeadLBA | (byte(drive) << 4) | (lbaHighNibble & 0x0F)
	outbFn(p.ioBase+regDriveHead, head)
}

func waitWhileBusy(bus Bus) *kernel.Error {
	p := buses[bus]
	for i := 0; i < pollLimit; i++ {
		status := inbFn(p.ioBase + regStatus)
		if status&statusBSY == 0 {
			return nil
		}
		yieldOrSpin()
	}
	return ErrTimeout
}

func waitForDRQ(bus Bus) *kernel.Error {
	p := buses[bus]
	for i := 0; i < pollLimit; i++ {
		status := inbFn(p.ioBase + regStatus)
		if status&statusERR != 0 || status&statusDF != 0 {
			return ErrDeviceError
		}
		if status&statusDRQ != 0 {
			return nil
		}
		yieldOrSpin()
	}
	return ErrTimeout
}

// identify probes a single (bus, drive) for presence. It intentionally
// tolerates a nonzero but non-error status: some emulators leave stale
// signature bytes in the LBA registers for absent drives, so presence is
// judged by whether BSY clears and DRQ or data becomes available without an
// ERR/DF bit, not by those signature bytes.
func identify(bus Bus, drive Drive) bool {
	p := buses[bus]

	selectDrive(bus, drive, 0)
	ioDelayFn()

	status := inbFn(p.ioBase + regStatus)
	if status == 0xFF || status == 0x00 {
		return false
	}

	outbFn(p.ioBase+regSectorCnt, 0)
	outbFn(p.ioBase+regLBALow, 0)
	outbFn(p.ioBase+regLBAMid, 0)
	outbFn(p.ioBase+regLBAHigh, 0)
	outbFn(p.ioBase+regCommand, cmdIdentify)

	status = inbFn(p.ioBase + regStatus)
	if status == 0 {
		return false
	}

	if err := waitWhileBusy(bus); err != nil {
		return false
	}
	if err := waitForDRQ(bus); err != nil {
		return false
	}

	// Drain the 256-word identify payload; the driver has no use for its
	// contents beyond confirming the device answers reads.
	for i := 0; i < 256; i++ {
		inwFn(p.ioBase + regData)
	}

	return true
}

func programLBA(bus Bus, drive Drive, lba uint32) {
	p := buses[bus]
	selectDrive(bus, drive, byte(lba>>24))
	outbFn(p.ioBase+regSectorCnt, 1)
	outbFn(p.ioBase+regLBALow, byte(lba))
	outbFn(p.ioBase+regLBAMid, byte(lba>>8))
	outbFn(p.ioBase+regLBAHigh, byte(lba>>16))
}

// Read loads one 512-byte sector at lba into buf, which must be exactly 512
// bytes long.
func Read(bus Bus, drive Drive, lba uint32, buf []byte) *kernel.Error {
	if len(buf) != 512 {
		return &kernel.Error{Module: "ata", Message: "buffer must be exactly 512 bytes"}
	}
	if !devices[bus][drive].present {
		return ErrNoDevice
	}

	lock()
	defer unlock()

	p := buses[bus]
	state = StateSelected
	programLBA(bus, drive, lba)
	state = StateCommandIssued
	outbFn(p.ioBase+regCommand, cmdReadSectors)

	if err := waitWhileBusy(bus); err != nil {
		state = StateIdle
		return err
	}
	if err := waitForDRQ(bus); err != nil {
		state = StateIdle
		return err
	}

	state = StateDataTransfer
	for i := 0; i < 256; i++ {
		word := inwFn(p.ioBase + regData)
		buf[2*i] = byte(word)
		buf[2*i+1] = byte(word >> 8)
	}
	state = StateIdle

	return nil
}

// Write stores buf, which must be exactly 512 bytes long, at lba.
func Write(bus Bus, drive Drive, lba uint32, buf []byte) *kernel.Error {
	if len(buf) != 512 {
		return &kernel.Error{Module: "ata", Message: "buffer must be exactly 512 bytes"}
	}
	if !devices[bus][drive].present {
		return ErrNoDevice
	}

	lock()
	defer unlock()

	p := buses[bus]
	state = StateSelected
	programLBA(bus, drive, lba)
	state = StateCommandIssued
	outbFn(p.ioBase+regCommand, cmdWriteSectors)

	if err := waitWhileBusy(bus); err != nil {
		state = StateIdle
		return err
	}
	if err := waitForDRQ(bus); err != nil {
		state = StateIdle
		return err
	}

	state = StateDataTransfer
	for i := 0; i < 256; i++ {
		word := uint16(buf[2*i]) | uint16(buf[2*i+1])<<8
		outwFn(p.ioBase+regData, word)
	}
	state = StateIdle

	return nil
}
