package ata

import (
	"testing"

	"github.com/gianndev/ParvaOS/kernel/sync"
	"github.com/stretchr/testify/assert"
)

// fakeDisk backs inbFn/outbFn/inwFn/outwFn with a tiny in-memory model of
// one ATA device's register file and a byte-addressable backing store,
// enough to drive Probe/Read/Write through their real state machine.
type fakeDisk struct {
	present   [2][2]bool
	storage   map[uint32][512]byte
	selBus    Bus
	driveHead byte
	lba       uint32
	cmd       byte
	xferIdx   int
	didIdentify bool
}

func newFakeDisk() *fakeDisk {
	return &fakeDisk{storage: map[uint32][512]byte{}}
}

func (f *fakeDisk) busOf(port uint16) Bus {
	if port >= 0x170 && port < 0x178 {
		return Secondary
	}
	return Primary
}

func (f *fakeDisk) driveOf() Drive {
	if f.driveHead&(1<<4) != 0 {
		return Slave
	}
	return Master
}

func (f *fakeDisk) install(t *testing.T) {
	t.Cleanup(func() {
		inbFn, outbFn, inwFn, outwFn, ioDelayFn = defaultInb, defaultOutb, defaultInw, defaultOutw, defaultIODelay
	})

	outbFn = func(port uint16, v byte) {
		bus := f.busOf(port)
		switch port - baseOf(bus) {
		case regDriveHead:
			f.driveHead = v
		case regSectorCnt:
		case regLBALow:
			f.lba = (f.lba &^ 0xFF) | uint32(v)
		case regLBAMid:
			f.lba = (f.lba &^ 0xFF00) | uint32(v)<<8
		case regLBAHigh:
			f.lba = (f.lba &^ 0xFF0000) | uint32(v)<<16
		case regCommand:
			f.cmd = v
			f.xferIdx = 0
			if v == cmdIdentify {
				f.didIdentify = f.present[bus][f.driveOf()]
			}
		}
	}

	inbFn = func(port uint16) byte {
		bus := f.busOf(port)
		switch port - baseOf(bus) {
		case regStatus:
			if !f.present[bus][f.driveOf()] {
				return 0
			}
			return statusRDY | statusDRQ
		}
		return 0
	}

	inwFn = func(port uint16) uint16 {
		bus := f.busOf(port)
		drive := f.driveOf()
		if f.cmd == cmdIdentify {
			f.xferIdx++
			return 0
		}
		blk := f.storage[f.lba]
		lo, hi := blk[2*f.xferIdx], blk[2*f.xferIdx+1]
		f.xferIdx++
		_ = bus
		_ = drive
		return uint16(lo) | uint16(hi)<<8
	}

	outwFn = func(port uint16, v uint16) {
		blk := f.storage[f.lba]
		blk[2*f.xferIdx] = byte(v)
		blk[2*f.xferIdx+1] = byte(v >> 8)
		f.storage[f.lba] = blk
		f.xferIdx++
	}

	ioDelayFn = func() {}
}

func baseOf(bus Bus) uint16 {
	return buses[bus].ioBase
}

var (
	defaultInb     = inbFn
	defaultOutb    = outbFn
	defaultInw     = inwFn
	defaultOutw    = outwFn
	defaultIODelay = ioDelayFn
)

func resetState() {
	devices = [2][2]device{}
	state = StateIdle
	lockState = sync.Spinlock{}
	yieldFn = nil
}

func TestProbeFindsPresentDrives(t *testing.T) {
	resetState()
	f := newFakeDisk()
	f.present[Primary][Master] = true
	f.install(t)

	Probe()

	assert.True(t, Present(Primary, Master))
	assert.False(t, Present(Primary, Slave))
	assert.False(t, Present(Secondary, Master))
}

func TestReadWriteRoundTrip(t *testing.T) {
	resetState()
	f := newFakeDisk()
	f.present[Primary][Master] = true
	f.install(t)
	Probe()

	var want [512]byte
	for i := range want {
		want[i] = byte(i)
	}

	assert.Nil(t, Write(Primary, Master, 42, want[:]))

	var got [512]byte
	assert.Nil(t, Read(Primary, Master, 42, got[:]))
	assert.Equal(t, want, got)
}

func TestReadFromAbsentDriveFails(t *testing.T) {
	resetState()
	f := newFakeDisk()
	f.install(t)
	Probe()

	var buf [512]byte
	err := Read(Primary, Master, 0, buf[:])
	assert.Equal(t, ErrNoDevice, err)
}

func TestReadRejectsWrongBufferSize(t *testing.T) {
	resetState()
	f := newFakeDisk()
	f.present[Primary][Master] = true
	f.install(t)
	Probe()

	err := Read(Primary, Master, 0, make([]byte, 10))
	assert.NotNil(t, err)
}

func TestStateReturnsToIdleAfterTransfer(t *testing.T) {
	resetState()
	f := newFakeDisk()
	f.present[Primary][Master] = true
	f.install(t)
	Probe()

	var buf [512]byte
	assert.Nil(t, Write(Primary, Master, 1, buf[:]))
	assert.Equal(t, StateIdle, CurrentState())
}
