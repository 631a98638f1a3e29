package vmm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// fakeMMU backs tableAtFn/activePDTFn/allocFrameFn/flushTLBEntryFn with
// plain Go memory so Map/Unmap/Translate can be exercised without a real
// MMU or the PhysOffset direct map.
type fakeMMU struct {
	tables    map[uintptr]*[entriesPerTable]pageTableEntry
	nextFrame uintptr
	rootPhys  uintptr
	flushed   []uintptr
}

func newFakeMMU() *fakeMMU {
	f := &fakeMMU{
		tables:    map[uintptr]*[entriesPerTable]pageTableEntry{},
		nextFrame: 0x1000,
		rootPhys:  0x1000,
	}
	f.tables[f.rootPhys] = &[entriesPerTable]pageTableEntry{}
	f.nextFrame += 0x1000
	return f
}

func (f *fakeMMU) install(t *testing.T) {
	t.Cleanup(func() {
		tableAtFn = defaultTableAt
		activePDTFn = defaultActivePDT
		allocFrameFn = defaultAllocFrame
		flushTLBEntryFn = defaultFlushTLB
	})

	tableAtFn = func(phys uintptr) *[entriesPerTable]pageTableEntry {
		tbl, ok := f.tables[phys]
		if !ok {
			t.Fatalf("tableAtFn: no fake table at %x", phys)
		}
		return tbl
	}
	activePDTFn = func() uintptr { return f.rootPhys }
	allocFrameFn = func() uintptr {
		frame := f.nextFrame
		f.tables[frame] = &[entriesPerTable]pageTableEntry{}
		f.nextFrame += 0x1000
		return frame
	}
	flushTLBEntryFn = func(addr uintptr) { f.flushed = append(f.flushed, addr) }
}

// defaultTableAt/defaultActivePDT/defaultFlushTLB restore the package's real
// indirections after a test swaps them out.
var (
	defaultTableAt   = tableAtFn
	defaultActivePDT = activePDTFn
	defaultFlushTLB  = flushTLBEntryFn
)

func TestMapAndTranslate(t *testing.T) {
	f := newFakeMMU()
	f.install(t)

	page := PageFromAddress(0x400000)
	frame := uintptr(0x500000)

	err := Map(page, frame, FlagRW)
	assert.Nil(t, err)

	got, err := Translate(page)
	assert.Nil(t, err)
	assert.Equal(t, frame, got)
	assert.NotEmpty(t, f.flushed)
}

func TestTranslateUnmapped(t *testing.T) {
	f := newFakeMMU()
	f.install(t)

	_, err := Translate(PageFromAddress(0x400000))
	assert.Equal(t, ErrInvalidMapping, err)
}

func TestUnmap(t *testing.T) {
	f := newFakeMMU()
	f.install(t)

	page := PageFromAddress(0x400000)
	assert.Nil(t, Map(page, 0x500000, FlagRW))
	assert.Nil(t, Unmap(page))

	_, err := Translate(page)
	assert.Equal(t, ErrInvalidMapping, err)
}

func TestUnmapMissingIsError(t *testing.T) {
	f := newFakeMMU()
	f.install(t)

	err := Unmap(PageFromAddress(0x400000))
	assert.Equal(t, ErrInvalidMapping, err)
}

func TestMapAllocatesIntermediateTables(t *testing.T) {
	f := newFakeMMU()
	f.install(t)

	before := f.nextFrame
	assert.Nil(t, Map(PageFromAddress(0x400000), 0x500000, FlagRW))
	assert.Greater(t, f.nextFrame, before, "expected intermediate page tables to be allocated")
}

func TestMapRegion(t *testing.T) {
	f := newFakeMMU()
	f.install(t)

	const size = 3 * 4096
	assert.Nil(t, MapRegion(0x400000, 0x500000, size, FlagRW))

	for i := uintptr(0); i < 3; i++ {
		got, err := Translate(PageFromAddress(0x400000 + i*4096))
		assert.Nil(t, err)
		assert.Equal(t, uintptr(0x500000)+i*4096, got)
	}
}

func TestPageFromAddressRoundsDown(t *testing.T) {
	p := PageFromAddress(0x400123)
	assert.Equal(t, uintptr(0x400000), p.Address())
}
