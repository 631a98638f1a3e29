package pmm

import (
	"testing"

	"github.com/gianndev/ParvaOS/kernel/mem"
	"github.com/stretchr/testify/assert"
)

func TestAllocFrameMonotonic(t *testing.T) {
	setRegionsForTest([]region{{start: 0x100000, end: 0x100000 + uintptr(4*mem.PageSize)}})

	seen := map[uintptr]bool{}
	for i := 0; i < 4; i++ {
		f := AllocFrame()
		assert.False(t, seen[f], "frame %x handed out twice", f)
		seen[f] = true
		assert.True(t, f%uintptr(mem.PageSize) == 0, "frame not page-aligned")
	}
}

func TestAllocFrameSpansRegions(t *testing.T) {
	setRegionsForTest([]region{
		{start: 0x100000, end: 0x100000 + uintptr(mem.PageSize)},
		{start: 0x200000, end: 0x200000 + uintptr(mem.PageSize)},
	})

	first := AllocFrame()
	second := AllocFrame()

	assert.Equal(t, uintptr(0x100000), first)
	assert.Equal(t, uintptr(0x200000), second)
}

func TestAllocFrameExhaustionPanics(t *testing.T) {
	setRegionsForTest([]region{{start: 0x100000, end: 0x100000 + uintptr(mem.PageSize)}})

	AllocFrame()

	assert.Panics(t, func() {
		AllocFrame()
	})
}

func TestTotalUsable(t *testing.T) {
	setRegionsForTest([]region{
		{start: 0x100000, end: 0x100000 + uintptr(4*mem.PageSize)},
		{start: 0x200000, end: 0x200000 + uintptr(2*mem.PageSize)},
	})

	assert.EqualValues(t, 6*mem.PageSize, TotalUsable())
}
