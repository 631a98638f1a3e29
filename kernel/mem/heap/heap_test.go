package heap

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
)

func newTestHeap(t *testing.T, size uintptr) {
	backing := make([]byte, size+8)
	// Align the backing store's usable start to 8 bytes so header layout
	// math behaves the same as it would over real page-aligned memory.
	start := (uintptr(unsafe.Pointer(&backing[0])) + 7) &^ 7
	Init(start, size)
	t.Cleanup(func() {
		_ = backing // keep alive until cleanup runs
	})
}

func TestAllocReturnsDistinctNonOverlappingBlocks(t *testing.T) {
	newTestHeap(t, 4096)

	a := Alloc(64, 8)
	b := Alloc(64, 8)

	assert.NotEqual(t, a, b)
}

func TestAllocRespectsAlignment(t *testing.T) {
	newTestHeap(t, 4096)

	p := Alloc(32, 64)
	assert.EqualValues(t, 0, uintptr(p)%64)
}

func TestFreeThenReallocReusesSpace(t *testing.T) {
	newTestHeap(t, 4096)

	a := Alloc(128, 8)
	Free(a)
	b := Alloc(128, 8)

	assert.Equal(t, a, b, "expected freed block to be reused by the next same-size allocation")
}

func TestCoalesceMergesAdjacentFreedBlocks(t *testing.T) {
	newTestHeap(t, 4096)

	a := Alloc(64, 8)
	b := Alloc(64, 8)
	c := Alloc(64, 8)

	Free(a)
	Free(b)
	Free(c)

	// A single large allocation should now succeed from the fully
	// coalesced heap, proving the three frees merged back into one block.
	big := Alloc(3800, 8)
	assert.NotNil(t, big)
}

func TestAllocPanicsOnOOM(t *testing.T) {
	newTestHeap(t, 256)

	assert.Panics(t, func() {
		Alloc(4096, 8)
	})
}
