// Package heap implements a first-fit, split-and-coalesce allocator over a
// single fixed virtual range. It exists alongside goruntime's bootstrap of
// the ordinary Go allocator: this package backs the kernel's own explicit
// allocations (the scheduler's task stacks) over a region that is never
// touched by the Go runtime's allocator.
package heap

import (
	"unsafe"

	"github.com/gianndev/ParvaOS/kernel"
)

// blockHeader precedes every block, free or allocated, in the heap. Free
// blocks additionally chain into the free list via next; allocated blocks
// leave next untouched (its memory belongs to the caller).
type blockHeader struct {
	size uintptr // payload size, excluding this header
	free bool
	next *blockHeader
}

const headerSize = unsafe.Sizeof(blockHeader{})

const minBlockSize = 16

var (
	heapStart uintptr
	heapEnd   uintptr
	freeList  *blockHeader

	errOOM = &kernel.Error{Module: "heap", Message: "out of heap memory"}
)

// Init establishes the heap over [start, start+size) and must be called
// exactly once, after that range has been mapped. The entire range starts
// as a single free block.
func Init(start uintptr, size uintptr) {
	heapStart = start
	heapEnd = start + size

	first := (*blockHeader)(unsafe.Pointer(start))
	*first = blockHeader{size: size - headerSize, free: true}
	freeList = first
}

// align rounds n up to the next multiple of a.
func align(n, a uintptr) uintptr {
	return (n + a - 1) &^ (a - 1)
}

// Alloc returns a pointer to a block of at least size bytes aligned to
// align (which must be a power of two), or panics if the heap has no block
// large enough. There is no deallocation-triggered growth: the heap's size
// is fixed at Init time.
func Alloc(size, alignment uintptr) unsafe.Pointer {
	if alignment == 0 {
		alignment = 1
	}
	size = align(size, unsafe.Sizeof(uintptr(0)))
	if size < minBlockSize {
		size = minBlockSize
	}

	var prev *blockHeader
	for b := freeList; b != nil; prev, b = b, b.next {
		payload := uintptr(unsafe.Pointer(b)) + headerSize
		aligned := align(payload, alignment)
		padding := aligned - payload

		if b.size < padding+size {
			continue
		}

		splitBlock(b, padding+size)
		removeFromFreeList(prev, b)
		b.free = false
		return unsafe.Pointer(aligned)
	}

	panic(errOOM)
}

// splitBlock shrinks b to exactly used bytes of payload if the remainder is
// large enough to host a new free block, linking that remainder into b's
// former position in the free list.
func splitBlock(b *blockHeader, used uintptr) {
	remaining := b.size - used
	if remaining < headerSize+minBlockSize {
		return
	}

	newBlockAddr := uintptr(unsafe.Pointer(b)) + headerSize + used
	newBlock := (*blockHeader)(unsafe.Pointer(newBlockAddr))
	*newBlock = blockHeader{size: remaining - headerSize, free: true, next: b.next}

	b.size = used
	b.next = newBlock
}

func removeFromFreeList(prev, b *blockHeader) {
	if prev == nil {
		freeList = b.next
	} else {
		prev.next = b.next
	}
	b.next = nil
}

// Free returns a block to the free list, coalescing it with its immediate
// physical neighbor(s) if they are also free. The free list is kept sorted
// by address so adjacency can be detected by walking it once.
func Free(ptr unsafe.Pointer) {
	addr := uintptr(ptr)
	headerAddr := addr - headerSize
	// The header address recorded at Alloc time may differ from addr-headerSize
	// when alignment padding was inserted; walk back to find the true header
	// by scanning isn't safe without a footer, so callers must free the exact
	// pointer Alloc returned and alignment padding is folded into the block
	// rather than tracked separately. See allocHeaderFor.
	b := allocHeaderFor(headerAddr, addr)
	b.free = true

	prev := insertSortedByAddress(b)
	coalesce(b)
	if prev != nil {
		coalesce(prev)
	}
}

// allocHeaderFor locates the header immediately preceding addr. Because
// Alloc may have inserted alignment padding between the header and the
// returned pointer, the header is not always at addr-headerSize; callers
// only ever pass back pointers obtained from Alloc, so the header is found
// by walking from heapStart once. This is O(n) in the number of blocks,
// which is acceptable for a kernel heap with a bounded, modest block count.
func allocHeaderFor(guess, addr uintptr) *blockHeader {
	for cur := heapStart; cur < heapEnd; {
		b := (*blockHeader)(unsafe.Pointer(cur))
		blockEnd := cur + headerSize + b.size
		if cur+headerSize <= addr && addr < blockEnd {
			return b
		}
		cur = blockEnd
	}
	panic(&kernel.Error{Module: "heap", Message: "free of pointer not owned by heap"})
}

// insertSortedByAddress links b into the free list in address order and
// returns its new predecessor (nil when b becomes the list head).
func insertSortedByAddress(b *blockHeader) *blockHeader {
	addr := uintptr(unsafe.Pointer(b))

	var prev *blockHeader
	cur := freeList
	for cur != nil && uintptr(unsafe.Pointer(cur)) < addr {
		prev, cur = cur, cur.next
	}

	b.next = cur
	if prev == nil {
		freeList = b
	} else {
		prev.next = b
	}
	return prev
}

// coalesce merges b with its free list successor if they are physically
// adjacent, and repeats so multi-block runs collapse in one call.
func coalesce(b *blockHeader) {
	for b.next != nil {
		bEnd := uintptr(unsafe.Pointer(b)) + headerSize + b.size
		if bEnd != uintptr(unsafe.Pointer(b.next)) {
			break
		}
		b.size += headerSize + b.next.size
		b.next = b.next.next
	}
}
