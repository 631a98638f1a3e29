package mem

import (
	"reflect"
	"unsafe"
)

// Memcopy copies size bytes from srcAddr to dstAddr. The two regions must not
// overlap; callers that need overlap-safe semantics should use Go's copy()
// on a slice overlay instead.
func Memcopy(dstAddr, srcAddr uintptr, size Size) {
	if size == 0 {
		return
	}

	dst := *(*[]byte)(unsafe.Pointer(&reflect.SliceHeader{
		Len:  int(size),
		Cap:  int(size),
		Data: dstAddr,
	}))
	src := *(*[]byte)(unsafe.Pointer(&reflect.SliceHeader{
		Len:  int(size),
		Cap:  int(size),
		Data: srcAddr,
	}))

	copy(dst, src)
}
