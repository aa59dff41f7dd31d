package arena

import "unsafe"

// sliceAddr returns the host address of a byte slice's backing array.
// The arena's mmap'd region is never moved or resized by the Go garbage
// collector (it is allocated outside the Go heap via mmap), so this
// address stays valid for the arena's lifetime.
func sliceAddr(b []byte) uintptr {
	if len(b) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&b[0]))
}
