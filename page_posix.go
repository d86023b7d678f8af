//go:build unix

package esjit

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// POSIX back end of the page allocator, shared by every Unix-like GOOS
// via Go's built-in "unix" build tag, using the typed golang.org/x/sys/unix
// wrappers in place of raw mmap/mprotect/munmap syscalls.
// platformGrow is the one operation that differs per-OS; see page_unix.go
// (generic POSIX fallback) and page_linux.go (mremap fast path).

func platformPageSize() (int, error) {
	return unix.Getpagesize(), nil
}

func platformAllocRW(size int) (uintptr, []byte, error) {
	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return 0, nil, err
	}
	addr := uintptr(unsafe.Pointer(&data[0]))
	return addr, data, nil
}

func platformMakeExec(addr uintptr, size int) error {
	b := bytesAt(addr, size)
	return unix.Mprotect(b, unix.PROT_READ|unix.PROT_EXEC)
}

func platformRelease(addr uintptr, size int) error {
	b := bytesAt(addr, size)
	return unix.Munmap(b)
}

// bytesAt reconstructs a []byte view over an already-mapped region so it
// can be handed to unix.Mprotect/unix.Munmap after the original slice
// returned by Mmap has gone out of scope (e.g. once MakeExec discards the
// writable view).
func bytesAt(addr uintptr, size int) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)
}
