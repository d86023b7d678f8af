//go:build linux

package esjit

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// Linux back end of the page allocator. Shares platformPageSize,
// platformAllocRW, platformMakeExec, and platformRelease with the rest of
// the POSIX family (page_posix.go); platformGrow additionally takes the
// mremap(2) fast path, which only Linux implements and which
// golang.org/x/sys/unix has no typed wrapper for, so this drops to a raw
// unix.Syscall6 the same way the rest of this package does for any
// syscall its dependencies leave unwrapped.
func platformGrow(oldAddr uintptr, oldData []byte, oldSize, newSize int) (uintptr, []byte, error) {
	newAddr, _, errno := unix.Syscall6(
		unix.SYS_MREMAP,
		oldAddr,
		uintptr(oldSize),
		uintptr(newSize),
		unix.MREMAP_MAYMOVE,
		0, 0,
	)
	if errno != 0 {
		return 0, nil, errno
	}
	data := unsafe.Slice((*byte)(unsafe.Pointer(newAddr)), newSize)
	return newAddr, data, nil
}
