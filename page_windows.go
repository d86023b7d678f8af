package esjit

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// Win32 back end of the page allocator, using golang.org/x/sys/windows
// for VirtualAlloc/VirtualProtect/VirtualFree.

func platformPageSize() (int, error) {
	var info windows.SystemInfo
	windows.GetSystemInfo(&info)
	return int(info.PageSize), nil
}

func platformAllocRW(size int) (uintptr, []byte, error) {
	addr, err := windows.VirtualAlloc(0, uintptr(size), windows.MEM_RESERVE|windows.MEM_COMMIT, windows.PAGE_READWRITE)
	if err != nil {
		return 0, nil, err
	}
	data := bytesAt(addr, size)
	return addr, data, nil
}

func platformMakeExec(addr uintptr, size int) error {
	var old uint32
	return windows.VirtualProtect(addr, uintptr(size), windows.PAGE_EXECUTE_READ, &old)
}

func platformRelease(addr uintptr, size int) error {
	return windows.VirtualFree(addr, 0, windows.MEM_RELEASE)
}

// platformGrow has no in-place growth primitive on Win32 (VirtualAlloc
// cannot extend an existing reservation across an unrelated region), so
// this falls back to allocate-new + copy + free-old.
func platformGrow(oldAddr uintptr, oldData []byte, oldSize, newSize int) (uintptr, []byte, error) {
	newAddr, newData, err := platformAllocRW(newSize)
	if err != nil {
		return 0, nil, err
	}
	copy(newData, bytesAt(oldAddr, oldSize))
	if err := platformRelease(oldAddr, oldSize); err != nil {
		return 0, nil, err
	}
	return newAddr, newData, nil
}

func bytesAt(addr uintptr, size int) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)
}
