//go:build windows

package infrastructure

import (
	"syscall"
	"unsafe"
)

// freeBytes returns the bytes available to the caller on the volume holding
// path
func freeBytes(path string) (int64, error) {
	kernel32 := syscall.NewLazyDLL("kernel32.dll")
	proc := kernel32.NewProc("GetDiskFreeSpaceExW")

	pathPtr, err := syscall.UTF16PtrFromString(path)
	if err != nil {
		return 0, err
	}

	var freeBytesAvailable uint64
	ret, _, callErr := proc.Call(
		uintptr(unsafe.Pointer(pathPtr)),
		uintptr(unsafe.Pointer(&freeBytesAvailable)),
		0, 0)
	if ret == 0 {
		return 0, callErr
	}
	return int64(freeBytesAvailable), nil
}
