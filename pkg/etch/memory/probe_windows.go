//go:build windows

package memory

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// globalMemoryStatus wraps GlobalMemoryStatusEx, which reports both total
// and available physical memory in one call.
func globalMemoryStatus() (windows.MemoryStatusEx, bool) {
	var ms windows.MemoryStatusEx
	ms.Length = uint32(unsafe.Sizeof(ms))
	if err := windows.GlobalMemoryStatusEx(&ms); err != nil {
		return ms, false
	}
	return ms, true
}

func totalMemoryMB() int64 {
	ms, ok := globalMemoryStatus()
	if !ok {
		return 0
	}
	return int64(ms.TotalPhys / (1024 * 1024))
}

func availableMemoryMB() int64 {
	ms, ok := globalMemoryStatus()
	if !ok {
		return 0
	}
	return int64(ms.AvailPhys / (1024 * 1024))
}
