//go:build darwin

package memory

import (
	"os"

	"golang.org/x/sys/unix"
)

// totalMemoryMB reads total physical memory from the hw.memsize sysctl.
func totalMemoryMB() int64 {
	memsize, err := unix.SysctlUint64("hw.memsize")
	if err != nil {
		return 0
	}
	return int64(memsize / (1024 * 1024))
}

// availableMemoryMB estimates free memory from the VM free page count.
// vm.page_free_count is a 32-bit sysctl.
func availableMemoryMB() int64 {
	freePages, err := unix.SysctlUint32("vm.page_free_count")
	if err != nil {
		return 0
	}
	return int64(uint64(freePages) * uint64(os.Getpagesize()) / (1024 * 1024))
}
