//go:build linux

package memory

import (
	"os"

	"golang.org/x/sys/unix"
)

// meminfoPath is the text fallback used when sysinfo(2) is unavailable
// or reports nothing useful.
const meminfoPath = "/proc/meminfo"

// totalMemoryMB reads total physical memory via sysinfo(2), falling back
// to /proc/meminfo.
func totalMemoryMB() int64 {
	var si unix.Sysinfo_t
	if err := unix.Sysinfo(&si); err == nil {
		total := uint64(si.Totalram) * uint64(si.Unit)
		if total > 0 {
			return int64(total / (1024 * 1024))
		}
	}

	data, err := os.ReadFile(meminfoPath)
	if err != nil {
		return 0
	}
	return parseMeminfoTotalMB(string(data))
}

// availableMemoryMB estimates free memory via sysinfo(2) (free plus buffer
// pages), falling back to /proc/meminfo.
func availableMemoryMB() int64 {
	var si unix.Sysinfo_t
	if err := unix.Sysinfo(&si); err == nil {
		avail := (uint64(si.Freeram) + uint64(si.Bufferram)) * uint64(si.Unit)
		if avail > 0 {
			return int64(avail / (1024 * 1024))
		}
	}

	data, err := os.ReadFile(meminfoPath)
	if err != nil {
		return 0
	}
	return parseMeminfoAvailableMB(string(data))
}
