package memory

import (
	"bufio"
	"strconv"
	"strings"
)

// parseMeminfoTotalMB extracts the MemTotal record from /proc/meminfo-style
// text and converts it from kilobytes to megabytes. Malformed or missing
// records yield the 0 sentinel rather than an error; the caller cannot do
// anything smarter with a broken meminfo than with a failed syscall.
func parseMeminfoTotalMB(text string) int64 {
	kb, ok := meminfoField(text, "MemTotal")
	if !ok {
		return 0
	}
	return kb / 1024
}

// parseMeminfoAvailableMB extracts available memory from /proc/meminfo-style
// text. It prefers the kernel's MemAvailable estimate and falls back to
// MemFree + Buffers + Cached on kernels that predate it.
func parseMeminfoAvailableMB(text string) int64 {
	if kb, ok := meminfoField(text, "MemAvailable"); ok {
		return kb / 1024
	}

	free, okFree := meminfoField(text, "MemFree")
	buffers, okBuffers := meminfoField(text, "Buffers")
	cached, okCached := meminfoField(text, "Cached")
	if !okFree && !okBuffers && !okCached {
		return 0
	}
	return (free + buffers + cached) / 1024
}

// meminfoField scans line-oriented "Key:  value kB" records for the named
// key and returns the value in kilobytes.
func meminfoField(text, key string) (int64, bool) {
	prefix := key + ":"
	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, prefix) {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 {
			return 0, false
		}

		kb, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return 0, false
		}
		return kb, true
	}
	return 0, false
}
