//go:build !linux && !darwin && !windows

package memory

// No memory query is implemented for this platform family; both probes
// report the detection-failed sentinel and the policy engine falls back
// to its fixed default.
func totalMemoryMB() int64     { return 0 }
func availableMemoryMB() int64 { return 0 }
