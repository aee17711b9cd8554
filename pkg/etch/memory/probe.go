// Package memory provides cross-platform detection of installed physical
// memory for the etch image writer. One implementation is selected per
// platform family at compile time; all of them share the same contract:
// sizes are reported in megabytes, truncated toward zero, and a
// non-positive value means detection failed. Callers must treat a
// non-positive result as "unknown", never as zero memory.
//
// Probes perform no caching (caching is the policy engine's concern) and
// never panic; every platform API failure is converted to the sentinel.
package memory

// Probe reports physical memory sizes in megabytes.
type Probe interface {
	// TotalMemoryMB returns the total installed physical memory in
	// megabytes, or a non-positive sentinel when detection fails.
	TotalMemoryMB() int64

	// AvailableMemoryMB returns an estimate of currently available
	// physical memory in megabytes, or a non-positive sentinel when
	// detection fails. The value fluctuates with system load and exists
	// for diagnostics only; it is not a policy input.
	AvailableMemoryMB() int64
}

// SystemProbe queries the operating system the binary was built for.
type SystemProbe struct{}

// TotalMemoryMB implements Probe.
func (SystemProbe) TotalMemoryMB() int64 { return totalMemoryMB() }

// AvailableMemoryMB implements Probe.
func (SystemProbe) AvailableMemoryMB() int64 { return availableMemoryMB() }

var _ Probe = SystemProbe{}
