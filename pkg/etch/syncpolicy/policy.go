// Package syncpolicy derives write-back sync thresholds from installed
// physical memory. Hosts with little RAM must flush small amounts of dirty
// data often so the kernel never accumulates gigabytes of unwritten pages;
// hosts with plenty of RAM can batch much larger writes for throughput.
// The engine detects total memory once per process, maps it onto one of
// three tiers, and hands the image writer a byte threshold and a time
// threshold for forced flushes.
package syncpolicy

import (
	"fmt"
	"time"
)

// Tier thresholds and interval bounds. These encode flush policy that a
// caller may need to audit or override, so they are exposed as named
// values and mirrored in the Policy struct rather than inlined.
const (
	// DefaultLowMemoryThresholdMB is the total-memory boundary below
	// which a host is treated as low-memory.
	DefaultLowMemoryThresholdMB int64 = 4096

	// DefaultHighMemoryThresholdMB is the total-memory boundary at or
	// above which a host is treated as high-memory.
	DefaultHighMemoryThresholdMB int64 = 16384

	// DefaultMinSyncIntervalBytes is the floor applied to the byte
	// interval after tiering (16 MiB).
	DefaultMinSyncIntervalBytes int64 = 16 * 1024 * 1024

	// DefaultMaxSyncIntervalBytes is the ceiling applied to the byte
	// interval after tiering (256 MiB). It bounds worst-case flush
	// latency on high-memory hosts.
	DefaultMaxSyncIntervalBytes int64 = 256 * 1024 * 1024

	// DefaultFallbackTotalMemoryMB substitutes for the detected total
	// when the platform probe reports failure.
	DefaultFallbackTotalMemoryMB int64 = 4096
)

// Time-based flush intervals per tier.
const (
	// DefaultLowTierInterval is the forced-flush period on low-memory hosts.
	DefaultLowTierInterval = 3000 * time.Millisecond

	// DefaultSyncInterval is the forced-flush period on medium-memory hosts.
	DefaultSyncInterval = 5000 * time.Millisecond

	// DefaultHighTierInterval is the forced-flush period on high-memory hosts.
	DefaultHighTierInterval = 7000 * time.Millisecond
)

// Tier identifies the memory band a host falls into.
type Tier int

// Memory tiers from least to most installed RAM.
const (
	TierLow Tier = iota
	TierMedium
	TierHigh
)

// String returns the tier name as used in diagnostics.
func (t Tier) String() string {
	switch t {
	case TierLow:
		return "Low"
	case TierMedium:
		return "Medium"
	case TierHigh:
		return "High"
	default:
		return "Unknown"
	}
}

// Policy holds the named tuning values for sync configuration. The zero
// value is not useful; start from DefaultPolicy and override fields as
// needed.
type Policy struct {
	// LowMemoryThresholdMB and HighMemoryThresholdMB bound the medium
	// tier: low is [0, Low), medium is [Low, High), high is [High, inf).
	LowMemoryThresholdMB  int64
	HighMemoryThresholdMB int64

	// MinSyncIntervalBytes and MaxSyncIntervalBytes clamp the byte
	// interval after the tier formula runs. The clamp is an independent
	// safety bound, always applied, not a replacement for the formula.
	MinSyncIntervalBytes int64
	MaxSyncIntervalBytes int64

	// FallbackTotalMemoryMB stands in for the detected total when the
	// probe reports a non-positive value.
	FallbackTotalMemoryMB int64

	// Per-tier time intervals between forced flushes.
	LowTierInterval    time.Duration
	MediumTierInterval time.Duration
	HighTierInterval   time.Duration
}

// DefaultPolicy returns the canonical tuning values.
func DefaultPolicy() Policy {
	return Policy{
		LowMemoryThresholdMB:  DefaultLowMemoryThresholdMB,
		HighMemoryThresholdMB: DefaultHighMemoryThresholdMB,
		MinSyncIntervalBytes:  DefaultMinSyncIntervalBytes,
		MaxSyncIntervalBytes:  DefaultMaxSyncIntervalBytes,
		FallbackTotalMemoryMB: DefaultFallbackTotalMemoryMB,
		LowTierInterval:       DefaultLowTierInterval,
		MediumTierInterval:    DefaultSyncInterval,
		HighTierInterval:      DefaultHighTierInterval,
	}
}

// SyncConfig is the write-back configuration derived from total memory.
// The image writer forces a device flush whenever either threshold is
// exceeded, then resets its accumulators.
type SyncConfig struct {
	// IntervalBytes is the amount of unflushed data permitted before a
	// forced flush.
	IntervalBytes int64

	// Interval is the maximum time between forced flushes regardless of
	// bytes written.
	Interval time.Duration

	// Tier is the memory band that produced this configuration.
	Tier Tier

	// TotalMemoryMB is the detected (or fallback) total the tiering ran
	// against, carried for diagnostics.
	TotalMemoryMB int64
}

// Label renders the tier with the total it was derived from,
// e.g. "Medium memory (8192 MB)".
func (c SyncConfig) Label() string {
	return fmt.Sprintf("%s memory (%d MB)", c.Tier, c.TotalMemoryMB)
}

// Calculate derives the sync configuration for the given total memory in
// megabytes. It is a pure function: equal inputs produce equal
// configurations.
//
// The per-tier formulas keep peak dirty-page accumulation near 1.25-1.5%
// of installed RAM on smaller hosts while allowing larger batches, capped
// at 256 MB, where RAM is plentiful. Integer division truncates toward
// zero; the MB-scaled floor/cap runs before unit conversion, and the byte
// clamp runs after it.
func Calculate(totalMB int64, p Policy) SyncConfig {
	var (
		intervalMB int64
		interval   time.Duration
		tier       Tier
	)

	switch {
	case totalMB < p.LowMemoryThresholdMB:
		tier = TierLow
		intervalMB = max(16, totalMB/64)
		interval = p.LowTierInterval
	case totalMB < p.HighMemoryThresholdMB:
		tier = TierMedium
		intervalMB = max(32, totalMB/80)
		interval = p.MediumTierInterval
	default:
		tier = TierHigh
		intervalMB = min(256, max(64, totalMB/64))
		interval = p.HighTierInterval
	}

	intervalBytes := intervalMB * 1024 * 1024
	intervalBytes = max(p.MinSyncIntervalBytes, min(p.MaxSyncIntervalBytes, intervalBytes))

	return SyncConfig{
		IntervalBytes: intervalBytes,
		Interval:      interval,
		Tier:          tier,
		TotalMemoryMB: totalMB,
	}
}
