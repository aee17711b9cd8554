package syncpolicy

import (
	"sync"

	"github.com/jamesainslie/etch/pkg/etch/logging"
	"github.com/jamesainslie/etch/pkg/etch/memory"
)

// Engine derives sync configurations from detected system memory. It
// probes total memory at most once per process and serves every later
// query from that cached value; total physical memory does not change
// across a process's life on the supported platforms.
//
// Construct one engine and inject it into the writer pipeline. The zero
// value is not usable.
type Engine struct {
	probe  memory.Probe
	policy Policy
	log    *logging.Logger

	detectOnce sync.Once
	totalMB    int64
}

// NewEngine returns an engine that detects memory through probe and
// applies the given policy values.
func NewEngine(probe memory.Probe, policy Policy) *Engine {
	return &Engine{
		probe:  probe,
		policy: policy,
		log:    logging.Get("syncpolicy"),
	}
}

// TotalMemoryMB returns the total physical memory used for tiering, in
// megabytes. The underlying probe runs at most once per engine, even
// under concurrent first-time callers; a non-positive probe result is
// replaced by the policy fallback before caching. There is no error
// path: a sync policy can always be computed.
func (e *Engine) TotalMemoryMB() int64 {
	e.detectOnce.Do(func() {
		total := e.probe.TotalMemoryMB()
		if total <= 0 {
			e.log.Warn("memory detection failed, using fallback",
				"detected_mb", total,
				"fallback_mb", e.policy.FallbackTotalMemoryMB)
			total = e.policy.FallbackTotalMemoryMB
		} else {
			e.log.Debug("detected total memory", "total_mb", total)
		}
		e.totalMB = total
	})
	return e.totalMB
}

// AvailableMemoryMB reports memory for diagnostics surfaces. Available
// memory fluctuates too quickly to be a stable input, so this
// intentionally returns the cached total rather than re-probing; the raw
// probe remains accessible to callers that want the live value.
func (e *Engine) AvailableMemoryMB() int64 {
	return e.TotalMemoryMB()
}

// SyncConfiguration computes the sync thresholds for the cached total.
// Repeated calls within one process return identical values.
func (e *Engine) SyncConfiguration() SyncConfig {
	cfg := Calculate(e.TotalMemoryMB(), e.policy)
	e.log.Debug("sync configuration",
		"tier", cfg.Tier.String(),
		"total_mb", cfg.TotalMemoryMB,
		"interval_bytes", cfg.IntervalBytes,
		"interval", cfg.Interval)
	return cfg
}

// Policy returns the policy values this engine applies.
func (e *Engine) Policy() Policy {
	return e.policy
}
